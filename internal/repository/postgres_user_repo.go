package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/furikaeri/internal/model"
)

const userColumns = `id, email, name, avatar_url, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user                 model.User
		avatarURL            sql.NullString
		createdAt, updatedAt sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &avatarURL, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	user.AvatarURL = stringPtr(avatarURL)
	user.CreatedAt = parseTimestamp(createdAt)
	user.UpdatedAt = parseTimestamp(updatedAt)
	return &user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, data model.CreateUserData) (*model.User, error) {
	ts := now()
	tsStr := formatTimestamp(ts)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		data.ID, data.Email, data.Name, nullableString(data.AvatarURL), tsStr, tsStr,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &model.User{
		ID:        data.ID,
		Email:     data.Email,
		Name:      data.Name,
		AvatarURL: data.AvatarURL,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// Update はnameとavatarUrlを部分更新する。
// 存在確認と更新は別文で行うため、同時更新は後勝ちとなる。
func (r *PostgresUserRepo) Update(ctx context.Context, id string, data model.UpdateUserData) (*model.User, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}
	if data.IsEmpty() {
		return current, nil
	}

	var (
		sets []string
		args []any
	)
	if data.Name != nil {
		args = append(args, *data.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if data.AvatarURL != nil {
		args = append(args, nullableString(data.AvatarURL))
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", len(args)))
	}
	args = append(args, formatTimestamp(now()))
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args))

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Delete は指定IDのユーザーを削除する。
// 関連するposts、summariesはCASCADE削除される。
func (r *PostgresUserRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
