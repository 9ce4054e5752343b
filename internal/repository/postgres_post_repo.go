package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/furikaeri/internal/model"
)

const postColumns = `id, user_id, content, image_url, created_at, updated_at`

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		post                 model.Post
		imageURL             sql.NullString
		createdAt, updatedAt sql.NullString
	)
	if err := row.Scan(&post.ID, &post.UserID, &post.Content, &imageURL, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	post.ImageURL = stringPtr(imageURL)
	post.CreatedAt = parseTimestamp(createdAt)
	post.UpdatedAt = parseTimestamp(updatedAt)
	return &post, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

// FindByUserID はユーザーの投稿を作成日時の降順で返す。
func (r *PostgresPostRepo) FindByUserID(ctx context.Context, userID string) ([]*model.Post, error) {
	return r.queryPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// FindByUserIDAndDateRange は作成日時が[start, end]に含まれる投稿を作成日時の降順で返す。
func (r *PostgresPostRepo) FindByUserIDAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error) {
	return r.queryPosts(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		 ORDER BY created_at DESC, id DESC`,
		userID, formatTimestamp(start), formatTimestamp(end),
	)
}

func (r *PostgresPostRepo) queryPosts(ctx context.Context, query string, args ...any) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*model.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// Create は投稿を作成する。IDはストアが採番する。
func (r *PostgresPostRepo) Create(ctx context.Context, data model.CreatePostData) (*model.Post, error) {
	ts := now()
	tsStr := formatTimestamp(ts)

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO posts (user_id, content, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		data.UserID, data.Content, nullableString(data.ImageURL), tsStr, tsStr,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	return &model.Post{
		ID:        id,
		UserID:    data.UserID,
		Content:   data.Content,
		ImageURL:  data.ImageURL,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// Update はcontentとimageUrlを部分更新する。
// 存在確認と更新は別文で行うため、同時更新は後勝ちとなる。
func (r *PostgresPostRepo) Update(ctx context.Context, id int64, data model.UpdatePostData) (*model.Post, error) {
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
	if data.Content != nil {
		args = append(args, *data.Content)
		sets = append(sets, fmt.Sprintf("content = $%d", len(args)))
	}
	if data.ImageURL != nil {
		args = append(args, nullableString(data.ImageURL))
		sets = append(sets, fmt.Sprintf("image_url = $%d", len(args)))
	}
	args = append(args, formatTimestamp(now()))
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d RETURNING `+postColumns,
		strings.Join(sets, ", "), len(args))

	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

// Delete は指定IDの投稿を削除する。削除した場合にtrueを返す。
func (r *PostgresPostRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
