package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/furikaeri/internal/model"
)

const summaryColumns = `id, user_id, content, type, start_date, end_date, created_at`

// PostgresSummaryRepo はPostgreSQLを使用した振り返りリポジトリ。
type PostgresSummaryRepo struct {
	db *sql.DB
}

// NewPostgresSummaryRepo はPostgresSummaryRepoを生成する。
func NewPostgresSummaryRepo(db *sql.DB) *PostgresSummaryRepo {
	return &PostgresSummaryRepo{db: db}
}

func scanSummary(row rowScanner) (*model.Summary, error) {
	var (
		summary                       model.Summary
		summaryType                   string
		startDate, endDate, createdAt sql.NullString
	)
	if err := row.Scan(&summary.ID, &summary.UserID, &summary.Content, &summaryType, &startDate, &endDate, &createdAt); err != nil {
		return nil, err
	}
	summary.Type = model.SummaryType(summaryType)
	summary.StartDate = parseTimestamp(startDate)
	summary.EndDate = parseTimestamp(endDate)
	summary.CreatedAt = parseTimestamp(createdAt)
	return &summary, nil
}

// FindByID は指定IDの振り返りを取得する。見つからない場合はnilを返す。
func (r *PostgresSummaryRepo) FindByID(ctx context.Context, id int64) (*model.Summary, error) {
	summary, err := scanSummary(r.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find summary by ID: %w", err)
	}
	return summary, nil
}

// FindByUserID はユーザーの振り返りを作成日時の降順で返す。
func (r *PostgresSummaryRepo) FindByUserID(ctx context.Context, userID string) ([]*model.Summary, error) {
	return r.querySummaries(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// FindByUserIDAndType はユーザーの指定種類の振り返りを作成日時の降順で返す。
func (r *PostgresSummaryRepo) FindByUserIDAndType(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error) {
	return r.querySummaries(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE user_id = $1 AND type = $2 ORDER BY created_at DESC, id DESC`,
		userID, string(summaryType),
	)
}

// FindByDateRange は期間が[start, end]に収まる振り返りを全ユーザー分返す。
func (r *PostgresSummaryRepo) FindByDateRange(ctx context.Context, start, end time.Time) ([]*model.Summary, error) {
	return r.querySummaries(ctx,
		`SELECT `+summaryColumns+` FROM summaries
		 WHERE start_date >= $1 AND end_date <= $2
		 ORDER BY created_at DESC, id DESC`,
		formatTimestamp(start), formatTimestamp(end),
	)
}

func (r *PostgresSummaryRepo) querySummaries(ctx context.Context, query string, args ...any) ([]*model.Summary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]*model.Summary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}
	return summaries, nil
}

// Create は振り返りを作成する。
func (r *PostgresSummaryRepo) Create(ctx context.Context, data model.CreateSummaryData) (*model.Summary, error) {
	ts := now()

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO summaries (user_id, content, type, start_date, end_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		data.UserID, data.Content, string(data.Type),
		formatTimestamp(data.StartDate), formatTimestamp(data.EndDate), formatTimestamp(ts),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert summary: %w", err)
	}

	return &model.Summary{
		ID:        id,
		UserID:    data.UserID,
		Content:   data.Content,
		Type:      data.Type,
		StartDate: data.StartDate,
		EndDate:   data.EndDate,
		CreatedAt: ts,
	}, nil
}

// Delete は指定IDの振り返りを削除する。削除した場合にtrueを返す。
func (r *PostgresSummaryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete summary: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ SummaryRepository = (*PostgresSummaryRepo)(nil)
