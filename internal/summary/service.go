// Package summary は振り返りの取得・生成・削除のドメインロジックを提供する。
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/furikaeri/internal/model"
	"github.com/hitoshi/furikaeri/internal/repository"
)

// MetricsRecorder は振り返り生成のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSummaryGenerated(summaryType string, duration time.Duration)
	RecordSummarySkipped(summaryType string)
	RecordSummaryFailure(summaryType string)
}

// Service は振り返り管理のサービス層。
type Service struct {
	summaryRepo repository.SummaryRepository
	postRepo    repository.PostRepository
	generator   Generator
	metrics     MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// generatorがnilの場合はTemplateGeneratorを使用する。metricsはnilでもよい。
func NewService(
	summaryRepo repository.SummaryRepository,
	postRepo repository.PostRepository,
	generator Generator,
	metrics MetricsRecorder,
) *Service {
	if generator == nil {
		generator = NewTemplateGenerator()
	}
	return &Service{
		summaryRepo: summaryRepo,
		postRepo:    postRepo,
		generator:   generator,
		metrics:     metrics,
	}
}

// GetSummary は指定IDの振り返りを取得する。見つからない場合はnilを返す。
func (s *Service) GetSummary(ctx context.Context, id int64) (*model.Summary, error) {
	summary, err := s.summaryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("振り返りの取得に失敗しました: %w", err)
	}
	return summary, nil
}

// ListSummaries はユーザーの振り返りを返す。summaryTypeが空でなければ種類で絞り込む。
func (s *Service) ListSummaries(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error) {
	var (
		summaries []*model.Summary
		err       error
	)
	if summaryType == "" {
		summaries, err = s.summaryRepo.FindByUserID(ctx, userID)
	} else {
		summaries, err = s.summaryRepo.FindByUserIDAndType(ctx, userID, summaryType)
	}
	if err != nil {
		return nil, fmt.Errorf("振り返り一覧の取得に失敗しました: %w", err)
	}
	return summaries, nil
}

// ListSummariesInRange は期間が[start, end]に収まる振り返りを全ユーザー分返す。
func (s *Service) ListSummariesInRange(ctx context.Context, start, end time.Time) ([]*model.Summary, error) {
	summaries, err := s.summaryRepo.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("振り返り一覧の取得に失敗しました: %w", err)
	}
	return summaries, nil
}

// CreateSummary は振り返りをそのまま保存する。通常はGenerate経由で作成する。
func (s *Service) CreateSummary(ctx context.Context, data model.CreateSummaryData) (*model.Summary, error) {
	summary, err := s.summaryRepo.Create(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("振り返りの作成に失敗しました: %w", err)
	}
	return summary, nil
}

// GenerateWeeklySummary は週間振り返りを生成する。
func (s *Service) GenerateWeeklySummary(ctx context.Context, userID string, start, end time.Time) (*model.Summary, error) {
	return s.Generate(ctx, model.SummaryTypeWeekly, userID, start, end)
}

// GenerateMonthlySummary は月間振り返りを生成する。
func (s *Service) GenerateMonthlySummary(ctx context.Context, userID string, start, end time.Time) (*model.Summary, error) {
	return s.Generate(ctx, model.SummaryTypeMonthly, userID, start, end)
}

// Generate は[start, end]の投稿から振り返りを生成して保存する。
// 対象期間に投稿がない場合は何も保存せずnil, nilを返す。
// 生成バックエンドの失敗は502のAppErrorになる。
func (s *Service) Generate(ctx context.Context, summaryType model.SummaryType, userID string, start, end time.Time) (*model.Summary, error) {
	posts, err := s.postRepo.FindByUserIDAndDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("期間内の投稿の取得に失敗しました: %w", err)
	}

	if len(posts) == 0 {
		if s.metrics != nil {
			s.metrics.RecordSummarySkipped(string(summaryType))
		}
		slog.Info("対象期間に投稿がないため振り返りを生成しません",
			slog.String("user_id", userID),
			slog.String("type", string(summaryType)),
		)
		return nil, nil
	}

	began := time.Now()
	content, err := s.generator.Generate(ctx, Request{
		UserID:    userID,
		Type:      summaryType,
		StartDate: start,
		EndDate:   end,
		Posts:     posts,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSummaryFailure(string(summaryType))
		}
		slog.Error("振り返りの生成に失敗しました",
			slog.String("user_id", userID),
			slog.String("type", string(summaryType)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, ErrGeneration) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &model.AppError{
				Kind:    model.ErrKindInternal,
				Status:  http.StatusBadGateway,
				Message: "振り返りの生成に失敗しました",
				Err:     err,
			}
		}
		return nil, err
	}

	summary, err := s.summaryRepo.Create(ctx, model.CreateSummaryData{
		UserID:    userID,
		Content:   content,
		Type:      summaryType,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("振り返りの保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSummaryGenerated(string(summaryType), time.Since(began))
	}
	slog.Info("振り返りを生成しました",
		slog.Int64("summary_id", summary.ID),
		slog.String("user_id", userID),
		slog.String("type", string(summaryType)),
		slog.Int("post_count", len(posts)),
	)
	return summary, nil
}

// DeleteSummary は振り返りを削除する。削除した場合にtrueを返す。
// 所有者チェックは呼び出し側で行う。
func (s *Service) DeleteSummary(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.summaryRepo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("振り返りの削除に失敗しました: %w", err)
	}
	return deleted, nil
}
