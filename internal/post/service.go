// Package post は投稿管理のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/furikaeri/internal/model"
	"github.com/hitoshi/furikaeri/internal/repository"
	"github.com/hitoshi/furikaeri/internal/security"
)

// MetricsRecorder は投稿関連のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordPostCreated()
}

// Service は投稿管理のサービス層。
// 所有者チェックはリポジトリではなくこの層で行う。
type Service struct {
	postRepo  repository.PostRepository
	sanitizer security.ContentSanitizer
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(postRepo repository.PostRepository, sanitizer security.ContentSanitizer, metrics MetricsRecorder) *Service {
	return &Service{
		postRepo:  postRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// GetPost は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (s *Service) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	return post, nil
}

// GetOwnedPost は呼び出し元が所有する投稿を取得する。
// 存在しない場合はNotFound、所有者でない場合はForbiddenを返す。
func (s *Service) GetOwnedPost(ctx context.Context, id int64, callerID string) (*model.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, model.NewNotFoundError("投稿が見つかりません", nil)
	}
	if post.UserID != callerID {
		return nil, model.NewForbiddenError("この投稿を閲覧する権限がありません", nil)
	}
	return post, nil
}

// ListPosts はユーザーの投稿を作成日時の降順で返す。
func (s *Service) ListPosts(ctx context.Context, userID string) ([]*model.Post, error) {
	posts, err := s.postRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// ListPostsInRange は作成日時が[start, end]に含まれるユーザーの投稿を返す。
func (s *Service) ListPostsInRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error) {
	posts, err := s.postRepo.FindByUserIDAndDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// CreatePost は投稿を作成する。本文はサニタイズしてから保存する。
// サニタイズ後に本文が空になる場合はValidationErrorを返す。
func (s *Service) CreatePost(ctx context.Context, data model.CreatePostData) (*model.Post, error) {
	content, err := s.cleanContent(data.Content)
	if err != nil {
		return nil, err
	}
	data.Content = content

	post, err := s.postRepo.Create(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPostCreated()
	}
	slog.Debug("投稿を作成しました",
		slog.Int64("post_id", post.ID),
		slog.String("user_id", post.UserID),
	)
	return post, nil
}

// UpdatePost は投稿を部分更新する。
// 存在しない場合はNotFound、所有者でない場合はForbiddenを返し、レコードは変更しない。
func (s *Service) UpdatePost(ctx context.Context, id int64, callerID string, data model.UpdatePostData) (*model.Post, error) {
	if _, err := s.ownedForMutation(ctx, id, callerID, "この投稿を更新する権限がありません"); err != nil {
		return nil, err
	}

	if data.Content != nil {
		content, err := s.cleanContent(*data.Content)
		if err != nil {
			return nil, err
		}
		data.Content = &content
	}

	post, err := s.postRepo.Update(ctx, id, data)
	if err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewNotFoundError("投稿が見つかりません", nil)
	}
	return post, nil
}

// DeletePost は投稿を削除する。削除した場合にtrueを返す。
// 存在しない場合はNotFound、所有者でない場合はForbiddenを返す。
func (s *Service) DeletePost(ctx context.Context, id int64, callerID string) (bool, error) {
	if _, err := s.ownedForMutation(ctx, id, callerID, "この投稿を削除する権限がありません"); err != nil {
		return false, err
	}

	deleted, err := s.postRepo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	return deleted, nil
}

func (s *Service) ownedForMutation(ctx context.Context, id int64, callerID, forbiddenMsg string) (*model.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, model.NewNotFoundError("投稿が見つかりません", nil)
	}
	if post.UserID != callerID {
		slog.Warn("所有者でないユーザーによる投稿の変更を拒否しました",
			slog.Int64("post_id", id),
			slog.String("user_id", callerID),
		)
		return nil, model.NewForbiddenError(forbiddenMsg, nil)
	}
	return post, nil
}

func (s *Service) cleanContent(raw string) (string, error) {
	content := s.sanitizer.Sanitize(raw)
	if content == "" {
		return "", model.NewValidationError("投稿内容は必須です", nil)
	}
	return content, nil
}
