// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/furikaeri/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, data model.CreateUserData) (*model.User, error)

	// Update はnameとavatarUrlを部分更新する。
	// ユーザーが存在しない場合はnilを返す。更新フィールドがない場合は既存のレコードを返す。
	Update(ctx context.Context, id string, data model.UpdateUserData) (*model.User, error)

	// Delete は指定IDのユーザーを削除する。削除した場合にtrueを返す。
	// 関連するposts、summariesはCASCADE削除される。
	Delete(ctx context.Context, id string) (bool, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Post, error)

	// FindByUserID はユーザーの投稿を作成日時の降順で返す。
	FindByUserID(ctx context.Context, userID string) ([]*model.Post, error)

	// FindByUserIDAndDateRange は作成日時が[start, end]に含まれる投稿を作成日時の降順で返す。
	FindByUserIDAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error)

	// Create は投稿を作成する。IDはストアが採番する。
	Create(ctx context.Context, data model.CreatePostData) (*model.Post, error)

	// Update はcontentとimageUrlを部分更新する。
	// 投稿が存在しない場合はnilを返す。更新フィールドがない場合は既存のレコードを返す。
	Update(ctx context.Context, id int64, data model.UpdatePostData) (*model.Post, error)

	// Delete は指定IDの投稿を削除する。削除した場合にtrueを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// SummaryRepository は振り返りデータの永続化インターフェース。
type SummaryRepository interface {
	// FindByID は指定IDの振り返りを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Summary, error)

	// FindByUserID はユーザーの振り返りを作成日時の降順で返す。
	FindByUserID(ctx context.Context, userID string) ([]*model.Summary, error)

	// FindByUserIDAndType はユーザーの指定種類の振り返りを作成日時の降順で返す。
	FindByUserIDAndType(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error)

	// FindByDateRange は期間が[start, end]に収まる振り返りを全ユーザー分返す。
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*model.Summary, error)

	// Create は振り返りを作成する。
	Create(ctx context.Context, data model.CreateSummaryData) (*model.Summary, error)

	// Delete は指定IDの振り返りを削除する。削除した場合にtrueを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}
