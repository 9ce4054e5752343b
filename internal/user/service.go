// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/furikaeri/internal/model"
	"github.com/hitoshi/furikaeri/internal/repository"
)

// Service はユーザー管理のサービス層。
// User操作は常に本人のレコードが対象のため、所有者チェックは行わない。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// GetUser は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// GetUserByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// CreateOrUpdateUser はIDをキーにユーザーを作成または更新する。
// 既存ユーザーはnameとavatarUrlを上書きする（後勝ち）。
// 更新結果が得られない場合は500のAppErrorを返す。
func (s *Service) CreateOrUpdateUser(ctx context.Context, data model.CreateUserData) (*model.User, error) {
	existing, err := s.userRepo.FindByID(ctx, data.ID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if existing == nil {
		user, err := s.userRepo.Create(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
		}
		slog.Info("ユーザーを作成しました", slog.String("user_id", user.ID))
		return user, nil
	}

	name := data.Name
	updated, err := s.userRepo.Update(ctx, data.ID, model.UpdateUserData{
		Name:      &name,
		AvatarURL: data.AvatarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewAppError(http.StatusInternalServerError, "Failed to update user", map[string]string{"userId": data.ID})
	}
	return updated, nil
}

// UpdateUser はnameとavatarUrlを部分更新する。ユーザーが存在しない場合はnilを返す。
func (s *Service) UpdateUser(ctx context.Context, id string, data model.UpdateUserData) (*model.User, error) {
	user, err := s.userRepo.Update(ctx, id, data)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return user, nil
}

// DeleteUser はユーザーを削除する。削除した場合にtrueを返す。
// posts、summariesはCASCADE削除される。
func (s *Service) DeleteUser(ctx context.Context, id string) (bool, error) {
	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if deleted {
		slog.Info("ユーザーを削除しました", slog.String("user_id", id))
	}
	return deleted, nil
}

// placeholderEmailDomain はメールアドレスを持たないトークンのユーザーに割り当てるドメイン。
// .invalid はRFC 2606で予約されており、実在のアドレスと衝突しない。
const placeholderEmailDomain = "users.invalid"

// PlaceholderEmail はメールアドレスが不明なユーザーのための固定アドレスを返す。
func PlaceholderEmail(userID string) string {
	return userID + "@" + placeholderEmailDomain
}

// SyncIdentity は検証済みの呼び出し元情報をusersテーブルに反映する。
// 未登録なら作成し、登録済みでnameまたはavatarUrlが変わっていれば更新する。
// トークンにemailクレームがない未登録ユーザーはPlaceholderEmailで作成する。
func (s *Service) SyncIdentity(ctx context.Context, data model.CreateUserData) error {
	existing, err := s.userRepo.FindByID(ctx, data.ID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if existing == nil {
		if data.Email == "" {
			data.Email = PlaceholderEmail(data.ID)
			if data.Name == "" {
				data.Name = data.ID
			}
			slog.Info("emailクレームがないため仮のメールアドレスでユーザーを作成します", slog.String("user_id", data.ID))
		}
		other, err := s.userRepo.FindByEmail(ctx, data.Email)
		if err != nil {
			return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
		}
		if other != nil {
			return model.NewAppError(http.StatusConflict, "このメールアドレスは別のユーザーで登録済みです", nil)
		}
		if data.Name == "" {
			data.Name = data.Email
		}
		_, err = s.CreateOrUpdateUser(ctx, data)
		return err
	}

	if !identityChanged(existing, data) {
		return nil
	}
	if data.Name == "" {
		data.Name = existing.Name
	}
	_, err = s.CreateOrUpdateUser(ctx, data)
	return err
}

func identityChanged(existing *model.User, data model.CreateUserData) bool {
	if data.Name != "" && data.Name != existing.Name {
		return true
	}
	if data.AvatarURL == nil {
		return false
	}
	return existing.AvatarURL == nil || *existing.AvatarURL != *data.AvatarURL
}
