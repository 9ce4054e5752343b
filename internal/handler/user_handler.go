package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/furikaeri/internal/auth"
	"github.com/hitoshi/furikaeri/internal/middleware"
	"github.com/hitoshi/furikaeri/internal/model"
	"github.com/hitoshi/furikaeri/internal/security"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, data model.UpdateUserData) (*model.User, error)
	// DeleteUser はユーザーを削除する。posts、summariesはCASCADE削除される。
	DeleteUser(ctx context.Context, id string) (bool, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	urlGuard  security.URLGuard
	responder *middleware.ErrorResponder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, urlGuard security.URLGuard, responder *middleware.ErrorResponder) *UserHandler {
	return &UserHandler{
		service:   service,
		urlGuard:  urlGuard,
		responder: responder,
	}
}

// updateUserRequest はユーザー更新リクエストのボディ。
type updateUserRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=2048"`
}

var updateUserMessages = map[string]string{
	"name":      "名前は100文字以内で入力してください",
	"avatarUrl": "無効なアバターURLです",
}

// GetMe は呼び出し元のユーザー情報を返す。
// GET /users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	user, err := h.service.GetUser(r.Context(), caller.UserID)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if user == nil {
		h.responder.WriteError(w, r, model.NewNotFoundError("ユーザーが見つかりません", nil))
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateMe は呼び出し元のnameとavatarUrlを部分更新する。
// PATCH /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if err := validateRequest(req, updateUserMessages, "入力内容が正しくありません"); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if req.AvatarURL != nil && *req.AvatarURL != "" {
		if err := h.urlGuard.ValidateURL(*req.AvatarURL); err != nil {
			h.responder.WriteError(w, r, model.NewValidationError(updateUserMessages["avatarUrl"], nil))
			return
		}
	}

	updated, err := h.service.UpdateUser(r.Context(), caller.UserID, model.UpdateUserData{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if updated == nil {
		h.responder.WriteError(w, r, model.NewAppError(http.StatusInternalServerError, "ユーザーの更新に失敗しました", nil))
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// DeleteMe は呼び出し元のユーザーを削除する。
// DELETE /users/me
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	deleted, err := h.service.DeleteUser(r.Context(), caller.UserID)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if !deleted {
		h.responder.WriteError(w, r, model.NewNotFoundError("ユーザーが見つかりません", nil))
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
