package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/furikaeri/internal/auth"
	"github.com/hitoshi/furikaeri/internal/middleware"
	"github.com/hitoshi/furikaeri/internal/model"
	"github.com/hitoshi/furikaeri/internal/security"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
// 所有者チェックはサービス側で行う。
type PostServiceInterface interface {
	GetOwnedPost(ctx context.Context, id int64, callerID string) (*model.Post, error)
	ListPosts(ctx context.Context, userID string) ([]*model.Post, error)
	ListPostsInRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error)
	CreatePost(ctx context.Context, data model.CreatePostData) (*model.Post, error)
	UpdatePost(ctx context.Context, id int64, callerID string, data model.UpdatePostData) (*model.Post, error)
	DeletePost(ctx context.Context, id int64, callerID string) (bool, error)
}

const msgInvalidPostID = "無効な投稿IDです"

// PostHandler は投稿のHTTPハンドラー。
type PostHandler struct {
	service   PostServiceInterface
	urlGuard  security.URLGuard
	responder *middleware.ErrorResponder
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, urlGuard security.URLGuard, responder *middleware.ErrorResponder) *PostHandler {
	return &PostHandler{
		service:   service,
		urlGuard:  urlGuard,
		responder: responder,
	}
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Content  string  `json:"content" validate:"notblank,max=10000"`
	ImageURL *string `json:"imageUrl" validate:"omitempty,url,max=2048"`
}

// updatePostRequest は投稿更新リクエストのボディ。
type updatePostRequest struct {
	Content  *string `json:"content" validate:"omitempty,notblank,max=10000"`
	ImageURL *string `json:"imageUrl" validate:"omitempty,url,max=2048"`
}

var postMessages = map[string]string{
	"content":  "投稿内容は必須です",
	"imageUrl": "無効な画像URLです",
}

// ListPosts は呼び出し元の投稿一覧を返す。
// from、toを指定した場合は作成日時がその範囲の投稿のみを返す。
// GET /posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	var (
		posts []*model.Post
		err   error
	)
	if fromStr == "" && toStr == "" {
		posts, err = h.service.ListPosts(r.Context(), caller.UserID)
	} else {
		start, end, rangeErr := parseDateRange(fromStr, toStr, false)
		if rangeErr != nil {
			h.responder.WriteError(w, r, rangeErr)
			return
		}
		posts, err = h.service.ListPostsInRange(r.Context(), caller.UserID, start, end)
	}
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponses(posts))
}

// GetPost は投稿を返す。所有者以外は403。
// GET /posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	id, ok := parseIDParam(r)
	if !ok {
		h.responder.WriteError(w, r, model.NewValidationError(msgInvalidPostID, nil))
		return
	}

	post, err := h.service.GetOwnedPost(r.Context(), id, caller.UserID)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// CreatePost は投稿を作成する。
// POST /posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if err := validateRequest(req, postMessages, "入力内容が正しくありません"); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if err := h.checkImageURL(req.ImageURL); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), model.CreatePostData{
		UserID:   caller.UserID,
		Content:  req.Content,
		ImageURL: emptyToNil(req.ImageURL),
	})
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// UpdatePost は投稿を部分更新する。
// PATCH /posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	id, ok := parseIDParam(r)
	if !ok {
		h.responder.WriteError(w, r, model.NewValidationError(msgInvalidPostID, nil))
		return
	}

	var req updatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if req.Content != nil && *req.Content == "" {
		h.responder.WriteError(w, r, model.NewValidationError(postMessages["content"], nil))
		return
	}
	if err := validateRequest(req, postMessages, "入力内容が正しくありません"); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if err := h.checkImageURL(req.ImageURL); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	// imageUrlの空文字は画像の削除として扱い、NULLで保存される
	post, err := h.service.UpdatePost(r.Context(), id, caller.UserID, model.UpdatePostData{
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// DeletePost は投稿を削除する。
// DELETE /posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	id, ok := parseIDParam(r)
	if !ok {
		h.responder.WriteError(w, r, model.NewValidationError(msgInvalidPostID, nil))
		return
	}

	deleted, err := h.service.DeletePost(r.Context(), id, caller.UserID)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if !deleted {
		h.responder.WriteError(w, r, model.NewNotFoundError("投稿が見つかりません", nil))
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// checkImageURL は画像URLが公開されたhttp/httpsのURLであることを確認する。
func (h *PostHandler) checkImageURL(imageURL *string) error {
	if imageURL == nil || *imageURL == "" {
		return nil
	}
	if err := h.urlGuard.ValidateURL(*imageURL); err != nil {
		return model.NewValidationError(postMessages["imageUrl"], nil)
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// parseDateRange は開始日と終了日を解析する。
// strictがtrueの場合は開始日と終了日が同じ時刻であることも許さない。
func parseDateRange(startStr, endStr string, strict bool) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, model.NewValidationError("開始日と終了日は必須です", nil)
	}

	start, ok1 := parseDate(startStr)
	end, ok2 := parseDate(endStr)
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, model.NewValidationError("無効な日付形式です", nil)
	}

	if start.After(end) || (strict && start.Equal(end)) {
		return time.Time{}, time.Time{}, model.NewValidationError("開始日は終了日より前である必要があります", nil)
	}
	return start, end, nil
}
