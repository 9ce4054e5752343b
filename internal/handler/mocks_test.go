package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/furikaeri/internal/middleware"
	"github.com/hitoshi/furikaeri/internal/model"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	getUserFn    func(ctx context.Context, id string) (*model.User, error)
	updateUserFn func(ctx context.Context, id string, data model.UpdateUserData) (*model.User, error)
	deleteUserFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockUserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) UpdateUser(ctx context.Context, id string, data model.UpdateUserData) (*model.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, id, data)
	}
	return nil, nil
}

func (m *mockUserService) DeleteUser(ctx context.Context, id string) (bool, error) {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(ctx, id)
	}
	return false, nil
}

// mockPostService はPostServiceInterfaceのモック実装。
type mockPostService struct {
	getOwnedPostFn     func(ctx context.Context, id int64, callerID string) (*model.Post, error)
	listPostsFn        func(ctx context.Context, userID string) ([]*model.Post, error)
	listPostsInRangeFn func(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error)
	createPostFn       func(ctx context.Context, data model.CreatePostData) (*model.Post, error)
	updatePostFn       func(ctx context.Context, id int64, callerID string, data model.UpdatePostData) (*model.Post, error)
	deletePostFn       func(ctx context.Context, id int64, callerID string) (bool, error)
}

func (m *mockPostService) GetOwnedPost(ctx context.Context, id int64, callerID string) (*model.Post, error) {
	if m.getOwnedPostFn != nil {
		return m.getOwnedPostFn(ctx, id, callerID)
	}
	return nil, model.NewNotFoundError("投稿が見つかりません", nil)
}

func (m *mockPostService) ListPosts(ctx context.Context, userID string) ([]*model.Post, error) {
	if m.listPostsFn != nil {
		return m.listPostsFn(ctx, userID)
	}
	return []*model.Post{}, nil
}

func (m *mockPostService) ListPostsInRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error) {
	if m.listPostsInRangeFn != nil {
		return m.listPostsInRangeFn(ctx, userID, start, end)
	}
	return []*model.Post{}, nil
}

func (m *mockPostService) CreatePost(ctx context.Context, data model.CreatePostData) (*model.Post, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, data)
	}
	return &model.Post{ID: 1, UserID: data.UserID, Content: data.Content, ImageURL: data.ImageURL}, nil
}

func (m *mockPostService) UpdatePost(ctx context.Context, id int64, callerID string, data model.UpdatePostData) (*model.Post, error) {
	if m.updatePostFn != nil {
		return m.updatePostFn(ctx, id, callerID, data)
	}
	return nil, model.NewNotFoundError("投稿が見つかりません", nil)
}

func (m *mockPostService) DeletePost(ctx context.Context, id int64, callerID string) (bool, error) {
	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, id, callerID)
	}
	return false, nil
}

// mockSummaryService はSummaryServiceInterfaceのモック実装。
type mockSummaryService struct {
	getSummaryFn    func(ctx context.Context, id int64) (*model.Summary, error)
	listSummariesFn func(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error)
	generateFn      func(ctx context.Context, summaryType model.SummaryType, userID string, start, end time.Time) (*model.Summary, error)
	deleteSummaryFn func(ctx context.Context, id int64) (bool, error)
}

func (m *mockSummaryService) GetSummary(ctx context.Context, id int64) (*model.Summary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSummaryService) ListSummaries(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error) {
	if m.listSummariesFn != nil {
		return m.listSummariesFn(ctx, userID, summaryType)
	}
	return []*model.Summary{}, nil
}

func (m *mockSummaryService) Generate(ctx context.Context, summaryType model.SummaryType, userID string, start, end time.Time) (*model.Summary, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, summaryType, userID, start, end)
	}
	return nil, nil
}

func (m *mockSummaryService) DeleteSummary(ctx context.Context, id int64) (bool, error) {
	if m.deleteSummaryFn != nil {
		return m.deleteSummaryFn(ctx, id)
	}
	return false, nil
}

// --- ヘルパー ---

func testResponder() *middleware.ErrorResponder {
	return middleware.NewErrorResponder("production")
}

// withURLParam はchiのURLパラメータを設定したリクエストを返す。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeAppError はAppErrorのレスポンスボディをデコードする。
func decodeAppError(t *testing.T, w *httptest.ResponseRecorder) middleware.AppErrorBody {
	t.Helper()
	var body middleware.AppErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error response: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

func strPtr(s string) *string { return &s }

var fixedTime = time.Date(2024, 3, 4, 5, 6, 7, 890_000_000, time.UTC)

func slogDiscard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func jsonNumber(id int64) string { return strconv.FormatInt(id, 10) }
