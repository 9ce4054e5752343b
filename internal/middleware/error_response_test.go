package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/furikaeri/internal/model"
)

// TestWriteError_AppErrorEnvelope はAppErrorが統一エラーフォーマットで書き込まれることを検証する。
func TestWriteError_AppErrorEnvelope(t *testing.T) {
	responder := NewErrorResponder("production")
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/posts/1", nil)

	responder.WriteError(w, r, model.NewForbiddenError("この投稿を閲覧する権限がありません", map[string]string{"postId": "1"}))

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body struct {
		Success *bool `json:"success"`
		Error   struct {
			Message string            `json:"message"`
			Status  int               `json:"status"`
			Data    map[string]string `json:"data"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Success == nil || *body.Success {
		t.Errorf("success = %v, want false", body.Success)
	}
	if body.Error.Message != "この投稿を閲覧する権限がありません" {
		t.Errorf("message = %q", body.Error.Message)
	}
	if body.Error.Status != http.StatusForbidden {
		t.Errorf("error.status = %d, want %d", body.Error.Status, http.StatusForbidden)
	}
	if body.Error.Data["postId"] != "1" {
		t.Errorf("data.postId = %q, want %q", body.Error.Data["postId"], "1")
	}
}

// TestWriteError_WrappedAppError はラップされたAppErrorも同じ形式で書き込まれることを検証する。
func TestWriteError_WrappedAppError(t *testing.T) {
	responder := NewErrorResponder("production")
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/posts/1", nil)

	err := fmt.Errorf("get post: %w", model.NewNotFoundError("投稿が見つかりません", nil))
	responder.WriteError(w, r, err)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if _, ok := raw["success"]; !ok {
		t.Error("expected success field in AppError envelope")
	}

	var info map[string]any
	if err := json.Unmarshal(raw["error"], &info); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if _, ok := info["data"]; ok {
		t.Error("data should be omitted when nil")
	}
}

// TestWriteError_UnknownError_Redacted は本番環境で分類されていないエラーのメッセージが隠されることを検証する。
func TestWriteError_UnknownError_Redacted(t *testing.T) {
	responder := NewErrorResponder("production")
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/posts", nil)

	responder.WriteError(w, r, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if _, ok := raw["success"]; ok {
		t.Error("unknown error envelope should not contain success")
	}

	var body UnknownErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Error.Message != "Internal Server Error" {
		t.Errorf("message = %q, want %q", body.Error.Message, "Internal Server Error")
	}
	if body.Error.Status != http.StatusInternalServerError {
		t.Errorf("error.status = %d, want 500", body.Error.Status)
	}
}

// TestWriteError_UnknownError_ExposedInDevelopment はdevelopment/localでは元のメッセージを返すことを検証する。
func TestWriteError_UnknownError_ExposedInDevelopment(t *testing.T) {
	for _, env := range []string{"development", "local"} {
		t.Run(env, func(t *testing.T) {
			responder := NewErrorResponder(env)
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/posts", nil)

			responder.WriteError(w, r, errors.New("pq: connection refused"))

			var body UnknownErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Error.Message != "pq: connection refused" {
				t.Errorf("message = %q", body.Error.Message)
			}
		})
	}
}

func TestErrorResponder_NotFoundAndMethodNotAllowed(t *testing.T) {
	responder := NewErrorResponder("production")

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		message string
	}{
		{"NotFound", responder.NotFound, http.StatusNotFound, "Not Found"},
		{"MethodNotAllowed", responder.MethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body AppErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Error.Message != tt.message {
				t.Errorf("message = %q, want %q", body.Error.Message, tt.message)
			}
		})
	}
}

func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	responder := NewErrorResponder("production")
	handler := NewRecoveryMiddleware(responder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected nil")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body UnknownErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Error.Message != "Internal Server Error" {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestRecoveryMiddleware_RepanicsAbortHandler(t *testing.T) {
	handler := NewRecoveryMiddleware(NewErrorResponder("production"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRecoveryMiddleware_PanicAfterWriteKeepsResponse(t *testing.T) {
	handler := NewRecoveryMiddleware(NewErrorResponder("production"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
		panic("after write")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Body.String(); got != `{"id":1}` {
		t.Errorf("body = %q, want original body only", got)
	}
}
