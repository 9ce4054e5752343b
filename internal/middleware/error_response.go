package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/furikaeri/internal/model"
)

// genericErrorMessage は本番環境で分類されていないエラーの代わりに返すメッセージ。
const genericErrorMessage = "Internal Server Error"

// AppErrorBody はAppErrorのレスポンス形式。
type AppErrorBody struct {
	Success bool         `json:"success"`
	Error   AppErrorInfo `json:"error"`
}

// AppErrorInfo はAppErrorBodyのerrorフィールド。
type AppErrorInfo struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
}

// UnknownErrorBody は分類されていないエラーのレスポンス形式。
type UnknownErrorBody struct {
	Error UnknownErrorInfo `json:"error"`
}

// UnknownErrorInfo はUnknownErrorBodyのerrorフィールド。
type UnknownErrorInfo struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorResponder はすべてのエラーを統一エラーフォーマットで書き込む。
// ハンドラー、リカバリー、レート制限、ルーターの404/405が共通で使用する。
type ErrorResponder struct {
	exposeInternal bool
}

// NewErrorResponder はErrorResponderを生成する。
// environmentがdevelopmentまたはlocalの場合のみ、分類されていないエラーのメッセージをそのまま返す。
func NewErrorResponder(environment string) *ErrorResponder {
	return &ErrorResponder{
		exposeInternal: environment == "development" || environment == "local",
	}
}

// WriteError はエラーをレスポンスに書き込む。
// AppErrorはステータスとメッセージをそのまま返し、それ以外は500として扱う。
func (e *ErrorResponder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := model.AsAppError(err); ok {
		if appErr.Status >= http.StatusInternalServerError {
			slog.Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", appErr.Status),
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("error", appErr.Error()),
			)
		}
		WriteJSON(w, appErr.Status, AppErrorBody{
			Success: false,
			Error: AppErrorInfo{
				Message: appErr.Message,
				Status:  appErr.Status,
				Data:    appErr.Data,
			},
		})
		return
	}

	slog.Error("unhandled error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)

	message := genericErrorMessage
	if e.exposeInternal {
		message = err.Error()
	}
	WriteJSON(w, http.StatusInternalServerError, UnknownErrorBody{
		Error: UnknownErrorInfo{
			Message: message,
			Status:  http.StatusInternalServerError,
		},
	})
}

// NotFound はルーター未一致時のハンドラー。
func (e *ErrorResponder) NotFound(w http.ResponseWriter, r *http.Request) {
	e.WriteError(w, r, model.FromHTTPStatus(http.StatusNotFound, http.StatusText(http.StatusNotFound)))
}

// MethodNotAllowed はメソッド不一致時のハンドラー。
func (e *ErrorResponder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	e.WriteError(w, r, model.FromHTTPStatus(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed)))
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
