package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はハンドラー内のpanicを500の統一エラーレスポンスに変換する。
// レスポンスの書き込みが始まった後のpanicはログのみ残し、本文は追記しない。
func NewRecoveryMiddleware(responder *ErrorResponder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := wrapRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				// net/httpが接続を中断するためのpanicはそのまま伝播させる
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				attrs := []any{
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("response_started", rec.written),
					slog.String("stack", string(debug.Stack())),
				}
				if id := RequestIDFromContext(r.Context()); id != "" {
					attrs = append(attrs, slog.String("request_id", id))
				}
				if rec.userID != "" {
					attrs = append(attrs, slog.String("user_id", rec.userID))
				}
				slog.ErrorContext(r.Context(), "panic recovered", attrs...)

				if rec.written {
					return
				}
				responder.WriteError(rec, r, fmt.Errorf("panic: %v", v))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
