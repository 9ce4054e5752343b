package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind はアプリケーションエラーの分類を表す。
type ErrorKind string

// 定義済みエラー分類
const (
	ErrKindValidation     ErrorKind = "validation"
	ErrKindAuthentication ErrorKind = "authentication"
	ErrKindForbidden      ErrorKind = "forbidden"
	ErrKindNotFound       ErrorKind = "not_found"
	ErrKindInternal       ErrorKind = "internal"
	// ErrKindHTTP はトランスポート層のエラーを変換したもの。
	ErrKindHTTP ErrorKind = "http"
)

// AppError はHTTPステータスと任意の構造化データを持つアプリケーションエラー。
// 分類はKindで判定し、レスポンスは統一エラーフォーマットで描画される。
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Data    any
	Err     error // 原因となったエラー（ログ用）
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Status, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError は任意のステータスを持つ汎用エラーを生成する。
// statusが0の場合は500として扱う。
func NewAppError(status int, message string, data any) *AppError {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	kind := ErrKindHTTP
	if status >= http.StatusInternalServerError {
		kind = ErrKindInternal
	}
	return &AppError{Kind: kind, Status: status, Message: message, Data: data}
}

// NewValidationError は入力不正エラー（400）を生成する。
func NewValidationError(message string, data any) *AppError {
	return &AppError{Kind: ErrKindValidation, Status: http.StatusBadRequest, Message: message, Data: data}
}

// NewAuthenticationError は未認証エラー（401）を生成する。
func NewAuthenticationError(message string, data any) *AppError {
	return &AppError{Kind: ErrKindAuthentication, Status: http.StatusUnauthorized, Message: message, Data: data}
}

// NewForbiddenError は権限不足エラー（403）を生成する。
// 所有者でないリソースへの操作は常にこのエラーとなる（NotFoundには畳み込まない）。
func NewForbiddenError(message string, data any) *AppError {
	return &AppError{Kind: ErrKindForbidden, Status: http.StatusForbidden, Message: message, Data: data}
}

// NewNotFoundError はリソース未検出エラー（404）を生成する。
func NewNotFoundError(message string, data any) *AppError {
	return &AppError{Kind: ErrKindNotFound, Status: http.StatusNotFound, Message: message, Data: data}
}

// NewInternalError は内部エラー（500）を生成する。
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Kind: ErrKindInternal, Status: http.StatusInternalServerError, Message: message, Err: cause}
}

// FromHTTPStatus はルーター等のトランスポート層で発生したエラーを
// ステータスとメッセージをコピーしてAppErrorに変換する。
func FromHTTPStatus(status int, message string) *AppError {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = "Unknown error occurred"
	}
	return &AppError{Kind: ErrKindHTTP, Status: status, Message: message}
}

// AsAppError はエラーチェーンからAppErrorを取り出す。
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind はエラーが指定の分類のAppErrorであるかを判定する。
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
