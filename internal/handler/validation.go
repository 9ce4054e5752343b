package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/furikaeri/internal/model"
)

// maxRequestBodyBytes はリクエストボディの最大サイズ。
const maxRequestBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーのフィールド名をJSONのキー名にする
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// notblank は空白のみの文字列を拒否する
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	return v
}

// decodeJSON はリクエストボディをJSONとしてデコードする。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewValidationError("リクエストボディの解析に失敗しました", nil)
	}
	return nil
}

// validateRequest は構造体タグで入力を検証する。
// 最初に失敗したフィールドのメッセージをmessagesから引き、なければfallbackを使う。
func validateRequest(req any, messages map[string]string, fallback string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError(fallback, nil)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}

	message := fallback
	if m, ok := messages[verrs[0].Field()]; ok {
		message = m
	}
	return model.NewValidationError(message, map[string][]string{"fields": fields})
}

// parseDate は日付文字列をUTCの時刻に変換する。
// RFC3339形式、タイムゾーンなしの日時、YYYY-MM-DDを受け付ける。
// タイムゾーンの指定がない場合はUTCとして扱う。
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
