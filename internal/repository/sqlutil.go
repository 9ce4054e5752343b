package repository

import (
	"database/sql"
	"time"
)

// timestampLayout は保存用のタイムスタンプ形式。
// ミリ秒固定幅のUTC表記のため、文字列比較で時系列の範囲検索ができる。
const timestampLayout = "2006-01-02T15:04:05.000Z"

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// formatTimestamp は時刻を保存用の文字列に変換する。
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp は保存された文字列を時刻に変換する。
// NULL・空文字・解釈できない値はエラーにせずゼロ値として扱う。
func parseTimestamp(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timestampLayout, s.String); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s.String); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// nullableString は*stringをsql.NullStringに変換する。nilと空文字はNULLになる。
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr はsql.NullStringを*stringに変換する。NULLの場合はnilを返す。
func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// now は保存に使う現在時刻を返す。保存形式の精度（ミリ秒）に丸める。
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
