package model

import "time"

// SummaryType は振り返りの種類を表す。
type SummaryType string

const (
	// SummaryTypeWeekly は週間振り返り。
	SummaryTypeWeekly SummaryType = "weekly"
	// SummaryTypeMonthly は月間振り返り。
	SummaryTypeMonthly SummaryType = "monthly"
)

// ParseSummaryType は文字列をSummaryTypeに変換する。
// weekly、monthly以外の場合はfalseを返す。
func ParseSummaryType(s string) (SummaryType, bool) {
	switch SummaryType(s) {
	case SummaryTypeWeekly:
		return SummaryTypeWeekly, true
	case SummaryTypeMonthly:
		return SummaryTypeMonthly, true
	default:
		return "", false
	}
}

// Summary は期間内の投稿から生成された振り返りを表す。
type Summary struct {
	ID        int64
	UserID    string
	Content   string
	Type      SummaryType
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// CreateSummaryData は振り返り作成用のデータ。
type CreateSummaryData struct {
	UserID    string
	Content   string
	Type      SummaryType
	StartDate time.Time
	EndDate   time.Time
}
