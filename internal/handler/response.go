package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/furikaeri/internal/middleware"
	"github.com/hitoshi/furikaeri/internal/model"
)

// responseTimeLayout はレスポンスの時刻表現（ミリ秒精度のUTC ISO-8601）。
const responseTimeLayout = "2006-01-02T15:04:05.000Z"

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"userId"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"imageUrl"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// summaryResponse は振り返りのAPIレスポンス。
type summaryResponse struct {
	ID        int64  `json:"id"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	CreatedAt string `json:"createdAt"`
}

// successResponse は削除などの結果のAPIレスポンス。
type successResponse struct {
	Success bool `json:"success"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(responseTimeLayout)
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
	}
}

func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func toPostResponses(posts []*model.Post) []postResponse {
	result := make([]postResponse, len(posts))
	for i, p := range posts {
		result[i] = toPostResponse(p)
	}
	return result
}

func toSummaryResponse(s *model.Summary) summaryResponse {
	return summaryResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Content:   s.Content,
		Type:      string(s.Type),
		StartDate: formatTime(s.StartDate),
		EndDate:   formatTime(s.EndDate),
		CreatedAt: formatTime(s.CreatedAt),
	}
}

func toSummaryResponses(summaries []*model.Summary) []summaryResponse {
	result := make([]summaryResponse, len(summaries))
	for i, s := range summaries {
		result[i] = toSummaryResponse(s)
	}
	return result
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	middleware.WriteJSON(w, statusCode, v)
}

// parseIDParam はURLパラメータ{id}を整数として解析する。
func parseIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
