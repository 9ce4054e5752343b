package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/furikaeri/internal/auth"
	"github.com/hitoshi/furikaeri/internal/middleware"
	"github.com/hitoshi/furikaeri/internal/model"
)

// SummaryServiceInterface は振り返りハンドラーが必要とするサービスインターフェース。
type SummaryServiceInterface interface {
	GetSummary(ctx context.Context, id int64) (*model.Summary, error)
	// ListSummaries はsummaryTypeが空の場合に全種類を返す。
	ListSummaries(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error)
	// Generate は期間内に投稿がない場合にnil, nilを返す。
	Generate(ctx context.Context, summaryType model.SummaryType, userID string, start, end time.Time) (*model.Summary, error)
	DeleteSummary(ctx context.Context, id int64) (bool, error)
}

const msgInvalidSummaryID = "無効な振り返りIDです"

// SummaryHandler は振り返りのHTTPハンドラー。
// 振り返りの所有者チェックはこのハンドラーで行う。
type SummaryHandler struct {
	service   SummaryServiceInterface
	responder *middleware.ErrorResponder
}

// NewSummaryHandler はSummaryHandlerを生成する。
func NewSummaryHandler(service SummaryServiceInterface, responder *middleware.ErrorResponder) *SummaryHandler {
	return &SummaryHandler{
		service:   service,
		responder: responder,
	}
}

// generateSummaryRequest は振り返り生成リクエストのボディ。
type generateSummaryRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ListSummaries は呼び出し元の振り返り一覧を返す。
// typeがweekly、monthly以外の場合は全種類を返す。
// GET /summaries
func (h *SummaryHandler) ListSummaries(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	summaryType, _ := model.ParseSummaryType(r.URL.Query().Get("type"))

	summaries, err := h.service.ListSummaries(r.Context(), caller.UserID, summaryType)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponses(summaries))
}

// GetSummary は振り返りを返す。所有者以外は403。
// GET /summaries/{id}
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	summary, ok := h.ownedSummary(w, r, caller, "この振り返りを閲覧する権限がありません")
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// GenerateWeekly は週間振り返りを生成する。
// POST /summaries/generate/weekly
func (h *SummaryHandler) GenerateWeekly(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	h.generate(w, r, caller, model.SummaryTypeWeekly)
}

// GenerateMonthly は月間振り返りを生成する。
// POST /summaries/generate/monthly
func (h *SummaryHandler) GenerateMonthly(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	h.generate(w, r, caller, model.SummaryTypeMonthly)
}

func (h *SummaryHandler) generate(w http.ResponseWriter, r *http.Request, caller auth.Caller, summaryType model.SummaryType) {
	var req generateSummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate, true)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	summary, err := h.service.Generate(r.Context(), summaryType, caller.UserID, start, end)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if summary == nil {
		h.responder.WriteError(w, r, model.NewValidationError(
			"振り返りの生成に失敗しました。対象期間の投稿がない可能性があります。", nil))
		return
	}

	writeJSON(w, http.StatusCreated, toSummaryResponse(summary))
}

// DeleteSummary は振り返りを削除する。
// DELETE /summaries/{id}
func (h *SummaryHandler) DeleteSummary(w http.ResponseWriter, r *http.Request, caller auth.Caller) {
	summary, ok := h.ownedSummary(w, r, caller, "この振り返りを削除する権限がありません")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteSummary(r.Context(), summary.ID)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	if !deleted {
		h.responder.WriteError(w, r, model.NewAppError(http.StatusInternalServerError, "振り返りの削除に失敗しました", nil))
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ownedSummary はURLの{id}の振り返りを取得し、呼び出し元が所有者であることを確認する。
// 失敗した場合はエラーレスポンスを書き込みfalseを返す。
func (h *SummaryHandler) ownedSummary(w http.ResponseWriter, r *http.Request, caller auth.Caller, forbiddenMsg string) (*model.Summary, bool) {
	id, ok := parseIDParam(r)
	if !ok {
		h.responder.WriteError(w, r, model.NewValidationError(msgInvalidSummaryID, nil))
		return nil, false
	}

	summary, err := h.service.GetSummary(r.Context(), id)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return nil, false
	}
	if summary == nil {
		h.responder.WriteError(w, r, model.NewNotFoundError("振り返りが見つかりません", nil))
		return nil, false
	}
	if summary.UserID != caller.UserID {
		h.responder.WriteError(w, r, model.NewForbiddenError(forbiddenMsg, nil))
		return nil, false
	}
	return summary, true
}
