package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/furikaeri/internal/model"
)

// ErrGeneration は生成バックエンドが有効な本文を返さなかったことを表す。
var ErrGeneration = errors.New("summary generation failed")

// Request は生成バックエンドへの入力。Postsは作成日時の降順。
type Request struct {
	UserID    string
	Type      model.SummaryType
	StartDate time.Time
	EndDate   time.Time
	Posts     []*model.Post
}

// Generator は期間内の投稿から振り返り本文を生成する。
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// previewLimits は種類ごとの「主な活動」に載せる投稿数。
var previewLimits = map[model.SummaryType]int{
	model.SummaryTypeWeekly:  3,
	model.SummaryTypeMonthly: 5,
}

const previewRunes = 50

// TemplateGenerator は固定テンプレートで本文を組み立てる生成器。
// 外部の生成バックエンドが設定されていない場合に使用する。
type TemplateGenerator struct{}

// NewTemplateGenerator はTemplateGeneratorを生成する。
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate はテンプレートから本文を生成する。
func (g *TemplateGenerator) Generate(ctx context.Context, req Request) (string, error) {
	title, unit, closing := "週間振り返り", "週", "この週は充実した活動ができました。引き続き頑張りましょう！"
	if req.Type == model.SummaryTypeMonthly {
		title, unit, closing = "月間振り返り", "月", "この月は多くの成果を上げることができました。来月も引き続き頑張りましょう！"
	}

	limit := previewLimits[req.Type]
	if limit == 0 || limit > len(req.Posts) {
		limit = len(req.Posts)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s - %s)\n\n", title, formatDate(req.StartDate), formatDate(req.EndDate))
	fmt.Fprintf(&b, "この%sは合計%d件の投稿がありました。\n\n", unit, len(req.Posts))
	b.WriteString("## 主な活動\n")
	for _, p := range req.Posts[:limit] {
		fmt.Fprintf(&b, "- %s...\n", truncateRunes(p.Content, previewRunes))
	}
	b.WriteString("\n## 振り返り\n")
	b.WriteString(closing)

	return strings.TrimSpace(b.String()), nil
}

func formatDate(t time.Time) string {
	return t.Format("2006/1/2")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// maxResponseSize は生成バックエンドのレスポンスボディの上限。
const maxResponseSize = 1 << 20

// HTTPGenerator は外部の生成バックエンドにHTTPで本文生成を依頼する。
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGenerator はHTTPGeneratorを生成する。
// clientにはタイムアウトとSSRF対策を設定済みのクライアントを渡す。
func NewHTTPGenerator(endpoint string, client *http.Client) *HTTPGenerator {
	return &HTTPGenerator{endpoint: endpoint, client: client}
}

type generateRequest struct {
	UserID    string         `json:"userId"`
	Type      string         `json:"type"`
	StartDate time.Time      `json:"startDate"`
	EndDate   time.Time      `json:"endDate"`
	Posts     []generatePost `json:"posts"`
}

type generatePost struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type generateResponse struct {
	Content string `json:"content"`
}

// Generate は生成バックエンドにPOSTし、レスポンスのcontentを返す。
// 2xx以外、空のcontent、タイムアウトはErrGenerationを包んだエラーになる。
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (string, error) {
	payload := generateRequest{
		UserID:    req.UserID,
		Type:      string(req.Type),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Posts:     make([]generatePost, 0, len(req.Posts)),
	}
	for _, p := range req.Posts {
		payload.Posts = append(payload.Posts, generatePost{
			ID:        p.ID,
			Content:   p.Content,
			ImageURL:  p.ImageURL,
			CreatedAt: p.CreatedAt,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status %d", ErrGeneration, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: invalid response body: %v", ErrGeneration, err)
	}
	content := strings.TrimSpace(out.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrGeneration)
	}
	return content, nil
}

// compile-time interface check
var (
	_ Generator = (*TemplateGenerator)(nil)
	_ Generator = (*HTTPGenerator)(nil)
)
