package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/furikaeri/internal/model"
)

// --- モック ---

type mockPostRepo struct {
	findByUserIDAndDateRangeFn func(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error)
}

func (m *mockPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) { return nil, nil }
func (m *mockPostRepo) FindByUserID(ctx context.Context, userID string) ([]*model.Post, error) {
	return nil, nil
}
func (m *mockPostRepo) FindByUserIDAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error) {
	return m.findByUserIDAndDateRangeFn(ctx, userID, start, end)
}
func (m *mockPostRepo) Create(ctx context.Context, data model.CreatePostData) (*model.Post, error) {
	return nil, nil
}
func (m *mockPostRepo) Update(ctx context.Context, id int64, data model.UpdatePostData) (*model.Post, error) {
	return nil, nil
}
func (m *mockPostRepo) Delete(ctx context.Context, id int64) (bool, error) { return false, nil }

type mockSummaryRepo struct {
	created []model.CreateSummaryData

	findByUserIDFn        func(ctx context.Context, userID string) ([]*model.Summary, error)
	findByUserIDAndTypeFn func(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error)
	findByDateRangeFn     func(ctx context.Context, start, end time.Time) ([]*model.Summary, error)
	deleteFn              func(ctx context.Context, id int64) (bool, error)
}

func (m *mockSummaryRepo) FindByID(ctx context.Context, id int64) (*model.Summary, error) {
	return nil, nil
}
func (m *mockSummaryRepo) FindByUserID(ctx context.Context, userID string) ([]*model.Summary, error) {
	return m.findByUserIDFn(ctx, userID)
}
func (m *mockSummaryRepo) FindByUserIDAndType(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error) {
	return m.findByUserIDAndTypeFn(ctx, userID, summaryType)
}
func (m *mockSummaryRepo) FindByDateRange(ctx context.Context, start, end time.Time) ([]*model.Summary, error) {
	return m.findByDateRangeFn(ctx, start, end)
}
func (m *mockSummaryRepo) Create(ctx context.Context, data model.CreateSummaryData) (*model.Summary, error) {
	m.created = append(m.created, data)
	return &model.Summary{
		ID:        int64(len(m.created)),
		UserID:    data.UserID,
		Content:   data.Content,
		Type:      data.Type,
		StartDate: data.StartDate,
		EndDate:   data.EndDate,
		CreatedAt: time.Now(),
	}, nil
}
func (m *mockSummaryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return m.deleteFn(ctx, id)
}

type mockGenerator struct {
	generateFn func(ctx context.Context, req Request) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return m.generateFn(ctx, req)
}

type recordingMetrics struct {
	generated, skipped, failed []string
}

func (r *recordingMetrics) RecordSummaryGenerated(summaryType string, _ time.Duration) {
	r.generated = append(r.generated, summaryType)
}
func (r *recordingMetrics) RecordSummarySkipped(summaryType string) {
	r.skipped = append(r.skipped, summaryType)
}
func (r *recordingMetrics) RecordSummaryFailure(summaryType string) {
	r.failed = append(r.failed, summaryType)
}

func postsReturning(posts []*model.Post) *mockPostRepo {
	return &mockPostRepo{
		findByUserIDAndDateRangeFn: func(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error) {
			return posts, nil
		},
	}
}

var (
	weekStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	weekEnd   = time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)
)

// --- テスト ---

// 対象期間に投稿がなければ振り返りは作成されない。
func TestService_Generate_EmptyPeriodCreatesNothing(t *testing.T) {
	summaries := &mockSummaryRepo{}
	metrics := &recordingMetrics{}
	gen := &mockGenerator{generateFn: func(ctx context.Context, req Request) (string, error) {
		t.Fatal("generator must not be called for an empty period")
		return "", nil
	}}
	svc := NewService(summaries, postsReturning(nil), gen, metrics)

	summary, err := svc.GenerateWeeklySummary(context.Background(), "user1", weekStart, weekEnd)
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Empty(t, summaries.created)
	assert.Equal(t, []string{"weekly"}, metrics.skipped)
}

func TestService_Generate_WeeklyWithPosts(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		t.Run(fmt.Sprintf("%d件", n), func(t *testing.T) {
			summaries := &mockSummaryRepo{}
			metrics := &recordingMetrics{}
			var gotRange [2]time.Time
			posts := &mockPostRepo{
				findByUserIDAndDateRangeFn: func(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error) {
					assert.Equal(t, "user1", userID)
					gotRange = [2]time.Time{start, end}
					return makePosts(n), nil
				},
			}
			svc := NewService(summaries, posts, nil, metrics)

			summary, err := svc.GenerateWeeklySummary(context.Background(), "user1", weekStart, weekEnd)
			require.NoError(t, err)
			require.NotNil(t, summary)
			require.Len(t, summaries.created, 1)

			assert.Equal(t, [2]time.Time{weekStart, weekEnd}, gotRange)
			assert.Equal(t, model.SummaryTypeWeekly, summary.Type)
			assert.Equal(t, weekStart, summary.StartDate)
			assert.Equal(t, weekEnd, summary.EndDate)
			assert.Contains(t, summary.Content, fmt.Sprintf("合計%d件", n))
			assert.Equal(t, []string{"weekly"}, metrics.generated)
		})
	}
}

func TestService_GenerateMonthlySummary_SetsType(t *testing.T) {
	summaries := &mockSummaryRepo{}
	svc := NewService(summaries, postsReturning(makePosts(2)), nil, nil)

	summary, err := svc.GenerateMonthlySummary(context.Background(), "user1", weekStart, weekEnd)
	require.NoError(t, err)
	assert.Equal(t, model.SummaryTypeMonthly, summary.Type)
	assert.True(t, strings.HasPrefix(summary.Content, "# 月間振り返り"))
}

// 生成バックエンドの失敗は502となり、何も保存されない。
func TestService_Generate_GeneratorFailureIsBadGateway(t *testing.T) {
	summaries := &mockSummaryRepo{}
	metrics := &recordingMetrics{}
	gen := &mockGenerator{generateFn: func(ctx context.Context, req Request) (string, error) {
		return "", fmt.Errorf("%w: unexpected status 503", ErrGeneration)
	}}
	svc := NewService(summaries, postsReturning(makePosts(1)), gen, metrics)

	_, err := svc.GenerateWeeklySummary(context.Background(), "user1", weekStart, weekEnd)
	appErr, ok := model.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Empty(t, summaries.created)
	assert.Equal(t, []string{"weekly"}, metrics.failed)
}

func TestService_Generate_PostRepoErrorPropagates(t *testing.T) {
	repoErr := errors.New("db down")
	posts := &mockPostRepo{
		findByUserIDAndDateRangeFn: func(ctx context.Context, userID string, start, end time.Time) ([]*model.Post, error) {
			return nil, repoErr
		},
	}
	svc := NewService(&mockSummaryRepo{}, posts, nil, nil)

	_, err := svc.GenerateWeeklySummary(context.Background(), "user1", weekStart, weekEnd)
	assert.ErrorIs(t, err, repoErr)
}

func TestService_ListSummaries_FiltersByType(t *testing.T) {
	var calledAll, calledTyped bool
	summaries := &mockSummaryRepo{
		findByUserIDFn: func(ctx context.Context, userID string) ([]*model.Summary, error) {
			calledAll = true
			return []*model.Summary{}, nil
		},
		findByUserIDAndTypeFn: func(ctx context.Context, userID string, summaryType model.SummaryType) ([]*model.Summary, error) {
			calledTyped = true
			assert.Equal(t, model.SummaryTypeMonthly, summaryType)
			return []*model.Summary{}, nil
		},
	}
	svc := NewService(summaries, &mockPostRepo{}, nil, nil)

	_, err := svc.ListSummaries(context.Background(), "user1", "")
	require.NoError(t, err)
	assert.True(t, calledAll)

	_, err = svc.ListSummaries(context.Background(), "user1", model.SummaryTypeMonthly)
	require.NoError(t, err)
	assert.True(t, calledTyped)
}

func TestService_DeleteSummary(t *testing.T) {
	summaries := &mockSummaryRepo{deleteFn: func(ctx context.Context, id int64) (bool, error) {
		return id == 1, nil
	}}
	svc := NewService(summaries, &mockPostRepo{}, nil, nil)

	deleted, err := svc.DeleteSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteSummary(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestService_ListSummariesInRange_IsNotUserScoped(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	var gotStart, gotEnd time.Time
	repo := &mockSummaryRepo{
		findByDateRangeFn: func(ctx context.Context, s, e time.Time) ([]*model.Summary, error) {
			gotStart, gotEnd = s, e
			return []*model.Summary{
				{ID: 1, UserID: "user1", Type: model.SummaryTypeWeekly},
				{ID: 2, UserID: "user2", Type: model.SummaryTypeMonthly},
			}, nil
		},
	}
	svc := NewService(repo, &mockPostRepo{}, nil, nil)

	got, err := svc.ListSummariesInRange(context.Background(), start, end)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, gotStart.Equal(start))
	assert.True(t, gotEnd.Equal(end))

	repo.findByDateRangeFn = func(ctx context.Context, s, e time.Time) ([]*model.Summary, error) {
		return nil, errors.New("db down")
	}
	_, err = svc.ListSummariesInRange(context.Background(), start, end)
	assert.Error(t, err)
}

func TestService_CreateSummary_StoresAsGiven(t *testing.T) {
	repo := &mockSummaryRepo{}
	svc := NewService(repo, &mockPostRepo{}, nil, nil)

	data := model.CreateSummaryData{
		UserID:    "user1",
		Content:   "手書きの振り返り",
		Type:      model.SummaryTypeMonthly,
		StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}
	got, err := svc.CreateSummary(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, data, repo.created[0])
	assert.Equal(t, "手書きの振り返り", got.Content)
	assert.Equal(t, model.SummaryTypeMonthly, got.Type)
}
