package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/furikaeri/internal/model"
)

// RateLimitScope はレート制限の種別。
type RateLimitScope string

const (
	// ScopeGeneral はAPI全般のレート制限。
	ScopeGeneral RateLimitScope = "general"
	// ScopeGenerate は振り返り生成のレート制限。
	ScopeGenerate RateLimitScope = "generate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	GenerateRate    rate.Limit    // 振り返り生成のレート（req/sec）
	GenerateBurst   int           // 振り返り生成のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig は1分あたりのリクエスト数からレート制限設定を生成する。
// バーストサイズは1分あたりのリクエスト数と同じにする。
func NewRateLimiterConfig(generalPerMinute, generatePerMinute int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMinute) / 60.0),
		GeneralBurst:    generalPerMinute,
		GenerateRate:    rate.Limit(float64(generatePerMinute) / 60.0),
		GenerateBurst:   generatePerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、振り返り生成 10 req/min/user
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 10)
}

// RateLimitRecorder はレート制限による拒否を記録するインターフェース。
type RateLimitRecorder interface {
	RecordRateLimited(scope string)
}

// userLimiter はユーザーごとのレートリミッターとアクセス時刻を保持する。
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet は1種別分のユーザーごとのリミッター。
type limiterSet struct {
	mu       sync.RWMutex
	limit    rate.Limit
	burst    int
	limiters map[string]*userLimiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*userLimiter),
	}
}

// get はユーザーのリミッターを取得または作成する。
func (s *limiterSet) get(userID string) *rate.Limiter {
	s.mu.RLock()
	ul, exists := s.limiters[userID]
	s.mu.RUnlock()

	if exists {
		s.mu.Lock()
		ul.lastAccess = time.Now()
		s.mu.Unlock()
		return ul.limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ダブルチェック
	if ul, exists := s.limiters[userID]; exists {
		ul.lastAccess = time.Now()
		return ul.limiter
	}

	limiter := rate.NewLimiter(s.limit, s.burst)
	s.limiters[userID] = &userLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

func (s *limiterSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// evict は最終アクセスがttlより古いエントリを削除する。
func (s *limiterSet) evict(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, ul := range s.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(s.limiters, userID)
		}
	}
}

// RateLimiter はユーザーごとのレート制限を管理する。
// API全般のレート制限と振り返り生成のレート制限の2種類を提供する。
type RateLimiter struct {
	config   RateLimiterConfig
	sets     map[RateLimitScope]*limiterSet
	recorder RateLimitRecorder

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。recorderはnilでもよい。
func NewRateLimiter(config RateLimiterConfig, recorder RateLimitRecorder) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		sets: map[RateLimitScope]*limiterSet{
			ScopeGeneral:  newLimiterSet(config.GeneralRate, config.GeneralBurst),
			ScopeGenerate: newLimiterSet(config.GenerateRate, config.GenerateBurst),
		},
		recorder: recorder,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow はユーザーのリクエストが指定種別の制限内であればtrueを返す。
func (rl *RateLimiter) Allow(scope RateLimitScope, userID string) bool {
	set, ok := rl.sets[scope]
	if !ok {
		return true
	}
	if set.get(userID).Allow() {
		return true
	}
	if rl.recorder != nil {
		rl.recorder.RecordRateLimited(string(scope))
	}
	return false
}

// RetryAfter は指定種別で1トークンが補充されるまでの推定秒数を返す。
func (rl *RateLimiter) RetryAfter(scope RateLimitScope) int {
	set, ok := rl.sets[scope]
	if !ok || set.limit <= 0 {
		return 60
	}
	sec := int(math.Ceil(1.0 / float64(set.limit)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

// LimiterCount は指定種別で現在管理されているエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) LimiterCount(scope RateLimitScope) int {
	set, ok := rl.sets[scope]
	if !ok {
		return 0
	}
	return set.len()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()
	for _, set := range rl.sets {
		set.evict(now, ttl)
	}
}

// rateLimitError は429レスポンス用のAppErrorを生成する。
func rateLimitError(scope RateLimitScope, retryAfter int) *model.AppError {
	return model.NewAppError(http.StatusTooManyRequests,
		"リクエストが多すぎます。しばらくしてから再度お試しください。",
		map[string]any{"scope": string(scope), "retryAfter": retryAfter},
	)
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを統一エラーフォーマットで書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r *http.Request, responder *ErrorResponder, scope RateLimitScope, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responder.WriteError(w, r, rateLimitError(scope, retryAfter))
}
