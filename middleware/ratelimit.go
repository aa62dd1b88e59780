package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// slidingWindow 按 key 记录窗口内的请求时间
type slidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	store  map[string][]time.Time
	now    func() time.Time
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		limit:  limit,
		window: window,
		store:  make(map[string][]time.Time),
		now:    time.Now,
	}
}

// prune 移除窗口外的记录，调用方需持有锁
func (w *slidingWindow) prune(key string, cutoff time.Time) []time.Time {
	ts := w.store[key]
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(w.store, key)
		return nil
	}
	w.store[key] = kept
	return kept
}

// allow 记录一次请求，超过上限返回 false
func (w *slidingWindow) allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	ts := w.prune(key, now.Add(-w.window))
	if len(ts) >= w.limit {
		return false
	}
	w.store[key] = append(ts, now)
	return true
}

// cleanup 清理所有过期 key
func (w *slidingWindow) cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.window)
	for key := range w.store {
		w.prune(key, cutoff)
	}
}

// IPRateLimit 按客户端 IP 限流，窗口内超过 limit 次返回 429
func IPRateLimit(limit int, window time.Duration, message string) gin.HandlerFunc {
	limiter := newSlidingWindow(limit, window)
	// 定期清理过期数据
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.cleanup()
		}
	}()

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": message,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginRateLimit 登录接口限流中间件
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	return IPRateLimit(maxAttempts, window, "登录尝试过于频繁，请稍后再试")
}
