package assistant

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limited rate-limits another Generator per key (typically the user id).
type Limited struct {
	next     Generator
	key      func(ctx context.Context) string
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimited allows perMinute requests per key with the given burst. A nil key
// function puts every caller in one bucket.
func NewLimited(next Generator, perMinute, burst int, key func(ctx context.Context) string) *Limited {
	if key == nil {
		key = func(context.Context) string { return "" }
	}
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Limited{
		next:     next,
		key:      key,
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *Limited) limiter(k string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[k]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[k] = lim
	}
	return lim
}

func (l *Limited) Generate(ctx context.Context, mode Mode, prompt string) (Response, error) {
	if !l.limiter(l.key(ctx)).Allow() {
		return Response{}, ErrRateLimited
	}
	return l.next.Generate(ctx, mode, prompt)
}
