package ocr

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited throttles calls to an underlying Recognizer.
type Limited struct {
	next    Recognizer
	limiter *rate.Limiter
}

// NewLimited allows rps requests per second with the given burst.
// A non-positive rps disables throttling.
func NewLimited(next Recognizer, rps float64, burst int) *Limited {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Recognize waits for a token, then delegates.
func (l *Limited) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ocr rate limit: %w", err)
	}
	return l.next.Recognize(ctx, image)
}
