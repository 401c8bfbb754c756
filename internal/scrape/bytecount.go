package scrape

import (
	"context"
	"sync/atomic"
)

type byteCountKey struct{}

// WithByteCount returns a context carrying a fresh byte counter. Fetch
// layers add response sizes to it so the engine can attribute bytes to the
// company attempt that triggered them.
func WithByteCount(ctx context.Context) (context.Context, *atomic.Int64) {
	var n atomic.Int64
	return context.WithValue(ctx, byteCountKey{}, &n), &n
}

// CountBytes adds n to the byte counter carried by ctx, if any.
func CountBytes(ctx context.Context, n int) {
	if counter, ok := ctx.Value(byteCountKey{}).(*atomic.Int64); ok {
		counter.Add(int64(n))
	}
}
