package media

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxBurstSize bounds the rate limiter's token burst so a large single write
// doesn't reserve an unbounded number of tokens at once.
const maxBurstSize = 256 * 1024

// ThrottledWriter is an io.Writer with token-bucket rate limiting, used to
// cap how fast FLV tag bytes are force-fed into a segmenter's stdin pipe.
type ThrottledWriter struct {
	w       io.Writer
	limiter *rate.Limiter
	ctx     context.Context
}

// NewThrottledWriter wraps w with a bytesPerSec ceiling. If bytesPerSec<=0
// the original writer is returned unwrapped (throttling disabled).
func NewThrottledWriter(ctx context.Context, w io.Writer, bytesPerSec int64) io.Writer {
	if bytesPerSec <= 0 {
		return w
	}
	burst := int(bytesPerSec)
	if burst > maxBurstSize {
		burst = maxBurstSize
	}
	return &ThrottledWriter{
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		ctx:     ctx,
	}
}

// Write splits writes larger than the burst size into chunks so tokens are
// consumed gradually rather than reserved all at once.
func (tw *ThrottledWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		chunk := len(p)
		if chunk > tw.limiter.Burst() {
			chunk = tw.limiter.Burst()
		}
		if err := tw.limiter.WaitN(tw.ctx, chunk); err != nil {
			return total, err
		}
		n, err := tw.w.Write(p[:chunk])
		total += n
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}
