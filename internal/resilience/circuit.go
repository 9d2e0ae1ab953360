package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// BreakerConfig controls when the breaker opens and how long it stays open.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Default: 5.
	FailureThreshold int

	// Cooldown is how long an open breaker rejects calls before letting a
	// single probe through. Default: 30s.
	Cooldown time.Duration
}

// Breaker stops calling a failing service for a cooldown period.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	now      func() time.Time
}

// NewBreaker returns a closed breaker for the named service.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Open reports whether calls are currently rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && b.now().Sub(b.openedAt) < b.cfg.Cooldown
}

// Call runs fn unless the breaker is open. Only transient failures count
// toward opening it; permanent errors and the caller's own cancellation
// leave its state unchanged.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b.Open() {
		return zero, ErrCircuitOpen
	}
	val, err := fn(ctx)
	if err != nil && (ctx.Err() != nil || !IsTransient(err)) {
		return val, err
	}
	b.record(err)
	return val, err
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.open {
			zap.L().Info("circuit closed", zap.String("service", b.name))
		}
		b.failures = 0
		b.open = false
		return
	}

	b.failures++
	if b.open || b.failures >= b.cfg.FailureThreshold {
		if !b.open {
			zap.L().Warn("circuit opened",
				zap.String("service", b.name),
				zap.Int("failures", b.failures),
			)
		}
		b.open = true
		b.openedAt = b.now()
	}
}
