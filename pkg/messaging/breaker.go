package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/shoppe/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// BreakerPublisher guards a Publisher with a circuit breaker. While the breaker is open
// Publish fails fast with gobreaker.ErrOpenState instead of waiting on the broker.
type BreakerPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next. The breaker trips once consecutive failures exceed
// cfg.ConsecutiveFailures, or once more than that many calls were made and the failure
// rate exceeds cfg.ErrorRatePercent.
func NewBreakerPublisher(name string, next Publisher, cfg config.CircuitBreakerConfig) *BreakerPublisher {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// a cancelled caller says nothing about broker health
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Subject(), err)
	}
	return nil
}

// State reports the breaker state, for logs and tests.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}
