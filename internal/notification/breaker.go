package notification

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerDriver stops calling a failing external driver for a cool-off period
// so a broker or queue outage does not add its timeout to every request.
type BreakerDriver struct {
	Driver
	cb *gobreaker.CircuitBreaker[*Result]
}

func NewBreakerDriver(d Driver, maxFailures uint32, openTimeout time.Duration, log *zap.Logger) *BreakerDriver {
	settings := gobreaker.Settings{
		Name:        string(d.Channel()) + "/" + d.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("notification breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &BreakerDriver{Driver: d, cb: gobreaker.NewCircuitBreaker[*Result](settings)}
}

func (b *BreakerDriver) Send(ctx context.Context, to Recipient, msg Message) (*Result, error) {
	return b.cb.Execute(func() (*Result, error) {
		return b.Driver.Send(ctx, to, msg)
	})
}

func (b *BreakerDriver) State() gobreaker.State {
	return b.cb.State()
}
