package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

var channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush}

type Dispatcher struct {
	drivers map[Channel]Driver
	closers []io.Closer
	timeout time.Duration
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewDispatcher(drivers []Driver, timeout time.Duration, m *metrics.Collector, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		drivers: make(map[Channel]Driver, len(drivers)),
		timeout: timeout,
		metrics: m,
		log:     log,
	}
	for _, drv := range drivers {
		d.drivers[drv.Channel()] = drv
	}
	return d
}

// Build wires one driver per channel as selected in cfg. External drivers are
// wrapped in a circuit breaker.
func Build(ctx context.Context, cfg config.NotificationConfig, repo notification.Repository, m *metrics.Collector, log *zap.Logger) (*Dispatcher, error) {
	var (
		drivers []Driver
		closers []io.Closer
		kafkaW  kafkaWriter
		sqsCli  sqsAPI
	)

	selected := map[Channel]string{
		ChannelEmail: cfg.EmailDriver,
		ChannelSMS:   cfg.SMSDriver,
		ChannelPush:  cfg.PushDriver,
	}
	for _, ch := range channels {
		var drv Driver
		switch name := selected[ch]; name {
		case "mock", "":
			drv = NewMockDriver(ch, repo)
		case "log":
			drv = NewLogDriver(ch, log)
		case "mailgun", "twilio", "firebase":
			drv = NewUnconfiguredDriver(name, ch)
		case "kafka":
			if kafkaW == nil {
				kafkaW = NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
				closers = append(closers, kafkaW)
			}
			drv = NewBreakerDriver(NewKafkaDriver(ch, kafkaW), cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout, log)
		case "sqs":
			if sqsCli == nil {
				client, err := NewSQSClient(ctx, cfg.SQSRegion)
				if err != nil {
					return nil, err
				}
				sqsCli = client
			}
			drv = NewBreakerDriver(NewSQSDriver(ch, sqsCli, cfg.SQSQueueURL), cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout, log)
		default:
			return nil, fmt.Errorf("unknown %s driver %q", ch, name)
		}
		drivers = append(drivers, drv)
	}

	d := NewDispatcher(drivers, cfg.SendTimeout, m, log)
	d.closers = closers
	return d, nil
}

// Notify sends msg on every channel the recipient opted into and has an
// address for. Failures are logged and counted, never returned.
func (d *Dispatcher) Notify(ctx context.Context, to Recipient, msg Message) map[Channel]*Result {
	results := make(map[Channel]*Result)
	for _, ch := range channels {
		if !to.Wants(ch) {
			continue
		}
		drv, ok := d.drivers[ch]
		if !ok {
			continue
		}
		if to.Address(ch) == "" {
			d.count(ch, drv.Name(), "skipped")
			continue
		}
		results[ch] = d.send(ctx, drv, to, msg)
	}
	return results
}

// NotifyAll is Notify over several recipients.
func (d *Dispatcher) NotifyAll(ctx context.Context, to []Recipient, msg Message) {
	for _, r := range to {
		d.Notify(ctx, r, msg)
	}
}

func (d *Dispatcher) send(ctx context.Context, drv Driver, to Recipient, msg Message) *Result {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res, err := drv.Send(ctx, to, msg)
	if err != nil {
		d.log.Warn("notification send failed",
			zap.String("channel", string(drv.Channel())),
			zap.String("driver", drv.Name()),
			zap.String("user_id", to.UserID.String()),
			zap.Error(err),
		)
		d.count(drv.Channel(), drv.Name(), "error")
		return &Result{Success: false, Driver: drv.Name(), Error: err.Error()}
	}

	outcome := "success"
	if !res.Success {
		outcome = "failure"
		d.log.Debug("notification not delivered",
			zap.String("channel", string(drv.Channel())),
			zap.String("driver", drv.Name()),
			zap.String("reason", res.Error),
		)
	}
	d.count(drv.Channel(), drv.Name(), outcome)
	return res
}

func (d *Dispatcher) count(ch Channel, driver, outcome string) {
	if d.metrics != nil {
		d.metrics.NotificationsTotal.WithLabelValues(string(ch), driver, outcome).Inc()
	}
}

func (d *Dispatcher) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
