package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

func recipient(prefs domain.NotificationPreferences) Recipient {
	return Recipient{
		UserID:      uuid.New(),
		Email:       "dr.santos@phc.gov.ph",
		Phone:       prefs.Phone,
		PushToken:   prefs.PushToken,
		Preferences: prefs,
	}
}

func TestDispatcher_OnlyOptedInChannels(t *testing.T) {
	store := memory.NewStore()
	m := metrics.NewCollector("test")
	d := NewDispatcher([]Driver{
		NewMockDriver(ChannelEmail, store.Notifications()),
		NewMockDriver(ChannelSMS, store.Notifications()),
		NewMockDriver(ChannelPush, store.Notifications()),
	}, time.Second, m, zap.NewNop())

	to := recipient(domain.NotificationPreferences{Email: true, SMS: false, Push: true})
	results := d.Notify(context.Background(), to, Message{Subject: "New referral", Body: "Referral pending"})

	require.Contains(t, results, ChannelEmail)
	assert.True(t, results[ChannelEmail].Success)
	assert.NotContains(t, results, ChannelSMS)
	assert.NotContains(t, results, ChannelPush, "push opted in but no token")

	logs := store.Notifications().All()
	require.Len(t, logs, 1)
	assert.Equal(t, "dr.santos@phc.gov.ph", logs[0].Recipient)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("email", "mock", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("push", "mock", "skipped")))
}

func TestUnconfiguredDriver(t *testing.T) {
	m := metrics.NewCollector("test")
	d := NewDispatcher([]Driver{NewUnconfiguredDriver("twilio", ChannelSMS)}, 0, m, zap.NewNop())

	to := recipient(domain.NotificationPreferences{SMS: true, Phone: "+639171234567"})
	res := d.Notify(context.Background(), to, Message{Body: "hi"})[ChannelSMS]

	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "twilio not configured", res.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("sms", "twilio", "failure")))
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaDriver_PublishesKeyedEvent(t *testing.T) {
	w := &fakeWriter{}
	drv := NewKafkaDriver(ChannelPush, w)
	to := recipient(domain.NotificationPreferences{Push: true, PushToken: "tok-1"})

	res, err := drv.Send(context.Background(), to, Message{Body: "Referral accepted", Data: map[string]any{"referral_id": "r1"}})
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, to.UserID.String(), string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"address":"tok-1"`)
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSDriver_Enqueues(t *testing.T) {
	client := &fakeSQS{}
	drv := NewSQSDriver(ChannelEmail, client, "https://sqs.local/q")
	res, err := drv.Send(context.Background(), recipient(domain.NotificationPreferences{Email: true}), Message{Subject: "s", Body: "b"})

	require.NoError(t, err)
	assert.Equal(t, "m-1", res.MessageID)
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "https://sqs.local/q", aws.ToString(client.inputs[0].QueueUrl))
	assert.Contains(t, aws.ToString(client.inputs[0].MessageBody), `"channel":"email"`)
}

func TestBreakerDriver_OpensAfterFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	brk := NewBreakerDriver(NewKafkaDriver(ChannelPush, w), 2, time.Minute, zap.NewNop())
	to := recipient(domain.NotificationPreferences{Push: true, PushToken: "tok"})

	for range 2 {
		_, err := brk.Send(context.Background(), to, Message{Body: "x"})
		assert.ErrorContains(t, err, "broker down")
	}
	assert.Equal(t, gobreaker.StateOpen, brk.State())

	_, err := brk.Send(context.Background(), to, Message{Body: "x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestDispatcher_DriverErrorIsContained(t *testing.T) {
	m := metrics.NewCollector("test")
	w := &fakeWriter{err: errors.New("broker down")}
	d := NewDispatcher([]Driver{NewKafkaDriver(ChannelPush, w)}, time.Second, m, zap.NewNop())

	res := d.Notify(context.Background(), recipient(domain.NotificationPreferences{Push: true, PushToken: "tok"}), Message{Body: "x"})
	require.Contains(t, res, ChannelPush)
	assert.False(t, res[ChannelPush].Success)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("push", "kafka", "error")))
}

func TestBuild_KafkaOnSeveralChannels(t *testing.T) {
	store := memory.NewStore()
	d, err := Build(context.Background(), config.NotificationConfig{
		EmailDriver:        "mock",
		SMSDriver:          "kafka",
		PushDriver:         "kafka",
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaTopic:         "notifications",
		BreakerMaxFailures: 3,
		BreakerOpenTimeout: time.Second,
	}, store.Notifications(), metrics.NewCollector("test"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.Len(t, d.drivers, 3)
	assert.Equal(t, "mock", d.drivers[ChannelEmail].Name())
	for _, ch := range []Channel{ChannelSMS, ChannelPush} {
		require.Contains(t, d.drivers, ch)
		assert.Equal(t, "kafka", d.drivers[ch].Name())
		assert.Equal(t, ch, d.drivers[ch].Channel())
	}
	assert.Len(t, d.closers, 1, "channels share one writer")
}

func TestKafkaDriver_EventCarriesItsChannel(t *testing.T) {
	w := &fakeWriter{}
	sms := NewKafkaDriver(ChannelSMS, w)
	push := NewKafkaDriver(ChannelPush, w)
	to := recipient(domain.NotificationPreferences{SMS: true, Push: true, Phone: "+639171234567", PushToken: "tok-2"})

	_, err := sms.Send(context.Background(), to, Message{Body: "a"})
	require.NoError(t, err)
	_, err = push.Send(context.Background(), to, Message{Body: "b"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 2)
	assert.Contains(t, string(w.msgs[0].Value), `"channel":"sms"`)
	assert.Contains(t, string(w.msgs[0].Value), `"address":"+639171234567"`)
	assert.Contains(t, string(w.msgs[1].Value), `"channel":"push"`)
}

func TestDispatcher_OpenBreakerIsCountedAsError(t *testing.T) {
	m := metrics.NewCollector("test")
	w := &fakeWriter{err: errors.New("broker down")}
	brk := NewBreakerDriver(NewKafkaDriver(ChannelPush, w), 2, time.Minute, zap.NewNop())
	d := NewDispatcher([]Driver{brk}, time.Second, m, zap.NewNop())
	to := recipient(domain.NotificationPreferences{Push: true, PushToken: "tok"})

	for range 2 {
		res := d.Notify(context.Background(), to, Message{Body: "x"})
		assert.Contains(t, res[ChannelPush].Error, "broker down")
	}
	assert.Equal(t, gobreaker.StateOpen, brk.State())

	res := d.Notify(context.Background(), to, Message{Body: "x"})
	require.Contains(t, res, ChannelPush)
	assert.False(t, res[ChannelPush].Success)
	assert.Equal(t, gobreaker.ErrOpenState.Error(), res[ChannelPush].Error)
	assert.Len(t, w.msgs, 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("push", "kafka", "error")))
}
