package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "juanheart-api", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.False(t, cfg.Server.TLSEnabled())
	assert.Equal(t, "mock", cfg.Notification.EmailDriver)
	assert.Equal(t, 40.0, cfg.Risk.ModerateThreshold)
	assert.Equal(t, 70.0, cfg.Risk.HighThreshold)
	assert.Equal(t, 100, cfg.Sync.DefaultLimit)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("NOTIFY_PUSH_DRIVER", "kafka")
	t.Setenv("NOTIFY_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("RISK_HIGH_THRESHOLD", "80")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "kafka", cfg.Notification.PushDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notification.KafkaBrokers)
	assert.Equal(t, 80.0, cfg.Risk.HighThreshold)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "invalid duration falls back to default")
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing jwt secret",
			env:  map[string]string{"JWT_SECRET": ""},
			want: "JWT_SECRET is required",
		},
		{
			name: "short secret in production",
			env:  map[string]string{"JWT_SECRET": "short", "APP_ENV": "production", "DB_PASSWORD": "x"},
			want: "at least 32 characters",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"JWT_SECRET": "s", "NOTIFY_SMS_DRIVER": "carrier-pigeon"},
			want: "NOTIFY_SMS_DRIVER",
		},
		{
			name: "sqs without queue",
			env:  map[string]string{"JWT_SECRET": "s", "NOTIFY_EMAIL_DRIVER": "sqs"},
			want: "NOTIFY_SQS_QUEUE_URL",
		},
		{
			name: "inverted thresholds",
			env:  map[string]string{"JWT_SECRET": "s", "RISK_MODERATE_THRESHOLD": "75", "RISK_HIGH_THRESHOLD": "60"},
			want: "risk thresholds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
