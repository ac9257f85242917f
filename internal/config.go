package internal

import (
	"chat-session/errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds every tunable of a chat session engine.
type Config struct {
	ParticipantEndpoint string `env:"PARTICIPANT_ENDPOINT,required=true" validate:"required,url"`
	LogLevel            string `env:"LOG_LEVEL,default=INFO"`
	MetricsAddr         string `env:"METRICS_ADDR"`
	TempDir             string `env:"ATTACHMENT_TEMP_DIR"`

	HeartbeatInterval     time.Duration `env:"HEARTBEAT_INTERVAL,default=10s" validate:"gt=0"`
	DeepHeartbeatInterval time.Duration `env:"DEEP_HEARTBEAT_INTERVAL,default=60s" validate:"gt=0"`
	DialTimeout           time.Duration `env:"DIAL_TIMEOUT,default=10s" validate:"gt=0"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT,default=30s" validate:"gt=0"`

	TypingExpiry   time.Duration `env:"TYPING_EXPIRY,default=12s" validate:"gt=0"`
	TypingThrottle time.Duration `env:"TYPING_THROTTLE,default=10s" validate:"gt=0"`

	ReceiptsEnabled bool          `env:"RECEIPTS_ENABLED,default=true"`
	ReceiptWindow   time.Duration `env:"RECEIPT_WINDOW,default=5s" validate:"gt=0"`
	DeliveredGrace  time.Duration `env:"DELIVERED_GRACE,default=3s" validate:"gt=0"`

	TranscriptPageSize int           `env:"TRANSCRIPT_PAGE_SIZE,default=30" validate:"gt=0,lte=100"`
	NotificationBuffer int           `env:"NOTIFICATION_BUFFER,default=256" validate:"gt=0"`
	SinkTimeout        time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	RestartDelay       time.Duration `env:"RESTART_DELAY,default=200ms" validate:"gt=0"`

	BackoffInitial    time.Duration `env:"RECONNECT_BACKOFF_INITIAL,default=1s" validate:"gt=0"`
	BackoffMax        time.Duration `env:"RECONNECT_BACKOFF_MAX,default=30s" validate:"gtefield=BackoffInitial"`
	BackoffMultiplier float64       `env:"RECONNECT_BACKOFF_MULTIPLIER,default=2" validate:"gte=1"`
}

// DefaultConfig returns the same values the env defaults produce, for library users.
func DefaultConfig(endpoint string) Config {
	return Config{
		ParticipantEndpoint:   endpoint,
		LogLevel:              "INFO",
		TempDir:               DefaultTempDir(),
		HeartbeatInterval:     10 * time.Second,
		DeepHeartbeatInterval: 60 * time.Second,
		DialTimeout:           10 * time.Second,
		RequestTimeout:        30 * time.Second,
		TypingExpiry:          12 * time.Second,
		TypingThrottle:        10 * time.Second,
		ReceiptsEnabled:       true,
		ReceiptWindow:         5 * time.Second,
		DeliveredGrace:        3 * time.Second,
		TranscriptPageSize:    30,
		NotificationBuffer:    256,
		SinkTimeout:           2 * time.Second,
		RestartDelay:          200 * time.Millisecond,
		BackoffInitial:        time.Second,
		BackoffMax:            30 * time.Second,
		BackoffMultiplier:     2,
	}
}

func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), "chat-attachments")
}

// Validate checks struct tags and reports the first failures as an ErrValidation.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

// ValidateDetails checks session details received from the host or the remote service.
func ValidateDetails(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidDetails, err)
	}
	return nil
}
