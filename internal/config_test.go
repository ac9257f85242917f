package internal

import (
	"chat-session/domain"
	"chat-session/errors"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Env_Defaults_Match_DefaultConfig(t *testing.T) {
	req := require.New(t)
	t.Setenv("PARTICIPANT_ENDPOINT", "https://participant.example.com")
	t.Setenv("ATTACHMENT_TEMP_DIR", DefaultTempDir())

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal(DefaultConfig("https://participant.example.com"), config)
	req.NoError(Validate(config))
}

func TestConfig_Env_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("PARTICIPANT_ENDPOINT", "https://participant.example.com")
	t.Setenv("HEARTBEAT_INTERVAL", "3s")
	t.Setenv("RECEIPTS_ENABLED", "false")
	t.Setenv("TRANSCRIPT_PAGE_SIZE", "50")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal(3*time.Second, config.HeartbeatInterval)
	req.False(config.ReceiptsEnabled)
	req.Equal(50, config.TranscriptPageSize)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "endpoint is not a url", mutate: func(c *Config) { c.ParticipantEndpoint = "participant" }},
		{name: "zero heartbeat", mutate: func(c *Config) { c.HeartbeatInterval = 0 }},
		{name: "page size above service limit", mutate: func(c *Config) { c.TranscriptPageSize = 101 }},
		{name: "backoff max below initial", mutate: func(c *Config) { c.BackoffMax = c.BackoffInitial / 2 }},
		{name: "shrinking backoff", mutate: func(c *Config) { c.BackoffMultiplier = 0.5 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig("https://participant.example.com")
			tc.mutate(&config)

			err := Validate(config)

			require.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}

func TestValidateDetails(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateDetails(domain.ConnectionDetails{WebsocketURL: "wss://gateway.example.com", ConnectionToken: "token"}))

	err := ValidateDetails(domain.ConnectionDetails{WebsocketURL: "wss://gateway.example.com"})
	req.ErrorIs(err, errors.ErrInvalidDetails)
	req.ErrorIs(err, errors.ErrValidation)
}
