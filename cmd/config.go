package main

import (
	"chat-session/internal"
	"fmt"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config is what the terminal client needs on top of the engine settings.
type Config struct {
	ParticipantToken string `env:"PARTICIPANT_TOKEN,required=true"`
	ContactID        string `env:"CONTACT_ID"`
	ParticipantID    string `env:"PARTICIPANT_ID"`
	Colours          bool   `env:"COLOURS,default=true"`
}

// loadConfig reads an optional .env file, then the environment.
func loadConfig() (internal.Config, Config, error) {
	_ = godotenv.Load()

	var engine internal.Config
	if _, err := env.UnmarshalFromEnviron(&engine); err != nil {
		return internal.Config{}, Config{}, fmt.Errorf("engine config: %w", err)
	}
	if engine.TempDir == "" {
		engine.TempDir = internal.DefaultTempDir()
	}
	if err := internal.Validate(engine); err != nil {
		return internal.Config{}, Config{}, err
	}

	var client Config
	if _, err := env.UnmarshalFromEnviron(&client); err != nil {
		return internal.Config{}, Config{}, fmt.Errorf("client config: %w", err)
	}
	return engine, client, nil
}
