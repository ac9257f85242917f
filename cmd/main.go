package main

import (
	"bufio"
	"chat-session/connection"
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/infrastructure/participant"
	"chat-session/infrastructure/storage"
	"chat-session/infrastructure/transfer"
	"chat-session/internal"
	"chat-session/observability"
	"chat-session/runtime"
	"chat-session/runtime/workers"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logger
	engine, client, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(engine.LogLevel)

	// 2. Collaborators
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	files, err := storage.NewTempFiles(log, engine.TempDir)
	if err != nil {
		return err
	}
	session := domain.NewSessionContext()
	dialer := connection.NewWebsocketDialer(engine.DialTimeout)
	deps := runtime.Dependencies{
		Service:  participant.NewClient(log, engine.ParticipantEndpoint, engine.RequestTimeout),
		Transfer: transfer.NewHTTPTransfer(log, engine.RequestTimeout),
		Files:    files,
		Metrics:  metrics,
		NewConnection: func(listener contract.ConnectionListener) contract.Connection {
			return connection.NewSupervisor(log, dialer, session, nil, metrics, listener, connection.Options{
				HeartbeatInterval:     engine.HeartbeatInterval,
				DeepHeartbeatInterval: engine.DeepHeartbeatInterval,
			})
		},
	}

	// 3. Session engine
	sup := workers.NewSupervisor(log).WithRestartDelay(engine.RestartDelay)
	orchestrator := runtime.NewOrchestrator(log, session, sup, runtime.NewRegistry(), deps, optionsFrom(engine))

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator.Start(ctx)
	defer orchestrator.Close()

	if engine.MetricsAddr != "" {
		stats := func() map[string]any {
			return map[string]any{"State": orchestrator.ConnectionState().String(), "Active": session.IsActive()}
		}
		internal.StartDebugServer(ctx, log, engine.MetricsAddr, internal.NewDebugRouter(orchestrator.Transcript, stats, registry))
	}

	out := newConsole(os.Stdout, orchestrator, client.Colours)
	unsubscribe := out.follow(ctx)
	defer unsubscribe()

	// 5. Open the chat
	chat := domain.ChatDetails{
		ContactID:        client.ContactID,
		ParticipantID:    client.ParticipantID,
		ParticipantToken: client.ParticipantToken,
	}
	if err := orchestrator.CreateSession(ctx, chat); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	// 6. Read commands until quit, EOF or a signal
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down gracefully...")
			return nil
		case line, ok := <-lines:
			if !ok {
				return orchestrator.Disconnect(context.Background())
			}
			quit, err := out.handle(ctx, line)
			if err != nil {
				out.failure(err)
			}
			if quit {
				log.Info("Program stopped cleanly")
				return nil
			}
		}
	}
}

func optionsFrom(c internal.Config) runtime.Options {
	return runtime.Options{
		TypingExpiry:       c.TypingExpiry,
		TypingThrottle:     c.TypingThrottle,
		ReceiptsEnabled:    c.ReceiptsEnabled,
		ReceiptWindow:      c.ReceiptWindow,
		DeliveredGrace:     c.DeliveredGrace,
		TranscriptPageSize: c.TranscriptPageSize,
		NotificationBuffer: c.NotificationBuffer,
		SinkTimeout:        c.SinkTimeout,
		Backoff: runtime.BackoffConfig{
			InitialDelay: c.BackoffInitial,
			Multiplier:   c.BackoffMultiplier,
			MaxDelay:     c.BackoffMax,
			Jitter:       true,
		},
	}
}
