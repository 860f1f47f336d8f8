// Package app wires configuration into the service's runtime components.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"live-transcription-service/internal/config"
	"live-transcription-service/internal/engine"
	"live-transcription-service/internal/events"
	"live-transcription-service/internal/inference"
	"live-transcription-service/internal/inference/googlestt"
	"live-transcription-service/internal/inference/mock"
	"live-transcription-service/internal/inference/whispercpp"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config
	Manager     *engine.Manager
	Publisher   *events.Publisher

	adapter inference.Adapter
}

// New constructs the inference adapter, event publisher, and session manager
// from the loaded configuration.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	adapter, err := newAdapter(ctx, cfg.Inference)
	if err != nil {
		return nil, fmt.Errorf("inference adapter: %w", err)
	}

	publisher := events.New(&events.Config{
		Enabled:    cfg.Kafka.Enabled,
		Brokers:    cfg.Kafka.Brokers,
		TopicDelta: cfg.Kafka.TopicDelta,
		TopicFinal: cfg.Kafka.TopicFinal,
		Principal:  cfg.Kafka.Principal,
	})

	manager := engine.NewManager(engine.Config{
		WindowInterval:    cfg.Engine.WindowInterval,
		OverlapSpan:       cfg.Engine.OverlapSpan,
		InferenceTimeout:  cfg.Engine.InferenceTimeout,
		InactivityTimeout: cfg.Engine.InactivityTimeout,
		OutboxSize:        cfg.Engine.OutboxSize,
	}, adapter, publisher, cfg.Inference.Provider)

	log.Info().
		Str("provider", cfg.Inference.Provider).
		Dur("windowInterval", cfg.Engine.WindowInterval).
		Dur("overlapSpan", cfg.Engine.OverlapSpan).
		Msg("live transcription engine created")

	return &Application{
		StartupTime: time.Now().UTC(),
		Cfg:         cfg,
		Manager:     manager,
		Publisher:   publisher,
		adapter:     adapter,
	}, nil
}

// newAdapter selects the transcription backend by provider name.
func newAdapter(ctx context.Context, cfg config.InferenceConfig) (inference.Adapter, error) {
	switch cfg.Provider {
	case "", "mock":
		return mock.New(), nil
	case "whispercpp":
		// whisper-cli takes bare language codes ("en"), not BCP 47 tags
		lang := strings.ToLower(strings.SplitN(cfg.LanguageCode, "-", 2)[0])
		return whispercpp.New(cfg.ModelPath, lang, cfg.Threads)
	case "google":
		return googlestt.New(ctx, cfg.LanguageCode)
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
}

// Shutdown drains sessions and releases backend resources.
func (a *Application) Shutdown(ctx context.Context) {
	if err := a.Manager.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("session manager did not drain cleanly")
	}
	if err := a.Publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing event publisher")
	}
	if closer, ok := a.adapter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing inference adapter")
		}
	}
}
