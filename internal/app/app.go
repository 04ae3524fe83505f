// Package app wires the application together: config → logger → genkit →
// llm client → store → orchestrator. Commands call Setup once and work
// with the returned App.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/draftly/draftly/internal/config"
	"github.com/draftly/draftly/internal/generate"
	"github.com/draftly/draftly/internal/llm"
	"github.com/draftly/draftly/internal/log"
	"github.com/draftly/draftly/internal/observability"
	"github.com/draftly/draftly/internal/session"
)

// shutdownTimeout bounds the trace flush on Close.
const shutdownTimeout = 5 * time.Second

// App holds the wired application components.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Genkit       *genkit.Genkit
	Client       llm.Client
	Store        *session.Store
	Orchestrator *generate.Orchestrator

	otelShutdown func(context.Context) error
}

// Setup creates and initializes the application. Call Close to release.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	a := &App{Config: cfg, Logger: logger}

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			CollectorHost: cfg.Tracing.AgentHost,
			ServiceName:   cfg.Tracing.ServiceName,
			Environment:   cfg.Tracing.Environment,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	client, err := llm.New(llm.Config{
		Genkit:    g,
		ModelName: cfg.QualifiedModel(),
		Logger:    logger.With("component", "llm"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	a.Client = client

	a.Store = session.NewStore(logger.With("component", "store"))

	orch, err := generate.New(generate.Config{
		Client:         client,
		Store:          a.Store,
		Logger:         logger.With("component", "orchestrator"),
		Variants:       cfg.VariantCount,
		FallbackStyles: cfg.FallbackStyles,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	orch.SetStyleTags(cfg.StyleTags)
	a.Orchestrator = orch

	return a, nil
}

// provideGenkit initializes Genkit with the configured provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	var g *genkit.Genkit
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("failed to initialize genkit")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
	default:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("failed to initialize genkit")
		}
	}
	return g, nil
}

// Close releases application resources, flushing pending trace spans.
func (a *App) Close() error {
	if a.otelShutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.otelShutdown(ctx)
}
