package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-split/internal/classification"
	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/config"
	"github.com/Veraticus/spice-split/internal/engine"
	"github.com/Veraticus/spice-split/internal/heuristic"
	"github.com/Veraticus/spice-split/internal/llm"
	"github.com/Veraticus/spice-split/internal/normalize"
	"github.com/Veraticus/spice-split/internal/prompt"
	"github.com/Veraticus/spice-split/internal/split"
	"github.com/Veraticus/spice-split/internal/storage"
)

// app holds everything a command needs to process messages.
type app struct {
	pipeline   *engine.Pipeline
	normalizer *normalize.Normalizer
	journal    *storage.Journal
	closers    []func() error
	cfg        config.Config
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, common.NewUserError("Configuração inválida", err)
	}
	return cfg, nil
}

// newApp wires the pipeline from configuration. Providers that are not
// configured are left out and their cascade stage is skipped.
func newApp(ctx context.Context, withJournal bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger()
	participants := cfg.Household.Participants

	categories := classification.NewCanonicalizer(classification.DefaultTaxonomy())
	reconciler, err := split.NewReconciler(split.DefaultRules(), participants)
	if err != nil {
		return nil, fmt.Errorf("failed to compile split rules: %w", err)
	}
	normalizer := normalize.New(normalize.Options{
		Categories:   categories,
		Reconciler:   reconciler,
		Participants: participants,
	})
	keywords := classification.NewKeywordClassifier(classification.DefaultKeywordRules(), categories.Fallback())

	promptCfg, err := cfg.PromptBuilderConfig()
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.New(promptCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompts: %w", err)
	}

	a := &app{cfg: cfg, normalizer: normalizer}
	opts := engine.Options{
		Normalizer:       normalizer,
		Reconciler:       reconciler,
		Extractor:        heuristic.NewExtractor(keywords, reconciler, participants),
		Prompts:          prompts,
		Participants:     participants,
		Location:         cfg.Location,
		Logger:           log,
		PrimaryTimeout:   cfg.Relay.Timeout,
		SecondaryTimeout: cfg.LLM.Timeout,
		DisableHeuristic: !cfg.Heuristic,
	}

	if cfg.RelayEnabled() {
		relay, err := llm.NewRelayClient(cfg.RelayClientConfig(), log)
		if err != nil {
			return nil, err
		}
		opts.Relay = relay
	} else {
		log.Debug("relay not configured, primary stage disabled")
	}

	if cfg.SecondaryEnabled() {
		completer, err := llm.NewCompleter(ctx, cfg.CompleterConfig())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return llm.Close(completer) })
		opts.Completer = completer
		opts.Models = cfg.LLM.Models
	} else {
		log.Debug("no API key for the completion provider, secondary stage disabled", "provider", cfg.LLM.Provider)
	}

	if withJournal && cfg.Audit.Enabled {
		journal, err := storage.Open(ctx, cfg.Audit.Path, log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to open audit journal: %w", err)
		}
		a.journal = journal
		a.closers = append(a.closers, journal.Close)
	}

	pipeline, err := engine.New(opts)
	if err != nil {
		a.close()
		return nil, err
	}
	a.pipeline = pipeline
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger().Warn("failed to release resource", "error", err)
		}
	}
}
