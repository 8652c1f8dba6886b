package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bluereef-labs/mpagent/internal/extract"
	"github.com/bluereef-labs/mpagent/internal/ocr"
	"github.com/bluereef-labs/mpagent/internal/pipeline"
	"github.com/bluereef-labs/mpagent/internal/scorer"
	"github.com/bluereef-labs/mpagent/internal/store"
	"github.com/bluereef-labs/mpagent/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "mpagent.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// env bundles the wired pipeline and its store for a command invocation.
type env struct {
	Store  store.Store
	Runner *pipeline.Runner
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func initPipeline(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	if cfg.Anthropic.Key == "" {
		st.Close() //nolint:errcheck
		return nil, eris.New("anthropic API key is required (MPAGENT_ANTHROPIC_KEY)")
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	oracle := extract.New(client, cfg.Anthropic, cfg.Extract)

	rules := scorer.DefaultRules()
	if cfg.Scoring.RulesPath != "" {
		rules, err = scorer.LoadRules(cfg.Scoring.RulesPath)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
	}
	engine := scorer.NewEngine(rules)

	return &env{
		Store:  st,
		Runner: pipeline.New(st, extractor, oracle, engine, cfg.Extract.MaxSegmentChars),
	}, nil
}
