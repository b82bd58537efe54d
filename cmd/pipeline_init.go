package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/completion"
	"github.com/sells-group/contact-enricher/internal/config"
	"github.com/sells-group/contact-enricher/internal/fetch"
	"github.com/sells-group/contact-enricher/internal/pipeline"
	"github.com/sells-group/contact-enricher/internal/resilience"
	"github.com/sells-group/contact-enricher/internal/search"
	"github.com/sells-group/contact-enricher/internal/store"
	anthropicpkg "github.com/sells-group/contact-enricher/pkg/anthropic"
	"github.com/sells-group/contact-enricher/pkg/jina"
)

// pipelineEnv holds the initialized clients, store and orchestrator needed
// by the run and batch commands.
type pipelineEnv struct {
	Store        store.Store // nil when store.path is unset
	Orchestrator *pipeline.Orchestrator
	Metrics      *pipeline.Metrics
	Completer    *completion.AnthropicCompleter
	Breakers     *resilience.Breakers
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// logUsage reports AI usage and hosts left with an open breaker.
func (pe *pipelineEnv) logUsage() {
	if pe.Completer != nil {
		calls, usage := pe.Completer.Usage()
		zap.L().Info("ai usage",
			zap.Int64("calls", calls),
			zap.Int64("input_tokens", usage.InputTokens),
			zap.Int64("output_tokens", usage.OutputTokens),
			zap.Float64("estimated_cost_usd", usage.EstimateCost(pe.Completer.Model())),
		)
	}
	if pe.Breakers != nil {
		if open := pe.Breakers.Open(); len(open) > 0 {
			zap.L().Warn("hosts with open breakers", zap.Strings("hosts", open))
		}
	}
}

// initStore opens and migrates the SQLite store, or returns nil when no path
// is configured.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline validates the config for mode, sets up the store and API
// clients, and builds the orchestrator. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	rules, err := search.LoadRules(cfg.Pipeline.DomainRulesPath)
	if err != nil {
		return nil, err
	}
	if cfg.Pipeline.SocialConfidenceMultiplier > 0 {
		rules.SocialMultiplier = cfg.Pipeline.SocialConfidenceMultiplier
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	limiter := resilience.NewLimiter(cfg.RateLimit.RequestsPerMinute, secs(cfg.RateLimit.MaxWaitSecs))
	completer := completion.NewAnthropicCompleter(anthropicClient, limiter, completion.Config{
		Model:         cfg.Anthropic.Model,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		Timeout:       secs(cfg.Anthropic.TimeoutSecs),
		MaxInputRunes: cfg.Anthropic.MaxInputRunes,
	})

	breakers := resilience.NewBreakers(resilience.BreakerConfig{
		Threshold: cfg.Fetch.BreakerThreshold,
		Cooldown:  secs(cfg.Fetch.BreakerCooldownSec),
	})

	fetcher := buildFetcher(cfg.Fetch, cfg.Jina, jinaClient, breakers)
	metrics := pipeline.NewMetrics()
	agents := pipeline.Agents(pipeline.Deps{
		Searcher:  search.NewJinaSearcher(jinaClient, secs(cfg.Jina.TimeoutSecs), cfg.Jina.MaxResults),
		Fetcher:   fetcher,
		Completer: completer,
		Filter:    search.NewFilter(rules),
		Settings: pipeline.Settings{
			MaxContactPages:   cfg.Pipeline.MaxContactPages,
			MaxFaxSearchPages: cfg.Pipeline.MaxFaxSearchPages,
			FetchConcurrency:  cfg.Pipeline.FetchConcurrency,
		},
	})

	orch := pipeline.NewOrchestrator(agents, metrics)
	zap.L().Debug("pipeline ready",
		zap.Strings("agents", orch.Agents()),
		zap.Strings("fetchers", fetcher.Names()),
		zap.Bool("store", st != nil),
	)

	return &pipelineEnv{
		Store:        st,
		Orchestrator: orch,
		Metrics:      metrics,
		Completer:    completer,
		Breakers:     breakers,
	}, nil
}

// buildFetcher chains plain HTTP, then the headless browser when enabled,
// then the Jina reader when enabled.
func buildFetcher(fc config.FetchConfig, jc config.JinaConfig, jinaClient jina.Client, breakers *resilience.Breakers) *fetch.Chain {
	opts := fetch.Options{
		Timeout:       secs(fc.TimeoutSecs),
		UserAgent:     fc.UserAgent,
		MinTextLength: fc.MinTextLength,
	}

	links := []fetch.Named{{Name: "http", Fetcher: fetch.NewHTTPFetcher(opts, breakers)}}
	if fc.Browser {
		bopts := opts
		bopts.Timeout = secs(fc.BrowserTimeoutSecs)
		links = append(links, fetch.Named{Name: "browser", Fetcher: fetch.NewBrowserFetcher(bopts, fc.MaxBrowserSessions)})
	}
	if jc.Reader && jinaClient != nil {
		jopts := opts
		jopts.Timeout = secs(jc.TimeoutSecs)
		links = append(links, fetch.Named{Name: "jina", Fetcher: fetch.NewJinaFetcher(jinaClient, jopts)})
	}
	return fetch.NewChain(links...)
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
