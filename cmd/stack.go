package cmd

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/configs"
	"droscher.com/GroundsKeeper/pkg/correction"
	"droscher.com/GroundsKeeper/pkg/geocode"
	"droscher.com/GroundsKeeper/pkg/match"
	"droscher.com/GroundsKeeper/pkg/repository"
	"droscher.com/GroundsKeeper/pkg/resolver"
	"droscher.com/GroundsKeeper/pkg/telemetry"
)

// stack holds the wired services every command works with.
type stack struct {
	resolver *resolver.Resolver
	engine   *correction.Engine
	metrics  *telemetry.Metrics
}

func buildStack(conf *configs.Config, repo *repository.Repository, logger *zap.Logger) (*stack, error) {
	manual, err := correction.LoadManualCorrections(conf.Corrections.File)
	if err != nil {
		logger.Error("error loading manual corrections", zap.Error(err))

		return nil, err
	}

	metrics := telemetry.NewMetrics()
	clock := clockwork.NewRealClock()
	client := geocode.NewClient(conf.Geocoder.APIKey, conf.Geocoder.BaseURL, conf.Geocoder.Timeout, logger)
	cache := geocode.NewCache(client, clock, conf.Geocoder.MinInterval, conf.Geocoder.RetryBackoff, logger, metrics)
	matcher := match.New(repo, logger)

	return &stack{
		resolver: resolver.New(matcher, repo, cache, clock, logger, metrics),
		engine:   correction.NewEngine(repo, cache, manual, logger, metrics),
		metrics:  metrics,
	}, nil
}
