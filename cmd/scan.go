package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/configs"
	"droscher.com/GroundsKeeper/pkg/bounds"
	"droscher.com/GroundsKeeper/pkg/correction"
	"droscher.com/GroundsKeeper/pkg/repository"
)

type ScanCmd struct {
	ConfigFile string `default:".GroundsKeeper.toml" help:"Path to config file" short:"c"`
	Apply      bool   `help:"Correct the detected issues instead of only reporting them"`
	Dedupe     bool   `help:"Merge duplicate venue records after the coordinate scan"`
}

func (s *ScanCmd) Run(cliCtx *Context) error {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.DisableStacktrace = true

	if !cliCtx.Debug {
		logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, _ := logConfig.Build()
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	conf, err := configs.GetConfig(s.ConfigFile, logger)
	if err != nil {
		logger.Error("error loading config", zap.Error(err))

		return err
	}

	repo, err := repository.Open(conf, logger)
	if err != nil {
		logger.Error("error connecting to database", zap.Error(err))

		return err
	}
	defer repo.Close()

	services, err := buildStack(conf, repo, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issues, err := services.engine.Scan(ctx)
	if err != nil {
		logger.Error("scan failed", zap.Error(err))

		return err
	}

	bySeverity := make(map[string]int)

	for _, issue := range issues {
		bySeverity[string(issue.Severity)]++

		logger.Info("issue",
			zap.String("id", issue.ID.String()),
			zap.Uint("venue_id", issue.Venue.ID),
			zap.String("name", issue.Venue.Name),
			zap.String("severity", string(issue.Severity)),
			zap.String("reason", issue.Reason))
	}

	logger.Info("scan complete",
		zap.Int("issues", len(issues)),
		zap.Int("high", bySeverity[string(bounds.SeverityHigh)]),
		zap.Int("medium", bySeverity[string(bounds.SeverityMedium)]))

	if s.Apply {
		report, err := services.engine.ApplyAll(ctx, issues)
		if err != nil && report == nil {
			logger.Error("correction run failed", zap.Error(err))

			return err
		}

		for _, issue := range issues {
			if outcome, ok := report.Outcomes[issue.ID]; ok {
				logger.Info("correction outcome",
					zap.String("id", issue.ID.String()),
					zap.Uint("venue_id", issue.Venue.ID),
					zap.String("outcome", string(outcome)))
			}
		}

		logger.Info("corrections applied",
			zap.Int("applied", report.Applied), zap.Int("unresolved", report.Unresolved))

		if err != nil {
			logger.Warn("some corrections failed", zap.Error(err))
		}
	}

	if s.Dedupe {
		report, err := services.engine.Dedupe(ctx)
		if err != nil && !errors.Is(err, correction.ErrAmbiguousGroup) {
			logger.Error("dedupe failed", zap.Error(err))

			return err
		}

		logger.Info("dedupe complete",
			zap.Int("groups", report.Groups),
			zap.Int("deleted", report.Deleted),
			zap.Int("manual_review", report.ManualReview))
	}

	return nil
}
