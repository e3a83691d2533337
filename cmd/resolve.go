package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/configs"
	"droscher.com/GroundsKeeper/pkg/repository"
	"droscher.com/GroundsKeeper/pkg/resolver"
)

type ResolveCmd struct {
	ConfigFile string `default:".GroundsKeeper.toml" help:"Path to config file" short:"c"`

	Name       string  `arg:""     help:"Venue name to resolve" optional:""`
	City       string  `help:"City the venue is in"`
	Country    string  `help:"Country the venue is in"`
	ExternalID *uint64 `help:"Upstream identifier of the venue"`
}

func (r *ResolveCmd) Run(_ *Context) error {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.DisableStacktrace = true

	logger, _ := logConfig.Build()
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	conf, err := configs.GetConfig(r.ConfigFile, logger)
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

	resolution, err := services.resolver.Resolve(ctx, resolver.Reference{
		Name:       r.Name,
		City:       r.City,
		Country:    r.Country,
		ExternalID: r.ExternalID,
	})
	if err != nil {
		logger.Error("resolution failed", zap.Error(err))

		return err
	}

	venue := resolution.Venue
	fields := []zap.Field{
		zap.Uint("venue_id", venue.ID),
		zap.String("name", venue.Name),
		zap.String("state", string(resolution.State)),
		zap.Bool("created", resolution.Created),
	}

	if coord, ok := venue.Coordinate(); ok {
		fields = append(fields, zap.Float64("lon", coord.Lon), zap.Float64("lat", coord.Lat))
	}

	logger.Info("resolved", fields...)

	return nil
}
