package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/groundsight/prospector/internal/gauntlet"
	"github.com/groundsight/prospector/internal/store"
	"github.com/groundsight/prospector/pkg/companieshouse"
	"github.com/groundsight/prospector/pkg/landregistry"
	"github.com/groundsight/prospector/pkg/londondatahub"
	"github.com/groundsight/prospector/pkg/planit"
)

// gauntletEnv holds the initialized store, runner, and refresher needed by
// the run/refresh/serve commands.
type gauntletEnv struct {
	Store     store.Store
	Runner    *gauntlet.Runner
	Refresher *gauntlet.Refresher
}

// Close releases resources held by the environment.
func (ge *gauntletEnv) Close() {
	if ge.Store != nil {
		_ = ge.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "prospector.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initGauntlet sets up the store, all registry clients, and builds the
// runner and refresher. Callers should defer env.Close().
func initGauntlet(ctx context.Context) (*gauntletEnv, error) {
	if cfg.CompaniesHouse.Key == "" {
		return nil, eris.New("companies house API key is required (PROSPECTOR_COMPANIES_HOUSE_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	chClient := companieshouse.NewClient(cfg.CompaniesHouse.Key, companieshouse.WithBaseURL(cfg.CompaniesHouse.BaseURL))
	planitClient := planit.NewClient(planit.WithBaseURL(cfg.PlanIt.BaseURL), planit.WithPageSize(cfg.PlanIt.PageSize))
	datahubClient := londondatahub.NewClient(londondatahub.WithBaseURL(cfg.Datahub.BaseURL))
	landClient := landregistry.NewClient(cfg.LandRegistry.Key, landregistry.WithBaseURL(cfg.LandRegistry.BaseURL))

	runnerOpts := []gauntlet.RunnerOption{}
	if len(cfg.Datahub.PostcodeAreas) > 0 {
		runnerOpts = append(runnerOpts, gauntlet.WithMetroAreas(cfg.Datahub.PostcodeAreas))
	}
	if cfg.Gauntlet.WeightsFile != "" {
		weights, err := gauntlet.LoadWeights(cfg.Gauntlet.WeightsFile)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load scoring weights")
		}
		zap.L().Info("scoring weights loaded", zap.String("file", cfg.Gauntlet.WeightsFile))
		runnerOpts = append(runnerOpts, gauntlet.WithWeights(weights))
	}

	runner := gauntlet.NewRunner(st, chClient, planitClient, datahubClient, landClient, runnerOpts...)

	refresherOpts := []gauntlet.RefresherOption{}
	if cfg.Refresh.DispatchDelayMS > 0 {
		refresherOpts = append(refresherOpts, gauntlet.WithDispatchDelay(time.Duration(cfg.Refresh.DispatchDelayMS)*time.Millisecond))
	}
	refresher := gauntlet.NewRefresher(st, runner.Run, refresherOpts...)

	return &gauntletEnv{
		Store:     st,
		Runner:    runner,
		Refresher: refresher,
	}, nil
}
