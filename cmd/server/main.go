package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/akarpenko/backplane/core"
	"github.com/akarpenko/backplane/modules/users"
	"github.com/akarpenko/backplane/pkg/authn"
	"github.com/akarpenko/backplane/pkg/config"
	"github.com/akarpenko/backplane/pkg/httpserver"
	"github.com/akarpenko/backplane/pkg/logger"
	"github.com/akarpenko/backplane/pkg/mongo"
	"github.com/akarpenko/backplane/pkg/provider"
	"github.com/akarpenko/backplane/pkg/requestid"
	"github.com/akarpenko/backplane/pkg/userstore"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"backplane"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	if err := run(context.Background(), appCfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var (
		mongoCfg  mongo.Config
		httpCfg   httpserver.Config
		authCfg   authn.Config
		googleCfg provider.GoogleConfig
		keysCfg   userstore.KeysConfig
	)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&authCfg)
	config.MustLoad(&googleCfg)
	config.MustLoad(&keysCfg)

	client, err := mongo.Connect(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(mongoCfg.Database)

	cipher, err := userstore.NewCipherFromConfig(keysCfg)
	if err != nil {
		return err
	}
	store := userstore.NewMongoStore(db, cipher)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	registry := provider.NewRegistry()
	google, err := provider.NewGoogle(googleCfg, store, log)
	if err != nil {
		return err
	}
	if err := registry.Register(google); err != nil {
		return err
	}

	auth, err := authn.New(authCfg, store, registry, log)
	if err != nil {
		return err
	}

	app := core.NewApp(log)
	app.Mount(users.New(store, registry, auth, log))
	app.Handle("/health", httpserver.HealthCheckHandler(log, mongo.Healthcheck(client)))

	return httpserver.New(httpCfg, log).Run(ctx, app.Handler())
}
