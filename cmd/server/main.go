package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemelli/tenantcore/internal/server"
	"github.com/gemelli/tenantcore/modules"
	"github.com/gemelli/tenantcore/pkg/application"
	"github.com/gemelli/tenantcore/pkg/configuration"
	"github.com/gemelli/tenantcore/pkg/eventbus"
	"github.com/gemelli/tenantcore/pkg/logging"
	"github.com/gemelli/tenantcore/pkg/metrics"
	"github.com/gemelli/tenantcore/pkg/schema"
	"github.com/gemelli/tenantcore/pkg/tenantdb"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schemaOpts := schema.OptionsFromConfig(conf)
	if conf.Migrations.MigrateMasterOnStart {
		report, err := schema.NewMasterProvisioner(schemaOpts).Migrate(ctx, "master", conf.Database.Opts)
		if err != nil {
			panic(err)
		}
		logger.Infof("master catalog at version %d (%d applied)", report.Current, len(report.Applied))
	}

	connectCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	provisioner := schema.NewTenantProvisioner(schemaOpts)
	memo := schema.NewMemo(provisioner)
	var registryOpts []tenantdb.RegistryOption
	if conf.Migrations.ProvisionOnFirstUse {
		registryOpts = append(registryOpts, tenantdb.WithProvisioner(memo))
	}
	registry := tenantdb.NewRegistry(tenantdb.OptionsFromConfig(conf), registryOpts...)
	defer registry.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:        pool,
		EventBus:    eventbus.NewEventPublisher(logger),
		Logger:      logger,
		Tenants:     registry,
		Provisioner: provisioner,
		Memo:        memo,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	app.RegisterControllers(metrics.NewHealthController(app))
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
