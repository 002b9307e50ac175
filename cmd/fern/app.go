package main

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/health"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/routes"
	"github.com/Ramsey-B/fern/pkg/source"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

// app holds everything a command needs once its dependencies are up
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	driver  *pipeline.Driver
	checker *health.Checker
	startup *startup.Startup

	syncLogs       func()
	shutdownTraces func(context.Context) error
}

// newApp starts the dependencies a command needs. The document source is only
// opened when readsSource is set.
func newApp(ctx context.Context, opts *rootOptions, readsSource bool) (*app, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	cfg.DryRun = cfg.DryRun || opts.dryRun
	cfg.StrictProducts = cfg.StrictProducts || opts.strictProducts

	logger, syncLogs, err := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return nil, err
	}

	shutdownTraces, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.AppName,
		OTLP: exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
		},
	}, logger)
	if err != nil {
		syncLogs()
		return nil, err
	}

	a := &app{
		cfg:            cfg,
		logger:         logger,
		checker:        health.NewChecker(cfg.AppName),
		startup:        startup.New(logger, cfg.StartupMaxAttempts),
		syncLogs:       syncLogs,
		shutdownTraces: shutdownTraces,
	}

	var (
		sink     graph.Sink
		src      source.Source
		locker   pipeline.Locker
		producer *kafka.Producer
	)

	if cfg.DryRun {
		logger.Warn("Dry run: writes go to an in-memory graph")
		sink = graph.NewMemoryGraph()
	} else {
		var client *graph.Client
		a.startup.Add(&startup.Func{
			Name: "graph",
			StartFunc: func(ctx context.Context) error {
				if client == nil {
					c, err := graph.NewClient(graph.Config{
						URI:      cfg.GraphDBURI,
						Host:     cfg.GraphDBHost,
						Port:     cfg.GraphDBPort,
						Username: cfg.GraphDBUser,
						Password: cfg.GraphDBPassword,
					}, logger)
					if err != nil {
						return err
					}
					client = c
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					return err
				}
				sink = client
				a.checker.AddCheck("graph", client.VerifyConnectivity)
				return nil
			},
			StopFunc: func(ctx context.Context) error {
				return client.Close(ctx)
			},
		})
	}

	if readsSource {
		a.startup.Add(&startup.Func{
			Name: "source",
			StartFunc: func(ctx context.Context) error {
				s, err := source.Open(ctx, cfg, logger)
				if err != nil {
					return err
				}
				src = s
				return nil
			},
			StopFunc: func(context.Context) error {
				return src.Close()
			},
		})
	}

	if cfg.RedisEnabled {
		var client *redis.Client
		a.startup.Add(&startup.Func{
			Name: "redis",
			StartFunc: func(ctx context.Context) error {
				c, err := redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				client = c
				locker = redis.NewLocker(client, cfg.AppName+":lock:", cfg.LockTTL)
				a.checker.AddCheck("redis", client.Ping)
				return nil
			},
			StopFunc: func(context.Context) error {
				return client.Close()
			},
		})
	}

	if cfg.KafkaEnabled {
		a.startup.Add(&startup.Func{
			Name: "kafka",
			StartFunc: func(context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: cfg.KafkaBatchTimeout,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			StopFunc: func(context.Context) error {
				return producer.Close()
			},
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		a.close()
		return nil, err
	}

	var emitter *events.Emitter
	if producer != nil {
		emitter = events.NewEmitter(producer, logger)
	}

	writer := graph.NewWriter(sink, logger, graph.WriterOptions{StrictProducts: cfg.StrictProducts})
	a.driver = pipeline.NewDriver(src, writer, emitter, locker, logger, pipeline.Options{
		ProductsCollection:   cfg.ProductsCollection,
		SizeChartsCollection: cfg.SizeChartsCollection,
	})
	a.checker.SetReady(true)

	return a, nil
}

// serve runs the ops server until ctx is done
func (a *app) serve(ctx context.Context) error {
	runs := routes.NewRunHandler(ctx, a.driver, a.logger)
	server := routes.NewServer(a.cfg.AppName, a.checker, runs, a.logger)
	return server.Start(ctx, a.cfg.Port)
}

// report logs the final line for a pass
func (a *app) report(summary *models.PassSummary) {
	if summary == nil {
		return
	}
	a.logger.WithFields(map[string]any{
		"run_id":    summary.RunID,
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"duration":  summary.Duration().Round(time.Millisecond).String(),
	}).Infof("Finished %s", passLabel(summary))
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to stop dependencies")
	}
	if err := a.shutdownTraces(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to flush traces")
	}
	a.syncLogs()
}
