package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"ordmap/api/grpcserver"
	"ordmap/api/httpserver"
	"ordmap/config"
	"ordmap/infra/kafka"
	"ordmap/infra/logger"
	"ordmap/infra/metrics"
	"ordmap/infra/outbox"
	"ordmap/jobs/broadcaster"
	"ordmap/service"
)

const shutdownTimeout = 10 * time.Second

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC server, HTTP admin API and change feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	RootCmd.AddCommand(serveCmd)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	base, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log := logrus.NewEntry(base).WithField("svc", "ordmapd")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// ---------------- Change feed ----------------

	var (
		feed     service.ChangeFeed
		revision uint64
	)
	if cfg.Feed.Enabled {
		bc, closeFeed, err := newBroadcaster(cfg.Feed, m, log)
		if err != nil {
			return err
		}
		defer closeFeed()
		if revision, err = bc.LastSeq(); err != nil {
			return errors.Wrap(err, "read outbox revision")
		}
		if revision > 0 {
			log.WithField("revision", revision).Info("resuming after undelivered events")
		}
		feed = bc
		g.Go(func() error { return bc.Run(ctx) })
	}

	// ---------------- Store ----------------

	store := service.NewStore(service.Options{
		Capacity: cfg.Store.Capacity,
		Revision: revision,
		Feed:     feed,
		Metrics:  m,
		Logger:   log,
	})

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return errors.Wrap(err, "grpc listen")
	}
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(log)))
	grpcserver.RegisterOrderedMapServer(grpcSrv, grpcserver.NewServer(store))

	g.Go(func() error {
		log.Infof("gRPC listening on %s", cfg.GRPC.Addr)
		return grpcSrv.Serve(lis)
	})

	// ---------------- HTTP ----------------

	httpSrv := httpserver.NewServer(cfg.HTTP.Addr, httpserver.NewRouter(store, reg, log))
	g.Go(func() error {
		log.Infof("HTTP listening on %s", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ---------------- Shutdown ----------------

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		grpcSrv.GracefulStop()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	return g.Wait()
}

type closablePublisher interface {
	broadcaster.Publisher
	Close() error
}

func newBroadcaster(cfg config.FeedConfig, m *metrics.Metrics, log *logrus.Entry) (*broadcaster.Broadcaster, func(), error) {
	if cfg.CreateTopic {
		admin, err := kafka.NewClusterAdmin(cfg.Brokers)
		if err != nil {
			return nil, nil, err
		}
		created, err := kafka.EnsureTopic(admin, cfg.Topic, cfg.Partitions, cfg.Replication)
		_ = admin.Close()
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logrus.Fields{"topic": cfg.Topic, "created": created}).Info("feed topic ready")
	}

	ob, err := outbox.Open(cfg.OutboxDir)
	if err != nil {
		return nil, nil, err
	}

	var pub closablePublisher
	switch cfg.Driver {
	case config.DriverSarama:
		pub, err = kafka.NewSyncProducer(cfg.Brokers, cfg.Topic, cfg.MaxRetries)
		if err != nil {
			_ = ob.Close()
			return nil, nil, err
		}
	default:
		pub = kafka.NewProducer(cfg.Brokers, cfg.Topic)
	}

	bc := broadcaster.New(ob, pub, broadcaster.Config{
		FlushInterval: cfg.FlushInterval,
		BatchSize:     cfg.BatchSize,
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	}, m, log)

	closeFn := func() {
		if err := pub.Close(); err != nil {
			log.WithError(err).Warn("closing producer")
		}
		if err := ob.Close(); err != nil {
			log.WithError(err).Warn("closing outbox")
		}
	}
	return bc, closeFn, nil
}
