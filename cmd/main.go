package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"clientgallery/internal/imageproc"
	"clientgallery/internal/logger"
	"clientgallery/internal/models"
	"clientgallery/internal/queue"
	"clientgallery/internal/server"
	"clientgallery/internal/storage"
	"clientgallery/internal/watermark"
	"clientgallery/internal/worker"
)

const (
	shutdownTimeout = 15 * time.Second
	// commitDrainSlack is added to the shutdown grace for the final offset
	// commits of jobs that finish at the end of it.
	commitDrainSlack = 15 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	flag.Parse()

	cfg, err := models.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
}

func run(cfg *models.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewStorage(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	gen, err := imageproc.NewGenerator(cfg.StoragePath, imageproc.Sizes{
		Thumbnail: cfg.ThumbnailSize,
		Preview:   cfg.PreviewSize,
		Web:       cfg.WebSize,
	}, cfg.Quality, imageproc.NewCompositor())
	if err != nil {
		return err
	}
	pipeline := imageproc.NewPipeline(gen)

	logos, err := watermark.NewStore(gen.Root())
	if err != nil {
		return err
	}

	runner := worker.NewRunner(db, pipeline, cfg.ProcessTimeout, log)
	pool := worker.NewPool(cfg.Workers, cfg.QueueSize, cfg.ShutdownGrace, runner, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(ctx) })

	var jobs server.Queue = pool
	if cfg.QueueBackend == models.QueueBackendKafka {
		producer := queue.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn().Err(err).Msg("kafka producer close")
			}
		}()
		jobs = producer

		consumer := queue.NewConsumer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroup, cfg.ShutdownGrace+commitDrainSlack, log)
		g.Go(func() error { return consumer.Run(ctx, pool.Enqueue) })
	}
	log.Info().Str("queue_backend", cfg.QueueBackend).Str("storage_path", gen.Root()).Msg("pipeline ready")

	srv := server.NewServer(cfg, db, jobs, logos, log)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("service stopped cleanly")
	return nil
}
