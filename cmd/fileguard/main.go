package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/fileguard/pkg/config"
	"github.com/dmitrymomot/fileguard/pkg/grant"
	"github.com/dmitrymomot/fileguard/pkg/httpapi"
	"github.com/dmitrymomot/fileguard/pkg/httpserver"
	"github.com/dmitrymomot/fileguard/pkg/logger"
	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/pg"
	"github.com/dmitrymomot/fileguard/pkg/redis"
	"github.com/dmitrymomot/fileguard/pkg/requestid"
	"github.com/dmitrymomot/fileguard/pkg/retention"
	"github.com/dmitrymomot/fileguard/pkg/scan"
	"github.com/dmitrymomot/fileguard/pkg/scanqueue"
	"github.com/dmitrymomot/fileguard/pkg/serve"
	"github.com/dmitrymomot/fileguard/pkg/storage"
	"github.com/dmitrymomot/fileguard/pkg/upload"
	"github.com/dmitrymomot/fileguard/pkg/validate"
)

type appConfig struct {
	RulesPath   string        `env:"UPLOAD_RULES_PATH" envDefault:"rules.yaml"`
	GrantSecret string        `env:"GRANT_SECRET,required"`
	GrantTTL    time.Duration `env:"GRANT_TTL" envDefault:"10m"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"local"` // local or s3
	LocalBlobPath string `env:"LOCAL_BLOB_PATH" envDefault:"./data/blobs"`

	ClamdAddr            string          `env:"CLAMD_ADDR" envDefault:"127.0.0.1:3310"`
	ScanWorkers          int             `env:"SCAN_WORKERS" envDefault:"4"`
	ScanLease            time.Duration   `env:"SCAN_LEASE" envDefault:"10m"`
	ScanAttemptTimeout   time.Duration   `env:"SCAN_ATTEMPT_TIMEOUT" envDefault:"1m"`
	ScanRetryMaxAttempts int             `env:"SCAN_RETRY_MAX_ATTEMPTS" envDefault:"5"`
	ScanFailPolicy       scan.FailPolicy `env:"SCAN_FAIL_POLICY" envDefault:"fail_closed"`

	RetentionTTL           time.Duration `env:"RETENTION_TTL"` // zero keeps clean objects forever
	RetentionSweepInterval time.Duration `env:"RETENTION_SWEEP_INTERVAL" envDefault:"10m"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg,
		logger.WithAttr(logger.Component("fileguard")),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	var cfg appConfig
	config.MustLoad(&cfg)
	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	if err := run(ctx, cfg, srvCfg, pgCfg, redisCfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "fileguard exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, srvCfg httpserver.Config, pgCfg pg.Config, redisCfg redis.Config, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	blobs, err := newBlobStorage(ctx, cfg)
	if err != nil {
		return err
	}

	rules, err := validate.LoadRules(cfg.RulesPath)
	if err != nil {
		return err
	}

	objects := object.NewPgStore(pool)
	queue := scanqueue.NewRedisQueue(redisClient, "fileguard")
	recorder := scan.NewPgRecorder(pool)

	orch, err := upload.NewOrchestrator(rules, blobs, objects, queue,
		upload.WithLogger(log))
	if err != nil {
		return err
	}

	issuer, err := grant.NewIssuer(cfg.GrantSecret)
	if err != nil {
		return err
	}

	gateway, err := serve.NewGateway(issuer, objects, blobs)
	if err != nil {
		return err
	}

	scanner, err := scan.NewClamdScanner(cfg.ClamdAddr)
	if err != nil {
		return err
	}

	workers, err := scan.NewWorkerPool(queue, objects, blobs, scanner,
		scan.WithWorkers(cfg.ScanWorkers),
		scan.WithLease(cfg.ScanLease),
		scan.WithAttemptTimeout(cfg.ScanAttemptTimeout),
		scan.WithMaxAttempts(cfg.ScanRetryMaxAttempts),
		scan.WithFailPolicy(cfg.ScanFailPolicy),
		scan.WithRecorder(recorder),
		scan.WithLogger(log),
	)
	if err != nil {
		return err
	}

	sweepOpts := []retention.Option{
		retention.WithInterval(cfg.RetentionSweepInterval),
		retention.WithRecorder(recorder),
		retention.WithLogger(log),
	}
	if cfg.RetentionTTL > 0 {
		sweepOpts = append(sweepOpts, retention.WithCleanTTL(cfg.RetentionTTL))
	}
	sweeper, err := retention.NewSweeper(objects, blobs, sweepOpts...)
	if err != nil {
		return err
	}

	api, err := httpapi.New(orch, issuer, gateway, objects,
		httpapi.WithGrantTTL(cfg.GrantTTL),
		httpapi.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := api.Router()
	router.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	router.Get("/readyz", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))

	srv := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(workers.Run(ctx))
	g.Go(sweeper.Run(ctx))
	g.Go(func() error {
		log.InfoContext(ctx, "http server listening", "addr", srvCfg.Addr)
		return srv.Run(ctx, router)
	})

	return g.Wait()
}

func newBlobStorage(ctx context.Context, cfg appConfig) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case "s3":
		var s3Cfg storage.S3Config
		config.MustLoad(&s3Cfg)
		return storage.NewS3Storage(ctx, s3Cfg)
	case "local":
		return storage.NewLocalStorage(cfg.LocalBlobPath)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.StorageDriver)
	}
}
