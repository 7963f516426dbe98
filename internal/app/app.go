// Package app wires configuration into running crawls. It owns the
// long-lived services shared by the CLI commands: progress reporting,
// the status API and the completion notifier.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/api"
	"github.com/JakeFAU/moviegraph-crawler/internal/checkpoint"
	"github.com/JakeFAU/moviegraph-crawler/internal/config"
	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
	"github.com/JakeFAU/moviegraph-crawler/internal/logging"
	"github.com/JakeFAU/moviegraph-crawler/internal/notify"
	"github.com/JakeFAU/moviegraph-crawler/internal/progress"
	"github.com/JakeFAU/moviegraph-crawler/internal/progress/sinks"
	"github.com/JakeFAU/moviegraph-crawler/internal/sink"
	"github.com/JakeFAU/moviegraph-crawler/internal/telemetry"
)

// ErrCheckpointExists is returned by Start when the checkpoint location
// already holds a crawl and Force is not set.
var ErrCheckpointExists = errors.New("checkpoint already exists")

const (
	notifyTimeout = 10 * time.Second
	serviceName   = "moviegraph-crawler"
)

// App holds the services shared by every crawl run of the process.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	tracker  *sinks.Tracker
	hub      *progress.Hub

	stopTracing func(context.Context) error

	stopAPI context.CancelFunc
	apiDone chan error
	apiAddr string

	pubsubClient *pubsub.Client
	notifier     *notify.PubSubNotifier

	newExtractor func(config.Config, *zap.Logger) (extractor, func(), error)
	now          func() time.Time
}

// New builds the shared services. The status API is listening when New
// returns if it is enabled.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:          cfg,
		logger:       logger,
		registry:     prometheus.NewRegistry(),
		tracker:      sinks.NewTracker(),
		newExtractor: newFilmweb,
		now:          time.Now,
	}
	stopTracing, err := telemetry.InitTracing(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	a.stopTracing = stopTracing
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		_ = stopTracing(ctx)
		return nil, err
	}
	a.hub = progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger.Named("progress")), promSink, a.tracker)

	if cfg.Status.Enabled {
		if err := a.startAPI(ctx); err != nil {
			_ = a.hub.Close(ctx)
			_ = stopTracing(ctx)
			return nil, err
		}
	}
	if cfg.PubSub.ProjectID != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		a.pubsubClient = client
		a.notifier = notify.NewPubSubNotifier(client.Topic(cfg.PubSub.TopicName), logger)
		logger.Info("crawl summaries enabled", zap.String("topic", cfg.PubSub.TopicName))
	}
	return a, nil
}

func (a *App) startAPI(ctx context.Context) error {
	server, err := api.NewServer(a.tracker, a.registry, a.registry, a.logger)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", a.cfg.Status.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Status.Addr, err)
	}
	apiCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopAPI = cancel
	a.apiAddr = ln.Addr().String()
	a.apiDone = make(chan error, 1)
	go func() {
		a.apiDone <- server.Serve(apiCtx, ln)
	}()
	return nil
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the configuration the app was built with.
func (a *App) Config() config.Config { return a.cfg }

// StatusAddr is the bound address of the status API, or "" when disabled.
func (a *App) StatusAddr() string { return a.apiAddr }

// Close flushes progress and stops the status API and notifier.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.hub.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.stopAPI != nil {
		a.stopAPI()
		if err := <-a.apiDone; err != nil {
			errs = append(errs, err)
		}
	}
	a.notifier.Stop()
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if err := a.stopTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop tracing: %w", err))
	}
	return errors.Join(errs...)
}

// StartRequest describes a fresh crawl.
type StartRequest struct {
	Seed     string
	MaxSteps int
	// Force overwrites an existing checkpoint at the configured location.
	Force bool
}

// Result reports how a run ended. Paused runs can be resumed from
// Checkpoint.
type Result struct {
	CrawlID    string
	SeedURL    string
	Checkpoint string
	Paused     bool
	Stats      graph.Stats
}

// Start runs a fresh crawl from req.Seed. Existing sink output in the
// storage dir is replaced.
func (a *App) Start(ctx context.Context, req StartRequest) (Result, error) {
	site, release, err := a.newExtractor(a.cfg, a.logger)
	if err != nil {
		return Result{}, err
	}
	defer release()
	seed, err := site.NormalizeSeed(req.Seed)
	if err != nil {
		return Result{}, err
	}

	lock, err := acquireStorageLock(a.cfg.Crawl.StorageDir)
	if err != nil {
		return Result{}, err
	}
	defer a.releaseLock(lock)

	store, closeStore, err := checkpoint.Open(ctx, a.cfg.CheckpointLocation(), a.cfg.CheckpointOptions())
	if err != nil {
		return Result{}, err
	}
	defer a.closeQuietly("checkpoint store", closeStore)
	if !req.Force {
		if err := ensureNoCheckpoint(ctx, store); err != nil {
			return Result{}, err
		}
	}

	out, err := sink.Open(ctx, a.cfg.SinkConfig(), sink.ModeFresh, a.logger)
	if err != nil {
		return Result{}, err
	}
	defer a.closeQuietly("record sink", out.Close)

	crawlID := uuid.NewString()
	meta := checkpoint.Meta{StorageDir: a.cfg.Crawl.StorageDir, SinkDriver: a.sinkDriver()}
	reporter := progress.NewReporter(a.hub, crawlID)
	sched, err := graph.NewScheduler(graph.Options{
		Extractor:    site,
		Sink:         out,
		Reporter:     reporter,
		Checkpointer: checkpoint.NewManager(store, meta, a.logger),
		Logger:       logging.ForCrawl(a.logger, crawlID, seed),
		MaxSteps:     a.maxSteps(req.MaxSteps),
		CrawlID:      crawlID,
	})
	if err != nil {
		return Result{}, err
	}
	reporter.Started(sched.Stats())
	if err := sched.Start(ctx, seed); err != nil {
		reporter.Finished(err)
		return Result{}, fmt.Errorf("start crawl: %w", err)
	}
	return a.run(ctx, sched, reporter, seed, store.Location())
}

// ResumeRequest describes a crawl continued from a checkpoint.
type ResumeRequest struct {
	// Checkpoint defaults to the configured location.
	Checkpoint string
	MaxSteps   int
}

// Resume restores the crawl held by the checkpoint and continues it.
// Sink output is appended to; the storage dir and sink driver recorded
// in the checkpoint take precedence over the configuration.
func (a *App) Resume(ctx context.Context, req ResumeRequest) (Result, error) {
	location := req.Checkpoint
	if location == "" {
		location = a.cfg.CheckpointLocation()
	}
	store, closeStore, err := checkpoint.Open(ctx, location, a.cfg.CheckpointOptions())
	if err != nil {
		return Result{}, err
	}
	defer a.closeQuietly("checkpoint store", closeStore)
	cp, err := checkpoint.Load(ctx, store)
	if err != nil {
		return Result{}, err
	}

	cfg := a.cfg.WithStorageDir(cp.Meta.StorageDir)
	if cp.Meta.SinkDriver != "" && cp.Meta.SinkDriver != driverName(cfg.Sink.Driver) {
		return Result{}, fmt.Errorf("checkpoint was written with sink %q, configured sink is %q",
			cp.Meta.SinkDriver, driverName(cfg.Sink.Driver))
	}

	lock, err := acquireStorageLock(cfg.Crawl.StorageDir)
	if err != nil {
		return Result{}, err
	}
	defer a.releaseLock(lock)

	site, release, err := a.newExtractor(cfg, a.logger)
	if err != nil {
		return Result{}, err
	}
	defer release()

	out, err := sink.Open(ctx, cfg.SinkConfig(), sink.ModeAppend, a.logger)
	if err != nil {
		return Result{}, err
	}
	defer a.closeQuietly("record sink", out.Close)

	reporter := progress.NewReporter(a.hub, cp.State.CrawlID)
	sched, err := graph.RestoreScheduler(cp.State, graph.Options{
		Extractor:    site,
		Sink:         out,
		Reporter:     reporter,
		Checkpointer: checkpoint.NewManager(store, cp.Meta, a.logger),
		Logger:       logging.ForCrawl(a.logger, cp.State.CrawlID, cp.State.SeedURL),
		MaxSteps:     a.maxSteps(req.MaxSteps),
	})
	if err != nil {
		return Result{}, fmt.Errorf("restore crawl: %w", err)
	}
	reporter.Started(sched.Stats())
	return a.run(ctx, sched, reporter, cp.State.SeedURL, store.Location())
}

// Inspect loads and verifies a checkpoint without running anything.
func (a *App) Inspect(ctx context.Context, location string) (checkpoint.Checkpoint, error) {
	if location == "" {
		location = a.cfg.CheckpointLocation()
	}
	store, closeStore, err := checkpoint.Open(ctx, location, a.cfg.CheckpointOptions())
	if err != nil {
		return checkpoint.Checkpoint{}, err
	}
	defer a.closeQuietly("checkpoint store", closeStore)
	return checkpoint.Load(ctx, store)
}

func (a *App) run(
	ctx context.Context,
	sched *graph.Scheduler,
	reporter *progress.Reporter,
	seed, location string,
) (Result, error) {
	ctx, span := telemetry.StartRun(ctx, sched.CrawlID(), seed)
	defer span.End()

	runErr := sched.Run(ctx)
	reporter.Finished(runErr)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, graph.ErrStepLimit) {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}

	res := Result{
		CrawlID:    sched.CrawlID(),
		SeedURL:    seed,
		Checkpoint: location,
		Stats:      sched.Stats(),
	}
	a.publishSummary(ctx, res, runErr)
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, graph.ErrStepLimit) {
		res.Paused = true
		return res, nil
	}
	if runErr != nil {
		return res, fmt.Errorf("crawl %s: %w", res.CrawlID, runErr)
	}
	return res, nil
}

func (a *App) publishSummary(ctx context.Context, res Result, runErr error) {
	if a.notifier == nil {
		return
	}
	summary := notify.NewSummary(res.CrawlID, res.SeedURL, res.Stats, runErr, a.now())
	summary.Checkpoint = res.Checkpoint
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if _, err := a.notifier.Notify(notifyCtx, summary); err != nil {
		a.logger.Warn("crawl summary not published", zap.String("crawl_id", res.CrawlID), zap.Error(err))
	}
}

func ensureNoCheckpoint(ctx context.Context, store checkpoint.Store) error {
	_, err := store.Load(ctx)
	switch {
	case err == nil:
		return fmt.Errorf("%w at %s; resume it or start with --force", ErrCheckpointExists, store.Location())
	case errors.Is(err, checkpoint.ErrCheckpointNotFound):
		return nil
	default:
		return fmt.Errorf("probe checkpoint %s: %w", store.Location(), err)
	}
}

func (a *App) maxSteps(requested int) int {
	if requested > 0 {
		return requested
	}
	return a.cfg.Crawl.MaxSteps
}

func (a *App) sinkDriver() string {
	return driverName(a.cfg.Sink.Driver)
}

func driverName(driver string) string {
	if driver == "" {
		return sink.DriverCSV
	}
	return driver
}

func (a *App) releaseLock(lock *storageLock) {
	if err := lock.release(); err != nil {
		a.logger.Warn("storage lock not released", zap.Error(err))
	}
}

func (a *App) closeQuietly(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		a.logger.Warn("close failed", zap.String("component", what), zap.Error(err))
	}
}
