package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger      *zap.Logger
	config      *Config
	server      *http.Server
	redisClient *redis.Client
	cleanups    []func()
	workers     []func(context.Context) error
}

// NewApp provides an instance of App. Failing to reach the store or to
// ensure its schema aborts the startup.
func NewApp(configFile, envFile string) (AppProvider, error) {
	config, err := LoadAndInitConfigs(configFile, envFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	logFile, closer, err := OpenLogFile(config.LogFile)
	if err != nil {
		return nil, err
	}
	clock := NewClock(config.IsProduction)
	logger, flusher := SetupLogging(config, logFile, clock)
	cleanups := []func(){
		func() { _ = flusher() },
		closer,
	}
	// release what was acquired so far when a later step fails.
	abort := func(err error) (AppProvider, error) {
		for _, f := range cleanups {
			f()
		}
		return nil, err
	}

	// Setup the relational store and its schema.
	sqlClient, err := GetSQLClient(&config.Store)
	if err != nil {
		logger.Error("failed to connect to the store", zap.String("store.driver", config.Store.Driver), zap.Error(err))
		return abort(fmt.Errorf("failed to connect to %s store: %s", config.Store.Driver, err))
	}
	requestStorage, err := NewSQLRequestStorage(logger, config.Store.Driver, sqlClient)
	if err != nil {
		_ = sqlClient.Close()
		return abort(err)
	}
	cleanups = append([]func(){closeWith(logger, "store", requestStorage.Close)}, cleanups...)

	ctx, cancel := context.WithTimeout(context.Background(), config.Store.PingTimeout)
	err = requestStorage.InitSchema(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to initialize the store schema", zap.Error(err))
		return abort(fmt.Errorf("failed to initialize store schema: %s", err))
	}

	// Setup the optional archive made of a redis queue and a boltDB consumer.
	var (
		queue       Queuer = nopQueue{}
		archive     ArchiveStorage
		redisClient *redis.Client
		workers     []func(context.Context) error
	)
	if config.Archive.Enabled {
		redisClient, err = GetRedisClient(&config.Archive.Redis)
		if err != nil {
			_ = redisClient.Close()
			return abort(fmt.Errorf("failed to connect to redis server: %s", err))
		}
		boltDBClient, err := GetBoltDBClient(&config.Archive.BoltDB)
		if err != nil {
			_ = redisClient.Close()
			return abort(fmt.Errorf("failed to connect to boltDB server: %s", err))
		}
		boltArchive := NewBoltArchiveStorage(logger, &config.Archive.BoltDB, boltDBClient)
		cleanups = append([]func(){closeWith(logger, "archive", boltArchive.Close)}, cleanups...)

		queue = NewRedisQueue(redisClient)
		archive = boltArchive
		consumer := NewArchiveConsumer(logger, queue, boltArchive)
		qid := config.Archive.QueueName
		workers = append(workers, func(ctx context.Context) error {
			return consumer.Consume(ctx, qid)
		})
	}

	requestService := NewRequestService(logger, config, clock, requestStorage, queue)
	views, err := NewViews()
	if err != nil {
		return abort(fmt.Errorf("failed to load views: %s", err))
	}

	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		views,
		requestService,
		archive,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	if apiService.limiters != nil {
		limiters := apiService.limiters
		workers = append(workers, func(ctx context.Context) error {
			return limiters.Sweep(ctx, clock, time.Minute, 3*time.Minute)
		})
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)

	var handler http.Handler = router
	if config.Server.RequestTimeout > 0 {
		// Wrap the router with the default http timeout handler.
		handler = http.TimeoutHandler(
			router,
			config.Server.RequestTimeout,
			"Timeout. Processing taking too long. Please retry later.")
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        handler,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	return &App{
		logger:      logger,
		config:      config,
		server:      srv,
		redisClient: redisClient,
		cleanups:    cleanups,
		workers:     workers,
	}, nil
}

func closeWith(logger *zap.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Error("failed to close "+name, zap.Error(err))
			return
		}
		logger.Info(name + " closed")
	}
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.StartWorkers(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions. Store and
// archive are closed before the logger is flushed.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("store.driver", app.config.Store.Driver),
			zap.Bool("archive.enabled", app.config.Archive.Enabled),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}

		// unblocks the archive consumer waiting on the queue.
		if app.redisClient != nil {
			_ = app.redisClient.Close()
		}
		return nil
	}
}

// StartWorkers runs all background workers into separate controlled goroutines.
func (app *App) StartWorkers(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, work := range app.workers {
			work := work
			g.Go(func() error {
				return work(gCtx)
			})
		}
		return nil
	}
}
