package daemon

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/matheus3301/chatlog/internal/broker"
	"github.com/matheus3301/chatlog/internal/broker/amqp"
	"github.com/matheus3301/chatlog/internal/broker/mqtt"
	"github.com/matheus3301/chatlog/internal/bus"
	"github.com/matheus3301/chatlog/internal/config"
	"github.com/matheus3301/chatlog/internal/drain"
	"github.com/matheus3301/chatlog/internal/event"
	"github.com/matheus3301/chatlog/internal/handler"
	"github.com/matheus3301/chatlog/internal/instance"
	"github.com/matheus3301/chatlog/internal/lock"
	"github.com/matheus3301/chatlog/internal/logging"
	"github.com/matheus3301/chatlog/internal/logsink"
	"github.com/matheus3301/chatlog/internal/metrics"
	"github.com/matheus3301/chatlog/internal/queue"
	"github.com/matheus3301/chatlog/internal/sink"
	"github.com/matheus3301/chatlog/internal/status"
	"github.com/matheus3301/chatlog/internal/store"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved daemon configuration passed to the fx module.
type Params struct {
	Instance string
	Config   config.Config

	SocketPath string      // optional override for testing; empty = use default
	Console    io.Writer   // optional; nil = stdout
	Logger     *zap.Logger // optional; nil = instance log file + stderr
	Bus        *bus.Bus    // shared bus for the memory transport; nil = private
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Provide(
			provideLogger,
			provideLock,
			provideMachine,
			provideBuffer,
			provideSink,
			provideLogFile,
			provideStore,
			provideHandler,
			provideLoop,
			provideBroker,
			NewServer,
			NewMetricsServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	return logging.New(instance.DaemonLogPath(p.Instance), p.Instance)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := instance.EnsureDir(p.Instance); err != nil {
		return nil, err
	}
	logger.Info("acquiring instance lock", zap.String("instance", p.Instance))
	l, err := lock.Acquire(instance.Dir(p.Instance))
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired")
	return l, nil
}

func provideMachine(logger *zap.Logger) *status.Machine {
	return status.NewMachine(func(from, to status.State) {
		metrics.SetState(string(from), string(to))
		if from != "" {
			logger.Info("state changed", zap.String("from", string(from)), zap.String("to", string(to)))
		}
	})
}

func provideBuffer(p Params, logger *zap.Logger) (*queue.Buffer, error) {
	policy, err := queue.ParsePolicy(p.Config.Overflow)
	if err != nil {
		return nil, err
	}
	return queue.New(queue.Options{
		MaxPending: p.Config.MaxPending,
		Policy:     policy,
		OnDrop: func(evt event.Event, reason string) {
			metrics.IncDropped(reason)
			logger.Warn("buffer full, event dropped", zap.String("event_id", evt.ID), zap.String("reason", reason))
		},
	}), nil
}

func provideSink(buf *queue.Buffer, logger *zap.Logger) *sink.Sink {
	return sink.New(buf, logger)
}

func provideLogFile(p Params, logger *zap.Logger) (*logsink.File, error) {
	dir := p.Config.LogPath
	if dir == "" {
		dir = instance.LogDir(p.Instance)
	}
	f, err := logsink.Open(dir, p.Config.LogFile)
	if err != nil {
		return nil, err
	}
	logger.Info("message log opened", zap.String("path", f.Path()))
	return f, nil
}

// provideStore returns a nil DB when archiving is disabled.
func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	if !p.Config.Archive {
		logger.Info("message archive disabled")
		return nil, nil
	}
	dbPath := instance.DBPath(p.Instance)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideHandler(p Params, file *logsink.File, db *store.DB) handler.Handler {
	console := p.Console
	if console == nil {
		console = os.Stdout
	}
	steps := []handler.Handler{
		handler.Console(console),
		handler.Append(file),
	}
	if db != nil {
		steps = append(steps, handler.Archive(db))
	}
	return handler.Sequence(steps...)
}

func provideLoop(p Params, buf *queue.Buffer, h handler.Handler, logger *zap.Logger) *drain.Loop {
	return drain.New(buf, h, p.Config.IdleInterval, logger)
}

func provideBroker(p Params, machine *status.Machine, logger *zap.Logger) (broker.Client, error) {
	clientID := p.Config.ClientID
	if clientID == "" {
		clientID = "chatlogd-" + p.Instance + "-" + uuid.NewString()[:8]
	}
	opts := broker.Options{
		URI:      p.Config.BrokerURI,
		ClientID: clientID,
		Exchange: p.Config.Exchange,
		QoS:      byte(p.Config.QoS),
		OnConnectionLost: func(err error) {
			if tErr := machine.Transition(status.Error); tErr != nil {
				logger.Debug("ignoring connection loss", zap.Error(tErr))
			}
		},
	}

	switch p.Config.Transport {
	case config.TransportMQTT:
		return mqtt.New(opts, logger.Named("mqtt")), nil
	case config.TransportAMQP:
		return amqp.New(opts, logger.Named("amqp")), nil
	case config.TransportMemory:
		b := p.Bus
		if b == nil {
			b = bus.New()
		}
		return bus.NewClient(b), nil
	}
	return nil, fmt.Errorf("unknown transport %q", p.Config.Transport)
}

type lifecycleParams struct {
	fx.In

	Params  Params
	Lock    *lock.Lock
	Machine *status.Machine
	Buffer  *queue.Buffer
	Sink    *sink.Sink
	File    *logsink.File
	Store   *store.DB
	Loop    *drain.Loop
	Broker  broker.Client
	Server  *Server
	Metrics *MetricsServer
	Logger  *zap.Logger
}

// registerLifecycle appends one hook per resource so that a failed start rolls
// back only what was already started.
func registerLifecycle(lc fx.Lifecycle, lp lifecycleParams) {
	logger := lp.Logger

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := lp.File.Close(); err != nil {
				logger.Warn("error closing message log", zap.Error(err))
			}
			if lp.Store != nil {
				if err := lp.Store.Close(); err != nil {
					logger.Warn("error closing store", zap.Error(err))
				}
			}
			if err := lp.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := lp.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			lp.Server.Stop(ctx)
			return nil
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return lp.Metrics.Start()
		},
		OnStop: func(ctx context.Context) error {
			return lp.Metrics.Stop(ctx)
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := startPipeline(ctx, lp); err != nil {
				_ = lp.Machine.Transition(status.Error)
				_ = lp.Broker.Close()
				return err
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			_ = lp.Machine.Transition(status.Stopping)
			if err := lp.Broker.Close(); err != nil {
				logger.Warn("error closing broker connection", zap.Error(err))
			}
			lp.Buffer.Close()
			lp.Loop.Stop()
			st := lp.Loop.Stats()
			logger.Info("drain loop stopped",
				zap.Uint64("processed", st.Processed),
				zap.Uint64("failed", st.Failed),
				zap.Int("unprocessed", lp.Buffer.Len()),
			)
			return nil
		},
	})
}

// startPipeline connects, subscribes the sink and starts draining. Any error is
// fatal to startup.
func startPipeline(ctx context.Context, lp lifecycleParams) error {
	cfg := lp.Params.Config
	if err := lp.Machine.Transition(status.Connecting); err != nil {
		return err
	}
	if err := lp.Broker.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s broker: %w", cfg.Transport, err)
	}
	if err := lp.Broker.Subscribe(ctx, cfg.Topic, lp.Sink.OnMessage); err != nil {
		return fmt.Errorf("subscribe %q: %w", cfg.Topic, err)
	}

	lp.Loop.Start(context.Background())
	lp.Logger.Info("waiting for messages",
		zap.String("transport", cfg.Transport),
		zap.String("topic", cfg.Topic),
		zap.Duration("idle_interval", cfg.IdleInterval),
	)
	return lp.Machine.Transition(status.Listening)
}
