package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"mosync/breaker"
	"mosync/config"
	"mosync/dispatch"
	"mosync/erp"
	"mosync/jobs"
	"mosync/messaging"
	"mosync/mocache"
	"mosync/scheduler"
	"mosync/store"
)

type LogFunc func(format string, args ...any)

const publishQueueSize = 256

const (
	JobSync    = "sync"
	JobReap    = "reap"
	JobResults = "results"
	JobNotify  = "notify"
)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	ERPClient  *erp.Client
	Cache      *mocache.Cache
	MsgClient  *messaging.Client
	LogFunc    LogFunc

	// DispatchOptions are appended after the engine's own options.
	DispatchOptions []dispatch.Option
}

type Engine struct {
	cfgMu        sync.RWMutex // guards cfg sections editable at runtime
	cfg          *config.Config
	configPath   string
	db           *store.DB
	erpClient    *erp.Client
	cache        *mocache.Cache
	msgClient    *messaging.Client
	publisher    eventPublisher
	publishCh    chan Event
	breaker      *breaker.Breaker
	dispatcher   *dispatch.Dispatcher
	synchronizer *jobs.Synchronizer
	reaper       *jobs.Reaper
	notifier     *jobs.ListNotifier
	results      *jobs.ResultSync
	sched        *scheduler.Scheduler
	Events       *EventBus
	logFn        LogFunc

	stopOnce     sync.Once
	stopChan     chan struct{}
	connMu       sync.Mutex
	erpConnected bool
	msgConnected bool
}

// New builds every component from the config. Nothing runs until Start.
func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		erpClient:  c.ERPClient,
		cache:      c.Cache,
		msgClient:  c.MsgClient,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
		publishCh:  make(chan Event, publishQueueSize),
	}
	if c.MsgClient != nil {
		e.publisher = c.MsgClient
	}

	d := e.cfg.Delivery
	e.breaker = breaker.New(breaker.Config{
		FailureThreshold:    d.Breaker.FailureThreshold,
		ResetTimeout:        d.Breaker.ResetTimeout(),
		HalfOpenMaxAttempts: d.Breaker.HalfOpenMaxAttempts,
	}, breaker.WithStateChange(func(from, to breaker.State) {
		e.Events.Emit(Event{Type: EventBreakerStateChanged, Payload: BreakerStateChangedEvent{From: from, To: to}})
	}))

	opts := []dispatch.Option{
		dispatch.WithRequestTimeout(d.RequestTimeout()),
		dispatch.WithEmitter(&dispatchEmitter{bus: e.Events}),
	}
	e.dispatcher = dispatch.NewDispatcher(e.breaker, append(opts, c.DispatchOptions...)...)

	jobLog := jobs.LogFunc(logFn)
	e.synchronizer = jobs.NewSynchronizer(e.erpClient, e.cache, e.cfg.ERP.ReadLimit, jobLog)
	e.reaper = jobs.NewReaper(e.cache, jobLog)
	e.notifier = jobs.NewListNotifier(e.cache, e.dispatcher, e.delivery, d.ListPageSize, jobLog)
	e.results = jobs.NewResultSync(e.db, e.dispatcher, e.delivery, e.cfg.Cache.RetentionWindow(), jobLog)

	e.sched = scheduler.New(e.observeJob)
	e.registerJobs()
	e.wireEventHandlers()
	return e
}

// delivery reads the live delivery section; the push jobs call it per run.
func (e *Engine) delivery() jobs.Delivery {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return jobs.Delivery{
		Endpoints: dispatch.EndpointsFromConfig(e.cfg.Delivery),
		BatchSize: e.cfg.Delivery.BatchSize,
		Delay:     e.cfg.Delivery.InterBatchDelay(),
	}
}

func (e *Engine) registerJobs() {
	s := e.cfg.Schedule
	e.sched.Add(scheduler.Job{
		Name:         JobSync,
		Interval:     s.SyncInterval,
		RunAtStartup: true,
		StartupDelay: s.WarmupDelay,
		Run: func(ctx context.Context) (string, error) {
			res := e.synchronizer.RunOnce(ctx, e.categories())
			return res.String(), res.Err()
		},
	})
	e.sched.Add(scheduler.Job{
		Name:         JobResults,
		Interval:     s.ResultSyncInterval,
		RunAtStartup: true,
		StartupDelay: s.WarmupDelay,
		Run: func(ctx context.Context) (string, error) {
			out, err := e.results.RunOnce(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("active: %s; completed: %s", out[dispatch.StatusActive], out[dispatch.StatusCompleted]), nil
		},
	})
	e.sched.Add(scheduler.Job{
		Name:         JobNotify,
		Interval:     s.NotifyInterval,
		Offset:       s.NotifyOffset,
		RunAtStartup: true,
		StartupDelay: s.NotifyStartupDelay,
		Run: func(ctx context.Context) (string, error) {
			sum, err := e.notifier.RunOnce(ctx, s.NotifyCategory)
			if err != nil {
				return "", err
			}
			return sum.String(), nil
		},
	})
	e.sched.Add(scheduler.Job{
		Name:     JobReap,
		Interval: s.ReapInterval,
		Run: func(ctx context.Context) (string, error) {
			n, err := e.reaper.RunOnce(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d evicted", n), nil
		},
	})
}

func (e *Engine) Start() {
	if err := e.cache.RebuildMirror(context.Background()); err != nil {
		e.logFn("engine: rebuild cache mirror: %v", err)
	}

	go e.publishLoop()
	e.sched.Start(context.Background())

	// Emit initial connection status
	e.checkConnectionStatus()

	// Start periodic connection health check
	go e.connectionHealthLoop()

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.sched.Stop()
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                    { return e.db }
func (e *Engine) AppConfig() *config.Config        { return e.cfg }
func (e *Engine) ConfigPath() string               { return e.configPath }
func (e *Engine) Cache() *mocache.Cache            { return e.cache }
func (e *Engine) ERPClient() *erp.Client           { return e.erpClient }
func (e *Engine) MsgClient() *messaging.Client     { return e.msgClient }
func (e *Engine) Breaker() *breaker.Breaker        { return e.breaker }
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }
func (e *Engine) Scheduler() *scheduler.Scheduler  { return e.sched }
func (e *Engine) Synchronizer() *jobs.Synchronizer { return e.synchronizer }
func (e *Engine) Reaper() *jobs.Reaper             { return e.reaper }
func (e *Engine) ListNotifier() *jobs.ListNotifier { return e.notifier }

func (e *Engine) Endpoints() dispatch.Endpoints {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return dispatch.EndpointsFromConfig(e.cfg.Delivery)
}

func (e *Engine) categories() []string {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return append([]string(nil), e.cfg.ERP.Categories...)
}

func (e *Engine) checkConnectionStatus() {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	// ERP
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := e.erpClient.Ping(ctx)
	cancel()
	if err == nil {
		if !e.erpConnected {
			e.erpConnected = true
			e.Events.Emit(Event{Type: EventERPConnected, Payload: ConnectionEvent{Detail: "ERP connected"}})
		}
	} else {
		if e.erpConnected {
			e.erpConnected = false
			e.Events.Emit(Event{Type: EventERPDisconnected, Payload: ConnectionEvent{Detail: err.Error()}})
		}
	}

	// Messaging
	if e.msgClient == nil || !e.msgClient.Enabled() {
		return
	}
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ERPConnected reports the last observed ERP reachability.
func (e *Engine) ERPConnected() bool {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.erpConnected
}

// ReconfigureERP applies ERP config changes live.
func (e *Engine) ReconfigureERP() {
	e.cfgMu.RLock()
	c := e.cfg.ERP
	e.cfgMu.RUnlock()
	e.erpClient.Reconfigure(c.BaseURL, c.SessionID, c.Timeout())
	e.logFn("engine: ERP reconfigured (%s)", c.BaseURL)
	e.checkConnectionStatus()
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	e.cfgMu.RLock()
	c := e.cfg.Messaging
	e.cfgMu.RUnlock()
	if err := e.msgClient.Reconfigure(&c); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured (%s)", c.Backend)
	}
	e.checkConnectionStatus()
}
