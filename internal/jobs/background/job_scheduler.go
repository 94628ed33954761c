package background

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	liveRefreshJob = "live-orders-refresh"
	menuRefreshJob = "menu-refresh"

	// DefaultLiveInterval is the live report poll period
	DefaultLiveInterval = 30 * time.Second
	menuRefreshInterval = 5 * time.Minute
)

// Refresher re-reads collections into the shared projection
type Refresher interface {
	RefreshOrders(ctx context.Context) error
	RefreshMenu(ctx context.Context) error
}

// JobScheduler runs the projection refresh jobs. The live orders job exists
// only while at least one viewer is watching the live report.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	store        Refresher
	liveInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc

	mu      sync.RWMutex
	jobs    map[string]gocron.Job
	viewers map[string]struct{}
}

// NewJobScheduler creates the scheduler; liveInterval <= 0 selects DefaultLiveInterval
func NewJobScheduler(store Refresher, liveInterval time.Duration) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if liveInterval <= 0 {
		liveInterval = DefaultLiveInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler:    scheduler,
		store:        store,
		liveInterval: liveInterval,
		ctx:          ctx,
		cancel:       cancel,
		jobs:         make(map[string]gocron.Job),
		viewers:      make(map[string]struct{}),
	}

	if err := js.registerJobs(); err != nil {
		cancel()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("INFO: Starting background job scheduler")
	js.scheduler.Start()
}

// Stop cancels in-flight refreshes and shuts the scheduler down
func (js *JobScheduler) Stop() error {
	log.Printf("INFO: Stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	js.mu.Lock()
	defer js.mu.Unlock()

	menuJob, err := js.scheduler.NewJob(
		gocron.DurationJob(menuRefreshInterval),
		gocron.NewTask(js.refreshMenu, js.ctx),
		gocron.WithName(menuRefreshJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	js.jobs[menuRefreshJob] = menuJob
	return nil
}

// StartLiveRefresh registers viewer. The first viewer schedules the poll job.
func (js *JobScheduler) StartLiveRefresh(viewer string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	js.viewers[viewer] = struct{}{}
	if _, running := js.jobs[liveRefreshJob]; running {
		return nil
	}

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(js.liveInterval),
		gocron.NewTask(js.refreshOrders, js.ctx),
		gocron.WithName(liveRefreshJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		delete(js.viewers, viewer)
		return err
	}
	js.jobs[liveRefreshJob] = job
	log.Printf("INFO: live refresh started every %s", js.liveInterval)
	return nil
}

// StopLiveRefresh removes viewer. The poll job is removed with the last one.
func (js *JobScheduler) StopLiveRefresh(viewer string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	delete(js.viewers, viewer)
	if len(js.viewers) > 0 {
		return nil
	}
	job, running := js.jobs[liveRefreshJob]
	if !running {
		return nil
	}
	delete(js.jobs, liveRefreshJob)
	log.Printf("INFO: live refresh stopped")
	return js.scheduler.RemoveJob(job.ID())
}

// LiveRefreshActive reports whether the live poll job is scheduled
func (js *JobScheduler) LiveRefreshActive() bool {
	js.mu.RLock()
	defer js.mu.RUnlock()
	_, running := js.jobs[liveRefreshJob]
	return running
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return map[string]interface{}{
		"total_jobs":   len(js.jobs),
		"jobs":         names,
		"live_viewers": len(js.viewers),
	}
}

func (js *JobScheduler) refreshOrders(ctx context.Context) {
	if err := js.store.RefreshOrders(ctx); err != nil {
		log.Printf("WARN: live orders refresh failed, keeping last state: %v", err)
	}
}

func (js *JobScheduler) refreshMenu(ctx context.Context) {
	if err := js.store.RefreshMenu(ctx); err != nil {
		log.Printf("WARN: menu refresh failed, keeping last state: %v", err)
	}
}
