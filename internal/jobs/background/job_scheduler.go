package background

import (
	"context"
	"log"
	"sync"
	"time"

	"sakan/internal/jobs"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages recurring background jobs.
type JobScheduler struct {
	scheduler   gocron.Scheduler
	expiryAlert *jobs.PlanExpiryAlertService
	jobs        map[string]gocron.Job
	mu          sync.RWMutex
}

func NewJobScheduler(expiryAlert *jobs.PlanExpiryAlertService) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:   scheduler,
		expiryAlert: expiryAlert,
		jobs:        make(map[string]gocron.Job),
	}
	js.registerJobs()
	return js, nil
}

// Start starts the job scheduler.
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	js.mu.Lock()
	defer js.mu.Unlock()

	expiryJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.runExpirySweep),
		gocron.WithName("plan-expiry-alerts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create plan expiry job: %v", err)
	} else {
		js.jobs["plan-expiry-alerts"] = expiryJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

func (js *JobScheduler) runExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := js.expiryAlert.ScheduledExpiryCheck(ctx); err != nil {
		log.Printf("Plan expiry sweep returned error: %v", err)
	}
}
