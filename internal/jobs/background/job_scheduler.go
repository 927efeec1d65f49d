package background

import (
	"context"
	"log"
	"sync"
	"time"

	"lumiscan/internal/repositories"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages background jobs
type JobScheduler struct {
	scheduler        gocron.Scheduler
	subscriptionRepo repositories.SubscriptionRepository
	paymentRepo      repositories.PaymentRepository
	jobs             map[string]gocron.Job
	mu               sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(
	subscriptionRepo repositories.SubscriptionRepository,
	paymentRepo repositories.PaymentRepository,
) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:        scheduler,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		jobs:             make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	// Usage reset sweep - daily. The eligibility window is 7 days wide, so a
	// missed run or two is absorbed; the sweep recomputes from NOW() each
	// time and re-running it is a no-op.
	resetJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.resetExpiredUsage, context.Background()),
		gocron.WithName("usage-cycle-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create usage reset job: %v", err)
	} else {
		js.jobs["usage-reset"] = resetJob
	}

	// Pending payment reconciliation - hourly
	reconcileJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.reconcilePendingPayments, context.Background()),
		gocron.WithName("payment-reconciliation"),
	)
	if err != nil {
		log.Printf("Failed to create payment reconciliation job: %v", err)
	} else {
		js.jobs["payment-reconciliation"] = reconcileJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

// resetExpiredUsage zeroes counters for active subscriptions whose billing
// cycle closed recently. Failures are logged and retried on the next tick;
// they are never user-visible.
func (js *JobScheduler) resetExpiredUsage(ctx context.Context) error {
	log.Printf("Starting usage cycle reset sweep")

	affected, err := js.subscriptionRepo.ResetExpiredCycles(ctx)
	if err != nil {
		log.Printf("Usage cycle reset failed: %v", err)
		return err
	}

	log.Printf("Usage cycle reset completed: %d subscriptions reset", affected)
	return nil
}

// reconcilePendingPayments reports payment attempts stuck in pending so
// operators can chase them with the billing provider.
func (js *JobScheduler) reconcilePendingPayments(ctx context.Context) error {
	pending, err := js.paymentRepo.ListPending(ctx, 100)
	if err != nil {
		log.Printf("Payment reconciliation failed: %v", err)
		return err
	}

	stale := 0
	for _, transaction := range pending {
		if time.Since(transaction.CreatedAt) > 24*time.Hour {
			stale++
			log.Printf("ALERT: payment %s pending for over 24h (user %s)", transaction.ID, transaction.UserID)
		}
	}

	log.Printf("Payment reconciliation completed: %d pending, %d stale", len(pending), stale)
	return nil
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	status := make(map[string]interface{})
	status["total_jobs"] = len(js.jobs)
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	status["jobs"] = names

	return status
}
