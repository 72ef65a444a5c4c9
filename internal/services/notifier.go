package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/metrics"
	"github.com/devcon-dev/devcon/internal/models"
)

// NotifyJob is one email delivery request queued for the background worker.
type NotifyJob struct {
	UserID uint
	Kind   models.NotificationKind
	Email  Email

	notificationID uint
}

// Notifier decouples email delivery from request handling. Enqueue records a
// ledger row and returns immediately; a background worker delivers with
// bounded retries. Delivery failures never propagate to the caller.
type Notifier struct {
	sender      Sender
	jobs        chan NotifyJob
	maxAttempts int
	retryDelay  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotifier(sender Sender, buffer, maxAttempts int, retryDelay time.Duration) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())

	if buffer < 1 {
		buffer = 1
	}

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Notifier{
		sender:      sender,
		jobs:        make(chan NotifyJob, buffer),
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the delivery worker.
func (n *Notifier) Start() {
	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		for {
			select {
			case <-n.ctx.Done():
				return
			case job := <-n.jobs:
				n.deliver(job)
			}
		}
	}()

	log.Println("Notification worker started")
}

// Stop cancels the worker and waits for the in-flight job to finish.
func (n *Notifier) Stop() {
	n.cancel()
	n.wg.Wait()
	log.Println("Notification worker stopped")
}

// Enqueue records the notification in the ledger and hands it to the worker.
// It never blocks: if the queue is saturated the job is marked failed
// immediately. The returned ID identifies the ledger row.
func (n *Notifier) Enqueue(job NotifyJob) uint {
	row := models.Notification{
		UserID:    job.UserID,
		Kind:      job.Kind,
		Recipient: job.Email.To,
		Subject:   job.Email.Subject,
		Status:    models.NotifyStatusPending,
	}

	if err := db.DB.Create(&row).Error; err != nil {
		log.Printf("Failed to record notification for user %d: %v", job.UserID, err)
		return 0
	}

	job.notificationID = row.ID

	select {
	case n.jobs <- job:
	default:
		log.Printf("Notification queue full, dropping %s email for user %d", job.Kind, job.UserID)
		n.finish(job, 0, "notification queue full")
	}

	return row.ID
}

func (n *Notifier) deliver(job NotifyJob) {
	var lastErr error

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		lastErr = n.sender.Send(job.Email)

		if lastErr == nil {
			n.finish(job, attempt, "")
			return
		}

		log.Printf("Notification %d attempt %d/%d failed: %v", job.notificationID, attempt, n.maxAttempts, lastErr)

		if attempt < n.maxAttempts {
			select {
			case <-n.ctx.Done():
				n.finish(job, attempt, lastErr.Error())
				return
			case <-time.After(n.retryDelay << (attempt - 1)):
			}
		}
	}

	n.finish(job, n.maxAttempts, lastErr.Error())
}

// finish writes the delivery outcome back to the ledger row.
func (n *Notifier) finish(job NotifyJob, attempts int, errMsg string) {
	updates := map[string]interface{}{
		"attempts": attempts,
	}

	outcome := "sent"

	if errMsg == "" {
		now := time.Now()
		updates["status"] = models.NotifyStatusSent
		updates["sent_at"] = &now
	} else {
		outcome = "failed"
		updates["status"] = models.NotifyStatusFailed
		updates["last_error"] = errMsg
	}

	metrics.NotificationsTotal.WithLabelValues(string(job.Kind), outcome).Inc()

	if err := db.DB.Model(&models.Notification{}).Where("id = ?", job.notificationID).Updates(updates).Error; err != nil {
		log.Printf("Failed to update notification %d: %v", job.notificationID, err)
	}
}
