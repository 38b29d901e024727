package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/notify"
	"github.com/hackgods/vitacare-orchestrator/internal/observability/metrics"
	redisclient "github.com/hackgods/vitacare-orchestrator/internal/redis"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

var ErrCycleRunning = apperr.New(apperr.Conflict, "reminder cycle already running")

// CycleLockKey is held for the whole of a cycle by whichever process runs it.
const CycleLockKey = "lock:reminder-cycle"

var tracer = otel.Tracer("vitacare.internal.reminder")

type Config struct {
	Location      *time.Location
	Now           func() time.Time
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
	Logger        *logging.Logger
	Metrics       *metrics.Metrics

	// Lock, when set, makes cycles exclusive across processes. Its TTL must
	// outlast a full cycle.
	Lock redisclient.Locker
}

// Cycle sends at most one reminder per (patient, drug, bucket, day).
// A cycle started while another is running, here or in any process sharing
// Lock, is rejected with ErrCycleRunning.
type Cycle struct {
	source   MedicationSource
	markers  MarkerStore
	notifier notify.Notifier

	loc           *time.Location
	now           func() time.Time
	storeTimeout  time.Duration
	notifyTimeout time.Duration
	logger        *logging.Logger
	metrics       *metrics.Metrics
	lock          redisclient.Locker

	running sync.Mutex
}

func NewCycle(source MedicationSource, markers MarkerStore, notifier notify.Notifier, cfg Config) *Cycle {
	if markers == nil {
		markers = NewMemoryMarkers()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Cycle{
		source:        source,
		markers:       markers,
		notifier:      notifier,
		loc:           cfg.Location,
		now:           cfg.Now,
		storeTimeout:  cfg.StoreTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		lock:          cfg.Lock,
	}
}

func (c *Cycle) exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.running.TryLock() {
		return ErrCycleRunning
	}
	defer c.running.Unlock()

	if c.lock == nil {
		return fn(ctx)
	}
	err := c.lock.WithLocks(ctx, []string{CycleLockKey}, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		c.logger.Info("reminder cycle held by another process")
		return ErrCycleRunning
	}
	return err
}

// RunCycle sends reminders for the bucket active right now.
func (c *Cycle) RunCycle(ctx context.Context) (Summary, error) {
	var summary Summary
	err := c.exclusive(ctx, func(ctx context.Context) error {
		var err error
		summary, err = c.runCycle(ctx)
		return err
	})
	return summary, err
}

func (c *Cycle) runCycle(ctx context.Context) (Summary, error) {
	now := c.now().In(c.loc)
	bucket := BucketAt(now)

	ctx, span := tracer.Start(ctx, "reminder.run_cycle")
	defer span.End()
	span.SetAttributes(attribute.String("bucket", string(bucket)))

	queryCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	due, err := c.source.DueMedications(queryCtx, bucket)
	cancel()
	if err != nil {
		span.RecordError(err)
		return Summary{Bucket: bucket}, apperr.Wrap(apperr.KindOf(err), "load due medications", err)
	}

	summary := Summary{Bucket: bucket, Total: len(due)}
	if len(due) == 0 {
		summary.Message = "No medications due for this slot"
		return summary, nil
	}

	for _, med := range due {
		key := MarkerKey(med.PatientID, med.DrugID, bucket, now)
		switch c.remind(ctx, key, med.PatientPhone, notify.MedicationReminder(med.DrugName, string(bucket))) {
		case outcomeSent:
			summary.Sent++
		case outcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	summary.Message = fmt.Sprintf("Reminder cycle completed for %s slot", bucket)
	c.metrics.ObserveReminders(string(bucket), summary.Sent, summary.Failed, summary.Skipped)
	span.SetAttributes(
		attribute.Int("sent", summary.Sent),
		attribute.Int("failed", summary.Failed),
		attribute.Int("skipped", summary.Skipped),
	)
	c.logger.Info("reminder cycle finished",
		"bucket", bucket,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"total", summary.Total,
	)
	return summary, nil
}

// RemindAppointments notifies patients of confirmed bookings starting within
// window, once per booking per day.
func (c *Cycle) RemindAppointments(ctx context.Context, source AppointmentSource, window time.Duration) (Summary, error) {
	var summary Summary
	err := c.exclusive(ctx, func(ctx context.Context) error {
		var err error
		summary, err = c.remindAppointments(ctx, source, window)
		return err
	})
	return summary, err
}

func (c *Cycle) remindAppointments(ctx context.Context, source AppointmentSource, window time.Duration) (Summary, error) {
	now := c.now().In(c.loc)

	queryCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	upcoming, err := source.UpcomingAppointments(queryCtx, now, now.Add(window))
	cancel()
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindOf(err), "load upcoming appointments", err)
	}

	summary := Summary{Total: len(upcoming)}
	for _, appt := range upcoming {
		key := appointmentMarkerKey(appt.BookingID, now)
		msg := notify.AppointmentReminder(appt.DoctorName, appt.AppointmentTime.In(c.loc))
		switch c.remind(ctx, key, appt.PatientPhone, msg) {
		case outcomeSent:
			summary.Sent++
		case outcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	summary.Message = "Appointment reminders completed"
	c.metrics.ObserveReminders("appointment", summary.Sent, summary.Failed, summary.Skipped)
	return summary, nil
}

// ClearCache drops every marker. The daily trigger calls this.
func (c *Cycle) ClearCache(ctx context.Context) (int, error) {
	n, err := c.markers.Clear(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.Unavailable, "clear reminder markers", err)
	}
	c.logger.Info("reminder cache cleared", "markers", n)
	return n, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSent
	outcomeSkipped
)

// remind marks key only after a successful send, so failures are retried by
// the next cycle.
func (c *Cycle) remind(ctx context.Context, key, contact, message string) outcome {
	sent, err := c.markers.IsSent(ctx, key)
	if err != nil {
		c.logger.Warn("reminder marker lookup failed", "key", key, "error", err)
		return outcomeFailed
	}
	if sent {
		return outcomeSkipped
	}

	if strings.TrimSpace(contact) == "" {
		c.logger.Warn("no contact for reminder", "key", key)
		return outcomeFailed
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
	err = c.notifier.Notify(sendCtx, contact, message)
	cancel()
	if err != nil {
		c.logger.Warn("reminder not delivered", "key", key, "kind", apperr.KindOf(err), "error", err)
		return outcomeFailed
	}

	if err := c.markers.MarkSent(ctx, key); err != nil {
		c.logger.Error("reminder sent but marker not stored", "key", key, "error", err)
	}
	return outcomeSent
}
