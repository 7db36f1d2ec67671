package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminDirectory resolves the accounts that receive report alerts.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]uuid.UUID, error)
}

// Fanout delivers admin alerts and user notices. Nothing it does returns an
// error to the caller: failures are logged and recorded as undelivered.
type Fanout struct {
	db          *gorm.DB
	deliverer   Deliverer
	admins      AdminDirectory
	timeout     time.Duration
	dedupWindow time.Duration
	now         func() time.Time

	mu     sync.Mutex
	recent map[string]time.Time
}

type Options struct {
	DeliveryTimeout time.Duration
	DedupWindow     time.Duration
	Now             func() time.Time
}

func NewFanout(db *gorm.DB, deliverer Deliverer, admins AdminDirectory, opts Options) *Fanout {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 3 * time.Second
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Fanout{
		db:          db,
		deliverer:   deliverer,
		admins:      admins,
		timeout:     opts.DeliveryTimeout,
		dedupWindow: opts.DedupWindow,
		now:         opts.Now,
		recent:      make(map[string]time.Time),
	}
}

func (f *Fanout) Handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventReportCreated:
		f.AlertAdmins(ctx, ev.Report, ev.Reporter)
	case EventUserNotice:
		f.NotifyUser(ctx, ev.UserID, ev.Kind, ev.Details)
	default:
		slog.Warn("unknown alert event", "type", string(ev.Type))
	}
}

type reportAlertPayload struct {
	ReportID      uuid.UUID `json:"report_id"`
	TargetType    string    `json:"target_type"`
	TargetID      uuid.UUID `json:"target_id"`
	Reason        string    `json:"reason"`
	Priority      string    `json:"priority"`
	Description   string    `json:"description"`
	ReporterID    uuid.UUID `json:"reporter_id"`
	ReporterEmail string    `json:"reporter_email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Message       string    `json:"message"`
}

// AlertAdmins sends one alert payload to every admin. An equivalent alert
// (same reporter, kind and target) delivered within the dedup window
// suppresses the call. Returns the number of successful deliveries.
func (f *Fanout) AlertAdmins(ctx context.Context, report *models.Report, reporter *models.User) int {
	if report == nil {
		return 0
	}
	log := slog.With("report_id", report.ID.String(), "action", "alert_admins")

	key := dedupKey(report.ReporterID, models.NotifyReportAlert, report.TargetID)
	if f.deliveredRecently(ctx, report.ReporterID, report.TargetID) || !f.claim(key) {
		metrics.AlertsDeduplicatedTotal.Inc()
		log.Info("admin alert suppressed as duplicate")
		return 0
	}

	admins, err := f.admins.ListAdmins(ctx)
	if err != nil {
		log.Error("failed to resolve admins for alert", "error", err)
		f.release(key)
		return 0
	}
	if len(admins) == 0 {
		log.Warn("no admins to alert")
		f.release(key)
		return 0
	}

	payload := reportAlertPayload{
		ReportID:    report.ID,
		TargetType:  string(report.TargetType),
		TargetID:    report.TargetID,
		Reason:      string(report.Reason),
		Priority:    string(report.Priority),
		Description: excerpt(report.Description, 280),
		ReporterID:  report.ReporterID,
		CreatedAt:   report.CreatedAt,
		Message:     "New " + string(report.Priority) + " priority report: " + string(report.Reason),
	}
	if reporter != nil {
		payload.ReporterEmail = reporter.Email
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to encode admin alert", "error", err)
		f.release(key)
		return 0
	}

	sender := report.ReporterID
	target := report.TargetID
	delivered := 0
	for _, adminID := range admins {
		ok := f.deliver(ctx, adminID, models.NotifyReportAlert, body)
		if ok {
			delivered++
		}
		f.record(ctx, models.Notification{
			RecipientID: adminID,
			SenderID:    &sender,
			Kind:        models.NotifyReportAlert,
			TargetType:  string(report.TargetType),
			TargetID:    &target,
			Payload:     datatypes.JSON(body),
			Delivered:   ok,
		})
	}
	if delivered == 0 {
		f.release(key)
	}
	log.Info("admin alert fanned out", "admins", len(admins), "delivered", delivered)
	return delivered
}

var noticeMessages = map[models.NotificationKind]string{
	models.NotifyBlocked:        "Your account has been restricted.",
	models.NotifyUnblocked:      "Your account restriction has been lifted.",
	models.NotifyWarned:         "You have received a warning for violating community guidelines.",
	models.NotifyReportAccepted: "Thanks for your report. We took action on the content you reported.",
	models.NotifyReportDeclined: "Thanks for your report. We reviewed it and found no violation.",
}

// NotifyUser delivers an enforcement outcome to exactly one user.
func (f *Fanout) NotifyUser(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, details map[string]any) bool {
	if !kind.Valid() || kind == models.NotifyReportAlert {
		slog.Warn("refusing to notify with invalid kind", "user_id", userID.String(), "kind", string(kind))
		return false
	}

	payload := make(map[string]any, len(details)+2)
	for k, v := range details {
		payload[k] = v
	}
	payload["kind"] = string(kind)
	payload["message"] = noticeMessages[kind]

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode user notice", "user_id", userID.String(), "error", err)
		return false
	}

	ok := f.deliver(ctx, userID, kind, body)
	n := models.Notification{
		RecipientID: userID,
		Kind:        kind,
		Payload:     datatypes.JSON(body),
		Delivered:   ok,
	}
	if id, ok := details["report_id"].(uuid.UUID); ok {
		n.TargetType = "report"
		n.TargetID = &id
	}
	f.record(ctx, n)
	return ok
}

// deliver makes one bounded attempt. No lock is held here.
func (f *Fanout) deliver(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, body []byte) bool {
	dctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.deliverer.Deliver(dctx, userID, string(kind), body); err != nil {
		metrics.AlertsDeliveredTotal.WithLabelValues(string(kind), "failed").Inc()
		slog.Warn("alert delivery failed", "user_id", userID.String(), "kind", string(kind), "error", err)
		sentry.CaptureException(err)
		return false
	}
	metrics.AlertsDeliveredTotal.WithLabelValues(string(kind), "delivered").Inc()
	return true
}

func (f *Fanout) record(ctx context.Context, n models.Notification) {
	n.ID = uuid.New()
	n.CreatedAt = f.now()
	if err := f.db.WithContext(context.WithoutCancel(ctx)).Create(&n).Error; err != nil {
		slog.Error("failed to record notification", "user_id", n.RecipientID.String(), "kind", string(n.Kind), "error", err)
	}
}

func (f *Fanout) deliveredRecently(ctx context.Context, sender, target uuid.UUID) bool {
	var count int64
	err := f.db.WithContext(ctx).Model(&models.Notification{}).
		Where("sender_id = ? AND kind = ? AND target_id = ? AND delivered = ? AND created_at >= ?",
			sender, models.NotifyReportAlert, target, true, f.now().Add(-f.dedupWindow)).
		Count(&count).Error
	if err != nil {
		slog.Warn("alert dedup lookup failed", "error", err)
		return false
	}
	return count > 0
}

// claim reserves key in the in-process window so concurrent alerts for the
// same report pair collapse to one.
func (f *Fanout) claim(key string) bool {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()

	for k, at := range f.recent {
		if now.Sub(at) >= f.dedupWindow {
			delete(f.recent, k)
		}
	}
	if _, taken := f.recent[key]; taken {
		return false
	}
	f.recent[key] = now
	return true
}

func (f *Fanout) release(key string) {
	f.mu.Lock()
	delete(f.recent, key)
	f.mu.Unlock()
}

func dedupKey(sender uuid.UUID, kind models.NotificationKind, target uuid.UUID) string {
	return sender.String() + "|" + string(kind) + "|" + target.String()
}

func excerpt(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
