package alerts

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/google/uuid"
)

type EventType string

const (
	EventReportCreated EventType = "report.created"
	EventUserNotice    EventType = "user.notice"
)

// Event is emitted by the ledger and the state machine; the fanout turns it
// into deliveries.
type Event struct {
	Type     EventType
	Report   *models.Report
	Reporter *models.User
	UserID   uuid.UUID
	Kind     models.NotificationKind
	Details  map[string]any
}

func ReportCreated(report *models.Report, reporter *models.User) Event {
	return Event{Type: EventReportCreated, Report: report, Reporter: reporter}
}

func UserNotice(userID uuid.UUID, kind models.NotificationKind, details map[string]any) Event {
	return Event{Type: EventUserNotice, UserID: userID, Kind: kind, Details: details}
}

// Publisher accepts events without blocking the caller on delivery.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Handler consumes a single event.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// Inline hands events straight to the handler on the caller's goroutine.
type Inline struct {
	Handler Handler
}

func (p Inline) Publish(ctx context.Context, ev Event) {
	p.Handler.Handle(ctx, ev)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
