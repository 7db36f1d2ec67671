package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/alerts"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/testutil"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []alerts.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev alerts.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) Events() []alerts.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]alerts.Event(nil), p.events...)
}

func (p *recordingPublisher) Notices(kind models.NotificationKind) []alerts.Event {
	var out []alerts.Event
	for _, ev := range p.Events() {
		if ev.Type == alerts.EventUserNotice && ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (p *recordingPublisher) Reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

type fixture struct {
	db          *gorm.DB
	clock       *testutil.Clock
	events      *recordingPublisher
	escalation  *EscalationService
	enforcement *EnforcementService
	moderation  *ModerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	clock := testutil.NewClock()
	events := &recordingPublisher{}

	escalation := NewEscalationService(db, 5, 10)
	enforcement := NewEnforcementService(db, events)
	enforcement.SetClock(clock.Now)
	moderation := NewModerationService(db, NewPriorityTable(nil), escalation, enforcement, events)
	moderation.SetClock(clock.Now)

	return &fixture{
		db:          db,
		clock:       clock,
		events:      events,
		escalation:  escalation,
		enforcement: enforcement,
		moderation:  moderation,
	}
}

func intPtr(n int) *int { return &n }
