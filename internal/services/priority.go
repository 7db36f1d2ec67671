package services

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
)

var defaultReasonPriority = map[models.ReportReason]models.Priority{
	models.ReasonSelfHarm:          models.PriorityCritical,
	models.ReasonThreats:           models.PriorityCritical,
	models.ReasonTerrorism:         models.PriorityCritical,
	models.ReasonChildExploitation: models.PriorityCritical,

	models.ReasonViolence:   models.PriorityHigh,
	models.ReasonHarassment: models.PriorityHigh,
	models.ReasonBullying:   models.PriorityHigh,
	models.ReasonHateSpeech: models.PriorityHigh,

	models.ReasonNudity:           models.PriorityMedium,
	models.ReasonFalseInformation: models.PriorityMedium,
	models.ReasonScam:             models.PriorityMedium,

	models.ReasonSpam:      models.PriorityLow,
	models.ReasonCopyright: models.PriorityLow,
	models.ReasonOther:     models.PriorityLow,
}

// PriorityTable maps report reasons to their default priority.
type PriorityTable struct {
	byReason map[models.ReportReason]models.Priority
}

// NewPriorityTable builds the table from the defaults plus overrides keyed
// by reason name. Unknown reasons or priorities in overrides are ignored.
func NewPriorityTable(overrides map[string]string) *PriorityTable {
	t := &PriorityTable{byReason: make(map[models.ReportReason]models.Priority, len(defaultReasonPriority))}
	for r, p := range defaultReasonPriority {
		t.byReason[r] = p
	}
	for k, v := range overrides {
		reason, priority := models.ReportReason(k), models.Priority(v)
		if !reason.Valid() || !priority.Valid() {
			slog.Warn("ignoring invalid priority override", "reason", k, "priority", v)
			continue
		}
		t.byReason[reason] = priority
	}
	return t
}

// Resolve returns the explicit priority when given, otherwise the table
// entry for reason, otherwise low.
func (t *PriorityTable) Resolve(reason models.ReportReason, explicit *models.Priority) models.Priority {
	if explicit != nil {
		return *explicit
	}
	if p, ok := t.byReason[reason]; ok {
		return p
	}
	return models.PriorityLow
}
