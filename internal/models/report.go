package models

import (
	"time"

	"github.com/google/uuid"
)

type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
	TargetUser    TargetType = "user"
	TargetMessage TargetType = "message"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetPost, TargetComment, TargetUser, TargetMessage:
		return true
	}
	return false
}

// IsContent reports whether the target lives in the contents table.
func (t TargetType) IsContent() bool {
	return t == TargetPost || t == TargetComment || t == TargetMessage
}

type ReportReason string

const (
	ReasonSpam              ReportReason = "spam"
	ReasonHarassment        ReportReason = "harassment"
	ReasonBullying          ReportReason = "bullying"
	ReasonHateSpeech        ReportReason = "hate_speech"
	ReasonViolence          ReportReason = "violence"
	ReasonSelfHarm          ReportReason = "self_harm"
	ReasonThreats           ReportReason = "threats"
	ReasonTerrorism         ReportReason = "terrorism"
	ReasonChildExploitation ReportReason = "child_exploitation"
	ReasonNudity            ReportReason = "nudity"
	ReasonFalseInformation  ReportReason = "false_information"
	ReasonScam              ReportReason = "scam"
	ReasonCopyright         ReportReason = "copyright"
	ReasonOther             ReportReason = "other"
)

var ReportReasons = []ReportReason{
	ReasonSpam, ReasonHarassment, ReasonBullying, ReasonHateSpeech,
	ReasonViolence, ReasonSelfHarm, ReasonThreats, ReasonTerrorism,
	ReasonChildExploitation, ReasonNudity, ReasonFalseInformation,
	ReasonScam, ReasonCopyright, ReasonOther,
}

func (r ReportReason) Valid() bool {
	for _, v := range ReportReasons {
		if v == r {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	return p.Weight() > 0
}

// Weight orders priorities for the review queue. Unknown values weigh 0.
func (p Priority) Weight() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

// Urgent priorities trigger the admin alert path.
func (p Priority) Urgent() bool {
	return p == PriorityHigh || p == PriorityCritical
}

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewing ReportStatus = "reviewing"
	ReportAccepted  ReportStatus = "accepted"
	ReportDeclined  ReportStatus = "declined"
	ReportResolved  ReportStatus = "resolved"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportReviewing, ReportAccepted, ReportDeclined, ReportResolved:
		return true
	}
	return false
}

// Report is a user allegation against a target. One per (reporter, target).
type Report struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_reports_reporter_target" json:"reporter_id"`
	TargetType   TargetType   `gorm:"size:20;not null;uniqueIndex:idx_reports_reporter_target;index:idx_reports_target" json:"target_type"`
	TargetID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_reports_reporter_target;index:idx_reports_target" json:"target_id"`
	Reason       ReportReason `gorm:"size:40;not null" json:"reason"`
	Description  string       `gorm:"type:text;not null" json:"description"`
	Priority     Priority     `gorm:"size:20;not null;index" json:"priority"`
	PriorityRank int          `gorm:"not null;default:0;index" json:"-"`
	Status       ReportStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy   *uuid.UUID   `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ActionTaken  *ActionTaken `gorm:"size:30" json:"action_taken,omitempty"`
	AdminNote    string       `gorm:"size:1000" json:"admin_note,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Reporter     User         `gorm:"foreignKey:ReporterID" json:"-"`
}
