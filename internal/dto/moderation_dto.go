package dto

import "github.com/google/uuid"

type CreateReportRequest struct {
	TargetType  string    `json:"target_type"`
	TargetID    uuid.UUID `json:"target_id"`
	Reason      string    `json:"reason"`
	Description string    `json:"description"`
	Priority    string    `json:"priority,omitempty"`
}

type ReviewReportRequest struct {
	Status        string `json:"status"`
	ActionTaken   string `json:"action_taken,omitempty"`
	Reason        string `json:"reason,omitempty"`
	DurationHours *int   `json:"duration_hours,omitempty"`
	AdminNote     string `json:"admin_note"`
}

type WarnRequest struct {
	Reason   string     `json:"reason"`
	ReportID *uuid.UUID `json:"report_id,omitempty"`
}

// RestrictRequest blocks an account directly. account_suspended requires
// duration_hours and account_banned also sets the ban; warning and
// content_removed record an open-ended admin block. To issue a plain warning
// use the warn endpoint, or accept a report with that action.
type RestrictRequest struct {
	Reason        string     `json:"reason"`
	ActionTaken   string     `json:"action_taken"`
	ReportID      *uuid.UUID `json:"report_id,omitempty"`
	DurationHours *int       `json:"duration_hours,omitempty"`
}

type UnrestrictRequest struct {
	Note string `json:"note,omitempty"`
}

type ListResponse struct {
	Data   any   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
