package models

import "time"

type RestrictionKind string

const (
	RestrictionActive       RestrictionKind = "active"
	RestrictionSuspended    RestrictionKind = "temporary_suspension"
	RestrictionAdminBlocked RestrictionKind = "admin_block"
	RestrictionBanned       RestrictionKind = "permanent_ban"
)

// Restriction is the effective enforcement state of an account. Warned is an
// overlay and never gates access.
type Restriction struct {
	Kind      RestrictionKind
	Reason    string
	BlockedAt *time.Time
	ExpiresAt *time.Time
	Warned    bool
}

func (r Restriction) Blocked() bool {
	return r.Kind != RestrictionActive
}

// ResolveRestriction applies the precedence
// Banned > Suspended(expiry > now) > AdminBlocked > Active.
func ResolveRestriction(u *User, now time.Time) Restriction {
	r := Restriction{Kind: RestrictionActive, Warned: u.WarningCount > 0}

	switch {
	case u.IsBanned:
		r.Kind = RestrictionBanned
		r.Reason = u.BannedReason
		r.BlockedAt = u.BannedAt
		if r.BlockedAt == nil {
			r.BlockedAt = u.BlockedAt
		}
	case u.IsBlocked && u.SuspendedUntil != nil && u.SuspendedUntil.After(now):
		r.Kind = RestrictionSuspended
		r.Reason = u.BlockedReason
		r.BlockedAt = u.BlockedAt
		r.ExpiresAt = u.SuspendedUntil
	case u.IsBlocked && u.SuspendedUntil == nil:
		r.Kind = RestrictionAdminBlocked
		r.Reason = u.BlockedReason
		r.BlockedAt = u.BlockedAt
	}
	// A blocked account whose suspension has lapsed is Active here; the
	// stored flags are cleared by the next CheckAndExpire.
	return r
}
