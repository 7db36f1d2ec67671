package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEvents(t *testing.T, f *fixture, userID uuid.UUID) []models.BlockEvent {
	t.Helper()
	var events []models.BlockEvent
	require.NoError(t, f.db.Where("user_id = ? AND unblocked_at IS NULL", userID).Find(&events).Error)
	return events
}

func TestRestrict_SuspensionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)
	start := f.clock.Now()

	event, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason:        "spam",
		ActionTaken:   models.ActionAccountSuspended,
		DurationHours: intPtr(24),
	})
	require.NoError(t, err)
	require.NotNil(t, event.ExpiresAt)
	assert.True(t, start.Add(24*time.Hour).Equal(*event.ExpiresAt))

	status, err := f.enforcement.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, status.IsBlocked)
	assert.Equal(t, models.RestrictionSuspended, status.Type)
	assert.Equal(t, "spam", status.Reason)
	assert.True(t, status.CanAppeal)
	require.NotNil(t, status.ExpiresAt)
	assert.True(t, start.Add(24*time.Hour).Equal(*status.ExpiresAt))

	u := testutil.ReloadUser(t, f.db, user.ID)
	assert.Equal(t, int64(1), u.SessionEpoch)
	assert.Len(t, f.events.Notices(models.NotifyBlocked), 1)

	f.clock.Advance(25 * time.Hour)

	status, err = f.enforcement.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, status.IsBlocked)

	u = testutil.ReloadUser(t, f.db, user.ID)
	assert.False(t, u.IsBlocked)
	assert.Nil(t, u.SuspendedUntil)
	assert.Equal(t, int64(1), u.SessionEpoch)

	var closed models.BlockEvent
	require.NoError(t, f.db.First(&closed, "id = ?", event.ID).Error)
	require.NotNil(t, closed.UnblockedAt)
	assert.Nil(t, closed.UnblockedBy)
	assert.Equal(t, "suspension expired", closed.Note)
	assert.Len(t, f.events.Notices(models.NotifyUnblocked), 1)
}

func TestRestrict_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	cases := []struct {
		name string
		in   RestrictInput
	}{
		{"suspension without duration", RestrictInput{Reason: "spam", ActionTaken: models.ActionAccountSuspended}},
		{"zero duration", RestrictInput{Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(0)}},
		{"duration above a year", RestrictInput{Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(8761)}},
		{"missing reason", RestrictInput{ActionTaken: models.ActionAccountBanned}},
		{"unknown action", RestrictInput{Reason: "spam", ActionTaken: models.ActionTaken("shadowban")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	u := testutil.ReloadUser(t, f.db, user.ID)
	assert.False(t, u.IsBlocked)
	assert.Equal(t, int64(0), u.SessionEpoch)
}

func TestRestrict_DurationBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)

	for _, hours := range []int{1, 8760} {
		user := testutil.CreateUser(t, f.db, models.RoleUser)
		_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
			Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(hours),
		})
		assert.NoError(t, err, "hours=%d", hours)
	}
}

func TestRestrict_UnknownUser(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)

	_, err := f.enforcement.Restrict(context.Background(), uuid.New(), admin.ID, RestrictInput{
		Reason: "spam", ActionTaken: models.ActionAccountBanned,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestrict_SupersedesOpenEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	first, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(24),
	})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "fraud", ActionTaken: models.ActionAccountBanned,
	})
	require.NoError(t, err)

	open := openEvents(t, f, user.ID)
	require.Len(t, open, 1)
	assert.Equal(t, models.ActionAccountBanned, open[0].ActionTaken)

	var superseded models.BlockEvent
	require.NoError(t, f.db.First(&superseded, "id = ?", first.ID).Error)
	assert.Equal(t, "superseded", superseded.Note)

	u := testutil.ReloadUser(t, f.db, user.ID)
	assert.Equal(t, int64(2), u.SessionEpoch)
	assert.Nil(t, u.SuspendedUntil)
}

func TestCheckAndExpire_ConcurrentCallersRecordOneUnblock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(1),
	})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)
	f.events.Reset()

	const n = 10
	var wg sync.WaitGroup
	results := make(chan bool, n)
	statuses := make(chan *BlockStatus, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			expired, err := f.enforcement.CheckAndExpire(ctx, user.ID)
			if err == nil {
				results <- expired
			}
			status, err := f.enforcement.GetStatus(ctx, user.ID)
			if err == nil {
				statuses <- status
			}
		}()
	}
	wg.Wait()
	close(results)
	close(statuses)

	winners := 0
	for expired := range results {
		if expired {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	seen := 0
	for status := range statuses {
		seen++
		assert.False(t, status.IsBlocked)
	}
	assert.Equal(t, n, seen)

	var closedCount int64
	require.NoError(t, f.db.Model(&models.BlockEvent{}).
		Where("user_id = ? AND unblocked_at IS NOT NULL", user.ID).
		Count(&closedCount).Error)
	assert.Equal(t, int64(1), closedCount)
	assert.Len(t, f.events.Notices(models.NotifyUnblocked), 1)
}

func TestCheckAndExpire_NotYetDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(2),
	})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	expired, err := f.enforcement.CheckAndExpire(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Len(t, openEvents(t, f, user.ID), 1)
}

func TestUnrestrict_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "abuse", ActionTaken: models.ActionContentRemoved,
	})
	require.NoError(t, err)

	status, err := f.enforcement.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RestrictionAdminBlocked, status.Type)

	first, err := f.enforcement.Unrestrict(ctx, user.ID, &admin.ID, "appeal granted")
	require.NoError(t, err)
	assert.False(t, first.IsBlocked)
	assert.Equal(t, int64(2), first.SessionEpoch)

	second, err := f.enforcement.Unrestrict(ctx, user.ID, &admin.ID, "again")
	require.NoError(t, err)
	assert.False(t, second.IsBlocked)
	assert.Equal(t, first.SessionEpoch, second.SessionEpoch)
	assert.Len(t, f.events.Notices(models.NotifyUnblocked), 1)

	var events []models.BlockEvent
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "appeal granted", events[0].Note)
	require.NotNil(t, events[0].UnblockedBy)
	assert.Equal(t, admin.ID, *events[0].UnblockedBy)
}

func TestUnrestrict_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.enforcement.Unrestrict(context.Background(), uuid.New(), nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnrestrict_LeavesBanInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "fraud", ActionTaken: models.ActionAccountBanned,
	})
	require.NoError(t, err)

	f.events.Reset()

	u, err := f.enforcement.Unrestrict(ctx, user.ID, &admin.ID, "")
	require.NoError(t, err)
	assert.True(t, u.IsBanned)
	assert.False(t, u.IsBlocked)
	assert.Empty(t, f.events.Notices(models.NotifyUnblocked))

	var open []models.BlockEvent
	require.NoError(t, f.db.Where("user_id = ? AND unblocked_at IS NULL", user.ID).Find(&open).Error)
	require.Len(t, open, 1)
	assert.Equal(t, models.ActionAccountBanned, open[0].ActionTaken)

	status, err := f.enforcement.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, status.IsBlocked)
	assert.Equal(t, models.RestrictionBanned, status.Type)
	assert.Equal(t, "fraud", status.Reason)

	u, err = f.enforcement.Unban(ctx, user.ID, admin.ID, "overturned")
	require.NoError(t, err)
	assert.False(t, u.IsBanned)
	assert.Len(t, f.events.Notices(models.NotifyUnblocked), 1)

	var ban models.BlockEvent
	require.NoError(t, f.db.First(&ban, "id = ?", open[0].ID).Error)
	require.NotNil(t, ban.UnblockedAt)
	require.NotNil(t, ban.UnblockedBy)
	assert.Equal(t, admin.ID, *ban.UnblockedBy)

	status, err = f.enforcement.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, status.IsBlocked)
}

func TestCheckAndExpire_SuspensionOnBannedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "fraud", ActionTaken: models.ActionAccountBanned,
	})
	require.NoError(t, err)
	_, err = f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(1),
	})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)
	f.events.Reset()

	expired, err := f.enforcement.CheckAndExpire(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Empty(t, f.events.Notices(models.NotifyUnblocked))

	u := testutil.ReloadUser(t, f.db, user.ID)
	assert.False(t, u.IsBlocked)
	assert.Nil(t, u.SuspendedUntil)
	assert.True(t, u.IsBanned)

	status, err := f.enforcement.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, status.IsBlocked)
	assert.Equal(t, models.RestrictionBanned, status.Type)
}

func TestUnban_NotBannedIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	u, err := f.enforcement.Unban(ctx, user.ID, admin.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.SessionEpoch)
	assert.Empty(t, f.events.Events())
}

func TestWarn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	_, err := f.enforcement.Warn(ctx, user.ID, admin.ID, "  ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.enforcement.Warn(ctx, user.ID, admin.ID, "rude language", nil)
	require.NoError(t, err)
	_, err = f.enforcement.Warn(ctx, user.ID, admin.ID, "again", nil)
	require.NoError(t, err)

	u := testutil.ReloadUser(t, f.db, user.ID)
	assert.Equal(t, 2, u.WarningCount)
	assert.NotNil(t, u.LastWarningAt)
	assert.Equal(t, int64(0), u.SessionEpoch)

	status, err := f.enforcement.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, status.IsBlocked)
	assert.True(t, status.Warned)
	assert.Len(t, f.events.Notices(models.NotifyWarned), 2)

	_, err = f.enforcement.Warn(ctx, uuid.New(), admin.ID, "ghost", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	user := testutil.CreateUser(t, f.db, models.RoleUser)

	_, err := f.enforcement.Warn(ctx, user.ID, admin.ID, "first", nil)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "second", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(1),
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "third", ActionTaken: models.ActionAccountBanned,
	})
	require.NoError(t, err)

	h, err := f.enforcement.History(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, h.Warnings, 1)
	require.Len(t, h.BlockEvents, 2)
	assert.Equal(t, "second", h.BlockEvents[0].Reason)
	assert.Equal(t, "third", h.BlockEvents[1].Reason)

	_, err = f.enforcement.History(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)

	var ids []uuid.UUID
	for _, hours := range []int{1, 2, 48} {
		user := testutil.CreateUser(t, f.db, models.RoleUser)
		_, err := f.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
			Reason: "spam", ActionTaken: models.ActionAccountSuspended, DurationHours: intPtr(hours),
		})
		require.NoError(t, err)
		ids = append(ids, user.ID)
	}
	f.clock.Advance(3 * time.Hour)

	lifted, err := f.enforcement.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, lifted)

	assert.False(t, testutil.ReloadUser(t, f.db, ids[0]).IsBlocked)
	assert.False(t, testutil.ReloadUser(t, f.db, ids[1]).IsBlocked)
	assert.True(t, testutil.ReloadUser(t, f.db, ids[2]).IsBlocked)
}
