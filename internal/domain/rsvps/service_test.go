package rsvps_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/domain/ids"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
	"github.com/Togather-Foundation/gatherings/internal/storage/memory"
)

type fixture struct {
	svc    *rsvps.Service
	events []string
	alice  *auth.Identity
	bob    *auth.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	mkUser := func(name string) *auth.Identity {
		id, err := ids.NewULID()
		require.NoError(t, err)
		_, err = store.Users().Create(ctx, users.CreateParams{ID: id, Username: name, PasswordHash: "x"})
		require.NoError(t, err)
		return &auth.Identity{UserID: id, Username: name}
	}
	alice, bob := mkUser("alice"), mkUser("bob")

	var eventIDs []string
	for i := 0; i < 2; i++ {
		id, err := ids.NewULID()
		require.NoError(t, err)
		start := time.Now().UTC()
		_, err = store.Events().Create(ctx, events.CreateParams{
			ID:          id,
			OrganizerID: alice.UserID,
			Fields:      events.Fields{Title: "e", Description: "d", Location: "l", StartTime: start, EndTime: start, IsPublic: true},
		})
		require.NoError(t, err)
		eventIDs = append(eventIDs, id)
	}

	return fixture{svc: rsvps.NewService(store.RSVPs(), zerolog.Nop()), events: eventIDs, alice: alice, bob: bob}
}

func status(s rsvps.Status) *rsvps.Status { return &s }

func TestCreate_DefaultsToGoing(t *testing.T) {
	f := newFixture(t)

	rsvp, err := f.svc.Create(context.Background(), f.bob, f.events[0], rsvps.Input{})
	require.NoError(t, err)
	require.Equal(t, rsvps.StatusGoing, rsvp.Status)
	require.Equal(t, f.bob.UserID, rsvp.UserID)
	require.Equal(t, "bob", rsvp.Username)
}

func TestCreate_DuplicateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.bob, f.events[0], rsvps.Input{Status: status(rsvps.StatusMaybe)})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.bob, f.events[0], rsvps.Input{Status: status(rsvps.StatusGoing)})
	require.ErrorIs(t, err, rsvps.ErrAlreadyRSVPd)
	require.Equal(t, "You have already RSVP'd to this event. Use PATCH to update.", err.Error())

	_, err = f.svc.Create(ctx, f.bob, f.events[1], rsvps.Input{})
	require.NoError(t, err, "the same user may RSVP to a different event")

	items, err := f.svc.List(ctx, f.events[0])
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, rsvps.StatusMaybe, items[0].Status)
}

func TestCreate_UnknownEvent(t *testing.T) {
	f := newFixture(t)
	missing, err := ids.NewULID()
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.bob, missing, rsvps.Input{})
	require.ErrorIs(t, err, rsvps.ErrEventNotFound)

	_, err = f.svc.Create(context.Background(), nil, f.events[0], rsvps.Input{})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestCreate_InvalidStatusValue(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.bob, f.events[0], rsvps.Input{Status: status(rsvps.Status(42))})
	require.Error(t, err)
}

func TestOwnership_OthersSeeNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rsvp, err := f.svc.Create(ctx, f.bob, f.events[0], rsvps.Input{})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.alice, f.events[0], rsvp.ID)
	require.ErrorIs(t, err, rsvps.ErrNotFound)

	_, err = f.svc.Update(ctx, f.alice, f.events[0], rsvp.ID, rsvps.Input{Status: status(rsvps.StatusNotGoing)})
	require.ErrorIs(t, err, rsvps.ErrNotFound)

	require.ErrorIs(t, f.svc.Delete(ctx, f.alice, f.events[0], rsvp.ID), rsvps.ErrNotFound)

	_, err = f.svc.Get(ctx, f.bob, f.events[1], rsvp.ID)
	require.ErrorIs(t, err, rsvps.ErrNotFound, "wrong event in path")

	_, err = f.svc.Get(ctx, nil, f.events[0], rsvp.ID)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	got, err := f.svc.Get(ctx, f.bob, f.events[0], rsvp.ID)
	require.NoError(t, err)
	require.Equal(t, rsvps.StatusGoing, got.Status)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rsvp, err := f.svc.Create(ctx, f.bob, f.events[0], rsvps.Input{})
	require.NoError(t, err)

	unchanged, err := f.svc.Update(ctx, f.bob, f.events[0], rsvp.ID, rsvps.Input{})
	require.NoError(t, err)
	require.Equal(t, rsvps.StatusGoing, unchanged.Status)

	updated, err := f.svc.Update(ctx, f.bob, f.events[0], rsvp.ID, rsvps.Input{Status: status(rsvps.StatusNotGoing)})
	require.NoError(t, err)
	require.Equal(t, rsvps.StatusNotGoing, updated.Status)
	require.False(t, updated.UpdatedAt.Before(rsvp.UpdatedAt))

	require.NoError(t, f.svc.Delete(ctx, f.bob, f.events[0], rsvp.ID))
	_, err = f.svc.Get(ctx, f.bob, f.events[0], rsvp.ID)
	require.ErrorIs(t, err, rsvps.ErrNotFound)

	_, err = f.svc.Create(ctx, f.bob, f.events[0], rsvps.Input{Status: status(rsvps.StatusMaybe)})
	require.NoError(t, err, "a deleted RSVP frees the (event, user) slot")
}
