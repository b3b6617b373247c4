package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	created, err := repo.Users().Create(ctx, users.CreateParams{
		ID:           ulid.Make().String(),
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		FullName:     "Ada Lovelace",
	})
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	byName, err := repo.Users().GetByUsername(ctx, "ada")
	require.NoError(t, err)
	require.Equal(t, created.ID, byName.ID)

	_, err = repo.Users().Create(ctx, users.CreateParams{ID: ulid.Make().String(), Username: "ada", PasswordHash: "x"})
	require.ErrorIs(t, err, users.ErrUsernameTaken)

	_, err = repo.Users().GetByID(ctx, ulid.Make().String())
	require.ErrorIs(t, err, users.ErrNotFound)

	updated, err := repo.Users().UpdateProfile(ctx, created.ID, users.ProfileParams{Bio: "Analyst", Location: "London"})
	require.NoError(t, err)
	require.Equal(t, "Analyst", updated.Bio)
	require.Empty(t, updated.Email)
}

func TestEventRepository_Visibility(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	alice := insertUser(t, ctx, sharedPool, "alice")
	bob := insertUser(t, ctx, sharedPool, "bob")
	start := time.Now().Add(24 * time.Hour)

	public := insertEvent(t, ctx, sharedPool, alice, "Public", true, start)
	private := insertEvent(t, ctx, sharedPool, alice, "Private", false, start.Add(time.Hour))

	anonymous, err := repo.Events().List(ctx, events.Filters{})
	require.NoError(t, err)
	require.Len(t, anonymous, 1)
	require.Equal(t, public, anonymous[0].ID)
	require.Equal(t, "alice", anonymous[0].OrganizerUsername)

	owner, err := repo.Events().List(ctx, events.Filters{ViewerID: alice})
	require.NoError(t, err)
	require.Len(t, owner, 2)

	other, err := repo.Events().List(ctx, events.Filters{ViewerID: bob})
	require.NoError(t, err)
	require.Len(t, other, 1)

	_, err = repo.Events().GetVisible(ctx, private, bob)
	require.ErrorIs(t, err, events.ErrNotFound)

	got, err := repo.Events().GetVisible(ctx, private, alice)
	require.NoError(t, err)
	require.False(t, got.IsPublic)
}

func TestEventRepository_Filters(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	alice := insertUser(t, ctx, sharedPool, "alice")
	bob := insertUser(t, ctx, sharedPool, "bob")
	now := time.Now().UTC()

	insertEvent(t, ctx, sharedPool, alice, "Past", true, now.Add(-48*time.Hour))
	upcoming := insertEvent(t, ctx, sharedPool, alice, "Upcoming", true, now.Add(48*time.Hour))
	insertEvent(t, ctx, sharedPool, bob, "Bob's", true, now.Add(72*time.Hour))

	byOrganizer, err := repo.Events().List(ctx, events.Filters{OrganizerUsername: "alice"})
	require.NoError(t, err)
	require.Len(t, byOrganizer, 2)

	items, err := repo.Events().List(ctx, events.Filters{OrganizerUsername: "alice", StartsAfter: &now})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, upcoming, items[0].ID)
}

func TestEventRepository_UpdateDeleteAndCascade(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	alice := insertUser(t, ctx, sharedPool, "alice")
	bob := insertUser(t, ctx, sharedPool, "bob")
	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)

	created, err := repo.Events().Create(ctx, events.CreateParams{
		ID:          ulid.Make().String(),
		OrganizerID: alice,
		Fields: events.Fields{
			Title: "Meetup", Description: "Talks", Location: "Hall",
			StartTime: start, EndTime: start.Add(time.Hour), IsPublic: true,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "alice", created.OrganizerUsername)

	fields := events.Fields{
		Title: "Meetup v2", Description: "Talks", Location: "Hall B",
		StartTime: start, EndTime: start.Add(2 * time.Hour), IsPublic: false,
	}
	_, err = repo.Events().Update(ctx, created.ID, bob, fields)
	require.ErrorIs(t, err, events.ErrNotFound)

	updated, err := repo.Events().Update(ctx, created.ID, alice, fields)
	require.NoError(t, err)
	require.Equal(t, "Meetup v2", updated.Title)
	require.False(t, updated.IsPublic)
	require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	require.Equal(t, alice, updated.OrganizerID)

	_, err = repo.RSVPs().Create(ctx, rsvps.CreateParams{ID: ulid.Make().String(), EventID: created.ID, UserID: bob, Status: rsvps.StatusMaybe})
	require.NoError(t, err)
	_, err = repo.Reviews().Create(ctx, reviews.CreateParams{ID: ulid.Make().String(), EventID: created.ID, UserID: bob, Rating: 4, Comment: "Good"})
	require.NoError(t, err)

	require.ErrorIs(t, repo.Events().Delete(ctx, created.ID, bob), events.ErrNotFound)
	require.NoError(t, repo.Events().Delete(ctx, created.ID, alice))

	var remaining int
	require.NoError(t, sharedPool.QueryRow(ctx,
		`SELECT (SELECT count(*) FROM rsvps) + (SELECT count(*) FROM reviews)`).Scan(&remaining))
	require.Zero(t, remaining)
}

func TestRSVPRepository_UniquenessAndScoping(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	alice := insertUser(t, ctx, sharedPool, "alice")
	bob := insertUser(t, ctx, sharedPool, "bob")
	event := insertEvent(t, ctx, sharedPool, alice, "Party", true, time.Now().Add(time.Hour))
	other := insertEvent(t, ctx, sharedPool, alice, "Other", true, time.Now().Add(time.Hour))

	created, err := repo.RSVPs().Create(ctx, rsvps.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: bob, Status: rsvps.StatusGoing})
	require.NoError(t, err)
	require.Equal(t, "bob", created.Username)

	_, err = repo.RSVPs().Create(ctx, rsvps.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: bob, Status: rsvps.StatusMaybe})
	require.ErrorIs(t, err, rsvps.ErrAlreadyRSVPd)

	_, err = repo.RSVPs().Create(ctx, rsvps.CreateParams{ID: ulid.Make().String(), EventID: ulid.Make().String(), UserID: bob, Status: rsvps.StatusGoing})
	require.ErrorIs(t, err, rsvps.ErrEventNotFound)

	_, err = repo.RSVPs().GetOwned(ctx, created.ID, event, alice)
	require.ErrorIs(t, err, rsvps.ErrNotFound)
	_, err = repo.RSVPs().GetOwned(ctx, created.ID, other, bob)
	require.ErrorIs(t, err, rsvps.ErrNotFound)

	updated, err := repo.RSVPs().UpdateStatus(ctx, created.ID, rsvps.StatusNotGoing)
	require.NoError(t, err)
	require.Equal(t, rsvps.StatusNotGoing, updated.Status)

	counts, err := repo.Events().RSVPCounts(ctx, []string{event, other})
	require.NoError(t, err)
	require.Equal(t, 1, counts[event])
	require.Zero(t, counts[other])

	require.NoError(t, repo.RSVPs().Delete(ctx, created.ID))
	require.ErrorIs(t, repo.RSVPs().Delete(ctx, created.ID), rsvps.ErrNotFound)
}

func TestRSVPRepository_ConcurrentCreateYieldsOneRow(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	alice := insertUser(t, ctx, sharedPool, "alice")
	event := insertEvent(t, ctx, sharedPool, alice, "Popular", true, time.Now().Add(time.Hour))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RSVPs().Create(ctx, rsvps.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: alice, Status: rsvps.StatusGoing})
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case rsvps.ErrAlreadyRSVPd:
				dupes++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, dupes)
}

func TestReviewRepository_CreateAndList(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	alice := insertUser(t, ctx, sharedPool, "alice")
	bob := insertUser(t, ctx, sharedPool, "bob")
	event := insertEvent(t, ctx, sharedPool, alice, "Gig", false, time.Now().Add(time.Hour))

	_, err := repo.Reviews().Create(ctx, reviews.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: bob, Rating: 5, Comment: "Loved it"})
	require.NoError(t, err)
	_, err = repo.Reviews().Create(ctx, reviews.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: alice, Rating: 3, Comment: "Ok"})
	require.NoError(t, err)

	_, err = repo.Reviews().Create(ctx, reviews.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: bob, Rating: 1, Comment: "Again"})
	require.ErrorIs(t, err, reviews.ErrAlreadyReviewed)

	_, err = repo.Reviews().Create(ctx, reviews.CreateParams{ID: ulid.Make().String(), EventID: ulid.Make().String(), UserID: bob, Rating: 1, Comment: "?"})
	require.ErrorIs(t, err, reviews.ErrEventNotFound)

	items, err := repo.Reviews().ListByEvent(ctx, event)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "bob", items[0].Username)

	empty, err := repo.Reviews().ListByEvent(ctx, ulid.Make().String())
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestRepository_UnknownUserIsUnauthenticated(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	alice := insertUser(t, ctx, sharedPool, "alice")
	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	event := insertEvent(t, ctx, sharedPool, alice, "Meetup", true, start)
	ghost := ulid.Make().String()

	_, err := repo.Events().Create(ctx, events.CreateParams{
		ID:          ulid.Make().String(),
		OrganizerID: ghost,
		Fields: events.Fields{
			Title: "Orphan", Location: "Hall",
			StartTime: start, EndTime: start.Add(time.Hour), IsPublic: true,
		},
	})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = repo.RSVPs().Create(ctx, rsvps.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: ghost, Status: rsvps.StatusGoing})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = repo.Reviews().Create(ctx, reviews.CreateParams{ID: ulid.Make().String(), EventID: event, UserID: ghost, Rating: 3, Comment: "?"})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	var rsvpCount, reviewCount int
	require.NoError(t, sharedPool.QueryRow(ctx, `SELECT count(*) FROM rsvps`).Scan(&rsvpCount))
	require.NoError(t, sharedPool.QueryRow(ctx, `SELECT count(*) FROM reviews`).Scan(&reviewCount))
	require.Zero(t, rsvpCount)
	require.Zero(t, reviewCount)
}

func TestRepository_Ping(t *testing.T) {
	repo := setupPostgres(t)
	require.NoError(t, repo.Ping(context.Background()))
}

func TestMigrationVersion(t *testing.T) {
	setupPostgres(t)

	version, dirty, err := MigrationVersion(sharedDBURL, projectRoot()+"/"+DefaultMigrationsPath)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)
}
