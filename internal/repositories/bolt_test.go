package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendlink/backend/internal/auth"
	"github.com/friendlink/backend/internal/models"
)

func openTestBolt(t *testing.T) *BoltDB {
	t.Helper()
	store, err := OpenBolt(filepath.Join(t.TempDir(), "friendlink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBoltUserRepository(openTestBolt(t))

	alice := createTestUser(t, repo, "Alice", "alice@example.com")
	bob := createTestUser(t, repo, "Bob", "bob@example.com")
	carol := createTestUser(t, repo, "Carol", "carol@example.com")

	dup := alice
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrConflict)

	byEmail, err := repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, byEmail.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	loaded, err := repo.Load(ctx, alice.ID)
	require.NoError(t, err)
	loaded.Friends = []string{bob.ID}
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.Load(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, reloaded.Friends)
	assert.Equal(t, "password-hash", reloaded.Password)

	assert.ErrorIs(t, repo.Save(ctx, models.User{ID: uuid.NewString()}), ErrNotFound)

	candidates, err := repo.FindExcluding(ctx, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, carol.ID, candidates[0].ID)

	resolved, err := repo.FindByIDs(ctx, []string{carol.ID, uuid.NewString(), alice.ID})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, carol.ID, resolved[0].ID)
	assert.Equal(t, alice.ID, resolved[1].ID)

	exists, err := repo.Exists(ctx, carol.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBoltUserRepositoryEmailChange(t *testing.T) {
	ctx := context.Background()
	repo := NewBoltUserRepository(openTestBolt(t))

	alice := createTestUser(t, repo, "Alice", "alice@example.com")
	createTestUser(t, repo, "Bob", "bob@example.com")

	loaded, err := repo.Load(ctx, alice.ID)
	require.NoError(t, err)

	loaded.Email = "bob@example.com"
	assert.ErrorIs(t, repo.Save(ctx, loaded), ErrConflict)

	loaded.Email = "alice@new.example.com"
	require.NoError(t, repo.Save(ctx, loaded))

	_, err = repo.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	found, err := repo.FindByEmail(ctx, "alice@new.example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
}

func TestBoltUserRepositoryPresenceSurvivesSave(t *testing.T) {
	ctx := context.Background()
	repo := NewBoltUserRepository(openTestBolt(t))
	alice := createTestUser(t, repo, "Alice", "alice@example.com")

	stale, err := repo.Load(ctx, alice.ID)
	require.NoError(t, err)

	require.NoError(t, repo.SetPresence(ctx, alice.ID, true, nil))
	require.NoError(t, repo.Save(ctx, stale))

	loaded, err := repo.Load(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsOnline)

	seen := time.Now().UTC()
	require.NoError(t, repo.SetPresence(ctx, alice.ID, false, &seen))
	loaded, err = repo.Load(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsOnline)
	require.NotNil(t, loaded.LastSeen)
	assert.True(t, loaded.LastSeen.Equal(seen))

	assert.ErrorIs(t, repo.SetPresence(ctx, uuid.NewString(), true, nil), ErrNotFound)
}

func TestBoltNotificationRepository(t *testing.T) {
	ctx := context.Background()
	store := openTestBolt(t)
	users := NewBoltUserRepository(store)
	repo := NewBoltNotificationRepository(store)

	alice := createTestUser(t, users, "Alice", "alice@example.com")
	bob := createTestUser(t, users, "Bob", "bob@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	older := models.Notification{ID: uuid.NewString(), Recipient: alice.ID, Type: models.NotificationFriendRequest, CreatedAt: base}
	newer := models.Notification{ID: uuid.NewString(), Recipient: alice.ID, Type: models.NotificationFriendAccepted, CreatedAt: base.Add(time.Minute)}
	other := models.Notification{ID: uuid.NewString(), Recipient: bob.ID, Type: models.NotificationFriendRequest, CreatedAt: base}

	for _, n := range []models.Notification{older, newer, other} {
		require.NoError(t, repo.Create(ctx, n))
	}
	assert.ErrorIs(t, repo.Create(ctx, older), ErrConflict)
	assert.ErrorIs(t, repo.Create(ctx, models.Notification{ID: uuid.NewString(), Recipient: uuid.NewString()}), ErrNotFound)

	list, err := repo.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	empty, err := repo.ListForUser(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.MarkRead(ctx, older.ID))
	require.NoError(t, repo.MarkRead(ctx, older.ID))
	assert.ErrorIs(t, repo.MarkRead(ctx, uuid.NewString()), ErrNotFound)

	unread, err := repo.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	changed, err := repo.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = repo.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)

	found, err := repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, found.IsRead)
}

func TestBoltNotificationsAreScopedToExactRecipient(t *testing.T) {
	ctx := context.Background()
	store := openTestBolt(t)
	users := NewBoltUserRepository(store)
	repo := NewBoltNotificationRepository(store)

	for _, id := range []string{"a", "a/b", "ab"} {
		require.NoError(t, users.Create(ctx, models.User{ID: id, Name: id, Email: id + "@example.com"}))
		require.NoError(t, repo.Create(ctx, models.Notification{
			ID:        uuid.NewString(),
			Recipient: id,
			Type:      models.NotificationFriendRequest,
			CreatedAt: time.Now().UTC(),
		}))
	}

	for _, id := range []string{"a", "a/b", "ab"} {
		list, err := repo.ListForUser(ctx, id)
		require.NoError(t, err)
		require.Len(t, list, 1, "user %q", id)
		assert.Equal(t, id, list[0].Recipient)

		count, err := repo.CountUnread(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "user %q", id)
	}

	changed, err := repo.MarkAllRead(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	count, err := repo.CountUnread(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBoltSessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewBoltSessionStore(openTestBolt(t))

	session := auth.Session{RefreshToken: "refresh-1", UserID: "user-1", ExpiresAt: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, session))

	taken, err := store.Take(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, taken.UserID)
	assert.True(t, session.ExpiresAt.Equal(taken.ExpiresAt))

	_, err = store.Take(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}
