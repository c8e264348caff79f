package identity_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eddigital/lti-blogs/internal/identity"
)

// fakeUserRepo is an in-memory identity.Repository enforcing the same
// uniqueness rules as the users table.
type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*identity.User
	creates int

	// failNextCreateWith simulates a storage-level unique violation on the
	// next Create call; winnerRow, if set, is inserted at the same moment,
	// standing in for the concurrent launch that won the insert.
	failNextCreateWith error
	winnerRow          *identity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[uuid.UUID]*identity.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failNextCreateWith; err != nil {
		r.failNextCreateWith = nil
		if r.winnerRow != nil {
			r.byID[r.winnerRow.ID] = r.winnerRow
			r.winnerRow = nil
		}
		return err
	}

	for _, existing := range r.byID {
		if existing.Username == u.Username {
			return identity.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return identity.ErrDuplicateEmail
		}
	}

	u.ID = uuid.New()
	clone := *u
	r.byID[u.ID] = &clone
	r.creates++
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, identity.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[u.ID]
	if !ok {
		return identity.ErrUserNotFound
	}
	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	return nil
}

var adaAttrs = identity.Attributes{
	Username:  "s1234567",
	Email:     "ada@example.edu",
	FirstName: "Ada",
	LastName:  "Lovelace",
}

func TestResolveOrCreate_CreatesOnFirstContact(t *testing.T) {
	repo := newFakeUserRepo()
	svc := identity.NewService(repo, bcrypt.MinCost)

	user, err := svc.ResolveOrCreate(context.Background(), adaAttrs)
	require.NoError(t, err)

	assert.Equal(t, "s1234567", user.Username)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "Lovelace", user.LastName)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, 1, repo.creates)

	stored, err := repo.GetByUsername(context.Background(), "s1234567")
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.FirstName, "names must be persisted after create")
}

func TestResolveOrCreate_Idempotent(t *testing.T) {
	repo := newFakeUserRepo()
	svc := identity.NewService(repo, bcrypt.MinCost)
	ctx := context.Background()

	first, err := svc.ResolveOrCreate(ctx, adaAttrs)
	require.NoError(t, err)

	// Second launch with changed names must not touch the stored record.
	changed := adaAttrs
	changed.FirstName = "Augusta"
	changed.Email = "other@example.edu"

	second, err := svc.ResolveOrCreate(ctx, changed)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada", second.FirstName)
	assert.Equal(t, "ada@example.edu", second.Email)
	assert.Equal(t, 1, repo.creates)
}

func TestResolveOrCreate_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := identity.NewService(repo, bcrypt.MinCost)
	ctx := context.Background()

	_, err := svc.ResolveOrCreate(ctx, adaAttrs)
	require.NoError(t, err)

	other := identity.Attributes{
		Username:  "s7654321",
		Email:     "ada@example.edu", // same email, different username
		FirstName: "Not",
		LastName:  "Ada",
	}

	_, err = svc.ResolveOrCreate(ctx, other)
	assert.ErrorIs(t, err, identity.ErrDuplicateEmail)
}

func TestResolveOrCreate_LosingCreateRaceFallsBackToLookup(t *testing.T) {
	repo := newFakeUserRepo()
	svc := identity.NewService(repo, bcrypt.MinCost)
	ctx := context.Background()

	// The first lookup misses, our insert loses the unique constraint to a
	// concurrent launch, and the fallback lookup must return the winner.
	winner := &identity.User{
		ID:        uuid.New(),
		Username:  adaAttrs.Username,
		Email:     adaAttrs.Email,
		FirstName: adaAttrs.FirstName,
		LastName:  adaAttrs.LastName,
	}
	repo.failNextCreateWith = identity.ErrDuplicateUsername
	repo.winnerRow = winner

	user, err := svc.ResolveOrCreate(ctx, adaAttrs)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, user.ID)
	assert.Equal(t, 0, repo.creates)
}

func TestResolveOrCreate_HashedPasswordVerifies(t *testing.T) {
	repo := newFakeUserRepo()
	svc := identity.NewService(repo, bcrypt.MinCost)

	user, err := svc.ResolveOrCreate(context.Background(), adaAttrs)
	require.NoError(t, err)

	// The stored hash is bcrypt, not the raw password.
	assert.True(t, len(user.PasswordHash) > 20)
	assert.NotContains(t, user.PasswordHash, " ")
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("not-the-password"))
	assert.Error(t, err)
}
