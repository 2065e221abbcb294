package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arjun/nft-marketplace/backend/internal/apperr"
	"github.com/arjun/nft-marketplace/backend/internal/models"
	"github.com/arjun/nft-marketplace/backend/internal/ratelimit"
	"github.com/arjun/nft-marketplace/backend/internal/store"
)

// --- fakes ---

type fakeProfileStore struct {
	accounts map[string]*models.Account // by email
	profiles map[string]*models.Profile // by id
	taken    map[string]bool

	accountErr error
	profileErr error
	upsertErr  error
	updateErr  error

	createAccountCalls int
	upsertCalls        int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		accounts: map[string]*models.Account{},
		profiles: map[string]*models.Profile{},
		taken:    map[string]bool{},
	}
}

func (f *fakeProfileStore) CreateAccount(_ context.Context, email, hash string) (*models.Account, error) {
	f.createAccountCalls++
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	if _, ok := f.accounts[email]; ok {
		return nil, store.ErrDuplicate
	}
	a := &models.Account{ID: "id-" + email, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	f.accounts[email] = a
	return a, nil
}

func (f *fakeProfileStore) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	a, ok := f.accounts[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeProfileStore) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	return f.taken[username], nil
}

func (f *fakeProfileStore) UpsertProfile(_ context.Context, id, email, username string) (*models.Profile, error) {
	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if p, ok := f.profiles[id]; ok {
		p.Email = email
		return p, nil
	}
	if f.taken[username] {
		return nil, store.ErrDuplicate
	}
	p := &models.Profile{ID: id, Email: email, Username: username, CreatedAt: time.Now()}
	f.profiles[id] = p
	f.taken[username] = true
	return p, nil
}

func (f *fakeProfileStore) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Username != nil {
		p.Username = *upd.Username
	}
	if upd.WalletAddress != nil {
		p.WalletAddress = *upd.WalletAddress
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	return p, nil
}

func (f *fakeProfileStore) IsAdmin(_ context.Context, id string) (bool, error) {
	if f.profileErr != nil {
		return false, f.profileErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return false, nil
	}
	return p.IsAdmin, nil
}

type fakeSessions struct {
	sessions  map[string]models.Session
	createErr error
	deleteErr error
	next      int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]models.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, sess models.Session) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.next++
	sid := "sid-" + sess.UserID
	f.sessions[sid] = sess
	return sid, nil
}

func (f *fakeSessions) Get(_ context.Context, sid string) (*models.Session, error) {
	sess, ok := f.sessions[sid]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (f *fakeSessions) Refresh(_ context.Context, sid string) error { return nil }

func (f *fakeSessions) Delete(_ context.Context, sid string) error {
	delete(f.sessions, sid)
	return f.deleteErr
}

func newTestService(t *testing.T, ps *fakeProfileStore, ss *fakeSessions) *Service {
	t.Helper()
	limiter := ratelimit.New(5, 15*time.Minute)
	return NewService(ps, ss, limiter, slog.New(slog.DiscardHandler))
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- tests ---

func TestSignUp_WeakPasswordFailsBeforeStore(t *testing.T) {
	ps := newFakeProfileStore()
	svc := newTestService(t, ps, newFakeSessions())

	_, _, err := svc.SignUp(context.Background(), "a@b.com", "weak", "alice")

	var valErr *apperr.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.NotEmpty(t, valErr.Fields)
	assert.Zero(t, ps.createAccountCalls, "no store call on validation failure")
}

func TestSignUp_CreatesAccountProfileAndSession(t *testing.T) {
	ps := newFakeProfileStore()
	ss := newFakeSessions()
	svc := newTestService(t, ps, ss)

	sid, profile, err := svc.SignUp(context.Background(), "a@b.com", "Str0ngPass", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Len(t, ss.sessions, 1)
}

func TestSignUp_TakenUsernameConflicts(t *testing.T) {
	ps := newFakeProfileStore()
	ps.taken["alice"] = true
	svc := newTestService(t, ps, newFakeSessions())

	_, _, err := svc.SignUp(context.Background(), "a@b.com", "Str0ngPass", "alice")

	var confErr *apperr.ConflictError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "username", confErr.Resource)
	assert.Zero(t, ps.createAccountCalls)
}

func TestSignUp_ProfileFailureDoesNotFailSignup(t *testing.T) {
	ps := newFakeProfileStore()
	ps.upsertErr = errors.New("rls denied")
	ss := newFakeSessions()
	svc := newTestService(t, ps, ss)

	sid, profile, err := svc.SignUp(context.Background(), "a@b.com", "Str0ngPass", "alice")
	require.NoError(t, err, "account exists even if the profile lags")
	assert.NotEmpty(t, sid)
	assert.Nil(t, profile)
}

func TestSignIn_WrongPassword(t *testing.T) {
	ps := newFakeProfileStore()
	ps.accounts["a@b.com"] = &models.Account{
		ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "Str0ngPass"),
	}
	svc := newTestService(t, ps, newFakeSessions())

	_, _, err := svc.SignIn(context.Background(), "a@b.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.SignIn(context.Background(), "missing@b.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email reads the same as wrong password")
}

func TestSignIn_RateLimited(t *testing.T) {
	ps := newFakeProfileStore()
	svc := newTestService(t, ps, newFakeSessions())

	for i := 0; i < 5; i++ {
		_, _, err := svc.SignIn(context.Background(), "a@b.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err := svc.SignIn(context.Background(), "a@b.com", "nope")
	var rateErr *apperr.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Greater(t, rateErr.RetryAfter, time.Duration(0))

	// Other identities are unaffected.
	_, _, err = svc.SignIn(context.Background(), "c@d.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_InvalidEmailShape(t *testing.T) {
	svc := newTestService(t, newFakeProfileStore(), newFakeSessions())

	_, _, err := svc.SignIn(context.Background(), "<script>x</script>@b.com", "")
	var valErr *apperr.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Fields, 2, "both email and password violations reported")
}

func TestSignIn_LoadsProfile(t *testing.T) {
	ps := newFakeProfileStore()
	ps.accounts["a@b.com"] = &models.Account{
		ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "Str0ngPass"),
	}
	ps.profiles["u1"] = &models.Profile{ID: "u1", Username: "alice"}
	svc := newTestService(t, ps, newFakeSessions())

	_, profile, err := svc.SignIn(context.Background(), "a@b.com", "Str0ngPass")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
}

func TestLoadProfile_IdempotentWhenPresent(t *testing.T) {
	ps := newFakeProfileStore()
	ps.profiles["u1"] = &models.Profile{ID: "u1", Username: "alice"}
	svc := newTestService(t, ps, newFakeSessions())
	sess := models.Session{UserID: "u1", Email: "a@b.com"}

	p1 := svc.LoadProfile(context.Background(), sess)
	p2 := svc.LoadProfile(context.Background(), sess)

	require.NotNil(t, p1)
	require.NotNil(t, p2)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Zero(t, ps.upsertCalls, "no creation attempted when the row exists")
}

func TestLoadProfile_SelfHealsMissingRow(t *testing.T) {
	ps := newFakeProfileStore()
	svc := newTestService(t, ps, newFakeSessions())

	p := svc.LoadProfile(context.Background(), models.Session{UserID: "u1", Email: "alice@b.com"})
	require.NotNil(t, p)
	assert.Equal(t, "alice", p.Username, "username seeded from the email local part")
	assert.Equal(t, 1, ps.upsertCalls)
}

func TestLoadProfile_SeedConflictFallsBackToSuffix(t *testing.T) {
	ps := newFakeProfileStore()
	ps.taken["alice"] = true
	svc := newTestService(t, ps, newFakeSessions())

	p := svc.LoadProfile(context.Background(), models.Session{UserID: "u1-2345678", Email: "alice@b.com"})
	require.NotNil(t, p)
	assert.NotEqual(t, "alice", p.Username)
	assert.Contains(t, p.Username, "alice_")
}

func TestLoadProfile_NeverPanicsOnStoreFailure(t *testing.T) {
	ps := newFakeProfileStore()
	ps.profileErr = errors.New("connection refused")
	svc := newTestService(t, ps, newFakeSessions())

	p := svc.LoadProfile(context.Background(), models.Session{UserID: "u1", Email: "a@b.com"})
	assert.Nil(t, p, "errors are swallowed, caller renders recovery affordance")
}

func TestSignOut_SwallowsStoreError(t *testing.T) {
	ss := newFakeSessions()
	ss.sessions["sid-1"] = models.Session{UserID: "u1"}
	ss.deleteErr = errors.New("redis down")
	svc := newTestService(t, newFakeProfileStore(), ss)

	svc.SignOut(context.Background(), "sid-1") // must not panic or propagate
}

func TestUpdateProfile_Propagates(t *testing.T) {
	ps := newFakeProfileStore()
	ps.profiles["u1"] = &models.Profile{ID: "u1", Username: "alice"}
	ps.updateErr = errors.New("check violation")
	svc := newTestService(t, ps, newFakeSessions())

	_, err := svc.UpdateProfile(context.Background(), models.Session{UserID: "u1"}, models.ProfileUpdate{})
	var stErr *apperr.StoreError
	assert.ErrorAs(t, err, &stErr, "updateProfile is the one path that propagates")
}

func TestUpdateProfile_ValidatesUsername(t *testing.T) {
	svc := newTestService(t, newFakeProfileStore(), newFakeSessions())

	bad := "<script>x</script>"
	_, err := svc.UpdateProfile(context.Background(), models.Session{UserID: "u1"}, models.ProfileUpdate{Username: &bad})
	var valErr *apperr.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestRefreshSession(t *testing.T) {
	ps := newFakeProfileStore()
	ps.profiles["u1"] = &models.Profile{ID: "u1", Username: "alice"}
	ss := newFakeSessions()
	ss.sessions["sid-1"] = models.Session{UserID: "u1", Email: "a@b.com"}
	svc := newTestService(t, ps, ss)

	sess, profile, err := svc.RefreshSession(context.Background(), "sid-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u1", sess.UserID)
	require.NotNil(t, profile)

	sess, profile, err = svc.RefreshSession(context.Background(), "expired")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, profile)
}
