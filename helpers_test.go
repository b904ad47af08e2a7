package tokenAuth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testEmail    = "alice@example.com"
	testPassword = "correct-password-123"
)

var testEpoch = time.Unix(1_700_000_000, 0)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testEpoch} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeUsers struct {
	mu        sync.Mutex
	byEmail   map[string]UserRecord
	nextID    int64
	findCalls int
	findErr   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]UserRecord{}, nextID: 1}
}

func (f *fakeUsers) add(email, hash string, role Role) UserRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := UserRecord{MemberID: f.nextID, Email: email, PasswordHash: hash, Role: role}
	f.nextID++
	f.byEmail[strings.ToLower(email)] = rec
	return rec
}

func (f *fakeUsers) setRole(email string, role Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.byEmail[strings.ToLower(email)]
	rec.Role = role
	f.byEmail[strings.ToLower(email)] = rec
}

func (f *fakeUsers) remove(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byEmail, strings.ToLower(email))
}

func (f *fakeUsers) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (UserRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return UserRecord{}, false, f.findErr
	}
	rec, ok := f.byEmail[strings.ToLower(email)]
	return rec, ok, nil
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byEmail[strings.ToLower(email)]
	return ok, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(in.Email)
	if _, ok := f.byEmail[key]; ok {
		return UserRecord{}, ErrAccountExists
	}
	rec := UserRecord{MemberID: f.nextID, Email: in.Email, Nickname: in.Nickname, PasswordHash: in.PasswordHash, Role: in.Role}
	f.nextID++
	f.byEmail[key] = rec
	return rec, nil
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestHasher(t testing.TB) *password.Argon2 {
	t.Helper()

	h, err := password.NewArgon2(password.Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)
	return cfg
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	users  *fakeUsers
	clock  *testClock
	member UserRecord
}

// newTestEnv builds an engine with one ROLE_USER account for testEmail/testPassword.
func newTestEnv(t testing.TB, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	hasher := newTestHasher(t)
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	users := newFakeUsers()
	member := users.add(testEmail, hash, RoleUser)
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithPasswordHasher(hasher).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, rdb: rdb, users: users, clock: clock, member: member}
}

func (env *testEnv) login(t testing.TB) TokenSet {
	t.Helper()
	ts, err := env.engine.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return ts
}

func (env *testEnv) storedRefresh(t *testing.T) (string, bool) {
	t.Helper()
	if !env.mr.Exists("RT:" + testEmail) {
		return "", false
	}
	v, err := env.mr.Get("RT:" + testEmail)
	if err != nil {
		t.Fatalf("read RT record: %v", err)
	}
	return v, true
}
