package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/tidwall/gjson"
)

type memoryEntry struct {
	body      []byte
	expiresAt time.Time // zero: never
}

// MemoryStore keeps documents in process memory. Expired entries are
// dropped lazily when touched.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]memoryEntry
	counters map[string]int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]memoryEntry),
		counters: make(map[string]int64),
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *MemoryStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.mu.Lock()
		s.now = clock
		s.mu.Unlock()
	}
}

// live returns the entry under key if it exists and has not expired.
// Callers hold s.mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.docs[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.docs, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(e.body), nil
}

func (s *MemoryStore) Insert(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return unavailable("insert", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return common.ErrorAlreadyExists
	}
	s.docs[key] = memoryEntry{body: clone(doc), expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, key string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return unavailable("replace", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return common.ErrorNotFound
	}
	s.docs[key] = memoryEntry{body: clone(doc), expiresAt: e.expiresAt}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("remove", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); !ok {
		return common.ErrorNotFound
	}
	delete(s.docs, key)
	return nil
}

func (s *MemoryStore) GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("touch", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return nil, common.ErrorNotFound
	}
	e.expiresAt = s.expiry(ttl)
	s.docs[key] = e
	return clone(e.body), nil
}

func (s *MemoryStore) Increment(ctx context.Context, counter string, step, initial int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("increment", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.counters[counter]
	if !ok {
		v = initial
	}
	v += step
	s.counters[counter] = v
	return v, nil
}

func (s *MemoryStore) FindByField(ctx context.Context, docType, field, value string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("find", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0)
	for k := range s.docs {
		if e, ok := s.live(k); ok && fieldMatches(e.body, docType, field, value) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(s.docs[k].body))
	}
	return out, nil
}

func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.UserInfo, error) {
	return findUserByUsername(ctx, s, username)
}

func (s *MemoryStore) Ping(ctx context.Context) (*models.Diagnostics, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("ping", err)
	}
	return diagnostics("memory", time.Now()), nil
}

func (s *MemoryStore) Close() error { return nil }

// findUserByUsername resolves the user/customer pair through two field
// lookups, for backends without a native join.
func findUserByUsername(ctx context.Context, s Store, username string) (*models.UserInfo, error) {
	users, err := s.FindByField(ctx, models.TypeUser, "username", username)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, common.ErrorNotFound
	}

	customers, err := s.FindByField(ctx, models.TypeCustomer, "username", username)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, common.ErrorNotFound
	}

	u := gjson.ParseBytes(users[0])
	return &models.UserInfo{
		CustID:       gjson.GetBytes(customers[0], "custId").Int(),
		UserID:       u.Get("userId").Int(),
		Username:     u.Get("username").String(),
		PasswordHash: u.Get("password").String(),
	}, nil
}

