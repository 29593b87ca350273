package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/auth"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
	"github.com/dmitrijs2005/storefront/internal/server/idgen"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/sessions"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// recorder is an events.Publisher that keeps what it was given.
type recorder struct {
	mu         sync.Mutex
	registered []*models.Account
	saved      []int64
	updated    []int64
	deleted    []int64
}

func (r *recorder) AccountRegistered(_ context.Context, a *models.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, a)
}

func (r *recorder) OrderSaved(_ context.Context, o *models.Order, update bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if update {
		r.updated = append(r.updated, o.OrderID)
		return
	}
	r.saved = append(r.saved, o.OrderID)
}

func (r *recorder) OrderDeleted(_ context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
}

func (r *recorder) Close() error { return nil }

// unavailableStore fails every call with common.ErrStoreUnavailable.
type unavailableStore struct {
	docstore.Store
}

var errDown = errors.Join(common.ErrStoreUnavailable, errors.New("connection refused"))

func (unavailableStore) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (unavailableStore) Insert(context.Context, string, []byte, time.Duration) error {
	return errDown
}
func (unavailableStore) Replace(context.Context, string, []byte) error { return errDown }
func (unavailableStore) Remove(context.Context, string) error          { return errDown }
func (unavailableStore) FindByField(context.Context, string, string, string) ([][]byte, error) {
	return nil, errDown
}
func (unavailableStore) FindUserByUsername(context.Context, string) (*models.UserInfo, error) {
	return nil, errDown
}
func (unavailableStore) Increment(context.Context, string, int64, int64) (int64, error) {
	return 0, errDown
}

type fixture struct {
	docs      *docstore.MemoryStore
	events    *recorder
	sessions  *sessions.Store
	tokens    *auth.TokenService
	accounts  *AccountService
	customers *CustomerService
	orders    *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, docstore.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, mem *docstore.MemoryStore) *fixture {
	t.Helper()
	return newFixtureOver(t, mem, mem)
}

// newFixtureOver builds the services over docs; mem stays reachable for
// assertions.
func newFixtureOver(t *testing.T, mem *docstore.MemoryStore, docs docstore.Store) *fixture {
	t.Helper()
	rec := &recorder{}
	ids := idgen.New(docs, "test")
	ss := sessions.New(docs)
	tokens := auth.NewTokenService([]byte("test-secret"))

	accounts, err := NewAccountService(docs, ids, ss, tokens, rec, 15*time.Minute, bcrypt.MinCost, logging.Nop())
	if err != nil {
		t.Fatalf("NewAccountService: %v", err)
	}
	accounts.now = func() time.Time { return testNow }

	customers := NewCustomerService(docs, logging.Nop())
	customers.now = func() time.Time { return testNow }

	orders := NewOrderService(docs, ids, rec, logging.Nop())
	orders.now = func() time.Time { return testNow }

	return &fixture{
		docs:      mem,
		events:    rec,
		sessions:  ss,
		tokens:    tokens,
		accounts:  accounts,
		customers: customers,
		orders:    orders,
	}
}

func (f *fixture) register(t *testing.T, username, password string) *models.Account {
	t.Helper()
	acct, err := f.accounts.Register(context.Background(), RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     username + "@example.com",
		Username:  username,
		Password:  password,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return acct
}
