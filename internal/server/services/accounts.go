// Package services contains the storefront's business logic: accounts and
// sessions, customer profiles and orders. Services speak in models and the
// sentinel errors of the common package; rendering is left to transport.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
	"github.com/dmitrijs2005/storefront/internal/server/events"
	"github.com/dmitrijs2005/storefront/internal/server/idgen"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

const customerSchema = "1.0.0"

type IDGenerator interface {
	Next(ctx context.Context, class idgen.Class) (int64, error)
}

type SessionStore interface {
	Create(ctx context.Context, username string, ttl time.Duration) (*models.Session, error)
	Remove(ctx context.Context, sessionID string) (bool, error)
}

type TokenIssuer interface {
	Issue(sessionID string) (string, error)
}

// RegisterRequest carries the fields of a new customer/user pair.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// AccountService registers customers and manages their login sessions.
type AccountService struct {
	docs       docstore.Store
	ids        IDGenerator
	sessions   SessionStore
	tokens     TokenIssuer
	events     events.Publisher
	sessionTTL time.Duration
	bcryptCost int
	// dummyHash is compared against when the username is unknown, so a miss
	// costs as much as a wrong password.
	dummyHash []byte
	now       func() time.Time
	log       logging.Logger
}

func NewAccountService(docs docstore.Store, ids IDGenerator, sessions SessionStore, tokens TokenIssuer,
	pub events.Publisher, sessionTTL time.Duration, bcryptCost int, log logging.Logger) (*AccountService, error) {

	dummy, err := bcrypt.GenerateFromPassword([]byte("storefront"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}
	return &AccountService{
		docs:       docs,
		ids:        ids,
		sessions:   sessions,
		tokens:     tokens,
		events:     pub,
		sessionTTL: sessionTTL,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		now:        time.Now,
		log:        log.With("module", "accounts"),
	}, nil
}

func (r RegisterRequest) validate() error {
	fields := []struct{ name, value string }{
		{"firstName", r.FirstName},
		{"lastName", r.LastName},
		{"email", r.Email},
		{"username", r.Username},
		{"password", r.Password},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrorValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Register reserves the username, then writes a customer document and a
// user document. The writes are not atomic: on failure the documents written
// so far, reservation included, are removed again.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	taken, err := s.docs.FindByField(ctx, models.TypeUser, "username", req.Username)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, fmt.Errorf("%w: username %q", common.ErrorAlreadyExists, req.Username)
	}

	reservation := docstore.UsernameKey(req.Username)
	err = s.insert(ctx, reservation, usernameDoc{DocType: models.TypeUsername, Username: req.Username})
	if errors.Is(err, common.ErrorAlreadyExists) {
		return nil, fmt.Errorf("%w: username %q", common.ErrorAlreadyExists, req.Username)
	}
	if err != nil {
		return nil, err
	}

	acct, err := s.createAccount(ctx, req)
	if err != nil {
		s.remove(ctx, reservation)
		return nil, err
	}

	s.events.AccountRegistered(ctx, acct)
	s.log.Info(ctx, "registered account", "cust_id", acct.CustomerInfo.CustID, "user_id", acct.UserInfo.UserID)
	return acct, nil
}

// usernameDoc holds a username for the account that registered it.
type usernameDoc struct {
	DocType  string `json:"docType"`
	Username string `json:"username"`
}

func (s *AccountService) createAccount(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}

	custID, err := s.ids.Next(ctx, idgen.Customer)
	if err != nil {
		return nil, err
	}

	now := s.now()
	customer := &models.Customer{
		Doc: models.DocMeta{
			Type:      models.TypeCustomer,
			Schema:    customerSchema,
			Created:   now.Unix(),
			CreatedBy: custID,
		},
		ID:        docstore.CustomerKey(custID),
		CustID:    custID,
		CustName:  models.CustName{FirstName: req.FirstName, LastName: req.LastName},
		Username:  req.Username,
		Email:     req.Email,
		CreatedOn: now.Format("2006-1-2"),
		Address:   map[string]models.Address{},
	}
	if err := s.insert(ctx, customer.ID, customer); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, req.Username, string(hash))
	if err != nil {
		s.remove(ctx, customer.ID)
		return nil, err
	}
	user.Password = ""

	return &models.Account{CustomerInfo: customer, UserInfo: user}, nil
}

// remove drops a document left behind by a failed registration.
func (s *AccountService) remove(ctx context.Context, key string) {
	if err := s.docs.Remove(ctx, key); err != nil {
		s.log.Error(ctx, "failed to remove orphaned document", "key", key, "error", err)
	}
}

func (s *AccountService) createUser(ctx context.Context, username, hash string) (*models.User, error) {
	userID, err := s.ids.Next(ctx, idgen.User)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		DocType:  models.TypeUser,
		ID:       docstore.UserKey(userID),
		UserID:   userID,
		Username: username,
		Password: hash,
	}
	if err := s.insert(ctx, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) insert(ctx context.Context, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", common.ErrorInternal, key, err)
	}
	return s.docs.Insert(ctx, key, doc, 0)
}

// Login checks the credentials, opens a session and returns its token with
// the customer profile. Unknown users and wrong passwords are both
// common.ErrorUnauthorized.
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.Login, error) {
	info, err := s.docs.FindUserByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(info.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrorUnauthorized
	}

	customer, err := s.customer(ctx, info.CustID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, info.Username, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %w", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "user logged in", "user_id", info.UserID)
	return &models.Login{
		UserInfo:     models.LoginUser{UserID: info.UserID, Username: info.Username, Token: token},
		CustomerInfo: customer,
	}, nil
}

// CurrentUser resolves the user of an already verified session. The token
// is passed through to the result.
func (s *AccountService) CurrentUser(ctx context.Context, username, token string) (*models.Login, error) {
	info, err := s.docs.FindUserByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}

	customer, err := s.customer(ctx, info.CustID)
	if err != nil {
		return nil, err
	}
	return &models.Login{
		UserInfo:     models.LoginUser{UserID: info.UserID, Username: info.Username, Token: token},
		CustomerInfo: customer,
	}, nil
}

// Logout removes the session. It reports false when the session was
// already gone.
func (s *AccountService) Logout(ctx context.Context, sessionID string) (bool, error) {
	return s.sessions.Remove(ctx, sessionID)
}

// customer loads the profile correlated with a user. A user without one is
// unauthorized and an integrity error at the same time.
func (s *AccountService) customer(ctx context.Context, custID int64) (*models.Customer, error) {
	customer, err := getCustomer(ctx, s.docs, custID)
	if errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "user without customer document", "cust_id", custID)
		return nil, fmt.Errorf("%w: %w: customer %d", common.ErrorUnauthorized, common.ErrIntegrity, custID)
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}
