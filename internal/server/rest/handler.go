// Package rest exposes the storefront API over HTTP with gin.
//
// Every response uses the Response envelope. Protected endpoints sit behind
// the auth gate, which never rejects on its own; handlers call authorize
// first and answer 401 or 500 from the gate's outcome.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/services"
	"github.com/gin-gonic/gin"
)

type Accounts interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, username, password string) (*models.Login, error)
	CurrentUser(ctx context.Context, username, token string) (*models.Login, error)
	Logout(ctx context.Context, sessionID string) (bool, error)
}

type Customers interface {
	GetCustomer(ctx context.Context, custID int64) (*models.Customer, error)
	SaveOrUpdateAddress(ctx context.Context, req services.AddressRequest) error
}

type Orders interface {
	GetOrders(ctx context.Context, custID int64) ([]*models.Order, error)
	GetNewOrder(ctx context.Context, custID int64) ([]*models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	ReplaceOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

type Pinger interface {
	Ping(ctx context.Context) (*models.Diagnostics, error)
}

type Handler struct {
	accounts  Accounts
	customers Customers
	orders    Orders
	store     Pinger
	log       logging.Logger
}

func NewHandler(accounts Accounts, customers Customers, orders Orders, store Pinger, log logging.Logger) *Handler {
	return &Handler{
		accounts:  accounts,
		customers: customers,
		orders:    orders,
		store:     store,
		log:       log.With("module", "rest"),
	}
}

// clientRequestID is the optional requestId a client sends for its own log
// correlation. It accepts a JSON number or a numeric string.
type clientRequestID int64

func (id *clientRequestID) UnmarshalJSON(b []byte) error {
	*id = clientRequestID(common.ParseClientRequestID(strings.Trim(string(b), `"`)))
	return nil
}

func queryRequestID(c *gin.Context) int64 {
	return common.ParseClientRequestID(c.Query("requestId"))
}

// bindBody decodes a JSON body into v. A missing or malformed body leaves v
// as it was, so the handler's field checks report what is missing.
func (h *Handler) bindBody(c *gin.Context, v any) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return
	}
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil {
		h.log.Debug(c.Request.Context(), "ignoring undecodable body", "path", c.Request.URL.Path, "error", err)
	}
}

// present reports whether a raw JSON value carries something other than null.
func present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// parseCustomerID validates a customer id from a query string or body. It
// answers the request itself when the id is missing or not a number.
func parseCustomerID(c *gin.Context, reqID int64, raw string) (int64, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" {
		invalid(c, reqID, "No customerId provided.")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		invalid(c, reqID, "Invalid customerId provided.")
		return 0, false
	}
	return id, true
}

func parseOrderID(c *gin.Context, reqID int64) (int64, bool) {
	raw := c.Query("orderId")
	if strings.TrimSpace(raw) == "" {
		invalid(c, reqID, "No orderId provided.")
		return 0, false
	}
	id, err := docstore.ParseOrderID(raw)
	if err != nil {
		invalid(c, reqID, "Invalid orderId provided.")
		return 0, false
	}
	return id, true
}

// Healthz is a liveness probe; it does not touch the store.
func (h *Handler) Healthz(c *gin.Context) {
	ok(c, queryRequestID(c), gin.H{"status": "ok"}, "OK", nil)
}

// Ping reports document store diagnostics.
func (h *Handler) Ping(c *gin.Context) {
	h.ping(c, queryRequestID(c), nil)
}

func (h *Handler) AuthorizedPing(c *gin.Context) {
	reqID := queryRequestID(c)
	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	h.ping(c, reqID, flag(true))
}

func (h *Handler) ping(c *gin.Context, reqID int64, authorized *bool) {
	diag, err := h.store.Ping(c.Request.Context())
	if err != nil {
		failed(c, reqID, "Error trying to ping database.", err, authorized)
		return
	}
	ok(c, reqID, diag, "Successfully pinged database.", authorized)
}

type registerBody struct {
	services.RegisterRequest
	RequestID clientRequestID `json:"requestId"`
}

func (h *Handler) Register(c *gin.Context) {
	body := registerBody{RequestID: clientRequestID(common.DefaultClientRequestID)}
	h.bindBody(c, &body)
	reqID := int64(body.RequestID)

	acct, err := h.accounts.Register(c.Request.Context(), body.RegisterRequest)
	if err != nil {
		failed(c, reqID, "Error registering customer/user.", err, nil)
		return
	}
	ok(c, reqID, acct, "Successfully registered customer/user.", nil)
}

type loginBody struct {
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	RequestID clientRequestID `json:"requestId"`
}

func (h *Handler) Login(c *gin.Context) {
	body := loginBody{RequestID: clientRequestID(common.DefaultClientRequestID)}
	h.bindBody(c, &body)
	h.login(c, int64(body.RequestID), body.Username, body.Password)
}

// TestLogin logs in with credentials from the query string.
func (h *Handler) TestLogin(c *gin.Context) {
	h.login(c, queryRequestID(c), c.Query("username"), c.Query("password"))
}

func (h *Handler) login(c *gin.Context, reqID int64, username, password string) {
	if username == "" || password == "" {
		respond(c, http.StatusInternalServerError, Response{
			Message:   "No username and/or password provided.",
			RequestID: reqID,
		})
		return
	}

	login, err := h.accounts.Login(c.Request.Context(), username, password)
	switch {
	case errors.Is(err, common.ErrIntegrity):
		failed(c, reqID, "Invalid user.  Check username", err, nil)
	case errors.Is(err, common.ErrorUnauthorized):
		respond(c, http.StatusUnauthorized, Response{
			Message:    "Invalid user.  Check username and password.",
			Authorized: flag(false),
			RequestID:  reqID,
		})
	case err != nil:
		failed(c, reqID, "Error attempting to login user.", err, nil)
	default:
		ok(c, reqID, login, "Successfully logged in (session created).", flag(true))
	}
}

// VerifyUserSession returns the user behind the bearer token. Reaching it
// has already slid the session's expiry.
func (h *Handler) VerifyUserSession(c *gin.Context) {
	reqID := queryRequestID(c)
	outcome, authorized := authorize(c, reqID)
	if !authorized {
		return
	}

	login, err := h.accounts.CurrentUser(c.Request.Context(), outcome.Session.Username, outcome.Token)
	if errors.Is(err, common.ErrorUnauthorized) && !errors.Is(err, common.ErrIntegrity) {
		respond(c, http.StatusUnauthorized, Response{
			Message:    "Invalid user.  Check username and password.",
			Authorized: flag(false),
			RequestID:  reqID,
		})
		return
	}
	if err != nil {
		failed(c, reqID, "Error trying to verify user session.", err, nil)
		return
	}
	ok(c, reqID, login, "Successfully verified and extended session.", flag(true))
}

type logoutBody struct {
	RequestID clientRequestID `json:"requestId"`
}

func (h *Handler) Logout(c *gin.Context) {
	body := logoutBody{RequestID: clientRequestID(common.DefaultClientRequestID)}
	h.bindBody(c, &body)
	reqID := int64(body.RequestID)
	outcome, authorized := authorize(c, reqID)
	if !authorized {
		return
	}

	removed, err := h.accounts.Logout(c.Request.Context(), outcome.Session.SessionID)
	if err != nil {
		failed(c, reqID, "Error removing session.", err, flag(true))
		return
	}
	message := "Successfully logged out (session removed)."
	if !removed {
		message = "Session already removed."
	}
	ok(c, reqID, removed, message, flag(true))
}

func (h *Handler) GetCustomer(c *gin.Context) {
	reqID := queryRequestID(c)
	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	custID, valid := parseCustomerID(c, reqID, c.Query("customerId"))
	if !valid {
		return
	}

	customer, err := h.customers.GetCustomer(c.Request.Context(), custID)
	if err != nil {
		failed(c, reqID, "Error retrieving customer.", err, flag(true))
		return
	}
	ok(c, reqID, customer, "Successfully retrieved customer.", flag(true))
}

func (h *Handler) GetCustomerOrders(c *gin.Context) {
	reqID := queryRequestID(c)
	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	custID, valid := parseCustomerID(c, reqID, c.Query("customerId"))
	if !valid {
		return
	}

	orders, err := h.orders.GetOrders(c.Request.Context(), custID)
	if err != nil {
		failed(c, reqID, "Error retrieving orders.", err, flag(true))
		return
	}
	ok(c, reqID, orders, "Successfully retrieved orders.", flag(true))
}

func (h *Handler) GetNewOrder(c *gin.Context) {
	reqID := queryRequestID(c)
	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	custID, valid := parseCustomerID(c, reqID, c.Query("customerId"))
	if !valid {
		return
	}

	orders, err := h.orders.GetNewOrder(c.Request.Context(), custID)
	if err != nil {
		failed(c, reqID, "Error retrieving new/pending order.", err, flag(true))
		return
	}
	ok(c, reqID, orders, "Successfully retrieved new/pending order.", flag(true))
}

func (h *Handler) GetOrder(c *gin.Context) {
	reqID := queryRequestID(c)
	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	orderID, valid := parseOrderID(c, reqID)
	if !valid {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		failed(c, reqID, "Error retrieving order.", err, flag(true))
		return
	}
	ok(c, reqID, order, "Successfully retrieved order.", flag(true))
}

type orderBody struct {
	Order     *models.Order   `json:"order"`
	Update    bool            `json:"update"`
	RequestID clientRequestID `json:"requestId"`
}

func (h *Handler) SaveOrUpdateOrder(c *gin.Context) {
	body := orderBody{RequestID: clientRequestID(common.DefaultClientRequestID)}
	h.bindBody(c, &body)
	reqID := int64(body.RequestID)

	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	if body.Order == nil {
		invalid(c, reqID, "No order provided.")
		return
	}

	ctx := c.Request.Context()
	if body.Update {
		if err := h.orders.ReplaceOrder(ctx, body.Order); err != nil {
			failed(c, reqID, "Error updating order.", err, flag(true))
			return
		}
		ok(c, reqID, true, "Successfully updated order.", flag(true))
		return
	}

	saved, err := h.orders.SaveOrder(ctx, body.Order)
	if err != nil {
		failed(c, reqID, "Error saving order.", err, flag(true))
		return
	}
	ok(c, reqID, saved, "Successfully saved order.", flag(true))
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	reqID := queryRequestID(c)
	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	orderID, valid := parseOrderID(c, reqID)
	if !valid {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		failed(c, reqID, "Error deleting order.", err, flag(true))
		return
	}
	ok(c, reqID, true, "Successfully deleted order.", flag(true))
}

type addressBody struct {
	CustomerID json.RawMessage `json:"customerId"`
	Address    json.RawMessage `json:"address"`
	Path       string          `json:"path"`
	Update     bool            `json:"update"`
	RequestID  clientRequestID `json:"requestId"`
}

func (h *Handler) SaveOrUpdateAddress(c *gin.Context) {
	body := addressBody{RequestID: clientRequestID(common.DefaultClientRequestID)}
	h.bindBody(c, &body)
	reqID := int64(body.RequestID)

	if _, authorized := authorize(c, reqID); !authorized {
		return
	}
	var rawID string
	if present(body.CustomerID) {
		rawID = string(body.CustomerID)
	}
	custID, valid := parseCustomerID(c, reqID, rawID)
	if !valid {
		return
	}
	if !present(body.Address) {
		invalid(c, reqID, "No address provided.")
		return
	}
	if strings.TrimSpace(body.Path) == "" {
		invalid(c, reqID, "No document path provided.")
		return
	}

	err := h.customers.SaveOrUpdateAddress(c.Request.Context(), services.AddressRequest{
		CustID:  custID,
		Path:    body.Path,
		Address: body.Address,
		Update:  body.Update,
	})
	if err != nil {
		message := "Error saving address."
		if body.Update {
			message = "Error updating address."
		}
		failed(c, reqID, message, err, flag(true))
		return
	}

	message := "Successfully saved address."
	if body.Update {
		message = "Successfully updated address."
	}
	ok(c, reqID, true, message, flag(true))
}
