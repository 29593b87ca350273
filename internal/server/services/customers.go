package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

// addressRoot is the document path of the customer's address map.
const addressRoot = "address"

// AddressRequest saves or updates customer addresses.
//
// Path "address" takes a map of label to address in Address. Path
// "address.<label>" takes a single address. Saving rejects labels already in
// use; updating requires them to exist.
type AddressRequest struct {
	CustID  int64
	Path    string
	Address json.RawMessage
	Update  bool
}

type CustomerService struct {
	docs docstore.Store
	now  func() time.Time
	log  logging.Logger
}

func NewCustomerService(docs docstore.Store, log logging.Logger) *CustomerService {
	return &CustomerService{docs: docs, now: time.Now, log: log.With("module", "customers")}
}

// GetCustomer returns the customer document or common.ErrorNotFound.
func (s *CustomerService) GetCustomer(ctx context.Context, custID int64) (*models.Customer, error) {
	return getCustomer(ctx, s.docs, custID)
}

// SaveOrUpdateAddress applies req to the customer's address map.
func (s *CustomerService) SaveOrUpdateAddress(ctx context.Context, req AddressRequest) error {
	entries, err := parseAddresses(req.Path, req.Address)
	if err != nil {
		return err
	}

	customer, err := getCustomer(ctx, s.docs, req.CustID)
	if err != nil {
		return err
	}
	if customer.Address == nil {
		customer.Address = map[string]models.Address{}
	}

	for _, label := range sortedLabels(entries) {
		_, exists := customer.Address[label]
		switch {
		case req.Update && !exists:
			return fmt.Errorf("%w: address %q", common.ErrorNotFound, label)
		case !req.Update && exists:
			return fmt.Errorf("%w: address %q", common.ErrorAlreadyExists, label)
		}
		customer.Address[label] = entries[label]
	}

	customer.Doc.Modified = s.now().Unix()
	customer.Doc.ModifiedBy = req.CustID

	doc, err := json.Marshal(customer)
	if err != nil {
		return fmt.Errorf("%w: encode customer: %w", common.ErrorInternal, err)
	}
	if err := s.docs.Replace(ctx, customer.ID, doc); err != nil {
		return err
	}
	s.log.Info(ctx, "customer addresses changed", "cust_id", req.CustID, "update", req.Update, "count", len(entries))
	return nil
}

// parseAddresses normalizes the request body into label -> address.
func parseAddresses(path string, raw json.RawMessage) (map[string]models.Address, error) {
	path = strings.TrimSuffix(strings.TrimSpace(path), ".")
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no address", common.ErrorValidation)
	}

	if path == addressRoot {
		entries := map[string]models.Address{}
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("%w: address map: %w", common.ErrorValidation, err)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: no address", common.ErrorValidation)
		}
		for label := range entries {
			if strings.TrimSpace(label) == "" || strings.Contains(label, ".") {
				return nil, fmt.Errorf("%w: bad address label %q", common.ErrorValidation, label)
			}
		}
		return entries, nil
	}

	label, ok := strings.CutPrefix(path, addressRoot+".")
	if !ok || label == "" || strings.Contains(label, ".") {
		return nil, fmt.Errorf("%w: bad document path %q", common.ErrorValidation, path)
	}
	var addr models.Address
	if err := json.Unmarshal(raw, &addr); err != nil {
		return nil, fmt.Errorf("%w: address: %w", common.ErrorValidation, err)
	}
	return map[string]models.Address{label: addr}, nil
}

func sortedLabels(m map[string]models.Address) []string {
	labels := make([]string, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func getCustomer(ctx context.Context, docs docstore.Store, custID int64) (*models.Customer, error) {
	key := docstore.CustomerKey(custID)
	doc, err := docs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	customer := &models.Customer{}
	if err := json.Unmarshal(doc, customer); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", common.ErrorInternal, key, err)
	}
	return customer, nil
}
