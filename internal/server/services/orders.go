package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
	"github.com/dmitrijs2005/storefront/internal/server/events"
	"github.com/dmitrijs2005/storefront/internal/server/idgen"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

type OrderService struct {
	docs   docstore.Store
	ids    IDGenerator
	events events.Publisher
	now    func() time.Time
	log    logging.Logger
}

func NewOrderService(docs docstore.Store, ids IDGenerator, pub events.Publisher, log logging.Logger) *OrderService {
	return &OrderService{docs: docs, ids: ids, events: pub, now: time.Now, log: log.With("module", "orders")}
}

// GetOrders returns the customer's placed orders, i.e. everything but the
// open cart, oldest first.
func (s *OrderService) GetOrders(ctx context.Context, custID int64) ([]*models.Order, error) {
	return s.find(ctx, custID, func(o *models.Order) bool { return o.OrderStatus != models.StatusCreated })
}

// GetNewOrder returns the customer's open cart as a list of at most one
// order, the most recent one in status "created".
func (s *OrderService) GetNewOrder(ctx context.Context, custID int64) ([]*models.Order, error) {
	open, err := s.find(ctx, custID, func(o *models.Order) bool { return o.OrderStatus == models.StatusCreated })
	if err != nil {
		return nil, err
	}
	if len(open) > 1 {
		open = open[len(open)-1:]
	}
	return open, nil
}

func (s *OrderService) find(ctx context.Context, custID int64, keep func(*models.Order) bool) ([]*models.Order, error) {
	docs, err := s.docs.FindByField(ctx, models.TypeOrder, "custId", strconv.FormatInt(custID, 10))
	if err != nil {
		return nil, err
	}
	orders := make([]*models.Order, 0, len(docs))
	for _, doc := range docs {
		order := &models.Order{}
		if err := json.Unmarshal(doc, order); err != nil {
			s.log.Warn(ctx, "skipping undecodable order", "cust_id", custID, "error", err)
			continue
		}
		if keep(order) {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })
	return orders, nil
}

// GetOrder returns the order or common.ErrorNotFound.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	key := docstore.OrderKey(orderID)
	doc, err := s.docs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	order := &models.Order{}
	if err := json.Unmarshal(doc, order); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", common.ErrorInternal, key, err)
	}
	return order, nil
}

// SaveOrder stores order under a freshly minted id and returns it. An order
// without a status becomes the customer's open cart.
func (s *OrderService) SaveOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order == nil || order.CustID <= 0 {
		return nil, fmt.Errorf("%w: order without custId", common.ErrorValidation)
	}

	orderID, err := s.ids.Next(ctx, idgen.Order)
	if err != nil {
		return nil, err
	}

	order.OrderID = orderID
	order.ID = docstore.OrderKey(orderID)
	order.Doc.Type = models.TypeOrder
	order.Doc.Created = s.now().Unix()
	order.Doc.CreatedBy = order.CustID
	if order.OrderStatus == "" {
		order.OrderStatus = models.StatusCreated
	}

	doc, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %w", common.ErrorInternal, err)
	}
	if err := s.docs.Insert(ctx, order.ID, doc, 0); err != nil {
		return nil, err
	}

	s.events.OrderSaved(ctx, order, false)
	s.log.Info(ctx, "order saved", "order_id", orderID, "cust_id", order.CustID)
	return order, nil
}

// ReplaceOrder overwrites an existing order, keeping its owner and creation
// stamps. Missing orders are common.ErrorNotFound.
func (s *OrderService) ReplaceOrder(ctx context.Context, order *models.Order) error {
	if order == nil || order.OrderID <= 0 {
		return fmt.Errorf("%w: order without orderId", common.ErrorValidation)
	}

	stored, err := s.GetOrder(ctx, order.OrderID)
	if err != nil {
		return err
	}

	// ownership and creation stamps belong to the stored order
	order.ID = stored.ID
	order.CustID = stored.CustID
	order.Doc.Type = models.TypeOrder
	order.Doc.Created = stored.Doc.Created
	order.Doc.CreatedBy = stored.Doc.CreatedBy
	order.Doc.Modified = s.now().Unix()
	order.Doc.ModifiedBy = stored.CustID

	doc, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("%w: encode order: %w", common.ErrorInternal, err)
	}
	if err := s.docs.Replace(ctx, order.ID, doc); err != nil {
		return err
	}

	s.events.OrderSaved(ctx, order, true)
	s.log.Info(ctx, "order updated", "order_id", order.OrderID)
	return nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := s.docs.Remove(ctx, docstore.OrderKey(orderID)); err != nil {
		return err
	}
	s.events.OrderDeleted(ctx, orderID)
	s.log.Info(ctx, "order deleted", "order_id", orderID)
	return nil
}
