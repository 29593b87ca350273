package models

import "encoding/json"

// Order is stored under order_<orderId>. Line items and the billing and
// shipping blocks are kept verbatim as sent by the storefront UI.
type Order struct {
	Doc           DocMeta         `json:"doc"`
	ID            string          `json:"_id"`
	OrderID       int64           `json:"orderId"`
	CustID        int64           `json:"custId"`
	OrderStatus   string          `json:"orderStatus"`
	OrderDate     int64           `json:"orderDate,omitempty"`
	BillingInfo   json.RawMessage `json:"billingInfo,omitempty"`
	ShippingInfo  json.RawMessage `json:"shippingInfo,omitempty"`
	LineItems     json.RawMessage `json:"lineItems,omitempty"`
	ShippingTotal float64         `json:"shippingTotal"`
	Tax           float64         `json:"tax"`
	GrandTotal    float64         `json:"grandTotal"`
}
