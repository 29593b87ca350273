// Package models defines the documents persisted in the document store and
// the composite values returned by the account services.
package models

// Document types, as stored in docType or doc.type.
const (
	TypeCustomer = "customer"
	TypeUser     = "user"
	TypeOrder    = "order"
	TypeSession  = "SESSION"
	TypeUsername = "username"
)

// Order statuses. An order in StatusCreated is the customer's open cart.
const (
	StatusCreated   = "created"
	StatusSubmitted = "submitted"
)

// DocMeta is the "doc" header carried by customer and order documents.
// Timestamps are unix seconds.
type DocMeta struct {
	Type       string `json:"type"`
	Schema     string `json:"schema,omitempty"`
	Created    int64  `json:"created,omitempty"`
	CreatedBy  int64  `json:"createdBy,omitempty"`
	Modified   int64  `json:"modified,omitempty"`
	ModifiedBy int64  `json:"modifiedBy,omitempty"`
}
