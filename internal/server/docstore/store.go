// Package docstore is the document store adapter: key-addressed JSON
// documents with optional expiry, atomic counters and secondary lookups.
//
// Three backends implement Store: MemoryStore for development and tests,
// RedisStore and PostgresStore for deployments. Backend errors are converted
// at this boundary into the sentinels of the common package; a lookup miss
// is common.ErrorNotFound and never a transport failure.
package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/tidwall/gjson"
)

// Store is safe for concurrent use by multiple goroutines.
type Store interface {
	// Get returns the document stored under key or common.ErrorNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Insert stores doc under a new key. ttl of zero means no expiry.
	// An existing live key yields common.ErrorAlreadyExists.
	Insert(ctx context.Context, key string, doc []byte, ttl time.Duration) error

	// Replace overwrites an existing document, keeping its expiry.
	Replace(ctx context.Context, key string, doc []byte) error

	// Remove deletes the document or returns common.ErrorNotFound.
	Remove(ctx context.Context, key string) error

	// GetAndTouch reads the document and resets its expiry to now+ttl in
	// one step.
	GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, error)

	// Increment atomically adds step to the named counter and returns the
	// new value. A missing counter starts at initial, so the first call
	// returns initial+step.
	Increment(ctx context.Context, counter string, step, initial int64) (int64, error)

	// FindByField returns every live document of docType whose top-level
	// field equals value. No match is an empty result, not an error.
	FindByField(ctx context.Context, docType, field, value string) ([][]byte, error)

	// FindUserByUsername joins the user document with the customer document
	// sharing its username.
	FindUserByUsername(ctx context.Context, username string) (*models.UserInfo, error)

	// Ping reports backend health.
	Ping(ctx context.Context) (*models.Diagnostics, error)

	Close() error
}

// DocType reads the document type from docType, falling back to doc.type.
func DocType(doc []byte) string {
	if v := gjson.GetBytes(doc, "docType"); v.Exists() {
		return v.String()
	}
	return gjson.GetBytes(doc, "doc.type").String()
}

// fieldMatches reports whether doc is of docType and its field equals value.
func fieldMatches(doc []byte, docType, field, value string) bool {
	if DocType(doc) != docType {
		return false
	}
	v := gjson.GetBytes(doc, field)
	return v.Exists() && v.String() == value
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
}

func diagnostics(backend string, started time.Time) *models.Diagnostics {
	now := time.Now()
	return &models.Diagnostics{
		ID:        fmt.Sprintf("%s-%d", backend, now.UnixNano()),
		Backend:   backend,
		State:     "ok",
		Latency:   now.Sub(started).String(),
		CheckedAt: now.UTC(),
	}
}
