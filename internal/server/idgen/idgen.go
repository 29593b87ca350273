// Package idgen mints integer ids for customers, users and orders from
// per-class counters in the document store.
package idgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
)

// Class is an entity class with its own id sequence.
type Class string

const (
	Customer Class = "customer"
	User     Class = "user"
	Order    Class = "order"
)

// initial values keep minted ids clear of hand-seeded low-numbered documents.
var initial = map[Class]int64{
	Customer: 1000,
	User:     1000,
	Order:    5000,
}

// Counter is the atomic increment primitive of the document store.
type Counter interface {
	Increment(ctx context.Context, counter string, step, initial int64) (int64, error)
}

type Generator struct {
	store  Counter
	prefix string
}

// New returns a Generator whose counters are named "<prefix>-<class>-counter".
func New(store Counter, prefix string) *Generator {
	return &Generator{store: store, prefix: prefix}
}

func (g *Generator) counterName(class Class) string {
	return docstore.CounterKey(g.prefix, string(class))
}

// Next returns the next id for class. Concurrent callers never observe the
// same value; uniqueness rests on the store's atomic increment alone.
// Any failure is reported as common.ErrStoreUnavailable.
func (g *Generator) Next(ctx context.Context, class Class) (int64, error) {
	start, ok := initial[class]
	if !ok {
		return 0, fmt.Errorf("%w: unknown id class %q", common.ErrorValidation, class)
	}

	id, err := g.store.Increment(ctx, g.counterName(class), 1, start)
	if err != nil {
		if errors.Is(err, common.ErrStoreUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: next %s id: %w", common.ErrStoreUnavailable, class, err)
	}
	if id <= start {
		return 0, fmt.Errorf("%w: counter %s returned %d", common.ErrStoreUnavailable, g.counterName(class), id)
	}
	return id, nil
}
