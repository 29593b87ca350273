package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

// timeoutStore bounds every call on the wrapped Store. A call that runs past
// its deadline fails with common.ErrStoreUnavailable.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps s so that each call gets at most d. A non-positive d
// returns s unchanged.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

func (t *timeoutStore) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, common.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %s timed out after %s", common.ErrStoreUnavailable, op, t.timeout)
	}
	return err
}

func (t *timeoutStore) Get(ctx context.Context, key string) (doc []byte, err error) {
	err = t.call(ctx, "get", func(ctx context.Context) error {
		doc, err = t.next.Get(ctx, key)
		return err
	})
	return doc, err
}

func (t *timeoutStore) Insert(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	return t.call(ctx, "insert", func(ctx context.Context) error {
		return t.next.Insert(ctx, key, doc, ttl)
	})
}

func (t *timeoutStore) Replace(ctx context.Context, key string, doc []byte) error {
	return t.call(ctx, "replace", func(ctx context.Context) error {
		return t.next.Replace(ctx, key, doc)
	})
}

func (t *timeoutStore) Remove(ctx context.Context, key string) error {
	return t.call(ctx, "remove", func(ctx context.Context) error {
		return t.next.Remove(ctx, key)
	})
}

func (t *timeoutStore) GetAndTouch(ctx context.Context, key string, ttl time.Duration) (doc []byte, err error) {
	err = t.call(ctx, "touch", func(ctx context.Context) error {
		doc, err = t.next.GetAndTouch(ctx, key, ttl)
		return err
	})
	return doc, err
}

func (t *timeoutStore) Increment(ctx context.Context, counter string, step, initial int64) (v int64, err error) {
	err = t.call(ctx, "increment", func(ctx context.Context) error {
		v, err = t.next.Increment(ctx, counter, step, initial)
		return err
	})
	return v, err
}

func (t *timeoutStore) FindByField(ctx context.Context, docType, field, value string) (docs [][]byte, err error) {
	err = t.call(ctx, "find", func(ctx context.Context) error {
		docs, err = t.next.FindByField(ctx, docType, field, value)
		return err
	})
	return docs, err
}

func (t *timeoutStore) FindUserByUsername(ctx context.Context, username string) (info *models.UserInfo, err error) {
	err = t.call(ctx, "find user", func(ctx context.Context) error {
		info, err = t.next.FindUserByUsername(ctx, username)
		return err
	})
	return info, err
}

func (t *timeoutStore) Ping(ctx context.Context) (d *models.Diagnostics, err error) {
	err = t.call(ctx, "ping", func(ctx context.Context) error {
		d, err = t.next.Ping(ctx)
		return err
	})
	return d, err
}

func (t *timeoutStore) Close() error {
	return t.next.Close()
}
