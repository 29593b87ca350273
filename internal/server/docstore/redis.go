package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	red "github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
)

const indexPrefix = "idx:"

// indexedFields lists the lookups RedisStore answers from secondary index
// sets instead of a keyspace scan.
var indexedFields = map[string][]string{
	models.TypeUser:     {"username"},
	models.TypeCustomer: {"username"},
	models.TypeOrder:    {"custId"},
}

// RedisStore keeps each document as a JSON string under its own key and
// relies on native key expiry for TTLs.
type RedisStore struct {
	client *red.Client
}

func NewRedisStore(client *red.Client) *RedisStore {
	return &RedisStore{client: client}
}

func indexKey(docType, field, value string) string {
	return fmt.Sprintf("%s%s:%s:%s", indexPrefix, docType, field, value)
}

// indexKeys returns the index sets doc belongs to.
func indexKeys(doc []byte) []string {
	if doc == nil {
		return nil
	}
	docType := DocType(doc)
	var keys []string
	for _, field := range indexedFields[docType] {
		if v := gjson.GetBytes(doc, field); v.Exists() {
			keys = append(keys, indexKey(docType, field, v.String()))
		}
	}
	return keys
}

func isIndexed(docType, field string) bool {
	for _, f := range indexedFields[docType] {
		if f == field {
			return true
		}
	}
	return false
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, red.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, unavailable("redis get", err)
	}
	return b, nil
}

func (s *RedisStore) Insert(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := s.client.SetNX(ctx, key, doc, ttl).Result()
	if err != nil {
		return unavailable("redis insert", err)
	}
	if !ok {
		return common.ErrorAlreadyExists
	}
	return s.reindex(ctx, key, nil, doc)
}

func (s *RedisStore) Replace(ctx context.Context, key string, doc []byte) error {
	old, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	err = s.client.SetArgs(ctx, key, doc, red.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, red.Nil) {
		return common.ErrorNotFound
	}
	if err != nil {
		return unavailable("redis replace", err)
	}
	return s.reindex(ctx, key, old, doc)
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	old, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return unavailable("redis remove", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return s.reindex(ctx, key, old, nil)
}

func (s *RedisStore) GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	b, err := s.client.GetEx(ctx, key, ttl).Bytes()
	if errors.Is(err, red.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, unavailable("redis touch", err)
	}
	return b, nil
}

func (s *RedisStore) Increment(ctx context.Context, counter string, step, initial int64) (int64, error) {
	pipe := s.client.TxPipeline()
	pipe.SetNX(ctx, counter, initial, 0)
	incr := pipe.IncrBy(ctx, counter, step)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, unavailable("redis increment", err)
	}
	return incr.Val(), nil
}

func (s *RedisStore) FindByField(ctx context.Context, docType, field, value string) ([][]byte, error) {
	var (
		keys []string
		err  error
	)
	if isIndexed(docType, field) {
		keys, err = s.client.SMembers(ctx, indexKey(docType, field, value)).Result()
	} else {
		keys, err = s.scanKeys(ctx)
	}
	if err != nil {
		return nil, unavailable("redis find", err)
	}
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	sort.Strings(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("redis find", err)
	}

	out := make([][]byte, 0, len(values))
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		if fieldMatches([]byte(str), docType, field, value) {
			out = append(out, []byte(str))
		}
	}

	// members whose document expired
	if len(stale) > 0 && isIndexed(docType, field) {
		if err := s.client.SRem(ctx, indexKey(docType, field, value), stale...).Err(); err != nil {
			return nil, unavailable("redis find", err)
		}
	}
	return out, nil
}

// scanKeys lists document keys, skipping index sets.
func (s *RedisStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, "*", 200).Iterator()
	for iter.Next(ctx) {
		if k := iter.Val(); !strings.HasPrefix(k, indexPrefix) {
			keys = append(keys, k)
		}
	}
	return keys, iter.Err()
}

// reindex moves key from the index sets of old to those of doc.
func (s *RedisStore) reindex(ctx context.Context, key string, old, doc []byte) error {
	before, after := indexKeys(old), indexKeys(doc)
	if len(before) == 0 && len(after) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, k := range before {
		pipe.SRem(ctx, k, key)
	}
	for _, k := range after {
		pipe.SAdd(ctx, k, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("redis index", err)
	}
	return nil
}

func (s *RedisStore) FindUserByUsername(ctx context.Context, username string) (*models.UserInfo, error) {
	return findUserByUsername(ctx, s, username)
}

func (s *RedisStore) Ping(ctx context.Context) (*models.Diagnostics, error) {
	started := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, unavailable("redis ping", err)
	}
	return diagnostics("redis", started), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
