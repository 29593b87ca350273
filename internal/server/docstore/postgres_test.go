package docstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/pressly/goose/v3"
)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

const liveRe = `\(expires_at IS NULL OR expires_at > now\(\)\)`

func TestPostgresGet_Found(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`^SELECT body FROM documents WHERE key = \$1 AND ` + liveRe + `$`).
		WithArgs("customer_1001").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"custId":1001}`)))

	got, err := s.Get(context.Background(), "customer_1001")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != `{"custId":1001}` {
		t.Fatalf("unexpected body: %s", got)
	}
	expectMet(t, mock)
}

func TestPostgresGet_NotFound(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`^SELECT body FROM documents`).
		WithArgs("customer_1").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "customer_1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestPostgresGet_DBError(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`^SELECT body FROM documents`).
		WithArgs("customer_1").
		WillReturnError(errors.New("db down"))

	_, err := s.Get(context.Background(), "customer_1")
	if !errors.Is(err, common.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("transport failure must not look like a miss")
	}
	if !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresInsert_WithTTL(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	doc := []byte(`{"docType":"SESSION","sessionId":"1"}`)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM documents WHERE key = \$1 AND expires_at IS NOT NULL AND expires_at <= now\(\)$`).
		WithArgs("session::1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^INSERT INTO documents \(key,doc_type,body,expires_at\) VALUES \(\$1,\$2,\$3,now\(\) \+ \$4::double precision \* interval '1 millisecond'\) ON CONFLICT \(key\) DO NOTHING$`).
		WithArgs("session::1", "SESSION", string(doc), int64(60000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Insert(context.Background(), "session::1", doc, time.Minute); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresInsert_NoTTL(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	doc := []byte(`{"doc":{"type":"customer"},"custId":1001}`)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM documents`).WithArgs("customer_1001").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^INSERT INTO documents \(key,doc_type,body,expires_at\) VALUES \(\$1,\$2,\$3,\$4\)`).
		WithArgs("customer_1001", "customer", string(doc), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Insert(context.Background(), "customer_1001", doc, 0); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresInsert_Duplicate(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^INSERT INTO documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.Insert(context.Background(), "user_1001", []byte(`{"docType":"user"}`), 0)
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestPostgresInsert_RollsBackOnError(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^INSERT INTO documents`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Insert(context.Background(), "user_1001", []byte(`{"docType":"user"}`), 0)
	if !errors.Is(err, common.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresReplace(t *testing.T) {
	q := `^UPDATE documents SET body = \$1, doc_type = \$2, updated_at = now\(\) WHERE key = \$3 AND ` + liveRe + `$`
	doc := []byte(`{"doc":{"type":"order"},"orderId":5001}`)

	t.Run("ok", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectExec(q).WithArgs(string(doc), "order", "order_5001").WillReturnResult(sqlmock.NewResult(0, 1))

		if err := s.Replace(context.Background(), "order_5001", doc); err != nil {
			t.Fatalf("Replace error: %v", err)
		}
		expectMet(t, mock)
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.Replace(context.Background(), "order_5001", doc)
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("expected ErrorNotFound, got %v", err)
		}
	})
}

func TestPostgresRemove(t *testing.T) {
	q := `^DELETE FROM documents WHERE key = \$1 AND ` + liveRe + `$`

	s, mock := newPostgresWithMock(t)
	mock.ExpectExec(q).WithArgs("order_5001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("order_5001").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Remove(context.Background(), "order_5001"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := s.Remove(context.Background(), "order_5001"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound on second remove, got %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresGetAndTouch(t *testing.T) {
	q := `^UPDATE documents SET expires_at = now\(\) \+ \$1::double precision \* interval '1 millisecond', updated_at = now\(\) WHERE key = \$2 AND ` + liveRe + ` RETURNING body$`

	t.Run("touched", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectQuery(q).WithArgs(int64(900000), "session::1").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"username":"alice"}`)))

		got, err := s.GetAndTouch(context.Background(), "session::1", 15*time.Minute)
		if err != nil {
			t.Fatalf("GetAndTouch error: %v", err)
		}
		if string(got) != `{"username":"alice"}` {
			t.Fatalf("unexpected body: %s", got)
		}
	})

	t.Run("expired", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

		_, err := s.GetAndTouch(context.Background(), "session::1", 15*time.Minute)
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("expected ErrorNotFound, got %v", err)
		}
	})
}

func TestPostgresIncrement(t *testing.T) {
	q := `(?s)^\s*INSERT INTO counters \(name, value\)\s+VALUES \(\$1, \$2\)\s+ON CONFLICT \(name\) DO UPDATE SET value = counters.value \+ \$3\s+RETURNING value$`

	t.Run("ok", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectQuery(q).WithArgs("sf-order-counter", int64(5001), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(5001)))

		v, err := s.Increment(context.Background(), "sf-order-counter", 1, 5000)
		if err != nil {
			t.Fatalf("Increment error: %v", err)
		}
		if v != 5001 {
			t.Fatalf("expected 5001, got %d", v)
		}
	})

	t.Run("no value is unavailable", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"value"}))

		_, err := s.Increment(context.Background(), "sf-order-counter", 1, 5000)
		if !errors.Is(err, common.ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestPostgresFindByField(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	q := `^SELECT body FROM documents WHERE doc_type = \$1 AND body->>\$2 = \$3 AND ` + liveRe + ` ORDER BY key$`
	mock.ExpectQuery(q).WithArgs("order", "custId", "1001").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"orderId":5001}`)).
			AddRow([]byte(`{"orderId":5002}`)))
	mock.ExpectQuery(q).WithArgs("order", "custId", "42").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	docs, err := s.FindByField(context.Background(), "order", "custId", "1001")
	if err != nil {
		t.Fatalf("FindByField error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}

	docs, err = s.FindByField(context.Background(), "order", "custId", "42")
	if err != nil {
		t.Fatalf("FindByField error: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", docs)
	}
	expectMet(t, mock)
}

func TestPostgresFindUserByUsername(t *testing.T) {
	q := `(?s)^SELECT \(c.body->>'custId'\)::bigint, \(u.body->>'userId'\)::bigint, u.body->>'username', u.body->>'password' ` +
		`FROM documents u JOIN documents c ON c.body->>'username' = u.body->>'username' AND c.doc_type = 'customer' ` +
		`WHERE u.doc_type = \$1 AND u.body->>'username' = \$2 .* LIMIT 1$`

	t.Run("found", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectQuery(q).WithArgs("user", "alice").
			WillReturnRows(sqlmock.NewRows([]string{"cust_id", "user_id", "username", "password"}).
				AddRow(int64(1003), int64(1001), "alice", "hash"))

		info, err := s.FindUserByUsername(context.Background(), "alice")
		if err != nil {
			t.Fatalf("FindUserByUsername error: %v", err)
		}
		if info.CustID != 1003 || info.UserID != 1001 || info.PasswordHash != "hash" {
			t.Fatalf("unexpected info: %+v", info)
		}
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newPostgresWithMock(t)
		mock.ExpectQuery(q).WithArgs("user", "ghost").WillReturnError(sql.ErrNoRows)

		_, err := s.FindUserByUsername(context.Background(), "ghost")
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("expected ErrorNotFound, got %v", err)
		}
	})
}

func TestPostgresPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	s := NewPostgresStore(db)

	mock.ExpectPing()
	d, err := s.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if d.Backend != "postgres" {
		t.Fatalf("unexpected backend %q", d.Backend)
	}

	mock.ExpectPing().WillReturnError(errors.New("refused"))
	if _, err := s.Ping(context.Background()); !errors.Is(err, common.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRunMigrations(t *testing.T) {
	s, _ := newPostgresWithMock(t)

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	if err := s.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("migration failed")
	}
	if err := s.RunMigrations(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
