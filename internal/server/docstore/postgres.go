package docstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	"github.com/dmitrijs2005/storefront/internal/server/migrations"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// live filters out rows whose expiry has passed. Expired rows are not
// reaped; they are ignored until a later Insert reuses the key.
var live = sq.Expr("(expires_at IS NULL OR expires_at > now())")

const incrementCounterQuery = `
	INSERT INTO counters (name, value)
	VALUES ($1, $2)
	ON CONFLICT (name) DO UPDATE SET value = counters.value + $3
	RETURNING value`

// PostgresStore keeps documents as JSONB rows in the documents table.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenPostgres opens a pgx-backed connection pool.
func OpenPostgres(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, ".")
}

func expiresAt(ttl time.Duration) any {
	if ttl <= 0 {
		return nil
	}
	return sq.Expr("now() + ?::double precision * interval '1 millisecond'", ttl.Milliseconds())
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.builder.Select("body").From("documents").
		Where(sq.Eq{"key": key}).Where(live).ToSql()
	if err != nil {
		return nil, err
	}

	var body []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, unavailable("db error", err)
	}
	return body, nil
}

func (s *PostgresStore) Insert(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	purge, purgeArgs, err := s.builder.Delete("documents").
		Where(sq.Eq{"key": key}).
		Where("expires_at IS NOT NULL AND expires_at <= now()").ToSql()
	if err != nil {
		return err
	}

	insert, insertArgs, err := s.builder.Insert("documents").
		Columns("key", "doc_type", "body", "expires_at").
		Values(key, DocType(doc), string(doc), expiresAt(ttl)).
		Suffix("ON CONFLICT (key) DO NOTHING").ToSql()
	if err != nil {
		return err
	}

	var inserted int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, purge, purgeArgs...); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, insert, insertArgs...)
		if err != nil {
			return err
		}
		inserted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return unavailable("db error", err)
	}
	if inserted == 0 {
		return common.ErrorAlreadyExists
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, key string, doc []byte) error {
	query, args, err := s.builder.Update("documents").
		Set("body", string(doc)).
		Set("doc_type", DocType(doc)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"key": key}).Where(live).ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args)
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	query, args, err := s.builder.Delete("documents").
		Where(sq.Eq{"key": key}).Where(live).ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args)
}

// execOne runs a statement that must affect exactly one live row.
func (s *PostgresStore) execOne(ctx context.Context, query string, args []any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable("db error", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("db error", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (s *PostgresStore) GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	query, args, err := s.builder.Update("documents").
		Set("expires_at", expiresAt(ttl)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"key": key}).Where(live).
		Suffix("RETURNING body").ToSql()
	if err != nil {
		return nil, err
	}

	var body []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, unavailable("db error", err)
	}
	return body, nil
}

func (s *PostgresStore) Increment(ctx context.Context, counter string, step, initial int64) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, incrementCounterQuery, counter, initial+step, step).Scan(&v); err != nil {
		return 0, unavailable("db error", err)
	}
	return v, nil
}

func (s *PostgresStore) FindByField(ctx context.Context, docType, field, value string) ([][]byte, error) {
	query, args, err := s.builder.Select("body").From("documents").
		Where(sq.Eq{"doc_type": docType}).
		Where(sq.Expr("body->>? = ?", field, value)).
		Where(live).
		OrderBy("key").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("db error", err)
	}
	defer rows.Close()

	out := make([][]byte, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, unavailable("db error", err)
		}
		out = append(out, body)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("db error", err)
	}
	return out, nil
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*models.UserInfo, error) {
	query, args, err := s.builder.
		Select(
			"(c.body->>'custId')::bigint",
			"(u.body->>'userId')::bigint",
			"u.body->>'username'",
			"u.body->>'password'",
		).
		From("documents u").
		Join("documents c ON c.body->>'username' = u.body->>'username' AND c.doc_type = 'customer'").
		Where(sq.Eq{"u.doc_type": models.TypeUser}).
		Where(sq.Expr("u.body->>'username' = ?", username)).
		Where("(u.expires_at IS NULL OR u.expires_at > now())").
		Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	info := &models.UserInfo{}
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&info.CustID, &info.UserID, &info.Username, &info.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, unavailable("db error", err)
	}
	return info, nil
}

func (s *PostgresStore) Ping(ctx context.Context) (*models.Diagnostics, error) {
	started := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, unavailable("db error", err)
	}
	return diagnostics("postgres", started), nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
