// Package postgres implements the analytical store on Postgres using pgx v5.
// Rows are applied with keyed upserts; RETURNING (xmax = 0) discriminates
// inserts from updates, and a savepoint per row lets a constraint violation
// skip that row without aborting the batch transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ecometl/internal/schema"
	"ecometl/internal/storage"
	"ecometl/pkg/records"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN              string // connection string for pgxpool
	CustomersTable   string // possibly schema-qualified, e.g. "public.customers"
	OrdersTable      string
	AutoCreateSchema bool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository opens a pool against cfg.DSN.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.CustomersTable == "" {
		cfg.CustomersTable = "customers"
	}
	if cfg.OrdersTable == "" {
		cfg.OrdersTable = "orders"
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// EnsureSchema applies the analytical DDL when configured to.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if !r.cfg.AutoCreateSchema {
		return nil
	}
	for _, stmt := range schemaStatements(r.cfg.CustomersTable, r.cfg.OrdersTable) {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return classify(fmt.Errorf("ensure schema: %w", err))
		}
	}
	return nil
}

const customerUpsert = `
INSERT INTO %s AS c
  (customer_id, name, email, phone, registration_date, birth_date, gender, preferred_language, address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (customer_id) DO UPDATE SET
  name = EXCLUDED.name,
  email = EXCLUDED.email,
  phone = EXCLUDED.phone,
  registration_date = EXCLUDED.registration_date,
  birth_date = EXCLUDED.birth_date,
  gender = EXCLUDED.gender,
  preferred_language = EXCLUDED.preferred_language,
  address = EXCLUDED.address
RETURNING (xmax = 0) AS inserted`

// UpsertCustomers applies one batch in a single transaction with a savepoint
// per row.
func (r *Repository) UpsertCustomers(ctx context.Context, batch []schema.Customer) (storage.UpsertStats, []schema.Rejection, error) {
	sql := fmt.Sprintf(customerUpsert, pgFQN(r.cfg.CustomersTable))
	return r.upsertBatch(ctx, len(batch), func(tx pgx.Tx, i int) (string, pgx.Row) {
		c := batch[i]
		return c.CustomerID, tx.QueryRow(ctx, sql,
			c.CustomerID, c.Name, c.Email, c.Phone,
			c.RegistrationDate, dateOnly(c.BirthDate), c.Gender, c.PreferredLanguage, c.Address)
	}, func(i int) records.Record { return batch[i].AsRecord() }, schema.EntityCustomer)
}

const orderUpsert = `
INSERT INTO %s AS o
  (order_id, customer_id, customer_email, amount, currency, order_date, status, payment_method, rating, review_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (order_id) DO UPDATE SET
  customer_id = EXCLUDED.customer_id,
  customer_email = COALESCE(EXCLUDED.customer_email, o.customer_email),
  amount = EXCLUDED.amount,
  currency = EXCLUDED.currency,
  order_date = EXCLUDED.order_date,
  status = EXCLUDED.status,
  payment_method = EXCLUDED.payment_method,
  rating = EXCLUDED.rating,
  review_date = EXCLUDED.review_date
RETURNING (xmax = 0) AS inserted`

// UpsertOrders applies one batch in a single transaction with a savepoint per
// row. A NULL customer_email never overwrites a stored one, so orders linked
// against store-resident customers keep their denormalized email.
func (r *Repository) UpsertOrders(ctx context.Context, batch []schema.Order) (storage.UpsertStats, []schema.Rejection, error) {
	sql := fmt.Sprintf(orderUpsert, pgFQN(r.cfg.OrdersTable))
	return r.upsertBatch(ctx, len(batch), func(tx pgx.Tx, i int) (string, pgx.Row) {
		o := batch[i]
		return o.OrderID, tx.QueryRow(ctx, sql,
			o.OrderID, o.CustomerID, nullIfEmpty(o.CustomerEmail),
			o.Amount.StringFixed(2), o.Currency, o.OrderDate,
			o.Status, o.PaymentMethod, o.Rating, o.ReviewDate)
	}, func(i int) records.Record { return batch[i].AsRecord() }, schema.EntityOrder)
}

// upsertBatch runs one row-producing query per index inside a transaction.
// pgx nests Begin as a savepoint, so a violated constraint rolls back only
// its own row.
func (r *Repository) upsertBatch(
	ctx context.Context,
	n int,
	queryRow func(tx pgx.Tx, i int) (string, pgx.Row),
	rawOf func(i int) records.Record,
	entity schema.EntityType,
) (storage.UpsertStats, []schema.Rejection, error) {
	var (
		stats   storage.UpsertStats
		rejects []schema.Rejection
	)
	if n == 0 {
		return stats, nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return stats, nil, classify(fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback(ctx)

	for i := 0; i < n; i++ {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return stats, rejects, classify(fmt.Errorf("savepoint: %w", err))
		}
		id, row := queryRow(sp, i)
		var inserted bool
		if err := row.Scan(&inserted); err != nil {
			_ = sp.Rollback(ctx)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && sqlStateClass(pgErr.Code) == "23" {
				rejects = append(rejects, schema.NewRejection(
					entity, id, schema.ReasonConstraintViolation, pgErr.Message, rawOf(i)))
				stats.Skipped++
				continue
			}
			return stats, rejects, classify(fmt.Errorf("upsert %s %s: %w", entity, id, err))
		}
		if err := sp.Commit(ctx); err != nil {
			return stats, rejects, classify(fmt.Errorf("release savepoint: %w", err))
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, rejects, classify(fmt.Errorf("commit: %w", err))
	}
	return stats, rejects, nil
}

// ExistingCustomerIDs returns every customer identifier in the store.
func (r *Repository) ExistingCustomerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT customer_id FROM "+pgFQN(r.cfg.CustomersTable))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, classify(rows.Err())
}

// Verify reports row counts and orders whose customer reference has no row.
// With the FK in place orphans should always be zero; this is the post-load
// consistency check.
func (r *Repository) Verify(ctx context.Context) (storage.VerifyStats, error) {
	var v storage.VerifyStats
	q := fmt.Sprintf(`
SELECT
  (SELECT count(*) FROM %[1]s),
  (SELECT count(*) FROM %[2]s),
  (SELECT count(*) FROM %[2]s o LEFT JOIN %[1]s c ON c.customer_id = o.customer_id WHERE c.customer_id IS NULL)`,
		pgFQN(r.cfg.CustomersTable), pgFQN(r.cfg.OrdersTable))
	if err := r.pool.QueryRow(ctx, q).Scan(&v.Customers, &v.Orders, &v.Orphans); err != nil {
		return v, classify(err)
	}
	return v, nil
}

// classify marks connection-level and concurrency failures as transient so
// the loader retries them. SQLSTATE classes: 08 connection, 40 transaction
// rollback (serialization, deadlock), 57 operator intervention.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch sqlStateClass(pgErr.Code) {
		case "08", "40", "57":
			return storage.Transient(err)
		}
		return err
	}
	if pgconn.SafeToRetry(err) || errors.Is(err, context.DeadlineExceeded) {
		return storage.Transient(err)
	}
	return err
}

// sqlStateClass returns the two-byte class of a SQLSTATE code, or "" when the
// code is too short to carry one.
func sqlStateClass(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// dateOnly truncates a timestamp to its calendar date for DATE columns.
func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.orders" to
// "public"."orders". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}
