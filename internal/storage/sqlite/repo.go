// Package sqlite implements the analytical store on SQLite through
// database/sql. It exists for local development and tests; the upsert
// contract matches the Postgres backend, with explicit SAVEPOINTs standing
// in for pgx's nested transactions and an existence probe standing in for
// RETURNING (xmax = 0).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"ecometl/internal/schema"
	"ecometl/internal/storage"
	"ecometl/pkg/records"
)

// Config holds SQLite repository configuration.
type Config struct {
	DSN              string // e.g. "file:ecometl.db?cache=shared"
	CustomersTable   string
	OrdersTable      string
	AutoCreateSchema bool
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite database at cfg.DSN and turns foreign key
// enforcement on.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if cfg.CustomersTable == "" {
		cfg.CustomersTable = "customers"
	}
	if cfg.OrdersTable == "" {
		cfg.OrdersTable = "orders"
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	return &Repository{db: db, cfg: cfg}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// EnsureSchema applies the analytical DDL when configured to.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if !r.cfg.AutoCreateSchema {
		return nil
	}
	for _, stmt := range schemaStatements(r.cfg.CustomersTable, r.cfg.OrdersTable) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return classify(fmt.Errorf("sqlite: ensure schema: %w", err))
		}
	}
	return nil
}

// UpsertCustomers applies one batch in a transaction, one SAVEPOINT per row.
func (r *Repository) UpsertCustomers(ctx context.Context, batch []schema.Customer) (storage.UpsertStats, []schema.Rejection, error) {
	exists := fmt.Sprintf("SELECT 1 FROM %s WHERE customer_id = ?", ident(r.cfg.CustomersTable))
	upsert := fmt.Sprintf(`
INSERT INTO %s
  (customer_id, name, email, phone, registration_date, birth_date, gender, preferred_language, address)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (customer_id) DO UPDATE SET
  name = excluded.name,
  email = excluded.email,
  phone = excluded.phone,
  registration_date = excluded.registration_date,
  birth_date = excluded.birth_date,
  gender = excluded.gender,
  preferred_language = excluded.preferred_language,
  address = excluded.address`, ident(r.cfg.CustomersTable))

	return r.upsertBatch(ctx, len(batch), schema.EntityCustomer, exists,
		func(i int) string { return batch[i].CustomerID },
		func(i int) records.Record { return batch[i].AsRecord() },
		func(i int) (string, []any) {
			c := batch[i]
			return upsert, []any{
				c.CustomerID, c.Name, c.Email, c.Phone,
				timeArg(c.RegistrationDate), dateArg(c.BirthDate), c.Gender, c.PreferredLanguage, c.Address,
			}
		})
}

// UpsertOrders applies one batch in a transaction, one SAVEPOINT per row. As
// in the Postgres backend, a NULL customer_email keeps the stored value.
func (r *Repository) UpsertOrders(ctx context.Context, batch []schema.Order) (storage.UpsertStats, []schema.Rejection, error) {
	exists := fmt.Sprintf("SELECT 1 FROM %s WHERE order_id = ?", ident(r.cfg.OrdersTable))
	upsert := fmt.Sprintf(`
INSERT INTO %s
  (order_id, customer_id, customer_email, amount, currency, order_date, status, payment_method, rating, review_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (order_id) DO UPDATE SET
  customer_id = excluded.customer_id,
  customer_email = COALESCE(excluded.customer_email, customer_email),
  amount = excluded.amount,
  currency = excluded.currency,
  order_date = excluded.order_date,
  status = excluded.status,
  payment_method = excluded.payment_method,
  rating = excluded.rating,
  review_date = excluded.review_date`, ident(r.cfg.OrdersTable))

	return r.upsertBatch(ctx, len(batch), schema.EntityOrder, exists,
		func(i int) string { return batch[i].OrderID },
		func(i int) records.Record { return batch[i].AsRecord() },
		func(i int) (string, []any) {
			o := batch[i]
			return upsert, []any{
				o.OrderID, o.CustomerID, nullIfEmpty(o.CustomerEmail),
				o.Amount.StringFixed(2), o.Currency, o.OrderDate.UTC().Format(time.RFC3339),
				o.Status, o.PaymentMethod, o.Rating, timeArg(o.ReviewDate),
			}
		})
}

// upsertBatch probes for the key first (to classify insert vs update, SQLite
// has no xmax equivalent), then upserts under a savepoint so one violated
// constraint does not abort the batch.
func (r *Repository) upsertBatch(
	ctx context.Context,
	n int,
	entity schema.EntityType,
	existsQ string,
	idOf func(i int) string,
	rawOf func(i int) records.Record,
	build func(i int) (query string, args []any),
) (storage.UpsertStats, []schema.Rejection, error) {
	var (
		stats   storage.UpsertStats
		rejects []schema.Rejection
	)
	if n == 0 {
		return stats, nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, nil, classify(fmt.Errorf("sqlite: begin tx: %w", err))
	}
	defer tx.Rollback()

	for i := 0; i < n; i++ {
		id := idOf(i)

		var one int
		existed := true
		if err := tx.QueryRowContext(ctx, existsQ, id).Scan(&one); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return stats, rejects, classify(fmt.Errorf("sqlite: probe %s %s: %w", entity, id, err))
			}
			existed = false
		}

		sp := fmt.Sprintf("sp_row_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			return stats, rejects, classify(fmt.Errorf("sqlite: savepoint: %w", err))
		}
		q, args := build(i)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			_, _ = tx.ExecContext(ctx, "ROLLBACK TO "+sp)
			if isConstraint(err) {
				rejects = append(rejects, schema.NewRejection(
					entity, id, schema.ReasonConstraintViolation, err.Error(), rawOf(i)))
				stats.Skipped++
				continue
			}
			return stats, rejects, classify(fmt.Errorf("sqlite: upsert %s %s: %w", entity, id, err))
		}
		if _, err := tx.ExecContext(ctx, "RELEASE "+sp); err != nil {
			return stats, rejects, classify(fmt.Errorf("sqlite: release savepoint: %w", err))
		}
		if existed {
			stats.Updated++
		} else {
			stats.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, rejects, classify(fmt.Errorf("sqlite: commit: %w", err))
	}
	return stats, rejects, nil
}

// ExistingCustomerIDs returns every customer identifier in the store.
func (r *Repository) ExistingCustomerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT customer_id FROM "+ident(r.cfg.CustomersTable))
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
func (r *Repository) Verify(ctx context.Context) (storage.VerifyStats, error) {
	var v storage.VerifyStats
	q := fmt.Sprintf(`
SELECT
  (SELECT count(*) FROM %[1]s),
  (SELECT count(*) FROM %[2]s),
  (SELECT count(*) FROM %[2]s o LEFT JOIN %[1]s c ON c.customer_id = o.customer_id WHERE c.customer_id IS NULL)`,
		ident(r.cfg.CustomersTable), ident(r.cfg.OrdersTable))
	if err := r.db.QueryRowContext(ctx, q).Scan(&v.Customers, &v.Orders, &v.Orphans); err != nil {
		return v, classify(err)
	}
	return v, nil
}

// isConstraint reports whether err is any SQLITE_CONSTRAINT subcode
// (primary key, unique, check, foreign key).
func isConstraint(err error) bool {
	var se *sqlite3.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
}

// classify marks lock contention as transient so the loader retries it.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return storage.Transient(err)
		}
	}
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// timeArg formats an optional timestamp for a TEXT column.
func timeArg(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// dateArg formats an optional date for a TEXT column, calendar date only.
func dateArg(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// ident quotes an identifier for SQLite.
func ident(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
