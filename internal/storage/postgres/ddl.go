package postgres

import (
	"fmt"
	"strings"
)

// schemaStatements returns the analytical DDL in application order. The
// check constraints mirror the validation rules so the store is the last
// line of defense, and the FK cascade keeps orders consistent with customer
// deletions.
func schemaStatements(customersTable, ordersTable string) []string {
	customers := pgFQN(customersTable)
	orders := pgFQN(ordersTable)

	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  customer_id        TEXT PRIMARY KEY,
  name               TEXT,
  email              TEXT UNIQUE NOT NULL CHECK (email LIKE '%%@%%'),
  phone              TEXT,
  registration_date  TIMESTAMPTZ,
  birth_date         DATE,
  gender             TEXT CHECK (gender IN ('M', 'F', 'O')),
  preferred_language TEXT,
  address            TEXT
)`, customers),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  order_id       TEXT PRIMARY KEY,
  customer_id    TEXT NOT NULL REFERENCES %s (customer_id) ON DELETE CASCADE ON UPDATE CASCADE,
  customer_email TEXT,
  amount         NUMERIC(12,2) NOT NULL CHECK (amount > 0),
  currency       TEXT,
  order_date     TIMESTAMPTZ NOT NULL,
  status         TEXT CHECK (status IN ('completed', 'pending', 'cancelled', 'refunded')),
  payment_method TEXT,
  rating         INTEGER CHECK (rating BETWEEN 1 AND 5),
  review_date    TIMESTAMPTZ
)`, orders, customers),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (customer_id)`,
			pgIdent(indexName(ordersTable, "customer_id")), orders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (order_date)`,
			pgIdent(indexName(ordersTable, "order_date")), orders),
		fmt.Sprintf(`
CREATE OR REPLACE VIEW %s AS
SELECT c.customer_id,
       c.name,
       c.email,
       count(o.order_id)          AS order_count,
       COALESCE(sum(o.amount), 0) AS lifetime_value,
       max(o.order_date)          AS last_order_at
FROM %s c
LEFT JOIN %s o ON o.customer_id = c.customer_id
GROUP BY c.customer_id, c.name, c.email`,
			pgFQN(siblingName(customersTable, "vw_customer_summary")), customers, orders),
		fmt.Sprintf(`
CREATE OR REPLACE VIEW %s AS
SELECT order_date::date            AS day,
       count(*)                    AS order_count,
       count(DISTINCT customer_id) AS customer_count,
       sum(amount)                 AS revenue,
       avg(amount)                 AS avg_order_value
FROM %s
GROUP BY order_date::date`,
			pgFQN(siblingName(ordersTable, "vw_business_metrics")), orders),
	}
}

// indexName derives a deterministic index name from the unqualified table
// name and the indexed column.
func indexName(table, column string) string {
	return "idx_" + lastSegment(table) + "_" + column
}

// siblingName places name in the same schema as table.
func siblingName(table, name string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[:i+1] + name
	}
	return name
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
