package sqlite

import "fmt"

// schemaStatements mirrors the Postgres DDL with SQLite types. Dates and
// timestamps are TEXT in ISO form; NUMERIC keeps decimal amounts exact
// enough for CHECK purposes.
func schemaStatements(customersTable, ordersTable string) []string {
	customers := ident(customersTable)
	orders := ident(ordersTable)

	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  customer_id        TEXT PRIMARY KEY,
  name               TEXT,
  email              TEXT UNIQUE NOT NULL CHECK (email LIKE '%%@%%'),
  phone              TEXT,
  registration_date  TEXT,
  birth_date         TEXT,
  gender             TEXT CHECK (gender IN ('M', 'F', 'O')),
  preferred_language TEXT,
  address            TEXT
)`, customers),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  order_id       TEXT PRIMARY KEY,
  customer_id    TEXT NOT NULL REFERENCES %s (customer_id) ON DELETE CASCADE ON UPDATE CASCADE,
  customer_email TEXT,
  amount         NUMERIC NOT NULL CHECK (amount > 0),
  currency       TEXT,
  order_date     TEXT NOT NULL,
  status         TEXT CHECK (status IN ('completed', 'pending', 'cancelled', 'refunded')),
  payment_method TEXT,
  rating         INTEGER CHECK (rating BETWEEN 1 AND 5),
  review_date    TEXT
)`, orders, customers),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "idx_%s_customer_id" ON %s (customer_id)`,
			ordersTable, orders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "idx_%s_order_date" ON %s (order_date)`,
			ordersTable, orders),
		fmt.Sprintf(`
CREATE VIEW IF NOT EXISTS vw_customer_summary AS
SELECT c.customer_id,
       c.name,
       c.email,
       count(o.order_id)          AS order_count,
       COALESCE(sum(o.amount), 0) AS lifetime_value,
       max(o.order_date)          AS last_order_at
FROM %s c
LEFT JOIN %s o ON o.customer_id = c.customer_id
GROUP BY c.customer_id, c.name, c.email`, customers, orders),
		fmt.Sprintf(`
CREATE VIEW IF NOT EXISTS vw_business_metrics AS
SELECT date(order_date)            AS day,
       count(*)                    AS order_count,
       count(DISTINCT customer_id) AS customer_count,
       sum(amount)                 AS revenue,
       avg(amount)                 AS avg_order_value
FROM %s
GROUP BY date(order_date)`, orders),
	}
}
