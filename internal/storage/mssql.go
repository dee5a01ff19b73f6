package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/example/order-pipeline/internal/models"
)

// ErrStatusNotFound is returned when no status record exists for an order.
var ErrStatusNotFound = errors.New("storage: status record not found")

// SQLStatusStore tracks order status records in SQL Server. Upserts are
// MERGE statements keyed by order id, so concurrent and duplicate deliveries
// resolve to last-write-wins without explicit locking.
type SQLStatusStore struct {
	db    *sql.DB
	table string
}

// NewSQLStatusStore opens a connection pool against the supplied connection
// string. The table name is configurable to keep environments separate.
func NewSQLStatusStore(connString, table string) (*SQLStatusStore, error) {
	if connString == "" {
		return nil, errors.New("storage: connection string is required")
	}
	if table == "" {
		return nil, errors.New("storage: table name is required")
	}

	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlserver: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &SQLStatusStore{db: db, table: table}, nil
}

// Init creates the status table when it does not exist.
func (s *SQLStatusStore) Init(ctx context.Context) error {
	schema := fmt.Sprintf(`
IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'[dbo].[%s]') AND type in (N'U'))
BEGIN
CREATE TABLE dbo.%s (
	order_id NVARCHAR(64) PRIMARY KEY,
	user_id NVARCHAR(64) NULL,
	status NVARCHAR(32) NOT NULL,
	subtotal DECIMAL(18,2) NOT NULL,
	discount_amount DECIMAL(18,2) NOT NULL,
	final_total DECIMAL(18,2) NOT NULL,
	items_json NVARCHAR(MAX) NOT NULL,
	promo_code NVARCHAR(64) NOT NULL,
	recovered_from_dlq BIT NOT NULL DEFAULT 0,
	updated_at DATETIME2 NOT NULL
);
END;
`, s.table, s.table)
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("storage: init status table: %w", err)
	}
	return nil
}

// Upsert writes the status record, inserting or overwriting by order id.
func (s *SQLStatusStore) Upsert(ctx context.Context, rec models.StatusRecord) error {
	q := fmt.Sprintf(`MERGE dbo.%s AS t
	USING (SELECT @p1 AS order_id) AS src
	ON (t.order_id = src.order_id)
	WHEN MATCHED THEN UPDATE SET
		user_id=@p2, status=@p3, subtotal=@p4, discount_amount=@p5,
		final_total=@p6, items_json=@p7, promo_code=@p8,
		recovered_from_dlq=@p9, updated_at=@p10
	WHEN NOT MATCHED THEN INSERT(order_id,user_id,status,subtotal,discount_amount,final_total,items_json,promo_code,recovered_from_dlq,updated_at)
	VALUES(@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10);`, s.table)

	_, err := s.db.ExecContext(ctx, q,
		rec.OrderID,
		rec.UserID,
		rec.Status,
		rec.Subtotal.String(),
		rec.DiscountAmount.String(),
		rec.FinalTotal.String(),
		rec.ItemsJSON,
		rec.PromoCode,
		rec.RecoveredFromDLQ,
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage: upsert status for %s: %w", rec.OrderID, err)
	}
	return nil
}

// Get reads the status record for an order.
func (s *SQLStatusStore) Get(ctx context.Context, orderID string) (*models.StatusRecord, error) {
	q := fmt.Sprintf(`SELECT order_id, user_id, status, subtotal, discount_amount, final_total, items_json, promo_code, recovered_from_dlq, updated_at
	FROM dbo.%s WHERE order_id=@p1`, s.table)

	var (
		rec                       models.StatusRecord
		userID                    sql.NullString
		subtotal, discount, final string
	)
	row := s.db.QueryRowContext(ctx, q, orderID)
	if err := row.Scan(&rec.OrderID, &userID, &rec.Status, &subtotal, &discount, &final, &rec.ItemsJSON, &rec.PromoCode, &rec.RecoveredFromDLQ, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrStatusNotFound, orderID)
		}
		return nil, fmt.Errorf("storage: get status for %s: %w", orderID, err)
	}
	rec.UserID = userID.String

	var err error
	if rec.Subtotal, err = parseMoney(subtotal); err != nil {
		return nil, err
	}
	if rec.DiscountAmount, err = parseMoney(discount); err != nil {
		return nil, err
	}
	if rec.FinalTotal, err = parseMoney(final); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close releases the connection pool.
func (s *SQLStatusStore) Close() error {
	return s.db.Close()
}
