package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// snapshots gathers the JSONB columns so insert and update stay symmetric.
type snapshots struct {
	buyer    []byte
	items    []byte
	totals   []byte
	shipping []byte
	billing  []byte
	coupons  []byte
	payment  []byte
}

func marshalSnapshots(o *domain.Order) (*snapshots, error) {
	s := &snapshots{}
	var err error
	if s.buyer, err = json.Marshal(o.Buyer); err != nil {
		return nil, fmt.Errorf("marshal buyer: %w", err)
	}
	if s.items, err = json.Marshal(o.Items); err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	if s.totals, err = json.Marshal(o.Totals); err != nil {
		return nil, fmt.Errorf("marshal totals: %w", err)
	}
	if s.shipping, err = json.Marshal(o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	if s.billing, err = json.Marshal(o.BillingAddress); err != nil {
		return nil, fmt.Errorf("marshal billing address: %w", err)
	}
	if s.coupons, err = json.Marshal(o.Coupons); err != nil {
		return nil, fmt.Errorf("marshal coupons: %w", err)
	}
	if s.payment, err = json.Marshal(o.Payment); err != nil {
		return nil, fmt.Errorf("marshal payment: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, o *domain.Order, event *OutboxEvent) error {
	s, err := marshalSnapshots(o)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (
	              id, order_number, user_id, buyer, items, totals,
	              shipping_address, billing_address, coupons, payment, status,
	              special_instructions, idempotency_key, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`

	_, insertErr := tx.ExecContext(ctx, query,
		o.ID,
		o.OrderNumber,
		o.UserID,
		s.buyer,
		s.items,
		s.totals,
		s.shipping,
		s.billing,
		s.coupons,
		s.payment,
		o.Status,
		o.SpecialInstructions,
		nullable(o.IdempotencyKey),
	)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	if event != nil {
		if err := insertOutbox(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, o *domain.Order, event *OutboxEvent) error {
	s, err := marshalSnapshots(o)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE orders SET
	              items = $2, payment = $3, status = $4,
	              refund_requested = $5, refund_reason = $6,
	              cancelled_at = $7, cancel_reason = $8, delivered_at = $9,
	              updated_at = NOW()
	          WHERE id = $1`

	result, updateErr := tx.ExecContext(ctx, query,
		o.ID,
		s.items,
		s.payment,
		o.Status,
		o.RefundRequested,
		o.RefundReason,
		o.CancelledAt,
		o.CancelReason,
		o.DeliveredAt,
	)
	if updateErr != nil {
		return fmt.Errorf("update order: %w", updateErr)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}

	if event != nil {
		if err := insertOutbox(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order update: %w", err)
	}
	return nil
}

func insertOutbox(ctx context.Context, tx *sql.Tx, event *OutboxEvent) error {
	query := `INSERT INTO order_outbox (aggregate_id, event_type, payload)
	          VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, query, event.AggregateID, event.EventType, event.Payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

const orderColumns = `id, order_number, user_id, buyer, items, totals,
	shipping_address, billing_address, coupons, payment, status,
	special_instructions, refund_requested, refund_reason,
	cancelled_at, cancel_reason, delivered_at, idempotency_key,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var s snapshots
	var idempotencyKey sql.NullString

	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&s.buyer,
		&s.items,
		&s.totals,
		&s.shipping,
		&s.billing,
		&s.coupons,
		&s.payment,
		&o.Status,
		&o.SpecialInstructions,
		&o.RefundRequested,
		&o.RefundReason,
		&o.CancelledAt,
		&o.CancelReason,
		&o.DeliveredAt,
		&idempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.IdempotencyKey = idempotencyKey.String

	for _, unmarshal := range []struct {
		data []byte
		dst  any
	}{
		{s.buyer, &o.Buyer},
		{s.items, &o.Items},
		{s.totals, &o.Totals},
		{s.shipping, &o.ShippingAddress},
		{s.billing, &o.BillingAddress},
		{s.coupons, &o.Coupons},
		{s.payment, &o.Payment},
	} {
		if len(unmarshal.data) == 0 {
			continue
		}
		if err := json.Unmarshal(unmarshal.data, unmarshal.dst); err != nil {
			return nil, fmt.Errorf("unmarshal order snapshot: %w", err)
		}
	}

	return &o, nil
}

func (r *PostgresRepository) getBy(ctx context.Context, where string, arg any) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s`, orderColumns, where)

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getBy(ctx, "order_number = $1", number)
}

func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.getBy(ctx, "idempotency_key = $1", key)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan order row: %w", scanErr)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *PostgresRepository) UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, processed, created_at
	          FROM order_outbox WHERE NOT processed ORDER BY created_at LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.Processed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) MarkEventProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE order_outbox SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
