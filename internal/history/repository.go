package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists transaction records. Insert must reject duplicate
// references with ErrDuplicateRecord and UpdateStatus must refuse to move a
// terminal record.
type Repository interface {
	Insert(ctx context.Context, record Record) error
	GetByReference(ctx context.Context, reference string) (Record, error)
	ListByAccount(ctx context.Context, accountNumber string, limit int) ([]Record, error)
	UpdateStatus(ctx context.Context, reference string, status Status) (Record, error)
}

const recordColumns = `reference, type, source_account, destination_account, amount, balance_after, description, timestamp, status`

// PostgresRepository stores records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the transactions table when it does not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS transactions (
        reference TEXT PRIMARY KEY,
        type TEXT NOT NULL,
        source_account TEXT NOT NULL,
        destination_account TEXT NOT NULL DEFAULT '',
        amount BIGINT NOT NULL,
        balance_after BIGINT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        timestamp TIMESTAMPTZ NOT NULL,
        status TEXT NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("migrate transactions: %w", err)
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS transactions_source_idx ON transactions (source_account)`,
		`CREATE INDEX IF NOT EXISTS transactions_destination_idx ON transactions (destination_account)`,
	} {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate transaction indexes: %w", err)
		}
	}
	return nil
}

// Insert stores a new record, or reports ErrDuplicateRecord.
func (r *PostgresRepository) Insert(ctx context.Context, record Record) error {
	_, err := r.db.Exec(ctx, `INSERT INTO transactions (`+recordColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.Reference, record.Type, record.SourceAccount, record.DestinationAccount,
		record.Amount, record.BalanceAfter, record.Description, record.Timestamp.UTC(), string(record.Status))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateRecord
	}
	return err
}

// GetByReference fetches one record.
func (r *PostgresRepository) GetByReference(ctx context.Context, reference string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM transactions WHERE reference = $1`, reference)
	return scanRecord(row)
}

// ListByAccount returns records where the account is source or destination,
// newest first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountNumber string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM transactions
        WHERE source_account = $1 OR destination_account = $1
        ORDER BY timestamp DESC LIMIT $2`, accountNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateStatus transitions a record, refusing to change terminal statuses.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, reference string, status Status) (Record, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, reference)
	record, err := scanRecord(row)
	if err != nil {
		return Record{}, err
	}
	if record.Status.Terminal() {
		return Record{}, ErrStatusFinal
	}

	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1 WHERE reference = $2`, string(status), reference); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}

	record.Status = status
	return record, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	var ts time.Time
	err := row.Scan(&rec.Reference, &rec.Type, &rec.SourceAccount, &rec.DestinationAccount,
		&rec.Amount, &rec.BalanceAfter, &rec.Description, &ts, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	rec.Timestamp = ts.UTC()
	rec.Status = Status(status)
	return rec, nil
}
