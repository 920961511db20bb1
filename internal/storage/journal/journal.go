// Package journal keeps every published event in a SQL database, SQLite or
// PostgreSQL. The engine sequence of the last journaled event lets a
// restarted daemon continue numbering where it stopped.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/LeJamon/goDCA/internal/core/tx"
)

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sequence BIGINT NOT NULL,
			type VARCHAR(64) NOT NULL,
			pair VARCHAR(42) NOT NULL,
			time BIGINT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_sequence ON events(sequence)`,
		`CREATE INDEX IF NOT EXISTS idx_events_pair ON events(pair)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			sequence BIGINT NOT NULL,
			type VARCHAR(64) NOT NULL,
			pair VARCHAR(42) NOT NULL,
			time BIGINT NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_sequence ON events(sequence)`,
		`CREATE INDEX IF NOT EXISTS idx_events_pair ON events(pair)`,
	},
}

// Record is one journaled event.
type Record struct {
	ID       int64           `json:"id"`
	Sequence uint64          `json:"sequence"`
	Type     tx.EventType    `json:"type"`
	Pair     common.Address  `json:"pair"`
	Time     int64           `json:"time"`
	Data     json.RawMessage `json:"data"`
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	FromSequence uint64
	Type         tx.EventType
	Pair         common.Address
	Limit        int
}

// Journal appends events to the events table.
type Journal struct {
	mu  sync.RWMutex
	db  *sql.DB
	cfg Config
	log *slog.Logger
}

// Open connects to the database named by cfg and creates the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid journal configuration: %w", err)
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("journal driver is %q", cfg.Driver)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	for _, stmt := range schemas[cfg.Driver] {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create journal schema: %w", err)
		}
	}

	return &Journal{
		db:  db,
		cfg: cfg,
		log: logger.With("component", "journal", "driver", cfg.Driver),
	}, nil
}

// rebind rewrites ? placeholders into the driver's syntax.
func (j *Journal) rebind(query string) string {
	if j.cfg.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append writes events in one database transaction.
func (j *Journal) Append(ctx context.Context, events ...tx.Event) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return ErrClosed
	}
	if len(events) == 0 {
		return nil
	}

	dbtx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, j.rebind(
		`INSERT INTO events (sequence, type, pair, time, data) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Type, err)
		}
		if _, err := stmt.ExecContext(ctx, int64(ev.Sequence), string(ev.Type), ev.Pair.Hex(), ev.Time, string(data)); err != nil {
			return fmt.Errorf("insert %s event: %w", ev.Type, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// HandleEvent implements tx.EventSink. Write failures are logged; the
// ledger has already committed the event.
func (j *Journal) HandleEvent(ev tx.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()
	if err := j.Append(ctx, ev); err != nil {
		j.log.Error("failed to journal event", "type", ev.Type, "sequence", ev.Sequence, "err", err)
	}
}

// LastSequence returns the highest journaled engine sequence, or 0.
func (j *Journal) LastSequence(ctx context.Context) (uint64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return 0, ErrClosed
	}
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, "SELECT MAX(sequence) FROM events").Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last sequence: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// Events returns the records matching f in journal order.
func (j *Journal) Events(ctx context.Context, f Filter) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, ErrClosed
	}

	query := "SELECT id, sequence, type, pair, time, data FROM events WHERE sequence >= ?"
	args := []any{int64(f.FromSequence)}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Pair != (common.Address{}) {
		query += " AND pair = ?"
		args = append(args, f.Pair.Hex())
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, j.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r    Record
			seq  int64
			typ  string
			pair string
			data string
		)
		if err := rows.Scan(&r.ID, &seq, &typ, &pair, &r.Time, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.Sequence = uint64(seq)
		r.Type = tx.EventType(typ)
		r.Pair = common.HexToAddress(pair)
		r.Data = json.RawMessage(data)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

var _ tx.EventSink = (*Journal)(nil)
