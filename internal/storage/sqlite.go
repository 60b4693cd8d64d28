package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. Empty means <data_dir>/meshview.db.
	Path string

	// BusyTimeout bounds how long a statement waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{BusyTimeout: 5 * time.Second}
}

const sqliteSchema = `
create table if not exists snapshots (
	collection  text    not null,
	interval_id integer not null,
	payload     blob    not null,
	created_at  integer not null,
	size_bytes  integer not null,
	checksum    text    not null,
	items       integer not null,
	primary key (collection, interval_id)
) without rowid;
`

const snapshotColumns = `interval_id, collection, payload, created_at`

// SQLiteBackend stores snapshots in a single SQLite table.
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens the database file, enables WAL journaling and
// creates the schema if needed.
func OpenSQLite(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteBackend, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite: database path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultSQLiteConfig().BusyTimeout
	}
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: ensure directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Keep operations serialized on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("pragma busy_timeout=%d;", cfg.BusyTimeout.Milliseconds()),
		"pragma journal_mode=WAL;",
		"pragma synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}

	logger.Info("sqlite backend opened", "path", cfg.Path)
	return &SQLiteBackend{db: db, path: cfg.Path, logger: logger}, nil
}

// Name returns the backend name.
func (b *SQLiteBackend) Name() string {
	return "sqlite"
}

// Insert adds the snapshot. The primary key rejects duplicates.
func (b *SQLiteBackend) Insert(ctx context.Context, snap *domain.Snapshot) error {
	meta := snap.Meta()
	res, err := b.db.ExecContext(ctx, `
		insert into snapshots (collection, interval_id, payload, created_at, size_bytes, checksum, items)
		values (?, ?, ?, ?, ?, ?, ?)
		on conflict (collection, interval_id) do nothing`,
		string(snap.Collection), int64(snap.IntervalID), []byte(snap.Payload),
		snap.CreatedAt, meta.SizeBytes, meta.Checksum, meta.Items)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSnapshotConflict.WithDetails(
			fmt.Sprintf("%s/%s", snap.Collection, snap.IntervalID))
	}
	return nil
}

// Get returns the snapshot with exactly the given id.
func (b *SQLiteBackend) Get(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	row := b.db.QueryRowContext(ctx,
		`select `+snapshotColumns+` from snapshots where collection = ? and interval_id = ?`,
		string(col), int64(id))
	return scanSnapshot(row)
}

// Latest returns the snapshot with the greatest id.
func (b *SQLiteBackend) Latest(ctx context.Context, col domain.Collection) (*domain.Snapshot, error) {
	row := b.db.QueryRowContext(ctx,
		`select `+snapshotColumns+` from snapshots where collection = ?
		 order by interval_id desc limit 1`,
		string(col))
	return scanSnapshot(row)
}

// After returns the snapshot with the smallest id strictly greater than id.
func (b *SQLiteBackend) After(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	row := b.db.QueryRowContext(ctx,
		`select `+snapshotColumns+` from snapshots where collection = ? and interval_id > ?
		 order by interval_id asc limit 1`,
		string(col), int64(id))
	return scanSnapshot(row)
}

// List returns every meta in ascending id order without reading payloads.
func (b *SQLiteBackend) List(ctx context.Context, col domain.Collection) ([]domain.SnapshotMeta, error) {
	rows, err := b.db.QueryContext(ctx,
		`select interval_id, created_at, size_bytes, checksum, items from snapshots
		 where collection = ? order by interval_id asc`,
		string(col))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metas := make([]domain.SnapshotMeta, 0)
	for rows.Next() {
		var (
			m  domain.SnapshotMeta
			id int64
		)
		if err := rows.Scan(&id, &m.CreatedAt, &m.SizeBytes, &m.Checksum, &m.Items); err != nil {
			return nil, err
		}
		m.IntervalID = domain.IntervalID(id)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Ping checks the database connection.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	b.logger.Info("closing sqlite backend", "path", b.path)
	return b.db.Close()
}

func scanSnapshot(row *sql.Row) (*domain.Snapshot, error) {
	var (
		snap    domain.Snapshot
		id      int64
		col     string
		payload []byte
	)
	if err := row.Scan(&id, &col, &payload, &snap.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}
	snap.IntervalID = domain.IntervalID(id)
	snap.Collection = domain.Collection(col)
	snap.Payload = payload
	return &snap, nil
}
