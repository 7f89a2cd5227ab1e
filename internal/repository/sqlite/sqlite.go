package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bayesnet/internal/codec"
	"bayesnet/internal/domain"
	"bayesnet/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Repository = (*Repository)(nil)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db    *sql.DB
	codec *codec.JSONCodec
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// in-memory databases are per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db, codec: codec.NewJSONCodec()}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS networks (
		name TEXT PRIMARY KEY,
		description TEXT,
		source TEXT,
		document JSON NOT NULL,
		node_count INTEGER NOT NULL DEFAULT 0,
		edge_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		network TEXT NOT NULL,
		variable TEXT NOT NULL,
		evidence JSON,
		algorithm TEXT NOT NULL,
		outcomes JSON NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		operations INTEGER NOT NULL DEFAULT 0,
		max_factor INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queries_network ON queries(network, created_at);
	CREATE INDEX IF NOT EXISTS idx_queries_variable ON queries(variable);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return err
	}

	// databases created before operation counts were recorded
	return r.addColumnIfNotExists("queries", "operations", "INTEGER NOT NULL DEFAULT 0")
}

func (r *Repository) addColumnIfNotExists(table, column, definition string) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = r.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// SaveNetwork inserts or replaces a network document
func (r *Repository) SaveNetwork(ctx context.Context, rec *repository.NetworkRecord) error {
	if rec.Document == nil {
		return fmt.Errorf("network %q has no document", rec.Name)
	}

	var buf bytes.Buffer
	if err := r.codec.Export(rec.Document, &buf); err != nil {
		return fmt.Errorf("failed to encode network: %w", err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO networks (name, description, source, document, node_count, edge_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			source = excluded.source,
			document = excluded.document,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			updated_at = excluded.updated_at
	`,
		rec.Name,
		stringToNull(rec.Description),
		stringToNull(rec.Source),
		buf.String(),
		len(rec.Document.Nodes),
		len(rec.Document.Edges),
		timeToUnix(rec.CreatedAt),
		timeToUnix(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save network %s: %w", rec.Name, err)
	}
	return nil
}

// GetNetwork loads a network document by name
func (r *Repository) GetNetwork(ctx context.Context, name string) (*repository.NetworkRecord, error) {
	var row networkRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+networkColumns+` FROM networks WHERE name = ?`, name,
	).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("network %s: %w", name, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query network %s: %w", name, err)
	}

	return row.toRecord(r.codec)
}

// ListNetworks returns a summary of every stored network ordered by name
func (r *Repository) ListNetworks(ctx context.Context) ([]repository.NetworkSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, description, source, node_count, edge_count, updated_at
		FROM networks
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query networks: %w", err)
	}
	defer rows.Close()

	var summaries []repository.NetworkSummary
	for rows.Next() {
		var (
			s           repository.NetworkSummary
			description sql.NullString
			source      sql.NullString
			updatedAt   int64
		)
		if err := rows.Scan(&s.Name, &description, &source, &s.Nodes, &s.Edges, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		s.Description = nullToString(description)
		s.Source = nullToString(source)
		s.UpdatedAt = unixToTime(updatedAt)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating networks: %w", err)
	}
	return summaries, nil
}

// DeleteNetwork removes a network and its query history
func (r *Repository) DeleteNetwork(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete network %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("network %s: %w", name, repository.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM queries WHERE network = ?`, name); err != nil {
		return fmt.Errorf("failed to delete queries for %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveQuery appends a completed query to the history
func (r *Repository) SaveQuery(ctx context.Context, rec *domain.QueryRecord) error {
	args, err := queryInsertArgs(rec)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO queries (`+queryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to save query %s: %w", rec.ID, err)
	}
	return nil
}

// GetQuery loads one query record by id
func (r *Repository) GetQuery(ctx context.Context, id string) (*domain.QueryRecord, error) {
	var row queryRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+queryColumns+` FROM queries WHERE id = ?`, id,
	).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", id, err)
	}
	return row.toDomain()
}

// ListQueries returns matching records, newest first
func (r *Repository) ListQueries(ctx context.Context, filter repository.QueryFilter) ([]*domain.QueryRecord, error) {
	query := `SELECT ` + queryColumns + ` FROM queries WHERE 1=1`
	var args []any

	if filter.Network != "" {
		query += ` AND network = ?`
		args = append(args, filter.Network)
	}
	if filter.Variable != "" {
		query += ` AND variable = ?`
		args = append(args, filter.Variable)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []*domain.QueryRecord
	for rows.Next() {
		var row queryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return records, nil
}

// PruneQueries keeps the newest keep records for a network
func (r *Repository) PruneQueries(ctx context.Context, network string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM queries
		WHERE network = ? AND id NOT IN (
			SELECT id FROM queries
			WHERE network = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, network, network, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history for %s: %w", network, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
