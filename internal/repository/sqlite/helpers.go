package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bayesnet/internal/codec"
	"bayesnet/internal/domain"
	"bayesnet/internal/repository"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Timestamps are stored as unix nanoseconds

func timeToUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func unixToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to a nullable JSON string.
// Empty evidence is stored as NULL.
func marshalToNull(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	if a, ok := v.(domain.Assignment); ok && len(a) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Network Row Scanner
// ============================================================================

// networkRow holds all columns from a network query for scanning
type networkRow struct {
	Name        string
	Description sql.NullString
	Source      sql.NullString
	Document    string
	CreatedAt   int64
	UpdatedAt   int64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match networkColumns order exactly
func (r *networkRow) scanArgs() []any {
	return []any{
		&r.Name,
		&r.Description,
		&r.Source,
		&r.Document,
		&r.CreatedAt,
		&r.UpdatedAt,
	}
}

// toRecord decodes the stored document with the JSON codec so that value
// kinds survive the round trip
func (r *networkRow) toRecord(c *codec.JSONCodec) (*repository.NetworkRecord, error) {
	doc, err := c.Parse(bytes.NewReader([]byte(r.Document)))
	if err != nil {
		return nil, fmt.Errorf("decode network %s: %w", r.Name, err)
	}

	return &repository.NetworkRecord{
		Name:        r.Name,
		Description: nullToString(r.Description),
		Source:      nullToString(r.Source),
		Document:    doc,
		CreatedAt:   unixToTime(r.CreatedAt),
		UpdatedAt:   unixToTime(r.UpdatedAt),
	}, nil
}

const networkColumns = `name, description, source, document, created_at, updated_at`

// ============================================================================
// Query Row Scanner
// ============================================================================

// queryRow holds all columns from a query history row
type queryRow struct {
	ID           string
	Network      string
	Variable     string
	EvidenceJSON sql.NullString
	Algorithm    string
	OutcomesJSON string
	DurationNS   int64
	Operations   int64
	MaxFactor    int
	CreatedAt    int64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match queryColumns order exactly:
// id, network, variable, evidence, algorithm, outcomes,
// duration_ns, operations, max_factor, created_at
func (r *queryRow) scanArgs() []any {
	return []any{
		&r.ID,           // 1
		&r.Network,      // 2
		&r.Variable,     // 3
		&r.EvidenceJSON, // 4
		&r.Algorithm,    // 5
		&r.OutcomesJSON, // 6
		&r.DurationNS,   // 7
		&r.Operations,   // 8
		&r.MaxFactor,    // 9
		&r.CreatedAt,    // 10
	}
}

// toDomain converts the scanned row to a domain.QueryRecord
func (r *queryRow) toDomain() (*domain.QueryRecord, error) {
	rec := &domain.QueryRecord{
		ID:         r.ID,
		Network:    r.Network,
		Variable:   r.Variable,
		Algorithm:  r.Algorithm,
		Duration:   time.Duration(r.DurationNS),
		Operations: r.Operations,
		MaxFactor:  r.MaxFactor,
		CreatedAt:  unixToTime(r.CreatedAt),
		Evidence:   domain.Evidence{},
	}

	if err := unmarshalJSONField(r.EvidenceJSON, &rec.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal([]byte(r.OutcomesJSON), &rec.Outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}

	return rec, nil
}

const queryColumns = `id, network, variable, evidence, algorithm, outcomes,
	duration_ns, operations, max_factor, created_at`

// queryInsertArgs prepares arguments for a query INSERT in queryColumns order
func queryInsertArgs(rec *domain.QueryRecord) ([]any, error) {
	evidenceJSON, err := marshalToNull(rec.Evidence)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}

	outcomes := rec.Outcomes
	if outcomes == nil {
		outcomes = []domain.Outcome{}
	}
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return nil, fmt.Errorf("marshal outcomes: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return []any{
		rec.ID,
		rec.Network,
		rec.Variable,
		evidenceJSON,
		rec.Algorithm,
		string(outcomesJSON),
		int64(rec.Duration),
		rec.Operations,
		rec.MaxFactor,
		timeToUnix(rec.CreatedAt),
	}, nil
}
