package repository

import (
	"context"
	"errors"
	"time"

	"bayesnet/internal/codec"
	"bayesnet/internal/domain"
)

// ErrNotFound is returned when a network or query does not exist
var ErrNotFound = errors.New("not found")

// NetworkRecord is a stored network document
type NetworkRecord struct {
	Name        string
	Description string
	Source      string
	Document    *codec.Document
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NetworkSummary describes a stored network without its document
type NetworkSummary struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QueryFilter narrows a query history listing
type QueryFilter struct {
	Network  string
	Variable string
	Limit    int
}

// NetworkRepository persists network documents
type NetworkRepository interface {
	SaveNetwork(ctx context.Context, rec *NetworkRecord) error
	GetNetwork(ctx context.Context, name string) (*NetworkRecord, error)
	ListNetworks(ctx context.Context) ([]NetworkSummary, error)
	DeleteNetwork(ctx context.Context, name string) error
}

// QueryRepository persists the query history
type QueryRepository interface {
	SaveQuery(ctx context.Context, rec *domain.QueryRecord) error
	GetQuery(ctx context.Context, id string) (*domain.QueryRecord, error)
	// ListQueries returns matching records, newest first
	ListQueries(ctx context.Context, filter QueryFilter) ([]*domain.QueryRecord, error)
	// PruneQueries keeps the newest keep records for a network
	PruneQueries(ctx context.Context, network string, keep int) (int64, error)
}

// Repository defines the full data access interface
type Repository interface {
	NetworkRepository
	QueryRepository

	// Close releases resources
	Close() error
}
