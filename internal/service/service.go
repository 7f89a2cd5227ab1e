package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bayesnet/internal/codec"
	"bayesnet/internal/domain"
	"bayesnet/internal/inference"
	"bayesnet/internal/loader"
	"bayesnet/internal/repository"
)

// ErrNetworkNotFound is returned for names that are not registered
var ErrNetworkNotFound = fmt.Errorf("network %w", repository.ErrNotFound)

// NetworkInfo summarizes a registered network
type NetworkInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Variables   []string  `json:"variables"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// QueryRequest asks for the posterior of one variable
type QueryRequest struct {
	Network   string          `json:"network"`
	Variable  string          `json:"variable"`
	Evidence  domain.Evidence `json:"evidence,omitempty"`
	Algorithm string          `json:"algorithm,omitempty"`
}

// QueryResult is the answer to a QueryRequest
type QueryResult struct {
	Record *domain.QueryRecord `json:"record"`
	Stats  inference.Stats     `json:"stats"`
}

type entry struct {
	net      *domain.Network
	source   string
	loadedAt time.Time
}

// NetworkService owns the registry of loaded networks and answers queries
// against them. Registered networks are never mutated; a reload swaps the
// pointer, so queries in flight keep the network they started with.
type NetworkService struct {
	mu       sync.RWMutex
	networks map[string]*entry

	repo     repository.Repository
	loader   *loader.Loader
	eventBus *EventBus
	metrics  *Metrics
	logger   *zap.Logger

	defaultAlgorithm string
	historyLimit     int
}

// Option configures a NetworkService
type Option func(*NetworkService)

// WithRepository persists networks and query history
func WithRepository(repo repository.Repository) Option {
	return func(s *NetworkService) { s.repo = repo }
}

// WithLoader sets the loader used for imports and file loads
func WithLoader(l *loader.Loader) Option {
	return func(s *NetworkService) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithMetrics records query metrics
func WithMetrics(m *Metrics) Option {
	return func(s *NetworkService) { s.metrics = m }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *NetworkService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultAlgorithm sets the algorithm used when a request names none
func WithDefaultAlgorithm(algorithm string) Option {
	return func(s *NetworkService) {
		if algorithm != "" {
			s.defaultAlgorithm = algorithm
		}
	}
}

// WithHistoryLimit keeps at most n history records per network; 0 keeps all
func WithHistoryLimit(n int) Option {
	return func(s *NetworkService) { s.historyLimit = n }
}

// NewNetworkService creates a new network service
func NewNetworkService(eventBus *EventBus, opts ...Option) *NetworkService {
	s := &NetworkService{
		networks:         make(map[string]*entry),
		loader:           loader.New(),
		eventBus:         eventBus,
		logger:           zap.NewNop(),
		defaultAlgorithm: inference.AlgorithmEnumeration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds or replaces a network under its name
func (s *NetworkService) Register(ctx context.Context, net *domain.Network, source string) error {
	if net.Name == "" {
		return fmt.Errorf("network name required")
	}
	if err := net.Validate(); err != nil {
		return fmt.Errorf("network %s: %w", net.Name, err)
	}

	if s.repo != nil {
		rec := &repository.NetworkRecord{
			Name:        net.Name,
			Description: net.Description,
			Source:      source,
			Document:    codec.FromNetwork(net),
		}
		if err := s.repo.SaveNetwork(ctx, rec); err != nil {
			return err
		}
	}

	replaced := s.put(net, source)

	eventType := EventNetworkLoaded
	if replaced {
		eventType = EventNetworkReloaded
	}
	s.eventBus.Publish(Event{
		Type:    eventType,
		Payload: map[string]any{"network": net.Name, "source": source, "nodes": net.Len()},
	})

	s.logger.Info("network registered",
		zap.String("network", net.Name),
		zap.String("source", source),
		zap.Bool("replaced", replaced))
	return nil
}

func (s *NetworkService) put(net *domain.Network, source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, replaced := s.networks[net.Name]
	s.networks[net.Name] = &entry{net: net, source: source, loadedAt: time.Now()}
	s.metrics.setNetworks(len(s.networks))
	return replaced
}

// Import parses a network document and registers it
func (s *NetworkService) Import(ctx context.Context, data []byte, importer codec.Importer, source string) (*domain.Network, error) {
	net, err := s.loader.Load(bytes.NewReader(data), importer)
	if err != nil {
		return nil, err
	}
	if err := s.Register(ctx, net, source); err != nil {
		return nil, err
	}
	return net, nil
}

// LoadFile loads a network file and registers it with the path as source
func (s *NetworkService) LoadFile(ctx context.Context, path string) (*domain.Network, error) {
	net, err := s.loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Register(ctx, net, path); err != nil {
		return nil, err
	}
	return net, nil
}

// Restore registers every network stored in the repository. Documents that
// no longer build are logged and skipped.
func (s *NetworkService) Restore(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}

	summaries, err := s.repo.ListNetworks(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, summary := range summaries {
		rec, err := s.repo.GetNetwork(ctx, summary.Name)
		if err != nil {
			s.logger.Warn("failed to read stored network", zap.String("network", summary.Name), zap.Error(err))
			continue
		}
		net, err := s.loader.Build(rec.Document)
		if err != nil {
			s.logger.Warn("stored network no longer valid", zap.String("network", summary.Name), zap.Error(err))
			continue
		}
		s.put(net, rec.Source)
		restored++
	}

	s.logger.Info("networks restored", zap.Int("count", restored))
	return restored, nil
}

// Get returns a registered network
func (s *NetworkService) Get(name string) (*domain.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.networks[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNetworkNotFound)
	}
	return e.net, nil
}

// List returns every registered network ordered by name
func (s *NetworkService) List() []NetworkInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]NetworkInfo, 0, len(s.networks))
	for _, e := range s.networks {
		infos = append(infos, NetworkInfo{
			Name:        e.net.Name,
			Description: e.net.Description,
			Source:      e.source,
			Nodes:       e.net.Len(),
			Edges:       e.net.EdgeCount(),
			Variables:   e.net.Variables(),
			LoadedAt:    e.loadedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Remove unregisters a network and deletes its stored document and history
func (s *NetworkService) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	if _, ok := s.networks[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrNetworkNotFound)
	}
	delete(s.networks, name)
	s.metrics.setNetworks(len(s.networks))
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.DeleteNetwork(ctx, name); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	s.eventBus.Publish(Event{
		Type:    EventNetworkRemoved,
		Payload: map[string]string{"network": name},
	})
	return nil
}

// Export writes a registered network in the given format
func (s *NetworkService) Export(name, format string, w io.Writer) error {
	net, err := s.Get(name)
	if err != nil {
		return err
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return c.Export(codec.FromNetwork(net), w)
}

// Query answers a request with a fresh engine, records the result in the
// history and publishes it
func (s *NetworkService) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	net, err := s.Get(req.Network)
	if err != nil {
		return nil, err
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = s.defaultAlgorithm
	}

	evidence := loader.CoerceEvidence(net, req.Evidence)
	if err := loader.ValidateQuery(net, req.Variable, evidence); err != nil {
		s.metrics.observeQuery(algorithm, 0, 0, err)
		return nil, err
	}

	engine, err := inference.New(algorithm, net, inference.WithLogger(s.logger))
	if err != nil {
		s.metrics.observeQuery(algorithm, 0, 0, err)
		return nil, err
	}

	dist, err := engine.Query(req.Variable, evidence)
	stats := engine.Stats()
	s.metrics.observeQuery(stats.Algorithm, stats.ExecutionTime, stats.MaxFactorSize, err)
	if err != nil {
		return nil, err
	}

	node, _ := net.Node(req.Variable)
	rec := &domain.QueryRecord{
		ID:         uuid.NewString(),
		Network:    net.Name,
		Variable:   req.Variable,
		Evidence:   evidence,
		Algorithm:  stats.Algorithm,
		Outcomes:   dist.Outcomes(node.Domain),
		Duration:   stats.ExecutionTime,
		Operations: stats.OperationsCount,
		MaxFactor:  stats.MaxFactorSize,
		CreatedAt:  time.Now().UTC(),
	}

	s.record(ctx, rec)

	s.eventBus.Publish(Event{
		Type:    EventQueryCompleted,
		Payload: rec,
	})

	s.logger.Debug("query answered",
		zap.String("network", rec.Network),
		zap.String("variable", rec.Variable),
		zap.String("evidence", rec.Evidence.String()),
		zap.String("algorithm", rec.Algorithm),
		zap.Duration("duration", rec.Duration))

	return &QueryResult{Record: rec, Stats: stats}, nil
}

// record stores a query in the history. A storage failure does not fail
// the query.
func (s *NetworkService) record(ctx context.Context, rec *domain.QueryRecord) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveQuery(ctx, rec); err != nil {
		s.logger.Warn("failed to record query", zap.String("id", rec.ID), zap.Error(err))
		return
	}
	if s.historyLimit > 0 {
		if _, err := s.repo.PruneQueries(ctx, rec.Network, s.historyLimit); err != nil {
			s.logger.Warn("failed to prune history", zap.String("network", rec.Network), zap.Error(err))
		}
	}
}

// History returns recorded queries, newest first. Without a repository the
// history is empty.
func (s *NetworkService) History(ctx context.Context, filter repository.QueryFilter) ([]*domain.QueryRecord, error) {
	if s.repo == nil {
		return []*domain.QueryRecord{}, nil
	}
	return s.repo.ListQueries(ctx, filter)
}

// HistoryRecord returns one recorded query
func (s *NetworkService) HistoryRecord(ctx context.Context, id string) (*domain.QueryRecord, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("query %s: %w", id, repository.ErrNotFound)
	}
	return s.repo.GetQuery(ctx, id)
}
