package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bayesnet/internal/codec"
	"bayesnet/internal/domain"
)

// ProbabilityTolerance is the slack allowed when a CPT row is checked to
// sum to 1 on load
const ProbabilityTolerance = 1e-6

// ErrInvalidDocument is joined with every problem found in a network document
var ErrInvalidDocument = errors.New("invalid network document")

// documentValidate checks struct tags on codec documents
var documentValidate *validator.Validate

func init() {
	documentValidate = validator.New()
	_ = documentValidate.RegisterValidation("probsum", validateProbabilitySum)
}

// validateProbabilitySum checks that a probabilities map sums to 1
func validateProbabilitySum(fl validator.FieldLevel) bool {
	var total float64
	iter := fl.Field().MapRange()
	for iter.Next() {
		total += iter.Value().Float()
	}
	return math.Abs(total-1.0) <= ProbabilityTolerance
}

// Loader reads network documents and turns them into validated networks
type Loader struct {
	requireCompleteCPTs bool
	logger              *zap.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithRequireCompleteCPTs rejects networks whose CPTs miss a parent combination
func WithRequireCompleteCPTs(require bool) Option {
	return func(l *Loader) {
		l.requireCompleteCPTs = require
	}
}

// WithLogger sets the loader's logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a loader
func New(opts ...Option) *Loader {
	l := &Loader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads a network from a .json, .yaml or .yml file
func (l *Loader) LoadFile(path string) (*domain.Network, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	net, err := l.Load(bytes.NewReader(data), c)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.logger.Info("network loaded",
		zap.String("path", path),
		zap.String("network", net.Name),
		zap.Int("nodes", net.Len()),
		zap.Int("edges", net.EdgeCount()))
	return net, nil
}

// Load parses a document with the given importer and builds the network
func (l *Loader) Load(r io.Reader, importer codec.Importer) (*domain.Network, error) {
	doc, err := importer.Parse(r)
	if err != nil {
		return nil, errors.Join(ErrInvalidDocument, err)
	}
	return l.Build(doc)
}

// Build validates a document and converts it into a network
func (l *Loader) Build(doc *codec.Document) (*domain.Network, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	net, err := doc.Network()
	if err != nil {
		return nil, errors.Join(ErrInvalidDocument, err)
	}

	if err := net.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidDocument, err)
	}

	if err := net.CheckCPTCompleteness(); err != nil {
		if l.requireCompleteCPTs {
			return nil, errors.Join(ErrInvalidDocument, err)
		}
		l.logger.Warn("incomplete CPTs, missing rows read as probability 0",
			zap.String("network", net.Name),
			zap.Error(err))
	}

	return net, nil
}

// ValidateDocument checks a document's structure before it is built: tag
// constraints, unique node names, known edge endpoints, CPT rows that
// reference real nodes and sum to 1. Every problem found is reported.
func ValidateDocument(doc *codec.Document) error {
	var errs []error

	if err := documentValidate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fieldError(fe))
			}
		} else {
			errs = append(errs, err)
		}
	}

	names := make(map[string]bool, len(doc.Nodes))
	domains := make([][]domain.Value, len(doc.Nodes))
	for i, nd := range doc.Nodes {
		if names[nd.Name] {
			errs = append(errs, fmt.Errorf("node %d: duplicate node name %q", i, nd.Name))
		}
		names[nd.Name] = true

		if nd.Name == domain.ReservedName {
			errs = append(errs, fmt.Errorf("node %d: name %q is reserved", i, nd.Name))
		}

		seen := make(map[domain.Value]bool, len(nd.Domain))
		for _, raw := range nd.Domain {
			v, err := domain.FromJSON(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("node %s: %w", nd.Name, err))
				continue
			}
			if seen[v] {
				errs = append(errs, fmt.Errorf("node %s: duplicate domain value %s", nd.Name, v))
			}
			seen[v] = true
			domains[i] = append(domains[i], v)
		}
	}

	// probability keys must name a domain value
	for i, nd := range doc.Nodes {
		if len(domains[i]) == 0 {
			continue
		}
		for j, row := range nd.CPT {
			for key := range row.Probabilities {
				v := domain.CoerceToDomain(key, domains[i])
				if domain.IndexOf(domains[i], v) < 0 {
					errs = append(errs, fmt.Errorf("node %d (%s), cpt entry %d: probability key %q is not in the domain", i, nd.Name, j, key))
				}
			}
		}
	}

	for i, nd := range doc.Nodes {
		for j, row := range nd.CPT {
			for parent := range row.ParentValues {
				if !names[parent] {
					errs = append(errs, fmt.Errorf("node %d (%s), cpt entry %d: unknown parent %q", i, nd.Name, j, parent))
				}
			}
		}
	}

	for i, e := range doc.Edges {
		if e.Parent != "" && !names[e.Parent] {
			errs = append(errs, fmt.Errorf("edge %d: parent node %q does not exist", i, e.Parent))
		}
		if e.Child != "" && !names[e.Child] {
			errs = append(errs, fmt.Errorf("edge %d: child node %q does not exist", i, e.Child))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
}

func fieldError(fe validator.FieldError) error {
	if fe.Tag() == "probsum" {
		if probs, ok := fe.Value().(map[string]float64); ok {
			var total float64
			for _, p := range probs {
				total += p
			}
			return fmt.Errorf("%s: probabilities sum to %g, want 1", fe.Namespace(), total)
		}
	}
	return fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag())
}
