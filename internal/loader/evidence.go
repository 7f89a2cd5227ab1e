package loader

import (
	"errors"
	"fmt"
	"strings"

	"bayesnet/internal/domain"
)

// ErrInvalidEvidence is returned for malformed evidence strings
var ErrInvalidEvidence = errors.New("invalid evidence")

// ErrInvalidQuery is joined with every problem found in query parameters
var ErrInvalidQuery = errors.New("invalid query")

// ParseEvidence parses "var=value, var2=value2" into evidence. Values are
// typed with domain.ParseValue. An empty string yields empty evidence.
func ParseEvidence(s string) (domain.Evidence, error) {
	evidence := make(domain.Evidence)
	if strings.TrimSpace(s) == "" {
		return evidence, nil
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not variable=value", ErrInvalidEvidence, pair)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty variable name in %q", ErrInvalidEvidence, pair)
		}
		evidence[name] = domain.ParseValue(raw)
	}
	return evidence, nil
}

// ParseEvidenceFor parses evidence and maps each value onto the domain of
// the named node, so "Level=1" selects Text("1") when that is the domain
// value
func ParseEvidenceFor(net *domain.Network, s string) (domain.Evidence, error) {
	evidence, err := ParseEvidence(s)
	if err != nil {
		return nil, err
	}
	return CoerceEvidence(net, evidence), nil
}

// CoerceEvidence maps evidence values onto node domains where they differ
// only in representation. Unknown variables are left as they are.
func CoerceEvidence(net *domain.Network, evidence domain.Evidence) domain.Evidence {
	out := make(domain.Evidence, len(evidence))
	for name, v := range evidence {
		if node, ok := net.Node(name); ok && !node.HasValue(v) {
			v = domain.CoerceToDomain(v.String(), node.Domain)
		}
		out[name] = v
	}
	return out
}

// ValidateQuery checks that the query variable and every evidence variable
// exist and that the query variable is not observed. Values outside a
// domain are allowed; the engines answer them with a uniform distribution.
func ValidateQuery(net *domain.Network, variable string, evidence domain.Evidence) error {
	var errs []error

	if net.Len() == 0 {
		errs = append(errs, errors.New("network has no nodes"))
	}
	if variable == "" {
		errs = append(errs, errors.New("query variable must not be empty"))
	} else if !net.Has(variable) {
		errs = append(errs, fmt.Errorf("query variable %q does not exist", variable))
	}

	for _, name := range evidence.Names() {
		if !net.Has(name) {
			errs = append(errs, fmt.Errorf("evidence variable %q does not exist", name))
		}
		if name == variable {
			errs = append(errs, fmt.Errorf("query variable %q cannot also be evidence", name))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidQuery}, errs...)...)
}
