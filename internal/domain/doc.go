// Package domain defines the core types of a discrete Bayesian network.
//
// The package has no dependencies beyond the standard library and performs
// no I/O. Loaders build a Network from these types and inference engines
// read it.
//
// # Values
//
// Value is a tagged union of bool, int, float and text. It is comparable,
// so it is used directly as a map key in CPT entries, assignments and
// factors. Bool(true) and Int(1) are distinct outcomes.
//
// # Nodes and CPTs
//
// Node is a random variable with a finite ordered domain and a conditional
// probability table. Each CPTEntry holds the distribution of the node for
// one assignment of its parents. Lookup picks the first entry consistent
// with a (possibly partial) parent assignment, and a missing entry reads
// as probability 0.
//
// # Network
//
// Network owns nodes by name and keeps parent and child lists in sync.
// Edges that would close a directed cycle are rejected when added. The
// topological order is computed with Kahn's algorithm and cached until the
// structure changes.
//
// CPT completeness is not enforced on construction. CheckCPTCompleteness
// reports every missing parent combination for callers that want strict
// tables.
//
// # Errors
//
// Structural problems are reported as *StructuralError wrapping one of
// ErrDuplicateNode, ErrUnknownNode, ErrCycle or ErrIncompleteCPT.
package domain
