package domain

import (
	"sort"
	"strings"
)

// Assignment maps variable names to values
type Assignment map[string]Value

// Evidence is the observed part of an assignment that a query is conditioned on
type Evidence = Assignment

// Clone returns a shallow copy that can be extended without touching a
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	return out
}

// With returns a copy of a extended with name=value
func (a Assignment) With(name string, value Value) Assignment {
	out := a.Clone()
	out[name] = value
	return out
}

// Has reports whether name is assigned
func (a Assignment) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Project keeps only the listed variables that are present in a
func (a Assignment) Project(names []string) Assignment {
	out := make(Assignment, len(names))
	for _, n := range names {
		if v, ok := a[n]; ok {
			out[n] = v
		}
	}
	return out
}

// Names returns the assigned variable names in sorted order
func (a Assignment) Names() []string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders the assignment as "A=x, B=y" with names sorted
func (a Assignment) String() string {
	if len(a) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(a))
	for _, n := range a.Names() {
		parts = append(parts, n+"="+a[n].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
