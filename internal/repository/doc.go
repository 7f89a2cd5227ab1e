// Package repository defines the data access interfaces for bayesnet.
//
// Networks are stored as their serialized documents so that a stored
// network round-trips through the same loader and validation as a file.
// Completed queries are kept as a history of posterior distributions.
//
// The sqlite subpackage provides the implementation.
package repository
