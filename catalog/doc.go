// Package catalog indexes the results of target cost sweeps.
//
// Each Entry records one optimization of a study: the requested target
// cost, what was achieved, and the blob holding the persisted allocation.
// Entries are keyed by (study, target cost); writing the same key again
// replaces the entry.
package catalog
