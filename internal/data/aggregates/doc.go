// Package aggregates implements the weighting aggregate contracts.
//
// Aggregates compose the table repos from internal/data/repos and own the
// transaction boundary of every write. Plan tree reads go through the
// weighting.Tree arena; writes are ordered so that no row is ever left
// pointing at a removed parent.
package aggregates
