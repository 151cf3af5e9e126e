// Package aggregates defines domain-facing aggregate contracts.
//
// These contracts avoid persistence details and mark the write boundaries at
// which the weighting tree and its response weighting contexts must change
// atomically.
package aggregates
