// Package query validates audit log queries before they reach a storage
// backend.
//
// Validate rejects negative or oversized limits, unknown sort fields, an
// inverted time range and unknown status filters. ApplyDefaults fills in a
// limit of DefaultLimit and newest-first ordering.
//
//	q := &evidence.Query{Model: "gpt-4", Status: "error"}
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	query.ApplyDefaults(q)
//	records, err := store.Query(ctx, q)
package query
