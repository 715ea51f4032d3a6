/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package query runs typed fetch requests against an execution context.
//
// A Descriptor names what to fetch for one entity type: an AIP-160 filter
// predicate ("" matches every object) and a sort order. Requests are
// evaluated against the context's view of the object graph, so unsaved
// changes of the context are visible to its own queries.
//
//	type PinnedNotes struct{ query.Unsorted }
//
//	func (PinnedNotes) Predicate() string { return "rank > 0" }
//
//	notes, err := query.Fetch[Note](ctx, fg, PinnedNotes{})
//
// Results keep storage order for objects that compare equal under the sort
// order.
package query
