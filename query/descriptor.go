/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/ordering"

	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
)

// Descriptor describes a fetch of T objects.
type Descriptor[T registry.Entity] interface {
	// Predicate is an AIP-160 filter over T's properties. Empty matches all.
	Predicate() string
	// SortOrder lists the sort keys, most significant first.
	SortOrder() []storagemodels.SortDescriptor
}

// Unsorted can be embedded by descriptors that keep storage order.
type Unsorted struct{}

// SortOrder returns no sort keys
func (Unsorted) SortOrder() []storagemodels.SortDescriptor {
	return nil
}

// All can be embedded by descriptors that match every object.
type All struct{}

// Predicate returns the empty predicate
func (All) Predicate() string {
	return ""
}

// Query is a ready made Descriptor.
type Query[T registry.Entity] struct {
	predicate string
	sort      []storagemodels.SortDescriptor
}

// New returns a descriptor for T with the given predicate and sort order.
func New[T registry.Entity](predicate string, sort ...storagemodels.SortDescriptor) *Query[T] {
	return &Query[T]{predicate: predicate, sort: sort}
}

// Predicate implements Descriptor
func (q *Query[T]) Predicate() string {
	return q.predicate
}

// SortOrder implements Descriptor
func (q *Query[T]) SortOrder() []storagemodels.SortDescriptor {
	return q.sort
}

// String renders the query in request form
func (q *Query[T]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "filter=%q", q.predicate)
	if len(q.sort) > 0 {
		b.WriteString(" order_by=")
		b.WriteString(FormatSortOrder(q.sort))
	}
	return b.String()
}

type orderByRequest string

func (r orderByRequest) GetOrderBy() string {
	return string(r)
}

// ParseSortOrder parses an AIP-132 order_by string such as
// "title desc, rank" into sort descriptors.
func ParseSortOrder(orderBy string) ([]storagemodels.SortDescriptor, error) {
	parsed, err := ordering.ParseOrderBy(orderByRequest(orderBy))
	if err != nil {
		return nil, errors.NewValidationError("orderBy", err.Error())
	}

	sort := make([]storagemodels.SortDescriptor, 0, len(parsed.Fields))
	for _, field := range parsed.Fields {
		sort = append(sort, storagemodels.SortDescriptor{Key: field.Path, Ascending: !field.Desc})
	}
	return sort, nil
}

// FormatSortOrder is the inverse of ParseSortOrder.
func FormatSortOrder(sort []storagemodels.SortDescriptor) string {
	parts := make([]string, len(sort))
	for i, s := range sort {
		parts[i] = s.Key
		if !s.Ascending {
			parts[i] += " desc"
		}
	}
	return strings.Join(parts, ", ")
}
