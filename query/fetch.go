/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/graph"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
)

func execute[T registry.Entity](ctx context.Context, c *graph.Context, d Descriptor[T]) (*Request[T], []storagemodels.Record, error) {
	req, err := NewRequest[T](c.Coordinator().Model(), d)
	if err != nil {
		return nil, nil, err
	}
	records, err := c.Objects(ctx, req.Entity())
	if err != nil {
		return nil, nil, err
	}
	records, err = req.Apply(records)
	if err != nil {
		return nil, nil, err
	}
	return req, records, nil
}

// Fetch returns every T object of the context matching d, in d's sort order.
// An empty result is not an error.
func Fetch[T registry.Entity](ctx context.Context, c *graph.Context, d Descriptor[T]) ([]T, error) {
	_, records, err := execute[T](ctx, c, d)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(records))
	for _, rec := range records {
		var obj T
		if err := json.Unmarshal(rec.Data, &obj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", rec.ID, err)
		}
		results = append(results, obj)
	}
	return results, nil
}

// FetchFirst returns the first T object matching d. It fails with an
// errors.NotFoundError naming the entity and the predicate when nothing
// matches.
func FetchFirst[T registry.Entity](ctx context.Context, c *graph.Context, d Descriptor[T]) (T, error) {
	var obj T
	req, records, err := execute[T](ctx, c, d)
	if err != nil {
		return obj, err
	}
	if len(records) == 0 {
		return obj, errors.NewNotFoundError(req.Entity(), req.Predicate())
	}
	if err := json.Unmarshal(records[0].Data, &obj); err != nil {
		return obj, fmt.Errorf("decode %s: %w", records[0].ID, err)
	}
	return obj, nil
}

// Count returns the number of T objects matching d without decoding them.
func Count[T registry.Entity](ctx context.Context, c *graph.Context, d Descriptor[T]) (int, error) {
	_, records, err := execute[T](ctx, c, d)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
