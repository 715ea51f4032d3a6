/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
)

// ObjectID returns the ID of the T object with the given key.
func ObjectID[T registry.Entity](c *Context, key string) (storagemodels.ObjectID, error) {
	desc, err := registry.EntityFor[T](c.coord.model)
	if err != nil {
		return storagemodels.ObjectID{}, err
	}
	if key == "" {
		return storagemodels.ObjectID{}, errors.NewValidationError("id", fmt.Sprintf("%s key is required", desc.Name))
	}
	return storagemodels.ObjectID{Entity: desc.Name, Key: key}, nil
}

// Insert adds obj to the context. It fails with an errors.AlreadyExistsError
// when an object with the same key exists in the context or in a store.
func Insert[T registry.Entity](ctx context.Context, c *Context, obj T) error {
	id, err := ObjectID[T](c, obj.EntityID())
	if err != nil {
		return err
	}
	props, err := encodeProperties(obj)
	if err != nil {
		return err
	}
	return c.insert(ctx, id, props)
}

// Get returns the context's view of the T object with the given key.
func Get[T registry.Entity](ctx context.Context, c *Context, key string) (T, error) {
	var obj T
	id, err := ObjectID[T](c, key)
	if err != nil {
		return obj, err
	}
	data, err := c.get(ctx, id)
	if err != nil {
		return obj, err
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return obj, fmt.Errorf("decode %s: %w", id, err)
	}
	return obj, nil
}

// Update replaces the context's view of obj. Only the properties that differ
// from the stored object are saved.
func Update[T registry.Entity](ctx context.Context, c *Context, obj T) error {
	id, err := ObjectID[T](c, obj.EntityID())
	if err != nil {
		return err
	}
	props, err := encodeProperties(obj)
	if err != nil {
		return err
	}
	return c.update(ctx, id, props)
}

// Delete removes the T object with the given key.
func Delete[T registry.Entity](ctx context.Context, c *Context, key string) error {
	id, err := ObjectID[T](c, key)
	if err != nil {
		return err
	}
	return c.delete(ctx, id)
}
