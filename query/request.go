/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
)

// Request is a descriptor compiled against the model: a checked filter
// expression and validated sort keys.
type Request[T registry.Entity] struct {
	entity    *registry.EntityDescription
	predicate string
	filter    *expr.Expr
	sort      []storagemodels.SortDescriptor
}

// NewRequest compiles d for the T entity of model.
func NewRequest[T registry.Entity](model *registry.Model, d Descriptor[T]) (*Request[T], error) {
	entity, err := registry.EntityFor[T](model)
	if err != nil {
		return nil, err
	}

	r := &Request[T]{
		entity:    entity,
		predicate: strings.TrimSpace(d.Predicate()),
		sort:      d.SortOrder(),
	}

	if r.predicate != "" {
		decls, err := declarations(entity)
		if err != nil {
			return nil, err
		}
		filter, err := filtering.ParseFilterString(r.predicate, decls)
		if err != nil {
			return nil, errors.NewValidationError("predicate", fmt.Sprintf("parse filter: %v", err))
		}
		r.filter = filter.CheckedExpr.GetExpr()
	}

	for _, s := range r.sort {
		if _, ok := entity.Properties[s.Key]; !ok {
			return nil, errors.NewValidationError("sortOrder", fmt.Sprintf("%s has no property %q", entity.Name, s.Key))
		}
	}
	return r, nil
}

func declarations(entity *registry.EntityDescription) (*filtering.Declarations, error) {
	decls := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for name, kind := range entity.Properties {
		switch kind {
		case registry.PropertyString:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeString))
		case registry.PropertyInt:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeInt))
		case registry.PropertyFloat:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeFloat))
		case registry.PropertyBool:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeBool))
		case registry.PropertyTimestamp:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeTimestamp))
		}
	}
	return filtering.NewDeclarations(decls...)
}

// Entity returns the name of the fetched entity
func (r *Request[T]) Entity() string {
	return r.entity.Name
}

// Predicate returns the filter source
func (r *Request[T]) Predicate() string {
	return r.predicate
}

// Apply filters records and sorts the matches. Records comparing equal keep
// their relative order.
func (r *Request[T]) Apply(records []storagemodels.Record) ([]storagemodels.Record, error) {
	type row struct {
		rec   storagemodels.Record
		props *record
	}

	rows := make([]row, 0, len(records))
	for _, rec := range records {
		props, err := r.decode(rec)
		if err != nil {
			return nil, err
		}
		ok, err := Evaluate(r.filter, props.resolve)
		if err == nil {
			err = props.err
		}
		if err != nil {
			return nil, fmt.Errorf("evaluate %s on %s: %w", r.predicate, rec.ID, err)
		}
		if ok {
			rows = append(rows, row{rec: rec, props: props})
		}
	}

	if len(r.sort) > 0 {
		var sortErr error
		sort.SliceStable(rows, func(i, j int) bool {
			for _, s := range r.sort {
				a, _ := rows[i].props.resolve(s.Key)
				b, _ := rows[j].props.resolve(s.Key)
				cmp, err := compareValues(a, b)
				if err != nil {
					sortErr = err
					return false
				}
				if cmp == 0 {
					continue
				}
				if s.Ascending {
					return cmp < 0
				}
				return cmp > 0
			}
			return false
		})
		for i := 0; i < len(rows) && sortErr == nil; i++ {
			sortErr = rows[i].props.err
		}
		if sortErr != nil {
			return nil, fmt.Errorf("sort %s: %w", r.entity.Name, sortErr)
		}
	}

	out := make([]storagemodels.Record, len(rows))
	for i, row := range rows {
		out[i] = row.rec
	}
	return out, nil
}

func (r *Request[T]) decode(rec storagemodels.Record) (*record, error) {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(rec.Data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rec.ID, err)
	}
	return &record{entity: r.entity, raw: raw, values: make(map[string]any)}, nil
}

// record resolves typed property values of one stored object on demand.
// err holds the first property that failed to decode.
type record struct {
	entity *registry.EntityDescription
	raw    map[string]json.RawMessage
	values map[string]any
	err    error
}

func (p *record) resolve(name string) (any, bool) {
	kind, ok := p.entity.Properties[name]
	if !ok {
		return nil, false
	}
	if v, ok := p.values[name]; ok {
		return v, true
	}
	v, err := p.value(name, kind)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("decode %s.%s: %w", p.entity.Name, name, err)
		}
		return nil, true
	}
	p.values[name] = v
	return v, true
}

// value converts a raw property. Missing properties take the zero value of
// their type, matching what decoding into T yields.
func (p *record) value(name string, kind registry.PropertyType) (any, error) {
	raw, present := p.raw[name]
	if present && string(raw) == "null" {
		present = false
	}

	switch kind {
	case registry.PropertyString:
		return decodeValue[string](raw, present)
	case registry.PropertyInt:
		return decodeValue[int64](raw, present)
	case registry.PropertyFloat:
		return decodeValue[float64](raw, present)
	case registry.PropertyBool:
		return decodeValue[bool](raw, present)
	case registry.PropertyTimestamp:
		return decodeValue[time.Time](raw, present)
	default:
		if !present {
			return nil, nil
		}
		return decodeValue[any](raw, present)
	}
}

func decodeValue[V any](raw json.RawMessage, present bool) (any, error) {
	var v V
	if !present {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
