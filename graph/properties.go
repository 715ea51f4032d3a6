/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// properties is the JSON property map of one object
type properties map[string]json.RawMessage

func encodeProperties(v any) (properties, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode object: %w", err)
	}
	return decodeProperties(data)
}

func decodeProperties(data []byte) (properties, error) {
	props := make(properties)
	if len(data) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return props, nil
}

func (p properties) clone() properties {
	out := make(properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// diff returns the names of the properties whose values differ between p and
// other, including properties present in only one of them.
func (p properties) diff(other properties) map[string]bool {
	changed := make(map[string]bool)
	for k, v := range p {
		if ov, ok := other[k]; !ok || !bytes.Equal(v, ov) {
			changed[k] = true
		}
	}
	for k := range other {
		if _, ok := p[k]; !ok {
			changed[k] = true
		}
	}
	return changed
}

// overlay returns a copy of p with the named properties taken from src.
// A named property missing from src is removed.
func (p properties) overlay(src properties, names map[string]bool) properties {
	out := p.clone()
	for name := range names {
		if v, ok := src[name]; ok {
			out[name] = v
		} else {
			delete(out, name)
		}
	}
	return out
}

func (p properties) marshal() (json.RawMessage, error) {
	return json.Marshal(p)
}
