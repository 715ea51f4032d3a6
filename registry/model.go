/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/suparena/persistence/storagemodels"
)

// Entity is implemented by every type stored in the object graph.
// EntityID returns the key identifying the object within its entity.
type Entity interface {
	EntityID() string
}

// PropertyType is the scalar type of an entity property, used to declare
// query identifiers and to compare values.
type PropertyType int

const (
	PropertyOther PropertyType = iota
	PropertyString
	PropertyInt
	PropertyFloat
	PropertyBool
	PropertyTimestamp
)

func (p PropertyType) String() string {
	switch p {
	case PropertyString:
		return "string"
	case PropertyInt:
		return "int"
	case PropertyFloat:
		return "float"
	case PropertyBool:
		return "bool"
	case PropertyTimestamp:
		return "timestamp"
	default:
		return "other"
	}
}

// EntityDescription describes one registered entity.
type EntityDescription struct {
	Name string
	Type reflect.Type
	// Properties maps JSON property names to their types.
	Properties map[string]PropertyType
	// Configurations lists the model configurations including the entity.
	// Empty means the entity only belongs to the default configuration.
	Configurations []string
}

// InConfiguration reports whether a store serving configuration holds the entity.
// The default configuration ("") holds every entity.
func (d *EntityDescription) InConfiguration(configuration string) bool {
	if configuration == "" {
		return true
	}
	for _, c := range d.Configurations {
		if c == configuration {
			return true
		}
	}
	return false
}

// Model is the object model of a controller: the registered entities and
// the named configurations grouping them.
type Model struct {
	name string

	mu       sync.RWMutex
	byName   map[string]*EntityDescription
	byType   map[reflect.Type]*EntityDescription
	declared map[string]bool
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{
		name:     name,
		byName:   make(map[string]*EntityDescription),
		byType:   make(map[reflect.Type]*EntityDescription),
		declared: make(map[string]bool),
	}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Register adds entity type T to the model under its Go type name.
// T must be a struct type; configurations lists the named configurations
// that include it.
func Register[T Entity](m *Model, configurations ...string) error {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("registry: entity type %v must be a struct", t)
	}

	desc := &EntityDescription{
		Name:           t.Name(),
		Type:           t,
		Properties:     properties(t),
		Configurations: append([]string(nil), configurations...),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byType[t]; exists {
		return fmt.Errorf("registry: entity type %s already registered", t)
	}
	if _, exists := m.byName[desc.Name]; exists {
		return fmt.Errorf("registry: entity name %q already registered", desc.Name)
	}
	m.byType[t] = desc
	m.byName[desc.Name] = desc
	return nil
}

// MustRegister is like Register but panics on error. Intended for package
// level model setup.
func MustRegister[T Entity](m *Model, configurations ...string) {
	if err := Register[T](m, configurations...); err != nil {
		panic(err)
	}
}

// EntityFor returns the description of T.
func EntityFor[T any](m *Model) (*EntityDescription, error) {
	var zero T
	t := reflect.TypeOf(zero)

	m.mu.RLock()
	defer m.mu.RUnlock()
	desc, ok := m.byType[t]
	if !ok {
		return nil, fmt.Errorf("registry: type %v is not registered in model %q", t, m.name)
	}
	return desc, nil
}

// Entity returns the description registered under name.
func (m *Model) Entity(name string) (*EntityDescription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	desc, ok := m.byName[name]
	return desc, ok
}

// ObjectType resolves the runtime type of an object ID.
func (m *Model) ObjectType(id storagemodels.ObjectID) (reflect.Type, bool) {
	desc, ok := m.Entity(id.Entity)
	if !ok {
		return nil, false
	}
	return desc.Type, true
}

// Entities returns every entity name, sorted.
func (m *Model) Entities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EntitiesIn returns the sorted names of the entities held by a store
// serving configuration.
func (m *Model) EntitiesIn(configuration string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name, desc := range m.byName {
		if desc.InConfiguration(configuration) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DeclareConfigurations adds configuration names without entities. Tools
// that only handle stores as a whole use it in place of registering types.
func (m *Model) DeclareConfigurations(configurations ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range configurations {
		m.declared[name] = true
	}
}

// HasConfiguration reports whether configuration was declared or any entity
// belongs to it.
func (m *Model) HasConfiguration(configuration string) bool {
	if configuration == "" {
		return true
	}
	m.mu.RLock()
	declared := m.declared[configuration]
	m.mu.RUnlock()
	return declared || len(m.EntitiesIn(configuration)) > 0
}

var timeType = reflect.TypeOf(time.Time{})

// properties maps the JSON names of t's exported fields to property types,
// flattening embedded structs the way encoding/json does.
func properties(t reflect.Type) map[string]PropertyType {
	props := make(map[string]PropertyType)
	collectProperties(t, props)
	return props
}

func collectProperties(t reflect.Type, props map[string]PropertyType) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, skip := jsonName(f)
		if skip {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		if f.Anonymous && ft.Kind() == reflect.Struct && ft != timeType && f.Tag.Get("json") == "" {
			collectProperties(ft, props)
			continue
		}
		if !f.IsExported() {
			continue
		}
		props[name] = propertyType(ft)
	}
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, false
}

func propertyType(t reflect.Type) PropertyType {
	if t == timeType || t.ConvertibleTo(timeType) {
		return PropertyTimestamp
	}
	switch t.Kind() {
	case reflect.String:
		return PropertyString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return PropertyInt
	case reflect.Float32, reflect.Float64:
		return PropertyFloat
	case reflect.Bool:
		return PropertyBool
	default:
		return PropertyOther
	}
}
