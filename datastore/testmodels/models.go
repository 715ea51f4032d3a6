/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels provides entity types shared by the package tests.
package testmodels

import (
	"time"

	"github.com/suparena/persistence/registry"
)

// Configuration names used by the test model.
const (
	ConfigurationCloud = "Cloud"
	ConfigurationLocal = "Local"
)

type Note struct {
	// Unique identifier for the note.
	ID string `json:"id"`

	// Title of the note.
	Title string `json:"title"`

	// Body text.
	Body string `json:"body,omitempty"`

	// Rank orders notes within a list.
	Rank int `json:"rank"`

	// Score is a free form weight.
	Score float64 `json:"score"`

	// Pinned notes show first.
	Pinned bool `json:"pinned"`

	// Timestamp when the note was created.
	CreatedAt time.Time `json:"createdAt"`
}

func (n Note) EntityID() string { return n.ID }

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (t Tag) EntityID() string { return t.ID }

// Draft is only part of the Local configuration.
type Draft struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (d Draft) EntityID() string { return d.ID }

// NewModel returns a model with Note and Tag in the Cloud configuration and
// Draft in the Local configuration.
func NewModel() *registry.Model {
	model := registry.NewModel("Notes")
	registry.MustRegister[Note](model, ConfigurationCloud)
	registry.MustRegister[Tag](model, ConfigurationCloud)
	registry.MustRegister[Draft](model, ConfigurationLocal)
	return model
}
