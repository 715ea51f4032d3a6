/*
Package registry holds the object model of a persistence controller.

A Model maps Go entity types to entity names and groups them into named
configurations; each store serves exactly one configuration (or all entities
for the default configuration):

	model := registry.NewModel("Notes")
	registry.MustRegister[Note](model, "Cloud")
	registry.MustRegister[Draft](model, "Local")

Entities are struct types implementing EntityID() string. Their exported
fields, under their JSON names, are the entity properties; property types
drive query identifier declarations and value comparison.

Unlike a process-wide registry, a Model is an explicit value passed to the
controller, so independent models can coexist in tests.
*/
package registry
