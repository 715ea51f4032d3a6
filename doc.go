/*
Package persistence configures and loads the stores of an object model and
hands out the contexts used to read and write them.

A Controller is built from an ordered list of store specs. Every spec becomes
one SQLite file named <fileName>.sqlite in the model's application data
directory, except in-memory specs which never touch disk. Cloud specs also
record their committed changes in an outbox that SyncCloud pushes to a
remote container.

The layers, leaf first:
  - storagemodels: StoreSpec, descriptions and shared value types
  - registry: the object model, entities grouped into configurations
  - datastore/sqlite: the physical stores
  - graph: foreground and background contexts, saving and merging
  - notify: per-type change event streams
  - query: declarative fetch, fetchFirst and count
  - cloud, cloud/ddb: the one-way cloud mirror

Basic Usage:

	model := registry.NewModel("Notes")
	registry.MustRegister[Note](model, "Cloud")

	c, err := persistence.New(ctx, model, []storagemodels.StoreSpec{
	    storagemodels.CloudPrivate("Cloud", "notes-table", ""),
	})
	if err != nil {
	    return err
	}
	defer c.Close()

	events, cancel := persistence.Subscribe[Note](ctx, c)
	defer cancel()

	err = c.PerformInBackground(ctx, func(ctx context.Context, gc *graph.Context) error {
	    if err := graph.Insert(ctx, gc, Note{ID: "1", Title: "groceries"}); err != nil {
	        return err
	    }
	    return c.Save(ctx, gc)
	})

	<-events
	notes, err := query.Fetch[Note](ctx, c.ForegroundContext(), query.New[Note]("title:groc"))

Nothing is saved implicitly: work passed to PerformInForeground or
PerformInBackground saves through Controller.Save when it wants its changes
kept. Errors returned by work come back unmodified.
*/
package persistence
