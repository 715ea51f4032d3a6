/*
Package datastore defines the physical store layer underneath the object graph.

A DataStore holds committed records of the entities in one model
configuration and hands out write transactions:

	type DataStore interface {
	    Description() storagemodels.StoreDescription
	    Get(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, error)
	    Scan(ctx context.Context, entity string) ([]storagemodels.Record, error)
	    Begin(ctx context.Context) (Tx, error)
	    Close() error
	}

Implementations:
  - sqlite: one SQLite file per store description (":memory:" for in-memory stores)
  - mock: In-memory implementation with error injection for testing

A Loader turns a StoreDescription into a DataStore; the controller calls it
once per configured store during initialization.
*/
package datastore
