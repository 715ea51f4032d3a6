/*
Package storagemodels defines the value types shared by every layer of the
persistence library.

Key Types:

StoreSpec:
Describes one logical store. The constructors fill in the default file name
of each kind:

	specs := []storagemodels.StoreSpec{
	    storagemodels.InMemory("Cache"),
	    storagemodels.Local("Local", ""),                         // local.sqlite
	    storagemodels.CloudPrivate("Cloud", "notes-table", ""),   // private.sqlite
	    storagemodels.CloudShared("Cloud", "notes-table", ""),    // shared.sqlite
	}

StoreDescription:
The resolved form of a spec, produced by Describe. On-disk stores live at
<dir>/<fileName>.sqlite; in-memory stores point at os.DevNull and are never
written.

ChangeNotification / ChangeEvent:
Notifications list the object IDs touched by one save or merge. Subscribers
receive void ChangeEvents and re-query.

These types carry no behavior beyond validation so that every backend shares
them.
*/
package storagemodels
