/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/json"
	"time"
)

// ObjectID identifies one object of the object graph across every store.
type ObjectID struct {
	// Entity is the registered entity name, e.g. "Note".
	Entity string
	// Key is the value returned by the object's EntityID method.
	Key string
}

func (id ObjectID) String() string {
	return id.Entity + "/" + id.Key
}

// Record is an object as persisted by a store: a JSON object whose top level
// fields are the entity properties, plus a version bumped on every commit.
type Record struct {
	ID      ObjectID
	Data    json.RawMessage
	Version int64
}

// NotificationKind tells where a change notification came from.
type NotificationKind int

const (
	// DidSave is posted by a context after it committed its own changes.
	DidSave NotificationKind = iota
	// DidMerge is posted by a context after it absorbed changes saved elsewhere.
	DidMerge
)

func (k NotificationKind) String() string {
	if k == DidMerge {
		return "did-merge"
	}
	return "did-save"
}

// ChangeNotification carries the object IDs touched by one save or merge.
type ChangeNotification struct {
	Kind NotificationKind
	// Context is the ID of the context posting the notification.
	Context  string
	Inserted []ObjectID
	Updated  []ObjectID
	Deleted  []ObjectID
}

// ObjectIDs returns the union of inserted, updated and deleted IDs.
func (n ChangeNotification) ObjectIDs() []ObjectID {
	ids := make([]ObjectID, 0, len(n.Inserted)+len(n.Updated)+len(n.Deleted))
	ids = append(ids, n.Inserted...)
	ids = append(ids, n.Updated...)
	ids = append(ids, n.Deleted...)
	return ids
}

// IsEmpty reports whether the notification touches no object.
func (n ChangeNotification) IsEmpty() bool {
	return len(n.Inserted) == 0 && len(n.Updated) == 0 && len(n.Deleted) == 0
}

// ChangeEvent signals that at least one object of the watched entity changed.
// It carries no payload; consumers re-query for the data.
type ChangeEvent struct{}

// SortDescriptor orders query results by one property.
type SortDescriptor struct {
	Key       string
	Ascending bool
}

// Asc returns an ascending sort descriptor for key.
func Asc(key string) SortDescriptor {
	return SortDescriptor{Key: key, Ascending: true}
}

// Desc returns a descending sort descriptor for key.
func Desc(key string) SortDescriptor {
	return SortDescriptor{Key: key}
}

// ChangeOp is the kind of change recorded for the cloud mirror.
type ChangeOp string

const (
	OpPut    ChangeOp = "put"
	OpDelete ChangeOp = "delete"
)

// CloudChange is one committed change waiting to be pushed to the cloud.
type CloudChange struct {
	// Seq orders changes within one store.
	Seq       int64
	ID        ObjectID
	Op        ChangeOp
	Data      json.RawMessage
	Version   int64
	ChangedAt time.Time
}
