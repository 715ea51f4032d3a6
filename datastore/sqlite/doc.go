/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package sqlite implements datastore.DataStore on SQLite through the pure Go
// modernc.org/sqlite driver.
//
// Every store is a single database file holding all objects of the entities
// in its configuration as JSON documents. The schema is managed with
// golang-migrate from migrations embedded in the package. In-memory
// descriptions open a private ":memory:" database and never create a file.
//
// Stores mirrored to the cloud record every committed change in a
// cloud_outbox table within the same transaction, see PendingChanges and
// Acknowledge.
package sqlite
