/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package ddb mirrors cloud store changes to a DynamoDB table.
//
// The container ID is the table name. Items are keyed by an index map of
// macros expanded from the pushed change, by default:
//
//	PK: "{Scope}#{Entity}"
//	SK: "{Key}"
//
// so private and shared stores may share one table. Puts carry the object
// JSON in Data and are conditional on Version, so a replayed outbox never
// overwrites a newer item.
package ddb
