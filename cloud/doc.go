/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package cloud mirrors committed changes of cloud stores to a remote
// container.
//
// Cloud stores record every committed change in a local outbox. Sync pushes
// the outbox of one store to a Container, oldest change first, and removes
// what the container accepted. The mirror is one way: nothing is pulled back
// and remote conflicts are not resolved.
//
// Package ddb provides the DynamoDB container; Memory is an in-process
// container for tests and local development.
package cloud
