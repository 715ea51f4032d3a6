/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package graph implements the object graph shared by every execution
// context of a controller.
//
// A Coordinator owns the loaded stores and routes each entity to the stores
// whose configuration includes it. A Context is a private scratchpad over the
// coordinator: inserts, updates and deletes stay in the context until Save
// commits them, one transaction per store.
//
// Commits are serialized by the coordinator. After a commit the saving
// context posts a DidSave notification and every context that automatically
// merges changes absorbs the commit and posts a DidMerge notification, in
// commit order.
//
// Concurrent saves of the same object are reconciled by the context's merge
// policy. With MergeByProperty the properties changed by the saving context
// win and the remaining properties keep their stored values. With MergeError
// the save fails with an errors.ConflictError.
//
// Basic usage:
//
//	coord := graph.NewCoordinator(model, stores)
//	ctx := coord.NewContext(graph.Background)
//	if err := graph.Insert(c, ctx, Note{ID: "1", Title: "hello"}); err != nil {
//		return err
//	}
//	if err := ctx.Save(c); err != nil {
//		return err
//	}
package graph
