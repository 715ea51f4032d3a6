/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package notify turns change notifications of the foreground context into
// per-type change event streams.
//
// A Hub receives every DidSave and DidMerge notification. Each subscription
// watches one entity type and receives exactly one ChangeEvent per
// notification that touches at least one object of that type. Events carry
// no payload; subscribers re-query for the data they display.
//
// Delivery never blocks the publisher: every subscriber owns a goroutine and
// an unbounded count of undelivered events, so slow consumers neither lose
// events nor stall saves.
//
//	events, cancel := notify.Subscribe[Note](ctx, hub)
//	defer cancel()
//	for range events {
//		refresh()
//	}
package notify
