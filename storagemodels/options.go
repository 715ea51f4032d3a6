/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// SubscribeOptions configures a change event subscription
type SubscribeOptions struct {
	BufferSize int // Channel buffer size (default: 16)
}

// SubscribeOption is a functional option for configuring subscriptions
type SubscribeOption func(*SubscribeOptions)

// DefaultSubscribeOptions returns default subscription options
func DefaultSubscribeOptions() SubscribeOptions {
	return SubscribeOptions{
		BufferSize: 16,
	}
}

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) SubscribeOption {
	return func(opts *SubscribeOptions) {
		if size >= 0 {
			opts.BufferSize = size
		}
	}
}
