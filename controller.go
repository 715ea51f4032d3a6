/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package persistence

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/suparena/persistence/cloud"
	"github.com/suparena/persistence/datastore"
	"github.com/suparena/persistence/datastore/sqlite"
	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/graph"
	"github.com/suparena/persistence/notify"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
	"github.com/suparena/persistence/telemetry"
)

// Option configures a Controller
type Option func(*options)

type options struct {
	containerID string
	directory   string
	logger      zerolog.Logger
	loader      datastore.Loader
	cloud       cloud.Container
	policy      graph.MergePolicy
	metrics     *telemetry.Metrics
}

// WithCloudContainer sets the container used by cloud specs that name none
func WithCloudContainer(containerID string) Option {
	return func(o *options) {
		o.containerID = containerID
	}
}

// WithDirectory sets the directory holding the store files. The default is
// DefaultDirectory of the model name.
func WithDirectory(dir string) Option {
	return func(o *options) {
		o.directory = dir
	}
}

// WithLogger sets the logger of the controller and everything it creates
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLoader replaces the SQLite loader
func WithLoader(loader datastore.Loader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// WithCloud sets the remote container cloud stores are verified against and
// synced to. Without one, cloud stores only record their outbox.
func WithCloud(container cloud.Container) Option {
	return func(o *options) {
		o.cloud = container
	}
}

// WithMergePolicy overrides the merge policy of every context
func WithMergePolicy(policy graph.MergePolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithMetrics records controller metrics into m
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Controller owns the stores of one object model and hands out the contexts
// that read and write them.
type Controller struct {
	model   *registry.Model
	stores  *storeSet
	coord   *graph.Coordinator
	hub     *notify.Hub
	cloud   cloud.Container
	metrics *telemetry.Metrics
	log     zerolog.Logger

	fgMu       sync.Mutex
	foreground *graph.Context

	stopObservers []func()
	closeOnce     sync.Once
	closeErr      error
}

// New describes and loads every spec, in order, and blocks until all stores
// are loaded. When any store fails, the stores already loaded are closed and
// a *errors.StoreLoadError naming the first failing spec is returned.
func New(ctx context.Context, model *registry.Model, specs []storagemodels.StoreSpec, opts ...Option) (*Controller, error) {
	if model == nil {
		return nil, errors.NewValidationError("model", "model is required")
	}
	if len(specs) == 0 {
		return nil, errors.NewValidationError("stores", "at least one store spec is required")
	}

	o := options{
		logger:  zerolog.Nop(),
		policy:  graph.MergeByProperty,
		metrics: telemetry.NewMetrics(telemetry.MetricsConfig{}),
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := telemetry.Component(o.logger, "persistence")
	if o.loader == nil {
		o.loader = sqlite.NewLoader(o.logger)
	}

	ctx, span := telemetry.StartSpan(ctx, "persistence.New",
		trace.WithAttributes(
			attribute.String("model", model.Name()),
			attribute.Int("stores", len(specs)),
		),
	)

	stores, err := loadStores(ctx, model, specs, o, log)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		model:   model,
		stores:  stores,
		cloud:   o.cloud,
		metrics: o.metrics,
		log:     log,
	}
	c.coord = graph.NewCoordinator(model, stores.loaded(),
		graph.WithLogger(telemetry.Component(o.logger, "graph")),
		graph.WithMergePolicy(o.policy),
	)

	c.foreground = c.coord.NewContext(graph.Foreground)
	c.foreground.SetAutomaticallyMergesChanges(true)

	c.hub = notify.NewHub(c.foreground,
		notify.WithLogger(telemetry.Component(o.logger, "notify")),
		notify.WithEventHook(o.metrics.RecordChangeEvent),
	)
	c.stopObservers = append(c.stopObservers,
		c.foreground.Observe(c.hub.Publish),
		c.coord.Observe(c.recordSave),
	)

	log.Info().
		Str("model", model.Name()).
		Int("stores", len(specs)).
		Str("mergePolicy", o.policy.String()).
		Msg("persistence controller ready")
	return c, nil
}

func loadStores(ctx context.Context, model *registry.Model, specs []storagemodels.StoreSpec, o options, log zerolog.Logger) (*storeSet, error) {
	set := newStoreSet(len(specs))

	dir := o.directory
	for i, spec := range specs {
		if dir == "" && spec.Kind != storagemodels.KindInMemory {
			var err error
			if dir, err = DefaultDirectory(model.Name()); err != nil {
				return nil, errors.NewStoreLoadError(i, spec.String(), "", err)
			}
		}
		desc, err := spec.Describe(dir, o.containerID)
		if err == nil && !model.HasConfiguration(spec.Configuration) {
			err = errors.NewValidationError("configuration",
				fmt.Sprintf("model %s has no configuration %q", model.Name(), spec.Configuration))
		}
		if err == nil {
			err = set.describe(i, desc)
		}
		if err != nil {
			o.metrics.RecordStoreLoadFailure(spec.Kind.String())
			return nil, errors.NewStoreLoadError(i, spec.String(), desc.Path, err)
		}
	}

	descs := set.descriptions()
	failures := make([]error, len(descs))

	start := time.Now()
	// a failing load does not cancel its siblings
	var g errgroup.Group
	for i, desc := range descs {
		g.Go(func() error {
			store, err := loadStore(ctx, model, desc, o)
			if err != nil {
				o.metrics.RecordStoreLoadFailure(desc.Spec.Kind.String())
				failures[i] = errors.NewStoreLoadError(i, desc.Spec.String(), desc.Path, err)
				return failures[i]
			}
			set.set(i, store)
			o.metrics.RecordStoreLoaded(desc.Spec.Kind.String())
			log.Debug().Int("index", i).Str("path", desc.Path).Msg("store loaded")
			return nil
		})
	}
	err := g.Wait()
	o.metrics.ObserveLoad(time.Since(start))

	if err != nil {
		if closeErr := set.closeAll(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close stores after load failure")
		}
		// the lowest failing index is reported
		for _, failure := range failures {
			if failure != nil {
				err = failure
				break
			}
		}
		log.Error().Err(err).Msg("failed to load stores")
		return nil, err
	}
	return set, nil
}

func loadStore(ctx context.Context, model *registry.Model, desc storagemodels.StoreDescription, o options) (datastore.DataStore, error) {
	ctx, span := telemetry.StartSpan(ctx, "persistence.LoadStore",
		trace.WithAttributes(
			attribute.String("kind", desc.Spec.Kind.String()),
			attribute.String("path", desc.Path),
		),
	)

	store, err := o.loader.Load(ctx, model, desc)
	if err == nil && desc.Cloud != nil && o.cloud != nil {
		if err = o.cloud.Verify(ctx, desc.Cloud.ContainerID, desc.Cloud.Scope); err != nil {
			_ = store.Close()
			store = nil
		}
	}
	telemetry.EndSpan(span, err)
	return store, err
}

func (c *Controller) recordSave(n storagemodels.ChangeNotification) {
	kind := graph.Background
	if n.Context == c.foreground.ID() {
		kind = graph.Foreground
	}
	c.metrics.RecordSave(kind.String(), len(n.Inserted), len(n.Updated), len(n.Deleted))
}

// Model returns the object model the stores were loaded for
func (c *Controller) Model() *registry.Model {
	return c.model
}

// Descriptions returns the resolved description of every store, in spec order
func (c *Controller) Descriptions() []storagemodels.StoreDescription {
	return c.stores.descriptions()
}

// ForegroundContext returns the long-lived context. It absorbs every change
// saved by other contexts.
func (c *Controller) ForegroundContext() *graph.Context {
	return c.foreground
}

// Hub returns the notifier fed by the foreground context
func (c *Controller) Hub() *notify.Hub {
	return c.hub
}

// PerformInForeground runs work against the foreground context and returns
// its error unmodified. Calls are serialized; work must not call
// PerformInForeground itself. Nothing is saved implicitly.
func (c *Controller) PerformInForeground(ctx context.Context, work func(ctx context.Context, gc *graph.Context) error) error {
	_, err := PerformInForeground(ctx, c, func(ctx context.Context, gc *graph.Context) (struct{}, error) {
		return struct{}{}, work(ctx, gc)
	})
	return err
}

// PerformInBackground runs work against a fresh background context and
// returns its error unmodified. Nothing is saved implicitly.
func (c *Controller) PerformInBackground(ctx context.Context, work func(ctx context.Context, gc *graph.Context) error) error {
	_, err := PerformInBackground(ctx, c, func(ctx context.Context, gc *graph.Context) (struct{}, error) {
		return struct{}{}, work(ctx, gc)
	})
	return err
}

// PerformInForeground runs work against the foreground context of c on the
// calling goroutine and returns its result.
func PerformInForeground[T any](ctx context.Context, c *Controller, work func(ctx context.Context, gc *graph.Context) (T, error)) (T, error) {
	c.fgMu.Lock()
	defer c.fgMu.Unlock()

	start := time.Now()
	v, err := work(ctx, c.foreground)
	c.metrics.ObserveOperation(graph.Foreground.String(), status(err), time.Since(start))
	return v, err
}

// PerformInBackground runs work on its own goroutine against a new
// background context and waits for it. When ctx ends first, ctx.Err() is
// returned and work keeps running to completion; its context is discarded.
func PerformInBackground[T any](ctx context.Context, c *Controller, work func(ctx context.Context, gc *graph.Context) (T, error)) (T, error) {
	gc := c.coord.NewContext(graph.Background)

	ctx, span := telemetry.StartSpan(ctx, "persistence.PerformInBackground",
		trace.WithAttributes(attribute.String("context", gc.ID())),
	)

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		v, err := work(ctx, gc)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		c.metrics.ObserveOperation(graph.Background.String(), status(r.err), time.Since(start))
		telemetry.EndSpan(span, r.err)
		return r.v, r.err
	case <-ctx.Done():
		err := ctx.Err()
		c.metrics.ObserveOperation(graph.Background.String(), "canceled", time.Since(start))
		telemetry.EndSpan(span, err)
		var zero T
		return zero, err
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Save commits the changes of gc when it has any. A failed save returns an
// *errors.OperationError wrapping the cause; the changes that were not
// written stay pending in gc.
func (c *Controller) Save(ctx context.Context, gc *graph.Context) error {
	if !gc.HasChanges() {
		return nil
	}
	if err := gc.Save(ctx); err != nil {
		return errors.NewOperationError("save", err)
	}
	return nil
}

// SyncCloud pushes the outbox of every cloud store to the cloud container
// and returns the number of changes pushed.
func (c *Controller) SyncCloud(ctx context.Context) (int, error) {
	if c.cloud == nil {
		return 0, errors.NewValidationError("cloud", "no cloud container configured")
	}

	ctx, span := telemetry.StartSpan(ctx, "persistence.SyncCloud")

	total := 0
	var errs []error
	for _, store := range c.coord.Stores() {
		desc := store.Description()
		if desc.Cloud == nil {
			continue
		}
		n, err := cloud.Sync(ctx, c.cloud, store, cloud.DefaultBatchSize)
		total += n
		c.metrics.RecordCloudPush(desc.Cloud.ContainerID, n)
		if err != nil {
			c.log.Warn().Err(err).Str("path", desc.Path).Int("pushed", n).Msg("cloud sync failed")
			errs = append(errs, fmt.Errorf("sync %s: %w", desc.Path, err))
			continue
		}
		c.log.Debug().Str("path", desc.Path).Int("pushed", n).Msg("cloud sync complete")
	}

	err := stderrors.Join(errs...)
	telemetry.EndSpan(span, err)
	return total, err
}

// Subscribe returns a stream that receives one event for every save or merge
// of the foreground context touching an object of type T.
func Subscribe[T any](ctx context.Context, c *Controller, opts ...storagemodels.SubscribeOption) (<-chan storagemodels.ChangeEvent, func()) {
	return notify.Subscribe[T](ctx, c.hub, opts...)
}

// Close ends every subscription and closes the stores. Closing twice is a
// no-op.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		for _, stop := range c.stopObservers {
			stop()
		}
		c.hub.Close()
		c.closeErr = c.coord.Close()
		c.log.Info().Msg("persistence controller closed")
	})
	return c.closeErr
}
