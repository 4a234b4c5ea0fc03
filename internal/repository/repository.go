// Package repository implements the asset-graph storage facade: the
// reconciliation engine that decides whether an observed asset, relation,
// or property already exists, whether the incoming observation is fresher
// than the stored one, and how to translate the decision into idempotent
// writes against a graph store driver.
package repository

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
)

// Repository is the public storage API. It composes a Store driver, the
// graph codec, the relationship taxonomy, and an optional event log.
//
// Upsert sequences (lookup, compare, write) are serialized by an internal
// mutex because the store offers no compare-and-swap; read-only finds run
// unlocked. Events are appended only after a confirmed write or confirmed
// no-op, so a cancelled context never records an event.
type Repository struct {
	store    Store
	events   *EventLog
	validate domain.Validator
	enforce  bool
	log      *zap.Logger
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithEvents directs mutation events into the given log. Without it the
// repository emits nothing.
func WithEvents(log *EventLog) Option {
	return func(r *Repository) { r.events = log }
}

// WithValidator replaces the default relationship taxonomy.
func WithValidator(v domain.Validator) Option {
	return func(r *Repository) { r.validate = v }
}

// WithoutTaxonomy disables the taxonomy gate on edge creation.
func WithoutTaxonomy() Option {
	return func(r *Repository) { r.enforce = false }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Repository) { r.log = log }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New returns a Repository over the given store.
func New(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		validate: domain.ValidRelationship,
		enforce:  true,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FlushEvents drains and clears the event log, returning the buffered
// events in emission order.
func (r *Repository) FlushEvents() []domain.Event {
	if r.events == nil {
		return nil
	}
	return r.events.Flush()
}

// Close releases the underlying store.
func (r *Repository) Close() error {
	return r.store.Close()
}

func (r *Repository) emit(ev domain.Event) {
	if r.events != nil {
		r.events.Append(ev)
	}
}
