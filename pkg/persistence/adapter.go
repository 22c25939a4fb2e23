package persistence

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Normalizer lets a snapshot type repair decoded values (nil slices, out of
// range numbers) before Load hands them back.
type Normalizer[T any] interface {
	Normalized() T
}

// Adapter binds a value type to one key of a Store using JSON encoding.
type Adapter[T any] struct {
	store    Store
	key      string
	fallback func() T
	logger   *zap.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*adapterConfig)

type adapterConfig struct {
	logger *zap.Logger
}

// WithAdapterLogger routes read and write failures to logger.
func WithAdapterLogger(logger *zap.Logger) AdapterOption {
	return func(cfg *adapterConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// NewAdapter returns an adapter for key. fallback produces the value Load
// returns whenever nothing usable is stored.
func NewAdapter[T any](store Store, key string, fallback func() T, opts ...AdapterOption) *Adapter[T] {
	cfg := adapterConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if fallback == nil {
		fallback = func() T {
			var zero T
			return zero
		}
	}
	return &Adapter[T]{
		store:    store,
		key:      key,
		fallback: fallback,
		logger:   cfg.logger.With(zap.String("key", key)),
	}
}

// Key returns the storage key.
func (a *Adapter[T]) Key() string {
	return a.key
}

// Load returns the stored value, or the fallback when the key is absent,
// unreadable or not valid JSON for T.
func (a *Adapter[T]) Load(ctx context.Context) T {
	if a.store == nil {
		return a.fallback()
	}
	data, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		a.logger.Warn("persistence read failed", zap.Error(err))
		return a.fallback()
	}
	if !ok || len(data) == 0 {
		return a.fallback()
	}

	value := a.fallback()
	if err := json.Unmarshal(data, &value); err != nil {
		a.logger.Warn("persistence payload discarded", zap.Error(err))
		return a.fallback()
	}
	if n, ok := any(value).(Normalizer[T]); ok {
		value = n.Normalized()
	}
	return value
}

// Save stores value. Failures are logged and otherwise ignored.
func (a *Adapter[T]) Save(ctx context.Context, value T) {
	if a.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("persistence encode failed", zap.Error(err))
		return
	}
	if err := a.store.Set(ctx, a.key, data); err != nil {
		a.logger.Warn("persistence write failed", zap.Error(err))
		return
	}
	a.logger.Debug("persistence saved", zap.Int("bytes", len(data)))
}

// Clear removes the stored value. Failures are logged.
func (a *Adapter[T]) Clear(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Delete(ctx, a.key); err != nil {
		a.logger.Warn("persistence delete failed", zap.Error(err))
	}
}
