// Package clog layers request-scoped log attributes and a
// human-readable local text handler on top of log/slog.
package clog

import (
	"context"
	"sync"
)

// attrStore is the mutable attribute bag a context carries. Handlers
// read it at log time, so attributes added after the logger call site
// still show up on every later record of the same command.
type attrStore struct {
	mu         sync.RWMutex
	attributes map[string]any
}

type attrStoreKey struct{}

// ContextWithSlog arms a context with an attribute bag. Code further
// down the call chain adds attributes; ctx-aware slog calls routed
// through an AttributesHandler pick them up.
func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, attrStoreKey{}, &attrStore{
		attributes: make(map[string]any),
	})
}

func AddAttribute(ctx context.Context, key string, value any) {
	s, ok := ctx.Value(attrStoreKey{}).(*attrStore)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributes[key] = value
}

func AddAttributes(ctx context.Context, attributes map[string]any) {
	s, ok := ctx.Value(attrStoreKey{}).(*attrStore)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range attributes {
		s.attributes[k] = v
	}
}

func GetAttribute[T any](ctx context.Context, key string) T {
	s, ok := ctx.Value(attrStoreKey{}).(*attrStore)
	if !ok {
		return *new(T)
	}
	s.mu.RLock()
	value, ok := s.attributes[key]
	s.mu.RUnlock()
	if !ok {
		return *new(T)
	}
	typed, ok := value.(T)
	if !ok {
		return *new(T)
	}
	return typed
}

// GetAttributes returns a copy of the bag; an unarmed context yields
// nil.
func GetAttributes(ctx context.Context) map[string]any {
	s, ok := ctx.Value(attrStoreKey{}).(*attrStore)
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make(map[string]any, len(s.attributes))
	for k, v := range s.attributes {
		copied[k] = v
	}
	return copied
}

// ErrorAttributeKey is where AddError stores the error; the text
// handler renders it in red next to the message.
const ErrorAttributeKey = "error.message"

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func GetError(ctx context.Context) error {
	return GetAttribute[error](ctx, ErrorAttributeKey)
}
