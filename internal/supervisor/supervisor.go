// Package supervisor implements the Controller/Supervisor (spec.md §4.5,
// "Component D"): it enumerates unfinished requests on startup and spawns
// one processing task per request, and spawns a new task whenever a caller
// creates a request. It carries no shared mutable state beyond the set of
// currently-live (user, request) task handles, used only to enforce the
// "at most one processing task per request" invariant (spec.md §3 invariant 4).
package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/myownradio/channel-bot/internal/pipeline"
	"github.com/myownradio/channel-bot/internal/processor"
)

type liveKey struct {
	user      pipeline.UserId
	requestID pipeline.RequestId
}

// Supervisor owns task spawning. It is safe for concurrent use.
type Supervisor struct {
	processor *processor.Processor

	// baseCtx is the context every spawned task runs under. It lives for the
	// server's lifetime and is cancelled only on shutdown — never the context
	// of whatever HTTP request happened to trigger the spawn, which is
	// cancelled the moment that request's handler returns (spec.md §4.5,
	// §5: tasks are detached and run to completion independent of their
	// caller).
	baseCtx context.Context

	mu   sync.Mutex
	live map[liveKey]struct{}
	wg   sync.WaitGroup
}

// New returns a Supervisor for the given Processor. ctx is the server-lifetime
// context every spawned task derives from; it should be the same context
// main.go cancels on shutdown, not a per-request context. Call Recover once
// at startup before serving any external requests.
func New(ctx context.Context, p *processor.Processor) *Supervisor {
	return &Supervisor{
		processor: p,
		baseCtx:   ctx,
		live:      make(map[liveKey]struct{}),
	}
}

// Recover enumerates every (user, request) pair left mid-flight by a prior
// crash — every RequestId present in a "{user}-ctx" namespace — and spawns
// one independent, detached task per pair. Every task's failure is logged,
// never reraised (spec.md §4.5).
func (s *Supervisor) Recover(ctx context.Context) error {
	namespaces, err := s.processor.Store.ListNamespaces(ctx)
	if err != nil {
		return &pipeline.StateStorageError{Op: "list namespaces", Err: err}
	}

	recovered := 0
	for _, namespace := range namespaces {
		user, ok := processor.UserFromCtxNamespace(namespace)
		if !ok {
			continue
		}

		contexts, err := s.processor.Store.GetAll(ctx, namespace)
		if err != nil {
			return &pipeline.StateStorageError{Op: "list contexts", Err: err}
		}

		for key := range contexts {
			requestID, err := pipeline.ParseRequestId(key)
			if err != nil {
				slog.Warn("Skipping malformed request id during recovery", "namespace", namespace, "key", key, "error", err)
				continue
			}
			s.spawn(user, requestID)
			recovered++
		}
	}

	slog.Info("Recovered in-flight track requests", "count", recovered)
	return nil
}

// CreateRequest delegates to the Processor and immediately spawns a task for
// the new request. It never blocks on pipeline completion. ctx governs only
// the synchronous bookkeeping write; the spawned task runs under the
// Supervisor's own server-lifetime context, not ctx (spec.md §4.5, §5).
func (s *Supervisor) CreateRequest(
	ctx context.Context,
	user pipeline.UserId,
	metadata pipeline.AudioMetadata,
	options pipeline.CreateRequestOptions,
	channelID pipeline.ChannelId,
) (pipeline.RequestId, error) {
	requestID, err := s.processor.CreateRequest(ctx, user, metadata, options, channelID)
	if err != nil {
		return pipeline.RequestId{}, err
	}

	s.spawn(user, requestID)
	return requestID, nil
}

// GetProcessingRequests delegates to the underlying Processor, letting
// callers (e.g. internal/api) inspect request status without reaching past
// the Supervisor.
func (s *Supervisor) GetProcessingRequests(ctx context.Context, user pipeline.UserId) (map[pipeline.RequestId]pipeline.Status, error) {
	return s.processor.GetProcessingRequests(ctx, user)
}

// Retry re-spawns a task for a request left in Status=Failed by a prior run
// (spec.md §7, "Failed requests are permitted to be retried"). It refuses to
// spawn a second task for a request that already has one live.
func (s *Supervisor) Retry(ctx context.Context, user pipeline.UserId, requestID pipeline.RequestId) bool {
	return s.spawn(user, requestID)
}

// spawn starts a detached goroutine running ProcessRequest under the
// Supervisor's base context, unless one is already live for this
// (user, requestID) pair. Returns whether it spawned.
func (s *Supervisor) spawn(user pipeline.UserId, requestID pipeline.RequestId) bool {
	key := liveKey{user: user, requestID: requestID}

	s.mu.Lock()
	if _, alreadyLive := s.live[key]; alreadyLive {
		s.mu.Unlock()
		slog.Warn("Refusing to spawn a second task for an already-live request", "user", user, "request_id", requestID)
		return false
	}
	s.live[key] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.live, key)
			s.mu.Unlock()
		}()

		if err := s.processor.ProcessRequest(s.baseCtx, user, requestID); err != nil {
			slog.Error("Track request processing failed", "user", user, "request_id", requestID, "error", err)
		}
	}()

	return true
}

// Wait blocks until every spawned task has returned. Intended for graceful
// shutdown and for tests that need deterministic completion.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
