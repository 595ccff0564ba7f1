// Package processor implements the Request Processor (spec.md §4.4,
// "Component C"): the per-request loop that loads Context and State, runs
// the pipeline to completion or a terminal error, checkpoints after every
// handler, and maintains the externally-observable Status.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myownradio/channel-bot/internal/pipeline"
	"github.com/myownradio/channel-bot/internal/store"
)

// Processor ties the State Store to the pipeline's step handlers.
type Processor struct {
	Store    store.Store
	Handlers *pipeline.Handlers

	// StepInterval paces the outer loop between checkpointed steps (spec.md
	// §4.4 step 4, "≈1s"). New sets it to a real 1-second sleep; when it is
	// nil the loop does not pause between steps.
	StepInterval func(ctx context.Context)
}

// New returns a Processor ready to serve CreateRequest/ProcessRequest.
func New(s store.Store, handlers *pipeline.Handlers) *Processor {
	return &Processor{
		Store:    s,
		Handlers: handlers,
		StepInterval: func(ctx context.Context) {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		},
	}
}

// CreateRequest allocates a RequestId, writes Context, an empty State, and
// Status=Processing. It never runs the pipeline itself — spawning the
// processing task is the supervisor's job (spec.md §4.5).
func (p *Processor) CreateRequest(
	ctx context.Context,
	user pipeline.UserId,
	metadata pipeline.AudioMetadata,
	options pipeline.CreateRequestOptions,
	channelID pipeline.ChannelId,
) (pipeline.RequestId, error) {
	requestID := pipeline.NewRequestId()

	rctx := pipeline.Context{
		Metadata:        metadata,
		Options:         options,
		TargetChannelID: channelID,
	}

	if err := p.saveContext(ctx, user, requestID, &rctx); err != nil {
		return pipeline.RequestId{}, err
	}
	if err := p.saveState(ctx, user, requestID, &pipeline.State{}); err != nil {
		return pipeline.RequestId{}, err
	}
	if err := p.saveStatus(ctx, user, requestID, pipeline.StatusProcessing); err != nil {
		return pipeline.RequestId{}, err
	}

	slog.Info("Created new track request", "user", user, "request_id", requestID)
	return requestID, nil
}

// ProcessRequest loads Context and State (both REQUIRED to exist — their
// absence is a terminal logic error, not a retryable condition) and runs the
// pipeline to Finish or a terminal error, checkpointing State after every
// handler and writing Status on every terminal outcome.
//
// Calling ProcessRequest on a request whose State already projects to Finish
// runs no handler and returns nil (spec.md §9 Open Question 1): the loop
// condition is simply already false, so only the finish bookkeeping runs
// (Status=Finished, State and Context deleted).
func (p *Processor) ProcessRequest(ctx context.Context, user pipeline.UserId, requestID pipeline.RequestId) error {
	slog.Info("Start processing track request", "user", user, "request_id", requestID)

	rctx, err := p.loadContext(ctx, user, requestID)
	if err != nil {
		return err
	}
	state, err := p.loadState(ctx, user, requestID)
	if err != nil {
		return err
	}

	if err := p.saveStatus(ctx, user, requestID, pipeline.StatusProcessing); err != nil {
		return err
	}

	for pipeline.NextStep(state) != pipeline.StepFinish {
		step, handlerErr := p.Handlers.Run(ctx, user, rctx, state)
		if handlerErr != nil {
			status := classify(handlerErr)
			slog.Error("Track request processing failed", "user", user, "request_id", requestID,
				"step", step, "status", status, "error", handlerErr)

			if err := p.saveStatus(ctx, user, requestID, status); err != nil {
				return err
			}
			return handlerErr
		}

		if err := p.saveState(ctx, user, requestID, state); err != nil {
			return err
		}

		if p.StepInterval != nil {
			p.StepInterval(ctx)
		}
	}

	slog.Info("Track request processing finished", "user", user, "request_id", requestID)

	if err := p.saveStatus(ctx, user, requestID, pipeline.StatusFinished); err != nil {
		return err
	}
	if err := p.deleteState(ctx, user, requestID); err != nil {
		return err
	}
	return p.deleteContext(ctx, user, requestID)
}

// GetProcessingRequests enumerates every RequestId for a user against its
// last-written Status.
func (p *Processor) GetProcessingRequests(ctx context.Context, user pipeline.UserId) (map[pipeline.RequestId]pipeline.Status, error) {
	raw, err := p.Store.GetAll(ctx, StatusNamespace(user))
	if err != nil {
		return nil, &pipeline.StateStorageError{Op: "list status", Err: err}
	}

	result := make(map[pipeline.RequestId]pipeline.Status, len(raw))
	for key, value := range raw {
		requestID, err := pipeline.ParseRequestId(key)
		if err != nil {
			slog.Warn("Skipping malformed request id in status namespace", "key", key, "error", err)
			continue
		}
		var status pipeline.Status
		if err := json.Unmarshal(value, &status); err != nil {
			return nil, &pipeline.StateStorageError{Op: "decode status", Err: err}
		}
		result[requestID] = status
	}
	return result, nil
}

// classify maps a handler error onto the Status the processor must persist
// (spec.md §7): TrackNotFound alone yields NotFound; everything else is
// Failed.
func classify(err error) pipeline.Status {
	var notFound *pipeline.TrackNotFound
	if errors.As(err, &notFound) {
		return pipeline.StatusNotFound
	}
	return pipeline.StatusFailed
}

func (p *Processor) saveContext(ctx context.Context, user pipeline.UserId, id pipeline.RequestId, rctx *pipeline.Context) error {
	return p.saveJSON(ctx, CtxNamespace(user), id, rctx, "save context")
}

func (p *Processor) saveState(ctx context.Context, user pipeline.UserId, id pipeline.RequestId, state *pipeline.State) error {
	return p.saveJSON(ctx, StateNamespace(user), id, state, "save state")
}

func (p *Processor) saveStatus(ctx context.Context, user pipeline.UserId, id pipeline.RequestId, status pipeline.Status) error {
	return p.saveJSON(ctx, StatusNamespace(user), id, status, "save status")
}

func (p *Processor) saveJSON(ctx context.Context, namespace string, id pipeline.RequestId, v any, op string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &pipeline.StateStorageError{Op: op, Err: err}
	}
	if err := p.Store.Save(ctx, namespace, id.String(), data); err != nil {
		return &pipeline.StateStorageError{Op: op, Err: err}
	}
	return nil
}

func (p *Processor) loadContext(ctx context.Context, user pipeline.UserId, id pipeline.RequestId) (*pipeline.Context, error) {
	var rctx pipeline.Context
	if err := p.loadJSON(ctx, CtxNamespace(user), id, &rctx, "load context"); err != nil {
		return nil, err
	}
	return &rctx, nil
}

func (p *Processor) loadState(ctx context.Context, user pipeline.UserId, id pipeline.RequestId) (*pipeline.State, error) {
	var state pipeline.State
	if err := p.loadJSON(ctx, StateNamespace(user), id, &state, "load state"); err != nil {
		return nil, err
	}
	return &state, nil
}

func (p *Processor) loadJSON(ctx context.Context, namespace string, id pipeline.RequestId, v any, op string) error {
	data, ok, err := p.Store.Get(ctx, namespace, id.String())
	if err != nil {
		return &pipeline.StateStorageError{Op: op, Err: err}
	}
	if !ok {
		return &pipeline.StateStorageError{Op: op, Err: fmt.Errorf("request %s has no %s entry", id, namespace)}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &pipeline.StateStorageError{Op: op, Err: err}
	}
	return nil
}

func (p *Processor) deleteContext(ctx context.Context, user pipeline.UserId, id pipeline.RequestId) error {
	if err := p.Store.Delete(ctx, CtxNamespace(user), id.String()); err != nil {
		return &pipeline.StateStorageError{Op: "delete context", Err: err}
	}
	return nil
}

func (p *Processor) deleteState(ctx context.Context, user pipeline.UserId, id pipeline.RequestId) error {
	if err := p.Store.Delete(ctx, StateNamespace(user), id.String()); err != nil {
		return &pipeline.StateStorageError{Op: "delete state", Err: err}
	}
	return nil
}
