// Package service holds the business-logic layer the gin handlers delegate
// to, adapted from the teacher's internal/radio/service split.
package service

import (
	"context"
	"fmt"

	"github.com/myownradio/channel-bot/internal/pipeline"
	"github.com/myownradio/channel-bot/internal/supervisor"
)

// ErrRequestNotFound means a given request id has no recorded status for
// the user, i.e. it was never created for that user. Finished requests keep
// their Finished status and are still found.
var ErrRequestNotFound = fmt.Errorf("request not found")

// RequestService wraps the Supervisor behind the shape an HTTP handler
// needs: create-and-spawn, look up a single status, retry a failed one.
type RequestService struct {
	supervisor *supervisor.Supervisor
}

func NewRequestService(sup *supervisor.Supervisor) *RequestService {
	return &RequestService{supervisor: sup}
}

// CreateRequestInput is the caller-facing shape of a new track request.
type CreateRequestInput struct {
	Metadata         pipeline.AudioMetadata
	ValidateMetadata bool
	ChannelID        pipeline.ChannelId
}

// Create starts a new track request and returns its id immediately; the
// pipeline itself runs detached (spec.md §1, §5 — no cancellation surface).
func (s *RequestService) Create(ctx context.Context, user pipeline.UserId, in CreateRequestInput) (pipeline.RequestId, error) {
	return s.supervisor.CreateRequest(ctx, user, in.Metadata, pipeline.CreateRequestOptions{
		ValidateMetadata: in.ValidateMetadata,
	}, in.ChannelID)
}

// Status looks up the current status of a request belonging to user.
func (s *RequestService) Status(ctx context.Context, user pipeline.UserId, requestID pipeline.RequestId) (pipeline.Status, error) {
	requests, err := s.supervisor.GetProcessingRequests(ctx, user)
	if err != nil {
		return "", err
	}
	status, ok := requests[requestID]
	if !ok {
		return "", ErrRequestNotFound
	}
	return status, nil
}

// List returns every request currently tracked for user, keyed by id.
func (s *RequestService) List(ctx context.Context, user pipeline.UserId) (map[pipeline.RequestId]pipeline.Status, error) {
	return s.supervisor.GetProcessingRequests(ctx, user)
}

// Retry re-spawns processing for a request left in Status=Failed. Returns
// false if the request's status is not Failed or a task for it is already
// live, and ErrRequestNotFound if the request has no recorded status.
func (s *RequestService) Retry(ctx context.Context, user pipeline.UserId, requestID pipeline.RequestId) (bool, error) {
	status, err := s.Status(ctx, user, requestID)
	if err != nil {
		return false, err
	}
	if status != pipeline.StatusFailed {
		return false, nil
	}
	return s.supervisor.Retry(ctx, user, requestID), nil
}
