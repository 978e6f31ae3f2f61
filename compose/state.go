package compose

import (
	"errors"

	"github.com/alimitedgroup/invdesk/common/messages"
)

var (
	ErrIncompleteDraft    = errors.New("draft is incomplete")
	ErrSameLocation       = errors.New("source and destination are the same location")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// Role tells which side of a movement an endpoint describes.
type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// Endpoint is one side of a movement. An empty LocationId means not chosen.
type Endpoint struct {
	Role         Role
	LocationType messages.LocationType
	LocationId   string
}

func (e Endpoint) Key() messages.LocationKey {
	return messages.LocationKey{Type: e.LocationType, Id: e.LocationId}
}

func (e Endpoint) IsSet() bool {
	return e.LocationId != ""
}

type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	}
	return "unknown"
}
