package compose

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/alimitedgroup/invdesk/common/messages"
)

// GenericFailure is shown when the server gives no reason for a failure.
const GenericFailure = "Something went wrong, please try again"

// Gateway is the part of the remote API the controller writes through.
type Gateway interface {
	PostEquipmentMovement(ctx context.Context, draft messages.MovementDraft) (messages.Response, error)
	CreateProcurement(ctx context.Context, draft messages.ProcurementDraft) (messages.Response, error)
	FetchEquipmentByLocation(ctx context.Context) (messages.LocationGroupedInventory, error)
}

// Controller sends drafts to the gateway, one at a time, and turns the outcome
// into an action for the matching reducer.
type Controller struct {
	gw       Gateway
	inFlight atomic.Bool
}

func NewController(gw Gateway) *Controller {
	return &Controller{gw: gw}
}

// SubmitMovement never returns nil. A draft failing Validate, or arriving
// while another submission runs, is rejected without calling the gateway.
func (c *Controller) SubmitMovement(ctx context.Context, s MovementState) Action {
	if err := s.Validate(); err != nil {
		return SubmitRejected{Err: err}
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return SubmitRejected{Err: ErrSubmissionInFlight}
	}
	defer c.inFlight.Store(false)

	draft := s.Draft()
	resp, err := c.gw.PostEquipmentMovement(ctx, draft)
	if err != nil {
		slog.WarnContext(ctx, "Movement submission failed", "error", err, "from", s.Source.Key(), "to", s.Destination.Key())
		return SubmitFailed{Message: ErrorMessage(err)}
	}

	slog.InfoContext(ctx, "Movement submitted", "id", resp.Id, "total", draft.TotalCost)
	return SubmitSucceeded{
		Message:   successMessage(resp, "Equipment movement recorded"),
		Id:        resp.Id,
		Inventory: c.refresh(ctx),
	}
}

func (c *Controller) SubmitProcurement(ctx context.Context, s ProcurementState) Action {
	if err := s.Validate(); err != nil {
		return SubmitRejected{Err: err}
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return SubmitRejected{Err: ErrSubmissionInFlight}
	}
	defer c.inFlight.Store(false)

	draft := s.Draft()
	resp, err := c.gw.CreateProcurement(ctx, draft)
	if err != nil {
		slog.WarnContext(ctx, "Procurement submission failed", "error", err, "supplier", s.SupplierId)
		return SubmitFailed{Message: ErrorMessage(err)}
	}

	slog.InfoContext(ctx, "Procurement submitted", "id", resp.Id, "total", draft.TotalCost)
	return SubmitSucceeded{
		Message:   successMessage(resp, "Procurement recorded"),
		Id:        resp.Id,
		Inventory: c.refresh(ctx),
	}
}

// refresh re-reads the location inventory so the next draft sees the stock
// the server now has. On failure the old snapshot stays in use.
func (c *Controller) refresh(ctx context.Context) *Inventory {
	snapshot, err := c.gw.FetchEquipmentByLocation(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to refresh inventory after submission", "error", err)
		return nil
	}
	return NewInventory(snapshot)
}

// ErrorMessage extracts the message the server reported, if any.
func ErrorMessage(err error) string {
	var srv interface{ ServerMessage() string }
	if errors.As(err, &srv) && srv.ServerMessage() != "" {
		return srv.ServerMessage()
	}
	return GenericFailure
}

func successMessage(resp messages.Response, fallback string) string {
	if resp.Message != "" {
		return resp.Message
	}
	return fallback
}
