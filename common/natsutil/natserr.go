package natsutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
)

// Description is an error reply: an HTTP-style status code plus the message
// shown to the user.
type Description struct {
	code        string
	description string
}

func (d Description) Code() string        { return d.code }
func (d Description) Description() string { return d.description }

// Invalid is a 400 carrying a validation message.
func Invalid(description string) Description {
	return Description{strconv.Itoa(http.StatusBadRequest), description}
}

var (
	InvalidRequest    = Invalid("Failed to deserialize request body")
	InsufficientStock = Description{"409", "Insufficient stock"}
	SerialRegistered  = Description{"409", "Serial number already registered"}
	AlreadyExists     = Description{"409", "An entry with the same name already exists"}
	MarshalError      = Description{"500", "Failed to serialize response body"}
	QueryError        = Description{"500", "Failed to query database"}
	PublishError      = Description{"500", "Recorded, but the stock update could not be published"}
)

// Respond sends d as a micro error reply.
func Respond(req micro.Request, d Description) {
	if err := req.Error(d.code, d.description, nil); err != nil {
		slog.Error("Failed to send error reply", "error", err, "subject", req.Subject())
	}
}

// RespondMsg sends d to a plain NATS request, using the same headers as
// micro so callers decode both the same way.
func RespondMsg(msg *nats.Msg, d Description) {
	reply := nats.NewMsg(msg.Reply)
	reply.Header.Set(micro.ErrorHeader, d.description)
	reply.Header.Set(micro.ErrorCodeHeader, d.code)
	if err := msg.RespondMsg(reply); err != nil {
		slog.Error("Failed to send error reply", "error", err, "subject", msg.Subject)
	}
}

// ServiceError is an error reply received from another service.
type ServiceError struct {
	Code        string
	Description string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error %s: %s", e.Code, e.Description)
}

// Status maps Code to an HTTP status, defaulting to 502.
func (e *ServiceError) Status() int {
	code, err := strconv.Atoi(e.Code)
	if err != nil || code < 400 || code > 599 {
		return http.StatusBadGateway
	}
	return code
}

// ReplyError returns a *ServiceError if reply carries micro error headers.
func ReplyError(reply *nats.Msg) error {
	if reply == nil || reply.Header == nil {
		return nil
	}
	code := reply.Header.Get(micro.ErrorCodeHeader)
	description := reply.Header.Get(micro.ErrorHeader)
	if code == "" && description == "" {
		return nil
	}
	return &ServiceError{Code: code, Description: description}
}

// AsServiceError is errors.As for *ServiceError.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
