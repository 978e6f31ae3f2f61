package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/natsutil"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
)

// Forward relays the request body to a NATS service and writes its reply
// back with status ok. Error replies keep the status chosen by the service.
func Forward(s *common.Service[apiGatewayState], subject string, ok int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read request body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), s.State().timeout)
		defer cancel()

		reply, err := s.NatsConn().RequestWithContext(ctx, subject, body)
		if err != nil {
			status, message := transportError(err)
			slog.ErrorContext(ctx, "Request to service failed", "error", err, "subject", subject)
			c.JSON(status, gin.H{"message": message})
			return
		}

		if svcErr, isErr := natsutil.AsServiceError(natsutil.ReplyError(reply)); isErr {
			slog.InfoContext(ctx, "Service refused request", "subject", subject, "code", svcErr.Code, "message", svcErr.Description)
			c.JSON(svcErr.Status(), gin.H{"message": svcErr.Description})
			return
		}

		c.Data(ok, "application/json; charset=utf-8", reply.Data)
	}
}

func transportError(err error) (int, string) {
	switch {
	case errors.Is(err, nats.ErrNoResponders):
		return http.StatusServiceUnavailable, "Service unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout):
		return http.StatusGatewayTimeout, "Service did not answer in time"
	default:
		return http.StatusBadGateway, "Failed to reach service"
	}
}
