package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/natsutil"
	"github.com/alimitedgroup/invdesk/report"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go/jetstream"
)

// warmStock reads the latest message of every location and returns the
// stream sequence to continue from.
func warmStock(ctx context.Context, s *common.Service[apiGatewayState]) (uint64, error) {
	seq, err := natsutil.ConsumeAll(
		ctx,
		s.JetStream(),
		common.StockUpdatesStreamConfig.Name,
		jetstream.OrderedConsumerConfig{
			FilterSubjects: common.StockUpdatesStreamConfig.Subjects,
			DeliverPolicy:  jetstream.DeliverLastPerSubjectPolicy,
		},
		func(msg jetstream.Msg) {
			if err := applyStockUpdate(s.State(), msg.Subject(), msg.Data()); err != nil {
				slog.ErrorContext(ctx, "Skipping stock update", "error", err, "subject", msg.Subject())
			}
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to load stock: %w", err)
	}
	return seq, nil
}

func StockUpdateHandler(ctx context.Context, s *common.Service[apiGatewayState], msg jetstream.Msg) error {
	slog.DebugContext(ctx, "Stock update", "subject", msg.Subject())

	err := applyStockUpdate(s.State(), msg.Subject(), msg.Data())
	if err != nil {
		if err2 := msg.TermWithReason(err.Error()); err2 != nil {
			return fmt.Errorf(
				"while handling %w, another error happened: %w",
				err,
				fmt.Errorf("failed to term message: %w", err2),
			)
		}
		return err
	}
	return nil
}

func applyStockUpdate(state *apiGatewayState, subject string, data []byte) error {
	rest, found := strings.CutPrefix(subject, "stock_updates.")
	if !found {
		return fmt.Errorf("received message on stock_updates with strange subject: %s", subject)
	}
	key, ok := messages.ParseLocationKey(rest)
	if !ok {
		return fmt.Errorf("received message on stock_updates with strange subject: %s", subject)
	}

	var update messages.StockUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return fmt.Errorf("failed to unmarshal stock update: %w", err)
	}

	if len(update) == 0 {
		state.stock.Delete(key.String())
		return nil
	}
	state.stock.Store(key.String(), messages.LocationGroup{
		LocationType: key.Type,
		LocationId:   key.Id,
		Units:        update,
	})
	return nil
}

// snapshot copies the read model, ordered by location key.
func snapshot(state *apiGatewayState) messages.LocationGroupedInventory {
	out := messages.LocationGroupedInventory{}
	state.stock.Range(func(_ string, group messages.LocationGroup) bool {
		out = append(out, group)
		return true
	})
	slices.SortFunc(out, func(a, b messages.LocationGroup) int {
		return strings.Compare(a.Key().String(), b.Key().String())
	})
	return out
}

func ByLocationRoute(s *common.Service[apiGatewayState]) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, snapshot(s.State()))
	}
}

func InventoryReportRoute(s *common.Service[apiGatewayState]) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := report.InventorySheet(snapshot(s.State()))
		if err != nil {
			slog.ErrorContext(c, "Failed to build inventory report", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to build inventory report"})
			return
		}
		defer f.Close()

		name := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Header("Content-Type", report.ContentType)
		c.Status(http.StatusOK)
		if _, err = f.WriteTo(c.Writer); err != nil {
			slog.ErrorContext(c, "Failed to write inventory report", "error", err)
		}
	}
}
