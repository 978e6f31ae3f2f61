package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/puzpuzpuz/xsync/v3"
)

type apiGatewayState struct {
	// stock holds the latest unit list of every location, keyed by
	// LocationKey.String().
	stock   *xsync.MapOf[string, messages.LocationGroup]
	timeout time.Duration
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := common.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load configuration", "error", err)
		return
	}

	otelshutdown, err := common.SetupOTelSDK(ctx, cfg.OtlpURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to set up observability", "error", err)
		return
	}
	defer otelshutdown(context.WithoutCancel(ctx))

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to connect to NATS", "error", err)
		return
	}

	svc, err := setupGateway(ctx, nc)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to set up api gateway", "error", err)
		return
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:           setupRouter(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.InfoContext(ctx, "Listening", "addr", srv.Addr)
	if err = srv.ListenAndServe(); err != nil {
		slog.ErrorContext(ctx, "HTTP server stopped", "error", err)
	}
}

// setupGateway loads the current stock of every location before returning,
// then keeps following the stock_updates stream.
func setupGateway(ctx context.Context, nc *nats.Conn) (*common.Service[apiGatewayState], error) {
	svc, err := common.NewService(ctx, nc, apiGatewayState{
		stock:   xsync.NewMapOf[string, messages.LocationGroup](),
		timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	if err = common.CreateStream(ctx, svc.JetStream(), common.StockUpdatesStreamConfig); err != nil {
		return nil, err
	}

	seq, err := warmStock(ctx, svc)
	if err != nil {
		return nil, err
	}

	err = svc.RegisterJsHandler(common.StockUpdatesStreamConfig.Name, StockUpdateHandler, common.WithStartSequence(seq))
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Service setup successful", "service", "api_gateway", "locations", svc.State().stock.Size())
	return svc, nil
}

func setupRouter(svc *common.Service[apiGatewayState]) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/ping", PingHandler)

	r.GET("/locations", Forward(svc, "catalog.location.list", http.StatusOK))
	r.POST("/locations", Forward(svc, "catalog.location.create", http.StatusCreated))
	r.GET("/equipment", Forward(svc, "catalog.equipment.list", http.StatusOK))
	r.POST("/equipment", Forward(svc, "catalog.equipment.create", http.StatusCreated))
	r.GET("/tools", Forward(svc, "catalog.tool.list", http.StatusOK))
	r.POST("/tools", Forward(svc, "catalog.tool.create", http.StatusCreated))
	r.GET("/suppliers", Forward(svc, "catalog.supplier.list", http.StatusOK))
	r.POST("/suppliers", Forward(svc, "catalog.supplier.create", http.StatusCreated))
	r.GET("/users", Forward(svc, "catalog.user.list", http.StatusOK))

	r.GET("/equipment/by-location", ByLocationRoute(svc))
	r.POST("/equipment-movements", Forward(svc, "inventory.movement.create", http.StatusCreated))
	r.POST("/procurements", Forward(svc, "inventory.procurement.create", http.StatusCreated))

	r.GET("/reports/inventory", InventoryReportRoute(svc))

	return r
}

func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}
