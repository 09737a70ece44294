package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/stickermart/internal/clock"
	"github.com/alanyoungcy/stickermart/internal/payment"
	"github.com/alanyoungcy/stickermart/internal/server"
	"github.com/alanyoungcy/stickermart/internal/server/handler"
	"github.com/alanyoungcy/stickermart/internal/server/ws"
	"github.com/alanyoungcy/stickermart/internal/service"
)

// services bundles the fully wired service layer shared by all modes.
type services struct {
	collectibles *service.CollectibleService
	listings     *service.ListingService
	orders       *service.OrderService
	auctions     *service.AuctionService
	settlement   *service.SettlementService
	poller       *payment.Poller
	webhook      *payment.WebhookProcessor
}

// buildServices constructs the service layer on top of the wired
// dependencies.
func (a *App) buildServices(deps *Dependencies) *services {
	clk := clock.NewSystem()

	collectibleSvc := service.NewCollectibleService(
		deps.StickerStore, deps.CollectibleStore, deps.ListingStore,
		deps.BlobWriter, deps.BlobReader, deps.AuditStore,
		clk, a.logger, a.cfg.Server.PublicBaseURL,
	)
	listingSvc := service.NewListingService(
		deps.ListingStore, deps.CollectibleStore, deps.SignalBus,
		deps.AuditStore, clk, a.logger,
	)
	orderSvc := service.NewOrderService(
		deps.OrderStore, deps.ListingStore, deps.RateCache,
		deps.BotClient, deps.AuditStore, clk, a.logger,
		a.cfg.Ton.DestinationWallet, a.cfg.Market.StarsPerTon,
		a.cfg.Telegram.BotUsername,
	)
	auctionSvc := service.NewAuctionService(
		deps.TxRunner, deps.ListingStore, deps.BidStore, orderSvc,
		deps.LockManager, deps.SignalBus, deps.AuditStore, clk, a.logger,
	)
	settlementSvc := service.NewSettlementService(
		deps.TxRunner, deps.OrderStore, deps.BidStore, deps.ListingStore,
		deps.CollectibleStore, deps.SignalBus, deps.AuditStore,
		deps.Notifier, clk, a.logger,
	)

	poller := payment.NewPoller(
		deps.TonClient, deps.OrderStore, settlementSvc,
		a.cfg.Ton.DestinationWallet, a.logger,
		payment.WithRetryPolicy(payment.RetryPolicy{
			Attempts: a.cfg.Market.VerifyAttempts,
			Backoff:  a.cfg.Market.VerifyBackoffDurations(),
		}),
		payment.WithPollInterval(a.cfg.Market.PollInterval.Duration),
		payment.WithScanLimit(a.cfg.Market.TxScanLimit),
	)
	webhookProc := payment.NewWebhookProcessor(
		deps.BotClient, deps.OrderStore, settlementSvc, a.logger,
	)

	return &services{
		collectibles: collectibleSvc,
		listings:     listingSvc,
		orders:       orderSvc,
		auctions:     auctionSvc,
		settlement:   settlementSvc,
		poller:       poller,
		webhook:      webhookProc,
	}
}

// ServerMode runs the HTTP + WebSocket API and the Telegram webhook
// receiver. TON verification happens only on demand through the verify
// endpoint; the background sweep is left to poller or full mode.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// PollerMode runs only the background TON payment verification sweep.
func (a *App) PollerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting poller mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	g.Go(func() error {
		return svcs.poller.Run(ctx)
	})

	return g.Wait()
}

// FullMode runs the HTTP + WebSocket API together with the background TON
// payment sweep.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	g.Go(func() error {
		return svcs.poller.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}

	return g.Wait()
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup and registers the Telegram webhook when a public base URL
// is configured. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	handlers := server.Handlers{
		Health:       handler.NewHealthHandler(a.logger),
		Listings:     handler.NewListingHandler(svcs.listings, a.logger),
		Auctions:     handler.NewAuctionHandler(svcs.auctions, svcs.settlement, a.logger),
		Orders:       handler.NewOrderHandler(svcs.orders, svcs.poller, a.logger),
		Collectibles: handler.NewCollectibleHandler(svcs.collectibles, a.logger),
		Settings: handler.NewSettingsHandler(
			svcs.orders,
			a.cfg.Ton.DestinationWallet,
			a.cfg.Telegram.BotUsername,
			a.logger,
		),
		Webhook: handler.NewWebhookHandler(svcs.webhook, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimiter:     deps.RateLimiter,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	// Point the Bot API at our webhook endpoint so Stars confirmations and
	// /start deep links arrive.
	if base := strings.TrimRight(a.cfg.Telegram.WebhookBaseURL, "/"); base != "" {
		webhookURL := base + "/telegram/webhook"
		if err := deps.BotClient.SetWebhook(ctx, webhookURL); err != nil {
			a.logger.WarnContext(ctx, "telegram webhook registration failed",
				slog.String("url", webhookURL),
				slog.String("error", err.Error()),
			)
		} else {
			a.logger.InfoContext(ctx, "telegram webhook registered",
				slog.String("url", webhookURL),
			)
		}
	}
}
