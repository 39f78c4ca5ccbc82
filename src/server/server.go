package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"tradeadmin/src/auth"
	"tradeadmin/src/handler"
	"tradeadmin/src/middleware"
	"tradeadmin/src/repository"
	"tradeadmin/src/security"
)

// NewRouter wires every API route. Split out of StartServer so tests can
// mount the full routing table against httptest.
func NewRouter() (*chi.Mux, error) {
	cfg := GetConfig()

	issuer := auth.NewTokenIssuer(auth.GetConfig())
	cipher, err := security.NewCipher(security.GetConfig().CredentialsKey)
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepository()
	provider := handler.DefaultExchangeProvider(cipher)

	strategies := handler.DefaultStrategyStore()
	futures := handler.DefaultFuturesStore()
	dual := handler.DefaultDualStore()
	withdrawals := handler.DefaultWithdrawalStore()
	orders := handler.DefaultOrderStore()
	prices := handler.DefaultPriceReader()
	admins := handler.DefaultAdminUserStore()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(limiter.Handler)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", handler.LoginHandler(users, issuer))
		r.Post("/auth/register", handler.RegisterHandler(users))

		// Previews are pure calculations, no account required.
		r.Post("/strategies/preview", handler.PreviewStrategyHandler())
		r.Post("/futures/preview", handler.PreviewFuturesHandler())

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticator(issuer, users))

			r.Get("/auth/profile", handler.ProfileHandler())
			r.Post("/auth/password", handler.ChangePasswordHandler(users))
			r.Put("/auth/api-keys", handler.UpdateAPIKeysHandler(users, cipher, provider))
			r.Delete("/auth/api-keys", handler.DeleteAPIKeysHandler(users))

			r.Get("/account/balance", handler.BalanceHandler(provider))
			r.Get("/price", handler.PriceHandler(provider, prices))
			r.Get("/trading-symbols", handler.TradingSymbolsHandler(provider))
			r.Get("/futures/trading-symbols", handler.FuturesTradingSymbolsHandler(provider))

			r.Get("/orders", handler.SearchOrdersHandler(orders))
			r.Post("/orders", handler.PlaceOrderHandler(orders, provider))
			r.Post("/orders/cancel", handler.CancelOrderHandler(orders, provider))
			r.Post("/orders/batch-cancel", handler.BatchCancelOrdersHandler(orders, provider))

			r.Get("/strategies", handler.ListStrategiesHandler(strategies))
			r.Post("/strategies", handler.CreateStrategyHandler(strategies))
			r.Put("/strategies/{id}", handler.UpdateStrategyHandler(strategies))
			r.Delete("/strategies/{id}", handler.DeleteStrategyHandler(strategies))
			r.Post("/strategies/{id}/toggle", handler.ToggleStrategyHandler(strategies))

			r.Get("/futures/strategies", handler.ListFuturesStrategiesHandler(futures))
			r.Post("/futures/strategies", handler.CreateFuturesStrategyHandler(futures))
			r.Put("/futures/strategies/{id}", handler.UpdateFuturesStrategyHandler(futures))
			r.Delete("/futures/strategies/{id}", handler.DeleteFuturesStrategyHandler(futures))
			r.Post("/futures/strategies/{id}/toggle", handler.ToggleFuturesStrategyHandler(futures))
			r.Get("/futures/orders", handler.ListFuturesOrdersHandler(futures))
			r.Get("/futures/positions", handler.ListFuturesPositionsHandler(futures, provider))

			r.Get("/dual/products", handler.ListDualProductsHandler(dual))
			r.Get("/dual/strategies", handler.ListDualStrategiesHandler(dual))
			r.Post("/dual/strategies", handler.CreateDualStrategyHandler(dual))
			r.Delete("/dual/strategies/{id}", handler.DeleteDualStrategyHandler(dual))
			r.Post("/dual/strategies/{id}/toggle", handler.ToggleDualStrategyHandler(dual))
			r.Get("/dual/orders", handler.ListDualOrdersHandler(dual))

			r.Get("/withdrawals", handler.ListWithdrawalsHandler(withdrawals))
			r.Post("/withdrawals", handler.CreateWithdrawalHandler(withdrawals))
			r.Put("/withdrawals/{id}", handler.UpdateWithdrawalHandler(withdrawals))
			r.Delete("/withdrawals/{id}", handler.DeleteWithdrawalHandler(withdrawals))
			r.Post("/withdrawals/{id}/toggle", handler.ToggleWithdrawalHandler(withdrawals))
			r.Get("/withdrawals/history", handler.ListWithdrawalHistoryHandler(withdrawals))
			r.Post("/withdrawals/history/sync", handler.SyncWithdrawalHistoryHandler(withdrawals, provider))
			r.Get("/withdrawals/stats", handler.WithdrawalStatsHandler(withdrawals))

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.AdminOnly)

				r.Get("/users", handler.ListUsersHandler(admins))
				r.Post("/users/{id}/approve", handler.ApproveUserHandler(admins))
				r.Put("/users/{id}/status", handler.UpdateUserStatusHandler(admins))
				r.Put("/users/{id}/role", handler.UpdateUserRoleHandler(admins))
			})
		})
	})

	return r, nil
}

func StartServer(port string) {
	r, err := NewRouter()
	if err != nil {
		logger.WithError(err).Fatal("failed to build router")
	}

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
