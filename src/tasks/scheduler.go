package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
	"tradeadmin/src/repository"
	"tradeadmin/src/security"
	"tradeadmin/src/strategy"
)

// exchangeClient is the connector surface the sweeps use. The Binance
// connector satisfies it; tests swap in fakes.
type exchangeClient interface {
	strategy.Exchange
	strategy.FuturesExchange
	GetAccountBalances() ([]connectors.Balance, error)
	GetPositionRisk(symbol string) ([]connectors.PositionRisk, error)
	Withdraw(asset, address, network string, amount float64) (string, error)
	GetDualInvestmentProducts(optionType, exercisedCoin, investCoin string) ([]connectors.DualProduct, error)
	SubscribeDualInvestmentProduct(productID string, amount float64, autoCompound bool) (string, error)
}

// Scheduler drives every background loop: price cache refresh, strategy
// execution, open-order reconciliation, futures execution, automatic
// withdrawals and the dual-investment catalog.
type Scheduler struct {
	cfg Config

	users       *repository.GormUserRepository
	strategies  *repository.StrategyRepository
	orders      *repository.OrderRepository
	futures     *repository.FuturesRepository
	dual        *repository.DualInvestmentRepository
	withdrawals *repository.WithdrawalRepository
	prices      *repository.PriceRepository

	executor        *strategy.Executor
	futuresExecutor *strategy.FuturesExecutor

	// connectorFor builds a signed client for a user; public serves the
	// unsigned market-data endpoints.
	connectorFor func(user *model.User) (exchangeClient, error)
	public       interface {
		GetPrice(symbol string) (float64, error)
	}
}

func NewScheduler(cipher *security.Cipher) *Scheduler {
	strategies := repository.NewStrategyRepository()
	orders := repository.NewOrderRepository()
	futures := repository.NewFuturesRepository()

	return &Scheduler{
		cfg:             GetConfig(),
		users:           repository.NewUserRepository(),
		strategies:      strategies,
		orders:          orders,
		futures:         futures,
		dual:            repository.NewDualInvestmentRepository(),
		withdrawals:     repository.NewWithdrawalRepository(),
		prices:          repository.NewPriceRepository(),
		executor:        strategy.NewExecutor(nil, strategies, orders),
		futuresExecutor: strategy.NewFuturesExecutor(nil, futures),
		connectorFor: func(user *model.User) (exchangeClient, error) {
			if user.APIKey == "" || user.SecretKey == "" {
				return nil, fmt.Errorf("user %d has no api keys", user.ID)
			}
			apiKey, err := cipher.DecryptString(user.APIKey)
			if err != nil {
				return nil, err
			}
			secretKey, err := cipher.DecryptString(user.SecretKey)
			if err != nil {
				return nil, err
			}
			return connectors.NewBinanceConnector(apiKey, secretKey), nil
		},
		public: connectors.NewBinanceConnector("", ""),
	}
}

// Run blocks until ctx is canceled, running each loop on its own ticker.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	loops := []struct {
		name     string
		interval time.Duration
		sweep    func(ctx context.Context)
	}{
		{"price-monitor", s.cfg.PriceInterval, s.priceSweep},
		{"strategy-executor", s.cfg.OrderInterval, s.strategySweep},
		{"order-check", s.cfg.OrderInterval, s.orderSweep},
		{"futures-executor", s.cfg.FuturesInterval, s.futuresSweep},
		{"withdrawal-rules", s.cfg.WithdrawalInterval, s.withdrawalSweep},
		{"dual-investment", s.cfg.DualInterval, s.dualSweep},
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runPriceStream(ctx)
	}()

	for _, loop := range loops {
		wg.Add(1)
		go func(name string, interval time.Duration, sweep func(ctx context.Context)) {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			logger.WithFields(logger.Fields{"loop": name, "interval": interval}).Info("loop started")
			for {
				select {
				case <-ctx.Done():
					logger.WithField("loop", name).Info("loop stopped")
					return
				case <-ticker.C:
					sweep(ctx)
				}
			}
		}(loop.name, loop.interval, loop.sweep)
	}

	wg.Wait()
}

// activeSymbols lists every symbol referenced by a running spot or
// futures strategy, sorted so identical sets compare equal.
func (s *Scheduler) activeSymbols(ctx context.Context) ([]string, error) {
	set := map[string]struct{}{}

	spot, err := s.strategies.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, strat := range spot {
		set[strat.Symbol] = struct{}{}
	}

	futures, err := s.futures.FindActiveStrategies(ctx)
	if err != nil {
		return nil, err
	}
	for _, strat := range futures {
		set[strat.Symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(set))
	for symbol := range set {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// priceSweep refreshes the local cache for every symbol referenced by a
// running strategy. Market data needs no credentials.
func (s *Scheduler) priceSweep(ctx context.Context) {
	symbols, err := s.activeSymbols(ctx)
	if err != nil {
		logger.WithError(err).Error("price sweep failed to list strategies")
		return
	}

	for _, symbol := range symbols {
		price, err := s.public.GetPrice(symbol)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).Warn("price fetch failed")
			continue
		}
		if err := s.prices.Upsert(ctx, symbol, price); err != nil {
			logger.WithError(err).WithField("symbol", symbol).Error("price cache update failed")
		}
	}
}

// runPriceStream keeps a live ticker subscription over the active
// symbols, restarting the stream whenever the set changes. The polling
// sweep stays as the fallback when the stream is down.
func (s *Scheduler) runPriceStream(ctx context.Context) {
	var cancel context.CancelFunc
	var current string

	ticker := time.NewTicker(s.cfg.PriceInterval)
	defer ticker.Stop()

	for {
		symbols, err := s.activeSymbols(ctx)
		if err != nil {
			logger.WithError(err).Error("price stream failed to list strategies")
		} else if key := strings.Join(symbols, ","); key != current {
			if cancel != nil {
				cancel()
				cancel = nil
			}
			current = key
			if len(symbols) > 0 {
				streamCtx, stop := context.WithCancel(ctx)
				cancel = stop
				stream := connectors.NewPriceStream(symbols, func(symbol string, price float64) {
					if err := s.prices.Upsert(ctx, symbol, price); err != nil {
						logger.WithError(err).WithField("symbol", symbol).Error("price cache update failed")
					}
				})
				go stream.Run(streamCtx)
			}
		}

		select {
		case <-ctx.Done():
			if cancel != nil {
				cancel()
			}
			return
		case <-ticker.C:
		}
	}
}

// strategySweep advances every active spot strategy by one tick.
func (s *Scheduler) strategySweep(ctx context.Context) {
	active, err := s.strategies.FindActive(ctx)
	if err != nil {
		logger.WithError(err).Error("strategy sweep failed to list strategies")
		return
	}

	clients := map[uint]exchangeClient{}
	for i := range active {
		strat := &active[i]
		client, err := s.clientForUser(ctx, clients, strat.UserID)
		if err != nil {
			logger.WithError(err).WithField("user_id", strat.UserID).Warn("skipping strategies without exchange client")
			continue
		}
		if err := s.executor.Tick(ctx, strat, client); err != nil {
			logger.WithError(err).WithField("strategy_id", strat.ID).Error("strategy tick failed")
		}
	}
}

// orderSweep reconciles open spot orders with the exchange.
func (s *Scheduler) orderSweep(ctx context.Context) {
	open, err := s.orders.FindOpen(ctx, 0)
	if err != nil {
		logger.WithError(err).Error("order sweep failed to list open orders")
		return
	}

	clients := map[uint]exchangeClient{}
	for _, order := range open {
		client, err := s.clientForUser(ctx, clients, order.UserID)
		if err != nil {
			continue
		}
		result, err := client.GetOrder(order.Symbol, order.OrderID)
		if err != nil {
			logger.WithError(err).WithField("order_id", order.OrderID).Warn("order status check failed")
			continue
		}
		status := model.OrderStatus(strings.ToLower(result.Status))
		if status == order.Status && result.ExecutedQty == order.ExecutedQty {
			continue
		}
		if err := s.orders.UpdateExecution(ctx, order.OrderID, status, result.ExecutedQty, result.QuoteQty); err != nil {
			logger.WithError(err).WithField("order_id", order.OrderID).Error("order update failed")
		}
	}
}

// futuresSweep advances futures strategies and refreshes position
// snapshots for users with running strategies.
func (s *Scheduler) futuresSweep(ctx context.Context) {
	active, err := s.futures.FindActiveStrategies(ctx)
	if err != nil {
		logger.WithError(err).Error("futures sweep failed to list strategies")
		return
	}

	clients := map[uint]exchangeClient{}
	seen := map[uint]bool{}
	for i := range active {
		strat := &active[i]
		client, err := s.clientForUser(ctx, clients, strat.UserID)
		if err != nil {
			logger.WithError(err).WithField("user_id", strat.UserID).Warn("skipping futures strategies without exchange client")
			continue
		}
		if err := s.futuresExecutor.Tick(ctx, strat, client); err != nil {
			logger.WithError(err).WithField("strategy_id", strat.ID).Error("futures tick failed")
		}

		if seen[strat.UserID] {
			continue
		}
		seen[strat.UserID] = true
		risks, err := client.GetPositionRisk("")
		if err != nil {
			logger.WithError(err).WithField("user_id", strat.UserID).Warn("position refresh failed")
			continue
		}
		positions := make([]model.FuturesPosition, 0, len(risks))
		for _, risk := range risks {
			positions = append(positions, model.FuturesPosition{
				UserID:           strat.UserID,
				Symbol:           risk.Symbol,
				PositionSide:     model.PositionSide(strings.ToLower(risk.PositionSide)),
				PositionAmt:      risk.PositionAmt,
				EntryPrice:       risk.EntryPrice,
				MarkPrice:        risk.MarkPrice,
				UnrealizedProfit: risk.UnrealizedProfit,
				LiquidationPrice: risk.LiquidationPrice,
				Leverage:         risk.Leverage,
				MarginType:       model.MarginType(strings.ToLower(risk.MarginType)),
				IsolatedMargin:   risk.IsolatedMargin,
			})
		}
		if err := s.futures.ReplacePositions(ctx, strat.UserID, positions); err != nil {
			logger.WithError(err).WithField("user_id", strat.UserID).Error("position snapshot failed")
		}
	}
}

// withdrawalSweep fires active auto-withdrawal rules. A rule only fires
// when the free balance covers both the withdrawal and the minimum the
// user wants to keep, and the trigger price (when set) has been reached.
func (s *Scheduler) withdrawalSweep(ctx context.Context) {
	rules, err := s.withdrawals.FindActiveAutoRules(ctx)
	if err != nil {
		logger.WithError(err).Error("withdrawal sweep failed to list rules")
		return
	}

	clients := map[uint]exchangeClient{}
	for _, rule := range rules {
		client, err := s.clientForUser(ctx, clients, rule.UserID)
		if err != nil {
			continue
		}

		balances, err := client.GetAccountBalances()
		if err != nil {
			logger.WithError(err).WithField("user_id", rule.UserID).Warn("balance fetch failed")
			continue
		}
		free := freeBalance(balances, rule.Asset)
		price := 0.0
		if rule.TriggerPrice > 0 {
			price, err = client.GetPrice(rule.Asset + "USDT")
			if err != nil {
				logger.WithError(err).WithField("asset", rule.Asset).Warn("trigger price fetch failed")
				continue
			}
		}
		if !shouldWithdraw(&rule, free, price) {
			continue
		}

		withdrawID, err := client.Withdraw(rule.Asset, rule.Address, rule.Network, rule.Amount)
		if err != nil {
			logger.WithError(err).WithField("rule_id", rule.ID).Error("withdrawal failed")
			continue
		}

		ruleID := rule.ID
		history := &model.WithdrawalHistory{
			UserID:       rule.UserID,
			WithdrawalID: &ruleID,
			Asset:        rule.Asset,
			Amount:       rule.Amount,
			Address:      rule.Address,
			Network:      rule.Network,
			TxID:         withdrawID,
			Status:       "pending",
			ApplyTime:    time.Now().UnixMilli(),
		}
		if err := s.withdrawals.UpsertHistory(ctx, history); err != nil {
			logger.WithError(err).WithField("rule_id", rule.ID).Error("withdrawal history record failed")
		}

		logger.WithFields(logger.Fields{
			"rule_id":     rule.ID,
			"asset":       rule.Asset,
			"amount":      rule.Amount,
			"withdraw_id": withdrawID,
		}).Info("automatic withdrawal submitted")
	}
}

// dualSweep refreshes the product catalog and subscribes strategies whose
// yield and price conditions are met.
func (s *Scheduler) dualSweep(ctx context.Context) {
	active, err := s.dual.FindActiveStrategies(ctx)
	if err != nil {
		logger.WithError(err).Error("dual sweep failed to list strategies")
		return
	}

	clients := map[uint]exchangeClient{}
	refreshed := map[string]bool{}
	for _, strat := range active {
		client, err := s.clientForUser(ctx, clients, strat.UserID)
		if err != nil {
			continue
		}

		if !refreshed[strat.BaseAsset] {
			refreshed[strat.BaseAsset] = true
			products, err := client.GetDualInvestmentProducts("CALL", strat.BaseAsset, strat.QuoteAsset)
			if err != nil {
				logger.WithError(err).WithField("base_asset", strat.BaseAsset).Warn("product refresh failed")
			} else {
				for _, p := range products {
					product := &model.DualInvestmentProduct{
						ProductID:      p.ProductID,
						ProductName:    p.ProductName,
						BaseAsset:      p.BaseAsset,
						QuoteAsset:     p.QuoteAsset,
						MinAmount:      p.MinAmount,
						MaxAmount:      p.MaxAmount,
						Duration:       p.Duration,
						SettlementDate: p.SettlementDate,
						DeliveryPrice:  p.DeliveryPrice,
						YieldRate:      p.YieldRate,
						IsActive:       true,
					}
					if err := s.dual.UpsertProduct(ctx, product); err != nil {
						logger.WithError(err).WithField("product_id", p.ProductID).Error("product upsert failed")
					}
				}
			}
		}

		product, err := s.dual.FindProduct(ctx, strat.ProductID)
		if err != nil {
			logger.WithError(err).WithField("product_id", strat.ProductID).Warn("subscribed product missing from catalog")
			continue
		}
		if product.YieldRate < strat.MinYieldRate {
			continue
		}

		if strat.InvestmentType == model.DualInvestPriceTrigger {
			price, err := client.GetPrice(strat.BaseAsset + strat.QuoteAsset)
			if err != nil {
				logger.WithError(err).WithField("strategy_id", strat.ID).Warn("trigger price fetch failed")
				continue
			}
			if price < strat.TriggerPrice {
				continue
			}
		}

		amount := strat.Amount
		if strat.InvestmentType == model.DualInvestLadder {
			amount = strat.AmountPerStep
		}

		orderID, err := client.SubscribeDualInvestmentProduct(strat.ProductID, amount, strat.AutoReinvest)
		if err != nil {
			logger.WithError(err).WithField("strategy_id", strat.ID).Error("dual subscription failed")
			continue
		}

		stratID := strat.ID
		order := &model.DualInvestmentOrder{
			UserID:         strat.UserID,
			StrategyID:     &stratID,
			ProductID:      strat.ProductID,
			OrderID:        orderID,
			Amount:         amount,
			Currency:       strat.QuoteAsset,
			YieldRate:      product.YieldRate,
			Duration:       product.Duration,
			SettlementDate: product.SettlementDate,
			Status:         "subscribed",
			PurchaseTime:   time.Now().UnixMilli(),
		}
		if err := s.dual.CreateOrder(ctx, order); err != nil {
			logger.WithError(err).WithField("strategy_id", strat.ID).Error("dual order record failed")
		}

		logger.WithFields(logger.Fields{
			"strategy_id": strat.ID,
			"product_id":  strat.ProductID,
			"amount":      amount,
		}).Info("dual investment subscribed")

		// One-shot styles deactivate after a fill; auto-reinvest keeps going.
		if strat.InvestmentType != model.DualInvestAutoReinvest && !strat.AutoReinvest {
			if err := s.dual.SetStrategyActive(ctx, strat.UserID, strat.ID, false); err != nil {
				logger.WithError(err).WithField("strategy_id", strat.ID).Error("dual strategy deactivation failed")
			}
		}
	}
}

func freeBalance(balances []connectors.Balance, asset string) float64 {
	for _, balance := range balances {
		if balance.Asset == asset {
			return balance.Free
		}
	}
	return 0
}

// shouldWithdraw gates a rule: the free balance must cover the amount
// plus the balance floor, and the trigger price (when set) must be met.
func shouldWithdraw(rule *model.Withdrawal, free, price float64) bool {
	if free < rule.MinBalance+rule.Amount {
		return false
	}
	if rule.TriggerPrice > 0 && price < rule.TriggerPrice {
		return false
	}
	return true
}

func (s *Scheduler) clientForUser(ctx context.Context, cache map[uint]exchangeClient, userID uint) (exchangeClient, error) {
	if client, ok := cache[userID]; ok {
		return client, nil
	}
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	client, err := s.connectorFor(user)
	if err != nil {
		return nil, err
	}
	cache[userID] = client
	return client, nil
}
