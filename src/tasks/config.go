package tasks

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	PriceInterval      time.Duration `envconfig:"PRICE_MONITOR_INTERVAL" default:"30s"`
	OrderInterval      time.Duration `envconfig:"ORDER_CHECK_INTERVAL" default:"30s"`
	FuturesInterval    time.Duration `envconfig:"FUTURES_CHECK_INTERVAL" default:"1m"`
	WithdrawalInterval time.Duration `envconfig:"WITHDRAWAL_CHECK_INTERVAL" default:"5m"`
	DualInterval       time.Duration `envconfig:"DUAL_INVESTMENT_INTERVAL" default:"1h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
