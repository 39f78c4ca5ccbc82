package connectors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BinanceSpotBaseURL    string `envconfig:"BINANCE_SPOT_BASE_URL" default:"https://api.binance.com"`
	BinanceFuturesBaseURL string `envconfig:"BINANCE_FUTURES_BASE_URL" default:"https://fapi.binance.com"`
	BinanceStreamURL      string `envconfig:"BINANCE_STREAM_URL" default:"wss://stream.binance.com:9443/ws"`
	RecvWindowMS          int64  `envconfig:"BINANCE_RECV_WINDOW_MS" default:"5000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
