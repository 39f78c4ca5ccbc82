package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const reconnectDelay = 5 * time.Second

type miniTickerEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// PriceStream keeps a websocket subscription to the exchange miniTicker
// channel and forwards each price through the callback. It reconnects on
// failure until the context is cancelled.
type PriceStream struct {
	streamURL string
	symbols   []string
	onPrice   func(symbol string, price float64)
}

func NewPriceStream(symbols []string, onPrice func(symbol string, price float64)) *PriceStream {
	config := GetConfig()
	return &PriceStream{
		streamURL: config.BinanceStreamURL,
		symbols:   symbols,
		onPrice:   onPrice,
	}
}

func (p *PriceStream) endpoint() string {
	streams := make([]string, 0, len(p.symbols))
	for _, s := range p.symbols {
		streams = append(streams, strings.ToLower(s)+"@miniTicker")
	}
	return p.streamURL + "/" + strings.Join(streams, "/")
}

// Run blocks until the context is cancelled.
func (p *PriceStream) Run(ctx context.Context) {
	if len(p.symbols) == 0 {
		return
	}
	for {
		if err := p.connectAndRead(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).Warn("Price stream disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (p *PriceStream) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	logger.WithField("symbols", p.symbols).Info("Price stream connected")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var event miniTickerEvent
		if err := json.Unmarshal(message, &event); err != nil {
			logger.WithError(err).Debug("Skipping unparseable stream message")
			continue
		}
		if event.EventType != "24hrMiniTicker" {
			continue
		}

		price := parseFloat(event.Close)
		if price > 0 && p.onPrice != nil {
			p.onPrice(event.Symbol, price)
		}
	}
}
