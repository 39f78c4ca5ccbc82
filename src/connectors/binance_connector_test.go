package connectors

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBinanceSignQuery(t *testing.T) {
	// Example from the Binance API documentation.
	secret := "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
	query := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	expected := "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71"

	if got := binanceSignQuery(secret, query); got != expected {
		t.Fatalf("expected signature %s, got %s", expected, got)
	}
}

func TestRoundToStep(t *testing.T) {
	tests := []struct {
		value, step, expected float64
	}{
		{1.23456789, 0.001, 1.234},
		{0.0999, 0.01, 0.09},
		{100, 1, 100},
		{5.5, 0, 5.5},
	}
	for _, tt := range tests {
		if got := RoundToStep(tt.value, tt.step); got != tt.expected {
			t.Fatalf("RoundToStep(%v, %v) = %v, expected %v", tt.value, tt.step, got, tt.expected)
		}
	}
}

func TestFormatQuantityNoFloatArtifacts(t *testing.T) {
	if got := FormatQuantity(0.1+0.2, 0.1); got != "0.3" {
		t.Fatalf("expected 0.3, got %s", got)
	}
}

func TestGetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"64250.10"}`))
	}))
	defer server.Close()

	connector := &BinanceConnector{
		spotClient: &binanceRESTClient{
			baseURL:    server.URL,
			httpClient: server.Client(),
		},
	}

	price, err := connector.GetPrice("BTCUSDT")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if price != 64250.10 {
		t.Fatalf("expected price 64250.10, got %f", price)
	}
}

func TestSignedRequestCarriesSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("timestamp") == "" || q.Get("signature") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"balances":[{"asset":"BTC","free":"0.5","locked":"0"},{"asset":"DUST","free":"0","locked":"0"}]}`))
	}))
	defer server.Close()

	connector := &BinanceConnector{
		spotClient: &binanceRESTClient{
			apiKey:     "test-key",
			apiSecret:  "test-secret",
			baseURL:    server.URL,
			httpClient: server.Client(),
		},
	}

	balances, err := connector.GetAccountBalances()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("expected zero balances filtered out, got %d entries", len(balances))
	}
	if balances[0].Asset != "BTC" || balances[0].Free != 0.5 {
		t.Fatalf("unexpected balance %+v", balances[0])
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	connector := &BinanceConnector{
		spotClient: &binanceRESTClient{
			baseURL:    server.URL,
			httpClient: server.Client(),
		},
	}

	_, err := connector.GetPrice("NOPEUSDT")
	if err == nil {
		t.Fatal("expected error for invalid symbol")
	}
}
