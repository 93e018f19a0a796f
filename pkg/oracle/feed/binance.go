package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceAdapter fetches spot prices from the Binance REST API.
type BinanceAdapter struct {
	apiURL string
	pairs  map[string]string // unified symbol -> Binance symbol (e.g. "BTC/USD" -> "BTCUSDT")
	client *http.Client
	logger *logging.Logger
}

// BinancePriceTicker represents lightweight price data from /ticker/price
type BinancePriceTicker struct {
	Symbol string `json:"symbol"` // e.g., "BTCUSDT"
	Price  string `json:"price"`  // Current price
}

// NewBinanceAdapter creates a new Binance adapter.
func NewBinanceAdapter(config map[string]interface{}, logger *logging.Logger) (Adapter, error) {
	pairs, err := ParsePairs(config)
	if err != nil {
		return nil, fmt.Errorf("binance: %w", err)
	}

	apiURL := binanceBaseURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	return &BinanceAdapter{
		apiURL: apiURL,
		pairs:  pairs,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Name returns the source name.
func (s *BinanceAdapter) Name() string {
	return "binance"
}

// Fetch retrieves current prices from the REST API.
func (s *BinanceAdapter) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	url := s.apiURL + "/api/v3/ticker/price"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tickers []BinancePriceTicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	// Index tickers by symbol for lookup
	bySymbol := make(map[string]string, len(tickers))
	for _, ticker := range tickers {
		bySymbol[strings.ToUpper(ticker.Symbol)] = ticker.Price
	}

	prices := make(map[string]decimal.Decimal, len(s.pairs))
	for unified, sourceSymbol := range s.pairs {
		raw, ok := bySymbol[strings.ToUpper(sourceSymbol)]
		if !ok {
			continue // Symbol not in response; this reading does not vote on it
		}

		price, err := decimal.NewFromString(raw)
		if err != nil {
			s.logger.Warn("Failed to parse price", "symbol", sourceSymbol, "price", raw, "error", err)
			continue
		}
		prices[unified] = price
	}

	if len(prices) == 0 {
		return nil, ErrNoPricesExtracted
	}
	return prices, nil
}

var _ Adapter = (*BinanceAdapter)(nil)

func init() {
	Register("cex.binance", NewBinanceAdapter)
}
