package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
)

const krakenBaseURL = "https://api.kraken.com/0/public/Ticker"

// KrakenAdapter fetches spot prices from the Kraken REST API.
type KrakenAdapter struct {
	apiURL string
	pairs  map[string]string // unified symbol -> Kraken pair (e.g. "BTC/USD" -> "XBTUSD")
	client *http.Client
	logger *logging.Logger
}

// KrakenTickerData represents ticker data for a single pair
type KrakenTickerData struct {
	A []string `json:"a"` // Ask [price, whole lot volume, lot volume]
	B []string `json:"b"` // Bid [price, whole lot volume, lot volume]
	C []string `json:"c"` // Last trade [price, lot volume]
}

// KrakenResponse represents the API response
type KrakenResponse struct {
	Error  []string                    `json:"error"`
	Result map[string]KrakenTickerData `json:"result"`
}

// NewKrakenAdapter creates a new Kraken adapter.
func NewKrakenAdapter(config map[string]interface{}, logger *logging.Logger) (Adapter, error) {
	pairs, err := ParsePairs(config)
	if err != nil {
		return nil, fmt.Errorf("kraken: %w", err)
	}

	apiURL := krakenBaseURL
	if u, ok := config["api_url"].(string); ok && u != "" {
		apiURL = u
	}

	return &KrakenAdapter{
		apiURL: apiURL,
		pairs:  pairs,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Name returns the source name.
func (s *KrakenAdapter) Name() string {
	return "kraken"
}

// Fetch retrieves current prices from the Kraken API.
func (s *KrakenAdapter) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	krakenSymbols := make([]string, 0, len(s.pairs))
	for _, krakenSymbol := range s.pairs {
		krakenSymbols = append(krakenSymbols, krakenSymbol)
	}

	reqURL := fmt.Sprintf("%s?pair=%s", s.apiURL, url.QueryEscape(strings.Join(krakenSymbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var response KrakenResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(response.Error) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrAPIError, response.Error)
	}

	prices := make(map[string]decimal.Decimal, len(s.pairs))
	for krakenSymbol, ticker := range response.Result {
		unified := s.matchSymbol(krakenSymbol)
		if unified == "" {
			continue // Not a pair we're tracking
		}

		// Use last trade price
		if len(ticker.C) == 0 || ticker.C[0] == "" {
			continue
		}

		price, err := decimal.NewFromString(ticker.C[0])
		if err != nil {
			s.logger.Warn("Failed to parse price", "symbol", unified, "price", ticker.C[0])
			continue
		}
		prices[unified] = price
	}

	if len(prices) == 0 {
		return nil, ErrNoPricesExtracted
	}
	return prices, nil
}

// matchSymbol maps a Kraken response key back to a unified symbol. Kraken
// returns keys in several formats (XXBTZUSD, ADAUSD, XETHZEUR) regardless of
// the requested pair name, so matching falls back to stripped comparison with
// the XBT alias for BTC.
func (s *KrakenAdapter) matchSymbol(responseKey string) string {
	cleanResponse := strings.ReplaceAll(strings.ReplaceAll(responseKey, "/", ""), "-", "")

	// Kraken prefixes legacy assets with class markers: BTCUSD comes back as
	// XXBTZUSD. Strip the markers and the XBT alias before comparing.
	stripped := cleanResponse
	if len(stripped) == 8 && stripped[0] == 'X' && stripped[4] == 'Z' {
		stripped = stripped[1:4] + stripped[5:]
	}
	stripped = strings.ReplaceAll(stripped, "XBT", "BTC")

	for unified, krakenSymbol := range s.pairs {
		if krakenSymbol == responseKey {
			return unified
		}

		cleanKraken := strings.ReplaceAll(strings.ReplaceAll(krakenSymbol, "/", ""), "-", "")
		if cleanKraken == cleanResponse {
			return unified
		}
		if strings.ReplaceAll(cleanKraken, "XBT", "BTC") == stripped {
			return unified
		}
	}

	return ""
}

var _ Adapter = (*KrakenAdapter)(nil)

func init() {
	Register("cex.kraken", NewKrakenAdapter)
}
