package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoAdapter fetches prices from the CoinGecko REST API.
type CoinGeckoAdapter struct {
	apiURL string
	apiKey string
	pairs  map[string]string // unified symbol -> CoinGecko coin id (e.g. "BTC/USD" -> "bitcoin")
	client *http.Client
	logger *logging.Logger
}

// NewCoinGeckoAdapter creates a new CoinGecko adapter.
func NewCoinGeckoAdapter(config map[string]interface{}, logger *logging.Logger) (Adapter, error) {
	pairs, err := ParsePairs(config)
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}

	apiURL := coingeckoBaseURL
	if u, ok := config["api_url"].(string); ok && u != "" {
		apiURL = u
	}

	apiKey := ""
	if key, ok := config["api_key"].(string); ok {
		apiKey = key
	}

	return &CoinGeckoAdapter{
		apiURL: apiURL,
		apiKey: apiKey,
		pairs:  pairs,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Name returns the source name.
func (s *CoinGeckoAdapter) Name() string {
	return "coingecko"
}

// Fetch retrieves current prices via the simple/price endpoint.
func (s *CoinGeckoAdapter) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(s.pairs))
	for _, id := range s.pairs {
		ids = append(ids, id)
	}

	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&precision=full",
		s.apiURL, url.QueryEscape(strings.Join(ids, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	// Response shape: {"bitcoin": {"usd": 43000.12}, ...}
	var response map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	prices := make(map[string]decimal.Decimal, len(s.pairs))
	for unified, coinID := range s.pairs {
		quote, ok := response[coinID]
		if !ok {
			continue // Coin not in response; this reading does not vote on it
		}
		raw, ok := quote["usd"]
		if !ok {
			continue
		}

		price, err := decimal.NewFromString(raw.String())
		if err != nil {
			s.logger.Warn("Failed to parse price", "coin", coinID, "price", raw.String(), "error", err)
			continue
		}
		prices[unified] = price
	}

	if len(prices) == 0 {
		return nil, ErrNoPricesExtracted
	}
	return prices, nil
}

var _ Adapter = (*CoinGeckoAdapter)(nil)

func init() {
	Register("cex.coingecko", NewCoinGeckoAdapter)
}
