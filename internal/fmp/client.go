package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/pkg/config"
	"github.com/quantlab/fairval/pkg/httputil"
	"github.com/quantlab/fairval/pkg/logger"
)

// Client handles communication with the Financial Modeling Prep API.
// All FMP calls go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a new FMP client. The limiter caps request rate
// locally; a Redis-backed limiter on the HTTP client can additionally
// coordinate several processes sharing one key.
func NewClient(cfg config.FMPConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
	}
}

// quoteItem is one element of the /quote response.
type quoteItem struct {
	Symbol string   `json:"symbol"`
	Price  *float64 `json:"price"`
}

// profileItem is one element of the /profile response.
type profileItem struct {
	Symbol            string   `json:"symbol"`
	SharesOutstanding *float64 `json:"sharesOutstanding"`
	Sector            *string  `json:"sector"`
	ExchangeShortName *string  `json:"exchangeShortName"`
}

// cashFlowItem is one element of the /cash-flow-statement response.
type cashFlowItem struct {
	FreeCashFlow *float64 `json:"freeCashFlow"`
}

// incomeItem is one element of the /income-statement response.
type incomeItem struct {
	EPS *float64 `json:"eps"`
}

// dcfItem is one element of the /discounted-cash-flow response.
type dcfItem struct {
	DCF *float64 `json:"dcf"`
}

// screenerItem is one element of the /stock-screener response.
type screenerItem struct {
	Symbol            string `json:"symbol"`
	Sector            string `json:"sector"`
	ExchangeShortName string `json:"exchangeShortName"`
}

// getJSON applies the local rate limit, builds the request URL and
// decodes the response.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	return c.httpClient.GetJSON(ctx, fullURL, dest)
}

// Fundamentals looks up current fundamentals for one ticker: quote,
// profile, latest annual cash flow and income statement, plus a
// best-effort provider DCF. Each lookup that succeeds but lacks the
// expected value leaves the field nil; a failed request fails the whole
// ticker.
func (c *Client) Fundamentals(ctx context.Context, ticker string) (*contracts.StockRecord, error) {
	rec := &contracts.StockRecord{Ticker: ticker}

	var quotes []quoteItem
	if err := c.getJSON(ctx, "/quote/"+url.PathEscape(ticker), nil, &quotes); err != nil {
		return nil, fmt.Errorf("quote lookup failed: %w", err)
	}
	if len(quotes) > 0 {
		rec.Price = quotes[0].Price
	}

	var profiles []profileItem
	if err := c.getJSON(ctx, "/profile/"+url.PathEscape(ticker), nil, &profiles); err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	if len(profiles) > 0 {
		rec.Shares = profiles[0].SharesOutstanding
		rec.Sector = profiles[0].Sector
		rec.Exchange = profiles[0].ExchangeShortName
	}

	annual := url.Values{"period": {"annual"}, "limit": {"1"}}

	var cashFlows []cashFlowItem
	if err := c.getJSON(ctx, "/cash-flow-statement/"+url.PathEscape(ticker), annual, &cashFlows); err != nil {
		return nil, fmt.Errorf("cash flow lookup failed: %w", err)
	}
	if len(cashFlows) > 0 {
		rec.FCF = cashFlows[0].FreeCashFlow
	}

	annual = url.Values{"period": {"annual"}, "limit": {"1"}}
	var incomes []incomeItem
	if err := c.getJSON(ctx, "/income-statement/"+url.PathEscape(ticker), annual, &incomes); err != nil {
		return nil, fmt.Errorf("income lookup failed: %w", err)
	}
	if len(incomes) > 0 {
		rec.EPS = incomes[0].EPS
	}

	// The provider's own DCF estimate is a bonus signal: failure here
	// leaves the field nil without failing the ticker.
	var dcfs []dcfItem
	if err := c.getJSON(ctx, "/discounted-cash-flow/"+url.PathEscape(ticker), nil, &dcfs); err != nil {
		c.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Debug("Provider DCF unavailable")
	} else if len(dcfs) > 0 {
		rec.ExternalDCF = dcfs[0].DCF
	}

	return rec, nil
}

// Screen lists symbols in the given sectors, up to limit.
func (c *Client) Screen(ctx context.Context, sectors []string, limit int) ([]contracts.Listing, error) {
	params := url.Values{
		"sector": {strings.Join(sectors, ",")},
		"limit":  {fmt.Sprintf("%d", limit)},
	}

	var items []screenerItem
	if err := c.getJSON(ctx, "/stock-screener", params, &items); err != nil {
		return nil, fmt.Errorf("screener lookup failed: %w", err)
	}

	listings := make([]contracts.Listing, 0, len(items))
	for _, item := range items {
		if item.Symbol == "" {
			continue
		}
		listings = append(listings, contracts.Listing{
			Symbol:   item.Symbol,
			Sector:   item.Sector,
			Exchange: item.ExchangeShortName,
		})
	}

	return listings, nil
}
