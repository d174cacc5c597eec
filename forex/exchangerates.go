package forex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const ExchangeRatesUrl = "http://api.exchangeratesapi.io/v1/"

type exchangeRatesData struct {
	Success bool                       `json:"success"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Error   *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// ExchangeRates uses exchangeratesapi.io. The free plan only quotes against EUR,
// so rates are cross calculated from the returned base.
type ExchangeRates struct {
	accessKey string
	apiUrl    string
	client    *http.Client
}

func NewExchangeRates(accessKey, apiUrl string) *ExchangeRates {
	if apiUrl == "" {
		apiUrl = ExchangeRatesUrl
	}
	if !strings.HasSuffix(apiUrl, "/") {
		apiUrl += "/"
	}
	return &ExchangeRates{
		accessKey: accessKey,
		apiUrl:    apiUrl,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *ExchangeRates) GetRate(ctx context.Context, base, quote string) (map[string]decimal.Decimal, error) {
	params := url.Values{}
	params.Set("access_key", e.accessKey)
	params.Set("symbols", strings.Join([]string{quote, base}, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiUrl+"latest?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching rates: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrTransport, resp.StatusCode)
	}

	var data exchangeRatesData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrRateUnavailable, err)
	}
	if data.Error != nil {
		return nil, fmt.Errorf("%w: api error %d: %s", ErrRateUnavailable, data.Error.Code, data.Error.Info)
	}

	baseRate, err := LookupRate(data.Rates, base)
	if err != nil {
		return nil, err
	}
	if baseRate.IsZero() {
		return nil, fmt.Errorf("%w: zero rate for base %s", ErrRateUnavailable, base)
	}

	rates := make(map[string]decimal.Decimal, len(data.Rates))
	for cur, rate := range data.Rates {
		if strings.EqualFold(cur, base) {
			continue
		}
		rates[cur] = rate.Div(baseRate)
	}
	return rates, nil
}
