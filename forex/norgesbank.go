package forex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const NorgesBankUrl = "https://data.norges-bank.no/api/data/EXR"

type norgesBankData struct {
	Data struct {
		DataSets []struct {
			Series map[string]struct {
				Observations map[string][]decimal.Decimal `json:"observations"`
			} `json:"series"`
		} `json:"dataSets"`
	} `json:"data"`
}

// NorgesBank converts into NOK using the latest Norges Bank exchange rate.
type NorgesBank struct {
	url    string
	client *http.Client
}

func NewNorgesBank(url string) *NorgesBank {
	if url == "" {
		url = NorgesBankUrl
	}
	return &NorgesBank{
		url:    strings.TrimSuffix(url, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NorgesBank) GetRate(ctx context.Context, base, quote string) (map[string]decimal.Decimal, error) {
	if !strings.EqualFold(quote, "NOK") {
		return nil, fmt.Errorf("%w: norges bank only converts to NOK, not %s", ErrRateUnavailable, quote)
	}

	url := fmt.Sprintf("%s/B.%s.NOK.SP?detail=dataonly&lastNObservations=1&format=sdmx-json",
		n.url, strings.ToUpper(base))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching rate: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrTransport, resp.StatusCode)
	}

	var data norgesBankData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrRateUnavailable, err)
	}

	if len(data.Data.DataSets) == 0 {
		return nil, fmt.Errorf("%w: no data sets in response", ErrRateUnavailable)
	}
	obs := data.Data.DataSets[0].Series["0:0:0:0"].Observations["0"]
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no observation in response", ErrRateUnavailable)
	}

	return map[string]decimal.Decimal{"NOK": obs[0]}, nil
}
