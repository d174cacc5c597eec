package mqttpub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/angas/spotprice-go/types"
	"github.com/angas/spotprice-go/types/maybe"
	"github.com/shopspring/decimal"
)

func TestTopic(t *testing.T) {
	if got := Topic("spotprice", "10YNO-3--------J"); got != "spotprice/10YNO-3--------J" {
		t.Errorf("unexpected topic %q", got)
	}
}

func TestPayload(t *testing.T) {
	begin := time.Date(2021, time.October, 18, 22, 0, 0, 0, time.UTC)
	series := types.PriceSeries{
		AreaCode:         "10YNO-3--------J",
		OriginalCurrency: "EUR",
		TargetCurrency:   "EUR",
		MeasurementUnit:  "kWh",
		IntervalStart:    begin,
		IntervalEnd:      begin.Add(time.Hour),
		Resolution:       15 * time.Minute,
		ExchangeRate:     maybe.None[decimal.Decimal](),
		Points: []types.PricePoint{
			{Begin: begin, End: begin.Add(15 * time.Minute), AmountOriginal: decimal.RequireFromString("0.02139")},
		},
	}

	buf, err := Payload(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		AreaCode     string  `json:"areaCode"`
		Resolution   string  `json:"resolution"`
		ExchangeRate *string `json:"exchangeRate"`
		Points       []struct {
			Begin          time.Time `json:"begin"`
			AmountOriginal string    `json:"amountOriginal"`
			AmountTarget   *string   `json:"amountTarget"`
		} `json:"points"`
	}
	if err := json.Unmarshal(buf, &decoded); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}

	if decoded.AreaCode != "10YNO-3--------J" {
		t.Errorf("unexpected area %q", decoded.AreaCode)
	}
	if decoded.Resolution != "PT15M" {
		t.Errorf("expected PT15M, got %q", decoded.Resolution)
	}
	if decoded.ExchangeRate != nil {
		t.Errorf("expected null exchange rate")
	}
	if len(decoded.Points) != 1 || decoded.Points[0].AmountOriginal != "0.02139" || decoded.Points[0].AmountTarget != nil {
		t.Errorf("unexpected points %+v", decoded.Points)
	}
}
