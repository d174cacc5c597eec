package entsoe

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func loadTestDocument(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/day_ahead_eur_mwh.xml")
	if err != nil {
		t.Fatalf("reading test document: %v", err)
	}
	return string(b)
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(loadTestDocument(t)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.DocumentType != "A44" {
		t.Errorf("expected document type A44, got %q", doc.DocumentType)
	}
	if doc.AreaCode != "10YNO-3--------J" {
		t.Errorf("expected area 10YNO-3--------J, got %q", doc.AreaCode)
	}
	if doc.CurrencyCode != "EUR" {
		t.Errorf("expected currency EUR, got %q", doc.CurrencyCode)
	}
	if doc.UnitName != "MWH" {
		t.Errorf("expected unit MWH, got %q", doc.UnitName)
	}
	if !doc.IntervalStart.Equal(time.Date(2021, time.October, 18, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected interval start %v", doc.IntervalStart)
	}
	if !doc.IntervalEnd.Equal(time.Date(2021, time.October, 19, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected interval end %v", doc.IntervalEnd)
	}
	if doc.Resolution != time.Hour {
		t.Errorf("expected resolution 1h, got %v", doc.Resolution)
	}
	if len(doc.RawPoints) != 24 {
		t.Fatalf("expected 24 points, got %d", len(doc.RawPoints))
	}
	first, last := doc.RawPoints[0], doc.RawPoints[23]
	if first.Position != 1 || !first.Amount.Equal(decimal.RequireFromString("21.39")) {
		t.Errorf("unexpected first point %+v", first)
	}
	if last.Position != 24 || !last.Amount.Equal(decimal.RequireFromString("16.97")) {
		t.Errorf("unexpected last point %+v", last)
	}
}

func TestParseDocumentQuarterHour(t *testing.T) {
	src := strings.Replace(loadTestDocument(t), "<resolution>PT60M</resolution>", "<resolution>PT15M</resolution>", 1)
	doc, err := ParseDocument([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Resolution != 15*time.Minute {
		t.Errorf("expected resolution 15m, got %v", doc.Resolution)
	}
}

func TestParseDocumentMalformed(t *testing.T) {
	valid := loadTestDocument(t)

	secondPeriod := `<Period>
	<timeInterval><start>2021-10-18T22:00Z</start><end>2021-10-19T22:00Z</end></timeInterval>
	<resolution>PT60M</resolution>
	<Point><position>1</position><price.amount>1.0</price.amount></Point>
</Period>`
	secondSeries := `<TimeSeries>
	<in_Domain.mRID>10YNO-3--------J</in_Domain.mRID>
	<currency_Unit.name>EUR</currency_Unit.name>
	<price_Measure_Unit.name>MWH</price_Measure_Unit.name>
	` + secondPeriod + `
</TimeSeries>`

	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "this is not a document"},
		{"empty", ""},
		{"truncated", valid[:len(valid)/2]},
		{"missing type", strings.Replace(valid, "<type>A44</type>", "", 1)},
		{"missing area", strings.Replace(valid, `<in_Domain.mRID codingScheme="A01">10YNO-3--------J</in_Domain.mRID>`, "", 1)},
		{"missing currency", strings.Replace(valid, "<currency_Unit.name>EUR</currency_Unit.name>", "", 1)},
		{"empty currency", strings.Replace(valid, "<currency_Unit.name>EUR</currency_Unit.name>", "<currency_Unit.name> </currency_Unit.name>", 1)},
		{"missing unit", strings.Replace(valid, "<price_Measure_Unit.name>MWH</price_Measure_Unit.name>", "", 1)},
		{"missing resolution", strings.Replace(valid, "<resolution>PT60M</resolution>", "", 1)},
		{"invalid resolution", strings.Replace(valid, "<resolution>PT60M</resolution>", "<resolution>hourly</resolution>", 1)},
		{"zero resolution", strings.Replace(valid, "<resolution>PT60M</resolution>", "<resolution>PT0M</resolution>", 1)},
		{"resolution not dividing interval", strings.Replace(valid, "<resolution>PT60M</resolution>", "<resolution>PT7M</resolution>", 1)},
		{"missing start", strings.Replace(valid, "<start>2021-10-18T22:00Z</start>\n                <end>", "<end>", 1)},
		{"invalid end", strings.Replace(valid, "<end>2021-10-19T22:00Z</end>\n            </timeInterval>", "<end>tomorrow</end>\n            </timeInterval>", 1)},
		{"end before start", strings.Replace(valid, "<end>2021-10-19T22:00Z</end>\n            </timeInterval>", "<end>2021-10-17T22:00Z</end>\n            </timeInterval>", 1)},
		{"non numeric position", strings.Replace(valid, "<position>3</position>", "<position>three</position>", 1)},
		{"zero position", strings.Replace(valid, "<position>3</position>", "<position>0</position>", 1)},
		{"missing position", strings.Replace(valid, "<position>3</position>", "", 1)},
		{"non numeric amount", strings.Replace(valid, "<price.amount>20.50</price.amount>", "<price.amount>n/a</price.amount>", 1)},
		{"missing amount", strings.Replace(valid, "<price.amount>20.50</price.amount>", "", 1)},
		{"two periods", strings.Replace(valid, "</Period>", "</Period>"+secondPeriod, 1)},
		{"two series", strings.Replace(valid, "</TimeSeries>", "</TimeSeries>"+secondSeries, 1)},
		{"trailing garbage", valid + "<<<"},
		{"trailing text", valid + "prices"},
		{"second root", valid + "<Publication_MarketDocument></Publication_MarketDocument>"},
		{"no series", valid[:strings.Index(valid, "<TimeSeries>")] + "</Publication_MarketDocument>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.doc == valid {
				t.Fatalf("test document was not modified")
			}
			_, err := ParseDocument([]byte(tt.doc))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("expected ErrMalformedDocument, got %v", err)
			}
		})
	}
}

func TestParseDocumentTrailingMisc(t *testing.T) {
	doc := loadTestDocument(t) + "\n<!-- generated -->\n<?processed by=\"gateway\"?>\n"
	if _, err := ParseDocument([]byte(doc)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseDocumentNoPoints(t *testing.T) {
	valid := loadTestDocument(t)
	start := strings.Index(valid, "<Point>")
	end := strings.LastIndex(valid, "</Point>") + len("</Point>")
	_, err := ParseDocument([]byte(valid[:start] + valid[end:]))
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestParseDocumentAcknowledgement(t *testing.T) {
	b, err := os.ReadFile("testdata/acknowledgement.xml")
	if err != nil {
		t.Fatalf("reading test document: %v", err)
	}
	_, err = ParseDocument(b)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if !strings.Contains(err.Error(), "No matching data found") {
		t.Errorf("expected the reason text in the error, got %q", err)
	}
}
