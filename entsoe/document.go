package entsoe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/angas/spotprice-go/hours"
	"github.com/shopspring/decimal"
	"github.com/sosodev/duration"
)

var ErrMalformedDocument = errors.New("malformed market document")

// MarketDocument is a validated single series, single period price document.
type MarketDocument struct {
	DocumentType  string
	AreaCode      string
	CurrencyCode  string
	UnitName      string
	IntervalStart time.Time
	IntervalEnd   time.Time
	Resolution    time.Duration
	RawPoints     []RawPoint
}

// RawPoint is a 1-based bucket position with its amount, as declared by the document.
type RawPoint struct {
	Position int
	Amount   decimal.Decimal
}

// Wire format of Publication_MarketDocument, only the fields we read.
type xmlDocument struct {
	XMLName    xml.Name
	Type       *string         `xml:"type"`
	TimeSeries []xmlTimeSeries `xml:"TimeSeries"`
	Reason     *xmlReason      `xml:"Reason"`
}

type xmlReason struct {
	Code string `xml:"code"`
	Text string `xml:"text"`
}

type xmlTimeSeries struct {
	InDomain    *string     `xml:"in_Domain.mRID"`
	Currency    *string     `xml:"currency_Unit.name"`
	MeasureUnit *string     `xml:"price_Measure_Unit.name"`
	Period      []xmlPeriod `xml:"Period"`
}

type xmlPeriod struct {
	TimeInterval *struct {
		Start *string `xml:"start"`
		End   *string `xml:"end"`
	} `xml:"timeInterval"`
	Resolution *string    `xml:"resolution"`
	Points     []xmlPoint `xml:"Point"`
}

type xmlPoint struct {
	Position *string `xml:"position"`
	Amount   *string `xml:"price.amount"`
}

const acknowledgementDocument = "Acknowledgement_MarketDocument"

// ParseDocument reads a day-ahead price document. Every structural problem is
// reported as ErrMalformedDocument.
func ParseDocument(raw []byte) (MarketDocument, error) {
	var doc xmlDocument
	dec := xml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return MarketDocument{}, malformed("invalid xml: %v", err)
	}
	if err := checkTrailing(dec); err != nil {
		return MarketDocument{}, err
	}

	if doc.XMLName.Local == acknowledgementDocument {
		if doc.Reason != nil {
			return MarketDocument{}, malformed("acknowledgement %s: %s", doc.Reason.Code, doc.Reason.Text)
		}
		return MarketDocument{}, malformed("acknowledgement document without prices")
	}

	docType, err := required("type", doc.Type)
	if err != nil {
		return MarketDocument{}, err
	}

	if len(doc.TimeSeries) != 1 {
		return MarketDocument{}, malformed("expected exactly one TimeSeries, found %d", len(doc.TimeSeries))
	}
	ts := doc.TimeSeries[0]
	if len(ts.Period) != 1 {
		return MarketDocument{}, malformed("expected exactly one Period, found %d", len(ts.Period))
	}
	period := ts.Period[0]

	md := MarketDocument{DocumentType: docType}
	if md.AreaCode, err = required("in_Domain.mRID", ts.InDomain); err != nil {
		return MarketDocument{}, err
	}
	if md.CurrencyCode, err = required("currency_Unit.name", ts.Currency); err != nil {
		return MarketDocument{}, err
	}
	if md.UnitName, err = required("price_Measure_Unit.name", ts.MeasureUnit); err != nil {
		return MarketDocument{}, err
	}

	if period.TimeInterval == nil {
		return MarketDocument{}, malformed("missing Period.timeInterval")
	}
	if md.IntervalStart, err = requiredTime("timeInterval.start", period.TimeInterval.Start); err != nil {
		return MarketDocument{}, err
	}
	if md.IntervalEnd, err = requiredTime("timeInterval.end", period.TimeInterval.End); err != nil {
		return MarketDocument{}, err
	}
	if !md.IntervalStart.Before(md.IntervalEnd) {
		return MarketDocument{}, malformed("interval start %s is not before end %s",
			md.IntervalStart.Format(time.RFC3339), md.IntervalEnd.Format(time.RFC3339))
	}

	res, err := required("resolution", period.Resolution)
	if err != nil {
		return MarketDocument{}, err
	}
	if md.Resolution, err = parseResolution(res); err != nil {
		return MarketDocument{}, err
	}
	if md.IntervalEnd.Sub(md.IntervalStart)%md.Resolution != 0 {
		return MarketDocument{}, malformed("resolution %s does not divide the interval", res)
	}

	if len(period.Points) == 0 {
		return MarketDocument{}, malformed("period has no points")
	}
	md.RawPoints = make([]RawPoint, len(period.Points))
	for i, p := range period.Points {
		if md.RawPoints[i], err = parsePoint(i, p); err != nil {
			return MarketDocument{}, err
		}
	}

	return md, nil
}

func parsePoint(index int, p xmlPoint) (RawPoint, error) {
	pos, err := required(fmt.Sprintf("Point[%d].position", index), p.Position)
	if err != nil {
		return RawPoint{}, err
	}
	position, err := strconv.Atoi(pos)
	if err != nil {
		return RawPoint{}, malformed("Point[%d].position %q is not an integer", index, pos)
	}
	if position < 1 {
		return RawPoint{}, malformed("Point[%d].position %d is not positive", index, position)
	}

	amt, err := required(fmt.Sprintf("Point[%d].price.amount", index), p.Amount)
	if err != nil {
		return RawPoint{}, err
	}
	amount, err := decimal.NewFromString(amt)
	if err != nil {
		return RawPoint{}, malformed("Point[%d].price.amount %q is not a decimal", index, amt)
	}

	return RawPoint{Position: position, Amount: amount}, nil
}

func parseResolution(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, malformed("resolution %q: %v", s, err)
	}
	res := d.ToTimeDuration()
	if res <= 0 {
		return 0, malformed("resolution %q is not positive", s)
	}
	return res, nil
}

func required(field string, value *string) (string, error) {
	if value == nil {
		return "", malformed("missing %s", field)
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return "", malformed("empty %s", field)
	}
	return v, nil
}

func requiredTime(field string, value *string) (time.Time, error) {
	v, err := required(field, value)
	if err != nil {
		return time.Time{}, err
	}
	t, err := hours.ParseIso(v)
	if err != nil {
		return time.Time{}, malformed("%s %q is not an ISO 8601 timestamp", field, v)
	}
	return t, nil
}

// checkTrailing allows only whitespace, comments and processing instructions after the root element.
func checkTrailing(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return malformed("invalid xml after root element: %v", err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return malformed("unexpected text after root element")
			}
		default:
			return malformed("unexpected content after root element")
		}
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}
