package hours

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	// Period layout used by the transparency platform query parameters.
	apiLayout = "200601021504"

	// Day-ahead prices for the next delivery day are published around 13:00 market time.
	PublicationHour = 13
)

var (
	isoLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04Z07:00",
	}
	marketLoc *time.Location
)

func init() {
	var err error
	marketLoc, err = time.LoadLocation("Europe/Brussels")
	if err != nil {
		panic(fmt.Sprintf("failed to load market location: %v", err))
	}
}

// DayStart returns midnight UTC of the calendar day t falls on in UTC.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayInterval returns the 24 hour UTC interval [start, end) containing t.
func DayInterval(t time.Time) (time.Time, time.Time) {
	start := DayStart(t)
	return start, start.Add(24 * time.Hour)
}

// LatestDeliveryDay returns the most recent delivery day with published prices:
// today before the publication hour, tomorrow after it.
func LatestDeliveryDay(now time.Time) time.Time {
	local := LocationMarket(now)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if local.Hour() >= PublicationHour {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func FormatApi(t time.Time) string {
	return t.UTC().Format(apiLayout)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseIso accepts ISO 8601 timestamps with or without seconds, "2021-10-18T22:00Z".
func ParseIso(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func LocationMarket(t time.Time) time.Time {
	return t.In(marketLoc)
}
