package task

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angas/spotprice-go/database"
	"github.com/angas/spotprice-go/entsoe"
	"github.com/angas/spotprice-go/types"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   []types.PriceSeries
	ids     []string
	saveErr error
	hasAt   bool
}

func (s *fakeStore) SaveSpotPrices(ctx context.Context, updateId string, series types.PriceSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, series)
	s.ids = append(s.ids, updateId)
	return nil
}

func (s *fakeStore) GetSpotPriceAt(ctx context.Context, area string, t time.Time) (database.SpotPriceRow, error) {
	if s.hasAt {
		return database.SpotPriceRow{Area: area, Begin: t}, nil
	}
	return database.SpotPriceRow{}, sql.ErrNoRows
}

// dayFetcher serves documents keyed on the requested day.
type dayFetcher struct {
	docs  map[string][]byte
	calls []time.Time
}

func (f *dayFetcher) FetchDocument(ctx context.Context, area string, start, end time.Time) ([]byte, error) {
	f.calls = append(f.calls, start)
	if doc, ok := f.docs[start.Format(time.DateOnly)]; ok {
		return doc, nil
	}
	return nil, entsoe.ErrTransport
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("../entsoe/testdata/" + name)
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return b
}

func newSession(t *testing.T, fetcher entsoe.DocumentFetcher) *entsoe.DayAhead {
	t.Helper()
	session, err := entsoe.NewDayAhead(fetcher, "10YNO-3--------J")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return session
}

func TestRunPriceTask(t *testing.T) {
	doc := readTestdata(t, "day_ahead_eur_mwh.xml")
	ack := readTestdata(t, "acknowledgement.xml")

	tests := []struct {
		name       string
		now        time.Time
		docs       map[string][]byte
		wantCalls  int
		wantStored int
	}{
		{
			name:       "before publication only today",
			now:        time.Date(2021, time.October, 18, 8, 0, 0, 0, time.UTC),
			docs:       map[string][]byte{"2021-10-18": doc},
			wantCalls:  1,
			wantStored: 1,
		},
		{
			name:       "after publication today and tomorrow",
			now:        time.Date(2021, time.October, 18, 15, 30, 0, 0, time.UTC),
			docs:       map[string][]byte{"2021-10-18": doc, "2021-10-19": doc},
			wantCalls:  2,
			wantStored: 2,
		},
		{
			name:       "tomorrow not published yet",
			now:        time.Date(2021, time.October, 18, 15, 30, 0, 0, time.UTC),
			docs:       map[string][]byte{"2021-10-18": doc, "2021-10-19": ack},
			wantCalls:  2,
			wantStored: 1,
		},
		{
			name:       "nothing available",
			now:        time.Date(2021, time.October, 18, 8, 0, 0, 0, time.UTC),
			docs:       map[string][]byte{},
			wantCalls:  1,
			wantStored: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &dayFetcher{docs: tt.docs}
			store := &fakeStore{}
			var published []types.PriceSeries
			listener := func(s types.PriceSeries) { published = append(published, s) }

			stored := runPriceTask(slog.Default(), store, newSession(t, fetcher), time.Second, tt.now, []SeriesListener{listener})

			if len(fetcher.calls) != tt.wantCalls {
				t.Errorf("expected %d fetches, got %d", tt.wantCalls, len(fetcher.calls))
			}
			if stored != tt.wantStored || len(store.saved) != tt.wantStored {
				t.Errorf("expected %d stored days, got %d (saved %d)", tt.wantStored, stored, len(store.saved))
			}
			if len(published) != tt.wantStored {
				t.Errorf("expected %d published series, got %d", tt.wantStored, len(published))
			}
			for i, s := range store.saved {
				if len(s.Points) != 24 {
					t.Errorf("series %d: expected 24 points, got %d", i, len(s.Points))
				}
				if store.ids[i] == "" {
					t.Errorf("series %d: expected an update id", i)
				}
			}
			if len(store.ids) == 2 && store.ids[0] == store.ids[1] {
				t.Errorf("expected distinct update ids")
			}
		})
	}
}

func TestRunPriceTaskSaveError(t *testing.T) {
	fetcher := &dayFetcher{docs: map[string][]byte{"2021-10-18": readTestdata(t, "day_ahead_eur_mwh.xml")}}
	store := &fakeStore{saveErr: errors.New("disk full")}
	called := false

	stored := runPriceTask(slog.Default(), store, newSession(t, fetcher), time.Second,
		time.Date(2021, time.October, 18, 8, 0, 0, 0, time.UTC),
		[]SeriesListener{func(types.PriceSeries) { called = true }})

	if stored != 0 {
		t.Errorf("expected nothing stored, got %d", stored)
	}
	if called {
		t.Errorf("expected listeners not to be called when saving fails")
	}
}

func TestNeedImmediatePriceUpdate(t *testing.T) {
	now := time.Date(2021, time.October, 18, 8, 0, 0, 0, time.UTC)
	if !needImmediatePriceUpdate(context.Background(), &fakeStore{}, "10YNO-3--------J", now) {
		t.Errorf("expected update needed when no price is stored")
	}
	if needImmediatePriceUpdate(context.Background(), &fakeStore{hasAt: true}, "10YNO-3--------J", now) {
		t.Errorf("expected no update needed when a price is stored")
	}
}

// shiftedDocument moves the test document one delivery day forward.
func shiftedDocument(t *testing.T) []byte {
	t.Helper()
	doc := string(readTestdata(t, "day_ahead_eur_mwh.xml"))
	doc = strings.ReplaceAll(doc, "2021-10-19T22:00Z", "2021-10-20T22:00Z")
	doc = strings.ReplaceAll(doc, "2021-10-18T22:00Z", "2021-10-19T22:00Z")
	return []byte(doc)
}

func TestRunPriceTaskEndsOnLiveDay(t *testing.T) {
	now := time.Date(2021, time.October, 18, 23, 30, 0, 0, time.UTC)
	fetcher := &dayFetcher{docs: map[string][]byte{
		"2021-10-18": readTestdata(t, "day_ahead_eur_mwh.xml"),
		"2021-10-19": shiftedDocument(t),
	}}
	store := &fakeStore{}
	session := newSession(t, fetcher)

	if stored := runPriceTask(slog.Default(), store, session, time.Second, now, nil); stored != 2 {
		t.Fatalf("expected 2 stored days, got %d", stored)
	}

	series, ok := session.Series()
	if !ok {
		t.Fatalf("expected a series in the session")
	}
	if _, ok := series.PriceAt(now); !ok {
		t.Errorf("expected a price for %v, session holds %v - %v", now, series.IntervalStart, series.IntervalEnd)
	}
	if !store.saved[0].IntervalStart.Equal(time.Date(2021, time.October, 19, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("expected the next delivery day to be stored first, got %v", store.saved[0].IntervalStart)
	}
}

func TestStartPriceTask(t *testing.T) {
	now := time.Date(2021, time.October, 18, 23, 30, 0, 0, time.UTC)
	docs := map[string][]byte{
		"2021-10-18": readTestdata(t, "day_ahead_eur_mwh.xml"),
		"2021-10-19": shiftedDocument(t),
	}

	tests := []struct {
		name      string
		store     *fakeStore
		wantSaved int
		wantCalls int
	}{
		{"store up to date", &fakeStore{hasAt: true}, 0, 1},
		{"store missing prices", &fakeStore{}, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &dayFetcher{docs: docs}
			session := newSession(t, fetcher)

			startPriceTask(slog.Default(), tt.store, session, time.Second, now, nil)

			if len(tt.store.saved) != tt.wantSaved {
				t.Errorf("expected %d saved series, got %d", tt.wantSaved, len(tt.store.saved))
			}
			if len(fetcher.calls) != tt.wantCalls {
				t.Errorf("expected %d fetches, got %d", tt.wantCalls, len(fetcher.calls))
			}
			series, ok := session.Series()
			if !ok {
				t.Fatalf("expected the session to be ready after start")
			}
			if _, ok := series.PriceAt(now); !ok {
				t.Errorf("expected a price for %v", now)
			}
		})
	}
}
