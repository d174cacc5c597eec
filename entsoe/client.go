package entsoe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angas/spotprice-go/forex"
	"github.com/angas/spotprice-go/hours"
)

const (
	DefaultUrl = "https://web-api.tp.entsoe.eu/api"
	// Day-ahead prices document type.
	DayAheadDocument = "A44"
)

// ErrTransport covers network failures, timeouts and unexpected HTTP status codes
// of both the document and the rate requests. It is transient and not retried here.
var ErrTransport = forex.ErrTransport

// DocumentFetcher returns the raw price document for an area and period.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, area string, start, end time.Time) ([]byte, error)
}

type Client struct {
	logger *slog.Logger
	url    string
	token  string
	client *http.Client
}

func NewClient(token string, url string) *Client {
	if url == "" {
		url = DefaultUrl
	}
	return &Client{
		logger: slog.Default().With("module", "entsoe"),
		url:    url,
		token:  token,
		client: &http.Client{},
	}
}

func (c *Client) FetchDocument(ctx context.Context, area string, start, end time.Time) ([]byte, error) {
	params := url.Values{}
	params.Set("securityToken", c.token)
	params.Set("documentType", DayAheadDocument)
	params.Set("in_Domain", area)
	params.Set("out_Domain", area)
	params.Set("periodStart", hours.FormatApi(start))
	params.Set("periodEnd", hours.FormatApi(end))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("fetching day-ahead document",
		slog.String("area", area),
		slog.String("periodStart", params.Get("periodStart")),
		slog.String("periodEnd", params.Get("periodEnd")))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	// The platform answers "no data" with an acknowledgement document and a 200,
	// but some errors come back as 400 with the same document, let the parser report those.
	if resp.StatusCode == http.StatusBadRequest && len(body) > 0 {
		return body, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", ErrTransport, resp.StatusCode)
	}

	return body, nil
}
