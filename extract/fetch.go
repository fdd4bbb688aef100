package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/dataset"
)

// FetchError is returned when the dataset could not be retrieved. StatusCode
// is zero when the request never got a response.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s, status: %s, body: %s", e.URL, e.Status, e.Body)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type OWIDClient struct {
	HTTPClient *retryablehttp.Client
	Logger     *slog.Logger
	URL        string
}

func NewOWIDClient(config *config.Config, logger *slog.Logger) (*OWIDClient, error) {
	if config.Source.URL == "" {
		return nil, fmt.Errorf("source URL is not set")
	}

	client := &OWIDClient{
		HTTPClient: retryablehttp.NewClient(),
		Logger:     logger,
		URL:        config.Source.URL,
	}

	client.HTTPClient.RetryWaitMin = config.Extract.Backoff.RetryWaitMin
	client.HTTPClient.RetryWaitMax = config.Extract.Backoff.RetryWaitMax
	client.HTTPClient.RetryMax = config.Extract.Backoff.RetryMax
	client.HTTPClient.HTTPClient.Timeout = config.Extract.Timeout
	client.HTTPClient.Logger = logger
	// Hand the last response back instead of a generic "giving up" error,
	// so the caller always sees the status code.
	client.HTTPClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return client, nil
}

// FetchDataset downloads the full dataset and decodes it.
// Only 200 OK counts as success.
func (c *OWIDClient) FetchDataset(ctx context.Context) (dataset.RawDataset, error) {
	body, err := c.FetchData(ctx, c.URL)
	if err != nil {
		return nil, err
	}

	var raw dataset.RawDataset
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode dataset from %s: %w", c.URL, err)
	}

	c.Logger.Debug("Fetched dataset", "url", c.URL, "bytes", len(body), "countries", len(raw))
	return raw, nil
}

// FetchData handles the common logic of making the HTTP request and checking the response status
func (c *OWIDClient) FetchData(ctx context.Context, url string) ([]byte, error) {
	body, resp, err := c.get(ctx, url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(body), 512),
		}
	}

	return body, nil
}

// get fetches the URL and returns the body and response
func (c *OWIDClient) get(ctx context.Context, url string) (body []byte, resp *http.Response, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err = c.HTTPClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return body, resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
