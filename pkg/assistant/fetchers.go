package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WeatherReport is a current-conditions summary for one location.
type WeatherReport struct {
	Location string  `json:"location"`
	Summary  string  `json:"summary"`
	TempC    float64 `json:"temp_c"`
}

// Headline is one news item.
type Headline struct {
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
}

// Video is one playable search result.
type Video struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Channel string `json:"channel,omitempty"`
}

// WeatherProvider fetches current conditions. Implementations wrap whatever
// REST backend the deployment uses.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (WeatherReport, error)
}

// NewsProvider fetches headlines, optionally filtered by topic.
type NewsProvider interface {
	Headlines(ctx context.Context, topic string, limit int) ([]Headline, error)
}

// VideoFinder resolves a spoken query to one playable video.
type VideoFinder interface {
	Find(ctx context.Context, query string) (Video, error)
}

// RESTClient is a thin JSON-over-HTTP client shared by the fetcher
// implementations. The backends are opaque: each exposes a single GET
// endpoint returning the payload shape above.
type RESTClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *RESTClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *RESTClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RESTWeather is a WeatherProvider over a REST backend.
type RESTWeather struct {
	Client RESTClient
}

var _ WeatherProvider = (*RESTWeather)(nil)

func (w *RESTWeather) Current(ctx context.Context, location string) (WeatherReport, error) {
	q := url.Values{}
	if location != "" {
		q.Set("location", location)
	}
	var report WeatherReport
	if err := w.Client.getJSON(ctx, "weather/current", q, &report); err != nil {
		return WeatherReport{}, err
	}
	return report, nil
}

// RESTNews is a NewsProvider over a REST backend.
type RESTNews struct {
	Client RESTClient
}

var _ NewsProvider = (*RESTNews)(nil)

func (n *RESTNews) Headlines(ctx context.Context, topic string, limit int) ([]Headline, error) {
	q := url.Values{}
	if topic != "" {
		q.Set("topic", topic)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var payload struct {
		Headlines []Headline `json:"headlines"`
	}
	if err := n.Client.getJSON(ctx, "news/headlines", q, &payload); err != nil {
		return nil, err
	}
	return payload.Headlines, nil
}

// RESTVideoFinder is a VideoFinder over a REST backend.
type RESTVideoFinder struct {
	Client RESTClient
}

var _ VideoFinder = (*RESTVideoFinder)(nil)

func (v *RESTVideoFinder) Find(ctx context.Context, query string) (Video, error) {
	q := url.Values{}
	q.Set("q", query)
	var payload struct {
		Results []Video `json:"results"`
	}
	if err := v.Client.getJSON(ctx, "videos/search", q, &payload); err != nil {
		return Video{}, err
	}
	if len(payload.Results) == 0 {
		return Video{}, fmt.Errorf("no video found for %q", query)
	}
	return payload.Results[0], nil
}
