package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eatoff/internal/domain/model"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

var ErrNoCountry = errors.New("reverse geocode: no country in response")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenStreetMap Nominatim の逆ジオコーディング
type Nominatim struct {
	baseURL   string
	userAgent string
	client    HTTPClient
}

func NewNominatim(baseURL string, userAgent string, client HTTPClient) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = "EatOff/1.0"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
	}
}

type nominatimResponse struct {
	Address struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// zoom=3 で国レベルまでに絞る
func (n *Nominatim) Reverse(ctx context.Context, lat float64, lng float64) (model.DetectedLocation, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", "3")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return model.DetectedLocation{}, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return model.DetectedLocation{}, fmt.Errorf("reverse geocode: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return model.DetectedLocation{}, fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.DetectedLocation{}, fmt.Errorf("reverse geocode: %w", err)
	}

	if body.Address.Country == "" || body.Address.CountryCode == "" {
		return model.DetectedLocation{}, ErrNoCountry
	}

	return model.DetectedLocation{
		Country:     body.Address.Country,
		CountryCode: strings.ToUpper(body.Address.CountryCode),
	}, nil
}
