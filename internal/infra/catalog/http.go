package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"eatoff/internal/domain/model"

	"github.com/labstack/gommon/log"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIの GET /marketplaces を読むクライアント
type HTTPCatalog struct {
	baseURL string
	client  HTTPClient
	log     *log.Logger
}

func NewHTTPCatalog(baseURL string, client HTTPClient, logger *log.Logger) *HTTPCatalog {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.New("catalog")
	}
	return &HTTPCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     logger,
	}
}

// 国コードや通貨コードが不正なものは捨てる
func (c *HTTPCatalog) List(ctx context.Context) ([]model.Marketplace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/marketplaces", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch marketplaces: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch marketplaces: status %d", resp.StatusCode)
	}

	var list []model.Marketplace
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode marketplaces: %w", err)
	}

	out := make([]model.Marketplace, 0, len(list))
	for _, m := range list {
		if err := m.Validate(); err != nil {
			c.log.Warnf("skip marketplace id=%d: %v", m.ID, err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
