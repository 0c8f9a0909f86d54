package coingecko

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	xhttp "DipWatch/pkg/http"
	applogger "DipWatch/pkg/logger"
)

// SnapshotConfig holds the REST snapshot settings.
type SnapshotConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SnapshotClient fetches bulk price snapshots over REST. It backs the
// initial fill on connect and the periodic fallback poll.
type SnapshotClient struct {
	cfg    SnapshotConfig
	client *xhttp.Client
	log    *applogger.Logger
}

// NewSnapshotClient creates a new REST snapshot source.
func NewSnapshotClient(cfg SnapshotConfig, log *applogger.Logger) drepo.SnapshotSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SnapshotClient{
		cfg:    cfg,
		client: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		log:    log,
	}
}

// simplePriceEntry mirrors one asset in the simple/price response.
type simplePriceEntry struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
	USD24hVol    float64 `json:"usd_24h_vol"`
}

// Fetch returns current quotes for the requested underlyings.
func (c *SnapshotClient) Fetch(ctx context.Context, underlyings []models.Underlying) (map[models.Underlying]models.Quote, error) {
	ids := make([]string, 0, len(underlyings))
	for _, u := range underlyings {
		ids = append(ids, string(u))
	}

	query := map[string][]string{
		"ids":                 {strings.Join(ids, ",")},
		"vs_currencies":       {"usd"},
		"include_24hr_change": {"true"},
		"include_24hr_vol":    {"true"},
	}
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["x-cg-demo-api-key"] = c.cfg.APIKey
	}

	var raw map[string]simplePriceEntry
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.cfg.BaseURL + "/simple/price",
		Headers:     headers,
		QueryParams: query,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	out := make(map[models.Underlying]models.Quote, len(raw))
	for id, entry := range raw {
		u := models.Underlying(id)
		if !u.Known() || entry.USD <= 0 {
			c.log.Debug("snapshot entry skipped", applogger.String("id", id))
			continue
		}
		out[u] = models.Quote{Price: entry.USD, Change24h: entry.USD24hChange}
	}
	return out, nil
}
