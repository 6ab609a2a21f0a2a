// Package geoip resolves IP literals to country codes via an ipinfo-style
// JSON endpoint. Resolution is strictly best effort: any failure means the
// caller falls back to comparing raw strings.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banking/fraud-detection/internal/config"
	"go.uber.org/zap"
)

// Resolver looks up the country behind an IP literal.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewResolver creates a geo-IP resolver from configuration.
func NewResolver(cfg config.GeoIPConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// ResolveCountry returns the 2-letter country code for an IP literal.
// The second return is false when the lookup failed or gave no country.
func (r *Resolver) ResolveCountry(ctx context.Context, ip string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json", r.baseURL, ip), nil)
	if err != nil {
		return "", false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("Geo-IP lookup failed", zap.String("ip", ip), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("Geo-IP lookup returned non-200",
			zap.String("ip", ip),
			zap.Int("status", resp.StatusCode),
		)
		return "", false
	}

	var payload struct {
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false
	}
	if payload.Country == "" {
		return "", false
	}
	return payload.Country, true
}
