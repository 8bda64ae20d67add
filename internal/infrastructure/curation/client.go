package curation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/route-poi-service/internal/config"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"go.uber.org/zap"
)

type client struct {
	httpClient *http.Client
	url        string
	logger     *zap.Logger
}

// NewCurationClient создаёт клиент внешнего AI-сервиса курирования POI.
// Любой сбой сервиса превращается в ErrCurationUnavailable - вызывающий
// обязан откатиться на собственное ранжирование.
func NewCurationClient(cfg *config.CurationConfig, logger *zap.Logger) repository.CurationRepository {
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		url:    cfg.URL,
		logger: logger,
	}
}

type curationRequest struct {
	POIs  []*domain.POI `json:"pois"`
	Route domain.Route  `json:"route,omitempty"`
}

type curatedItem struct {
	Key       string `json:"key"`
	Reason    string `json:"reason,omitempty"`
	IsTopPick bool   `json:"is_top_pick"`
}

type curationResponse struct {
	Available bool          `json:"available"`
	Items     []curatedItem `json:"items"`
}

func (c *client) CuratePOIs(ctx context.Context, pois []*domain.POI, route domain.Route) ([]*domain.POI, error) {
	if c.url == "" {
		return nil, repository.ErrCurationUnavailable
	}

	payload, err := json.Marshal(curationRequest{POIs: pois, Route: route})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal curation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Curation service request failed", zap.Error(err))
		return nil, repository.ErrCurationUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Curation service returned error",
			zap.Int("status_code", resp.StatusCode))
		return nil, repository.ErrCurationUnavailable
	}

	var parsed curationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn("Failed to decode curation response", zap.Error(err))
		return nil, repository.ErrCurationUnavailable
	}

	if !parsed.Available {
		return nil, repository.ErrCurationUnavailable
	}

	byKey := make(map[string]*domain.POI, len(pois))
	for _, poi := range pois {
		byKey[poi.Key()] = poi
	}

	// Порядок результата задаёт сервис курирования
	curated := make([]*domain.POI, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		poi, ok := byKey[item.Key]
		if !ok {
			continue
		}
		if item.Reason != "" {
			reason := item.Reason
			poi.Description = &reason
		}
		topPick := item.IsTopPick
		poi.IsTopPick = &topPick
		curated = append(curated, poi)
	}

	c.logger.Debug("Curation applied",
		zap.Int("input", len(pois)),
		zap.Int("curated", len(curated)),
		zap.Duration("took", time.Since(start)))

	return curated, nil
}
