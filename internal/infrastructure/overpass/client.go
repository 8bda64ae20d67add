package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/route-poi-service/internal/config"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"github.com/route-poi-service/internal/pkg/errors"
	"github.com/route-poi-service/internal/pkg/utils"
	"go.uber.org/zap"
)

// maxRoutePoints - максимум опорных точек маршрута в around-запросе
const maxRoutePoints = 80

type client struct {
	httpClient *http.Client
	endpoints  []string
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger

	// cursor сдвигается на одну позицию на каждую попытку,
	// независимо от исхода запроса
	mu     sync.Mutex
	cursor int
}

// NewOverpassClient создаёт клиент Overpass API с пулом взаимозаменяемых
// эндпоинтов (round-robin) и ретраями с экспоненциальным backoff
func NewOverpassClient(cfg *config.SourceConfig, logger *zap.Logger) repository.POISourceRepository {
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		endpoints:  cfg.Endpoints,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		logger:     logger,
	}
}

func (c *client) nextEndpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	endpoint := c.endpoints[c.cursor%len(c.endpoints)]
	c.cursor++
	return endpoint
}

// statusError - HTTP-ошибка Overpass с кодом статуса
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("overpass returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable: rate limit и временная недоступность
func (e *statusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// FetchPOIs загружает POI по bbox или коридору маршрута
func (c *client) FetchPOIs(ctx context.Context, q domain.SourceQuery) ([]*domain.POI, error) {
	query := buildQuery(q)
	if query == "" {
		// ни одна категория не известна - запрашивать нечего
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		endpoint := c.nextEndpoint()

		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Warn("Retrying Overpass request",
				zap.Int("attempt", attempt),
				zap.String("endpoint", endpoint),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		elements, err := c.execute(ctx, endpoint, query)
		if err == nil {
			return c.postProcess(elements, q), nil
		}
		lastErr = err

		if statusErr, ok := err.(*statusError); ok && !statusErr.Retryable() {
			c.logger.Error("Overpass rejected request",
				zap.Int("status_code", statusErr.StatusCode),
				zap.String("endpoint", endpoint))
			return nil, errors.ErrSourceRejected.WithDetails(map[string]interface{}{
				"status_code": statusErr.StatusCode,
			})
		}
	}

	c.logger.Error("Overpass retries exhausted", zap.Error(lastErr))
	return nil, errors.ErrSourceUnavailable.WithDetails(map[string]interface{}{
		"last_error": lastErr.Error(),
	})
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center,omitempty"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

func (c *client) execute(ctx context.Context, endpoint, query string) ([]overpassElement, error) {
	body := strings.NewReader(url.Values{"data": {query}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("Calling Overpass API",
		zap.String("endpoint", endpoint),
		zap.Int("query_len", len(query)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("Overpass API call successful",
		zap.String("endpoint", endpoint),
		zap.Int("elements", len(parsed.Elements)))

	return parsed.Elements, nil
}

// buildQuery строит Overpass QL запрос: по bbox либо вдоль коридора
// маршрута, прореженного до maxRoutePoints точек
func buildQuery(q domain.SourceQuery) string {
	var area string
	if len(q.Route) > 0 && q.MaxDeviationKm > 0 {
		area = aroundFilter(q.Route, q.MaxDeviationKm)
	} else {
		area = fmt.Sprintf("(%f,%f,%f,%f)",
			q.BBox.MinLat, q.BBox.MinLon, q.BBox.MaxLat, q.BBox.MaxLon)
	}

	var selectors []string
	for _, category := range q.Categories {
		sel, ok := domain.OverpassSelector(category)
		if !ok {
			continue
		}
		for _, objType := range []string{"node", "way", "relation"} {
			selectors = append(selectors, fmt.Sprintf("%s%s%s;", objType, sel, area))
		}
	}
	if len(selectors) == 0 {
		return ""
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}

	return fmt.Sprintf("[out:json][timeout:60];(%s);out center %d;",
		strings.Join(selectors, ""), limit)
}

// aroundFilter строит фильтр "вокруг полилинии": маршрут прореживается
// с шагом ceil(len/maxRoutePoints), первая и последняя вершины сохраняются
func aroundFilter(route domain.Route, maxDeviationKm float64) string {
	sampled := sampleRoute(route, maxRoutePoints)

	coords := make([]string, 0, len(sampled)*2)
	for _, p := range sampled {
		coords = append(coords, fmt.Sprintf("%f,%f", p.Lat, p.Lon))
	}

	radiusMeters := maxDeviationKm * 1000
	return fmt.Sprintf("(around:%.0f,%s)", radiusMeters, strings.Join(coords, ","))
}

func sampleRoute(route domain.Route, maxPoints int) domain.Route {
	if len(route) <= maxPoints {
		return route
	}

	stride := int(math.Ceil(float64(len(route)) / float64(maxPoints)))
	sampled := make(domain.Route, 0, maxPoints+1)
	for i := 0; i < len(route); i += stride {
		sampled = append(sampled, route[i])
	}
	// последняя вершина обязана присутствовать
	last := route[len(route)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}
	return sampled
}

// postProcess конвертирует элементы источника в POI: безымянные
// отбрасываются, при заданном коридоре выполняется строгий фильтр
// по расстоянию до маршрута, результат сортируется по важности
func (c *client) postProcess(elements []overpassElement, q domain.SourceQuery) []*domain.POI {
	line := q.Route.LineString()

	pois := make([]*domain.POI, 0, len(elements))
	for _, el := range elements {
		lat, lon := el.Lat, el.Lon
		if el.Center != nil {
			lat, lon = el.Center.Lat, el.Center.Lon
		}
		if lat == 0 && lon == 0 {
			continue
		}

		category := domain.CategoryFromTags(el.Tags)
		if category == "" {
			continue
		}

		name := el.Tags["name"]
		if name == "" {
			// неинформативный объект - в выдачу не попадает
			continue
		}

		poi := &domain.POI{
			ID:               el.ID,
			SourceType:       domain.SourceType(el.Type),
			Name:             name,
			Lat:              lat,
			Lon:              lon,
			Tags:             el.Tags,
			PrimaryAttribute: domain.PrimaryAttributeFromTags(el.Tags),
			Category:         category,
		}

		if len(q.Route) > 1 && q.MaxDeviationKm > 0 {
			dist := utils.DistanceToLineKm(orb.Point{lon, lat}, line)
			if dist > q.MaxDeviationKm {
				continue
			}
			poi.DistanceToRoute = &dist
		}

		pois = append(pois, poi)
	}

	sort.SliceStable(pois, func(i, j int) bool {
		return domain.MoreImportant(pois[i], pois[j])
	})

	return pois
}
