package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

// WebhookService implements automation.WebhookGateway. Every attempt is
// audited as a WebhookDelivery row; a circuit breaker shields repeatedly
// failing endpoints.
type WebhookService struct {
	db      *gorm.DB
	logger  *logrus.Logger
	client  *http.Client
	breaker *CircuitBreaker
}

func NewWebhookService(db *gorm.DB, logger *logrus.Logger, breaker *CircuitBreaker) *WebhookService {
	if logger == nil {
		logger = logrus.New()
	}
	return &WebhookService{
		db:     db,
		logger: logger,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}
}

func (s *WebhookService) Post(ctx context.Context, url, method string, headers map[string]string, body []byte) error {
	if url == "" {
		return automation.Permanentf("webhook url is required")
	}
	if method == "" {
		method = http.MethodPost
	}

	if s.breaker != nil && !s.breaker.Allow() {
		err := automation.Transientf("webhook circuit open for outbound delivery")
		s.record(ctx, url, method, 0, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		perr := automation.Permanentf("build webhook request: %v", err)
		s.record(ctx, url, method, 0, perr)
		return perr
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		terr := automation.Transient(fmt.Errorf("webhook request: %w", err))
		s.onFailure()
		s.record(ctx, url, method, 0, terr)
		return terr
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if s.breaker != nil {
			s.breaker.OnSuccess()
		}
		s.record(ctx, url, method, resp.StatusCode, nil)
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		perr := automation.Permanentf("webhook endpoint returned %d", resp.StatusCode)
		s.onFailure()
		s.record(ctx, url, method, resp.StatusCode, perr)
		return perr
	default:
		terr := automation.Transientf("webhook endpoint returned %d", resp.StatusCode)
		s.onFailure()
		s.record(ctx, url, method, resp.StatusCode, terr)
		return terr
	}
}

func (s *WebhookService) onFailure() {
	if s.breaker != nil {
		s.breaker.OnFailure()
	}
}

// record writes the delivery audit row. Audit failures are logged, not
// surfaced; they never change the delivery result.
func (s *WebhookService) record(ctx context.Context, url, method string, status int, deliveryErr error) {
	row := &models.WebhookDelivery{
		DeliveryID: uuid.New().String(),
		URL:        url,
		Method:     method,
		StatusCode: status,
		Success:    deliveryErr == nil,
	}
	if deliveryErr != nil {
		row.Error = deliveryErr.Error()
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.logger.Warnf("record webhook delivery for %s: %v", url, err)
	}
}

// BreakerStats exposes the circuit breaker state for the stats endpoint.
func (s *WebhookService) BreakerStats() map[string]interface{} {
	if s.breaker == nil {
		return map[string]interface{}{"state": "disabled"}
	}
	return s.breaker.Stats()
}

// ListDeliveries returns recent delivery audit rows, newest first.
func (s *WebhookService) ListDeliveries(ctx context.Context, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.WebhookDelivery
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
