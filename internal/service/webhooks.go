package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/logging"
	"github.com/uppalcrm/crm/api/internal/metrics"
	"github.com/uppalcrm/crm/api/internal/queue"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service/normalize"
)

const defaultStatsWindow = 30 * 24 * time.Hour

// JobQueue buffers webhook deliveries between the API and the worker.
type JobQueue interface {
	Push(ctx context.Context, job *queue.Job) error
	Len(ctx context.Context) (int64, error)
}

// WebhookService accepts inbound integration payloads and turns them into leads.
type WebhookService struct {
	webhooks repository.WebhooksRepository
	leads    *LeadsService
	queue    JobQueue
	metrics  *metrics.CRMMetrics
	now      func() time.Time
}

// NewWebhookService constructs a WebhookService. queue may be nil when only synchronous ingestion is used.
func NewWebhookService(webhooks repository.WebhooksRepository, leads *LeadsService, q JobQueue, m *metrics.CRMMetrics) *WebhookService {
	return &WebhookService{webhooks: webhooks, leads: leads, queue: q, metrics: m, now: time.Now}
}

// IngestLead normalizes payload synchronously. profileName selects a built-in profile; when empty
// the profile is detected from the payload shape.
func (s *WebhookService) IngestLead(ctx context.Context, orgID uuid.UUID, payload map[string]any, profileName string) (*entity.Lead, error) {
	profile := normalize.Detect(payload)
	if name := strings.TrimSpace(profileName); name != "" {
		p, ok := normalize.Lookup(name)
		if !ok {
			return nil, invalidField("profile", "unknown profile %q; expected one of %s", name, strings.Join(normalize.Names(), ", "))
		}
		profile = p
	}

	started := s.now()
	lead, err := s.leads.Ingest(ctx, orgID, payload, profile, normalize.Generic)
	s.record(ctx, orgID, nil, profile.Name, payload, lead, err, started)
	return lead, err
}

// Enqueue validates that the endpoint belongs to the organization and is active, then queues the
// payload for the worker. Any body is accepted; bodies that are not JSON objects are queued as a
// JSON string and logged as rejected by Process.
func (s *WebhookService) Enqueue(ctx context.Context, orgID uuid.UUID, webhookID string, payload json.RawMessage) (*queue.Job, error) {
	if s.queue == nil {
		return nil, errors.New("webhook queue is not configured")
	}
	endpoint, err := s.Describe(ctx, orgID, webhookID)
	if err != nil {
		return nil, err
	}
	if !endpoint.IsActive {
		return nil, notFound("webhook")
	}

	if !json.Valid(payload) {
		encoded, err := json.Marshal(string(payload))
		if err != nil {
			return nil, fmt.Errorf("encode webhook payload: %w", err)
		}
		payload = encoded
	}

	job := &queue.Job{
		OrganizationID: orgID,
		WebhookID:      endpoint.ID,
		Payload:        payload,
		RequestID:      logging.GetRequestID(ctx),
		ReceivedAt:     s.now().UTC(),
	}
	if err := s.queue.Push(ctx, job); err != nil {
		return nil, err
	}
	if depth, err := s.queue.Len(ctx); err == nil {
		s.metrics.SetQueueDepth(depth)
	}
	return job, nil
}

// Describe returns one endpoint of the organization.
func (s *WebhookService) Describe(ctx context.Context, orgID uuid.UUID, webhookID string) (*entity.WebhookEndpoint, error) {
	id, err := uuid.Parse(strings.TrimSpace(webhookID))
	if err != nil {
		return nil, notFound("webhook")
	}
	endpoint, err := s.webhooks.FindEndpoint(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repository.ErrWebhookNotFound) {
			return nil, notFound("webhook")
		}
		return nil, err
	}
	return endpoint, nil
}

// Stats aggregates delivery logs in [from, to). Zero bounds default to the last 30 days.
func (s *WebhookService) Stats(ctx context.Context, orgID uuid.UUID, from, to time.Time) (dto.WebhookStatsResponse, error) {
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultStatsWindow)
	}
	if from.After(to) {
		return dto.WebhookStatsResponse{}, invalidField("from", "from must not be after to")
	}

	stats, err := s.webhooks.Stats(ctx, orgID, from, to)
	if err != nil {
		return dto.WebhookStatsResponse{}, err
	}

	resp := dto.WebhookStatsResponse{
		From:           from,
		To:             to,
		Total:          stats.Total,
		Processed:      stats.Processed,
		Rejected:       stats.Rejected,
		Failed:         stats.Failed,
		LastReceivedAt: stats.LastReceivedAt,
	}
	if stats.Total > 0 {
		resp.SuccessRate = float64(stats.Processed) / float64(stats.Total)
	}
	if s.queue != nil {
		depth, err := s.queue.Len(ctx)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("failed to read webhook queue depth")
		}
		resp.QueueDepth = depth
	}
	return resp, nil
}

// Process handles one queued delivery. Payloads that can never succeed are logged as rejected and
// acknowledged; only transient failures are returned.
func (s *WebhookService) Process(ctx context.Context, job *queue.Job) error {
	if job == nil {
		return nil
	}
	endpoint, err := s.webhooks.FindEndpoint(ctx, job.OrganizationID, job.WebhookID)
	if err != nil {
		if errors.Is(err, repository.ErrWebhookNotFound) {
			s.record(ctx, job.OrganizationID, nil, "unknown", job.Payload, nil, notFound("webhook"), s.now())
			return nil
		}
		return fmt.Errorf("load webhook %s: %w", job.WebhookID, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload == nil {
		s.record(ctx, job.OrganizationID, &endpoint.ID, endpoint.Profile, job.Payload, nil, invalidArgument("webhook payload must be a JSON object"), s.now())
		return nil
	}

	profiles := endpointProfiles(endpoint, payload)
	started := s.now()
	lead, err := s.leads.Ingest(ctx, job.OrganizationID, payload, profiles...)
	s.record(ctx, job.OrganizationID, &endpoint.ID, profiles[0].Name, payload, lead, err, started)
	if err != nil && deliveryStatus(err) == entity.DeliveryFailed {
		return err
	}
	return nil
}

// endpointProfiles layers the endpoint's own mapping over its built-in profile and the generic
// aliases, so defaults fill every target the mapping leaves unresolved.
func endpointProfiles(endpoint *entity.WebhookEndpoint, payload map[string]any) []normalize.Profile {
	layers := make([]normalize.Profile, 0, 3)
	if len(endpoint.Mapping) > 0 {
		layers = append(layers, normalize.ProfileFromMapping(endpoint.Name, endpoint.Mapping))
	}
	if p, ok := normalize.Lookup(endpoint.Profile); ok {
		layers = append(layers, p)
	} else {
		layers = append(layers, normalize.Detect(payload))
	}
	return []normalize.Profile{normalize.Layer(append(layers, normalize.Generic)...)}
}

func deliveryStatus(err error) string {
	var normErr *normalize.Error
	switch {
	case err == nil:
		return entity.DeliveryProcessed
	case errors.As(err, &normErr),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrNotFound):
		return entity.DeliveryRejected
	default:
		return entity.DeliveryFailed
	}
}

func (s *WebhookService) record(ctx context.Context, orgID uuid.UUID, webhookID *uuid.UUID, profile string, payload any, lead *entity.Lead, err error, started time.Time) {
	status := deliveryStatus(err)
	s.metrics.ObserveWebhook(profile, status, s.now().Sub(started))

	raw, ok := payload.(json.RawMessage)
	if !ok {
		encoded, encErr := json.Marshal(payload)
		if encErr == nil {
			raw = encoded
		}
	}
	entry := &entity.DeliveryLog{
		OrganizationID: orgID,
		WebhookID:      webhookID,
		Status:         status,
		Payload:        raw,
	}
	if lead != nil {
		entry.LeadID = &lead.ID
	}
	if err != nil {
		msg := err.Error()
		entry.Error = &msg
	}

	logger := logging.FromContext(ctx)
	if err := s.webhooks.InsertDeliveryLog(ctx, entry); err != nil {
		logger.Error().Err(err).Str("org", orgID.String()).Msg("failed to write webhook delivery log")
	}
	event := logger.Info()
	if status == entity.DeliveryFailed {
		event = logger.Error().Err(err)
	}
	event.Str("org", orgID.String()).Str("profile", profile).Str("status", status).Msg("webhook delivery")
}
