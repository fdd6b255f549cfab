package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service/entitlement"
)

// DefaultTrialDays applies when a trial request omits trial_days.
const DefaultTrialDays = 30

// expiredTrialDays creates a trial that expired a day ago, used to exercise expiry handling.
const expiredTrialDays = -1

// TrialsService manages contact-level software trials.
type TrialsService struct {
	trials   repository.TrialsRepository
	contacts repository.ContactsRepository
	entitlementDeps
}

// NewTrialsService constructs a TrialsService.
func NewTrialsService(trials repository.TrialsRepository, contacts repository.ContactsRepository, opts ...EntitlementOption) *TrialsService {
	return &TrialsService{trials: trials, contacts: contacts, entitlementDeps: newEntitlementDeps(opts)}
}

// Create starts a trial for a contact. TrialDays defaults to 30; -1 yields an already expired trial.
func (s *TrialsService) Create(ctx context.Context, orgID uuid.UUID, contactID string, req dto.CreateTrialRequest) (resp dto.TrialResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("trial", "create", err) }()

	contact, err := findContact(ctx, s.contacts, orgID, contactID)
	if err != nil {
		return dto.TrialResponse{}, err
	}
	edition := strings.TrimSpace(req.SoftwareEdition)
	if edition == "" {
		return dto.TrialResponse{}, invalidField("software_edition", "software_edition is required")
	}

	days := DefaultTrialDays
	if req.TrialDays != nil {
		days = *req.TrialDays
	}
	if days < 1 && days != expiredTrialDays {
		return dto.TrialResponse{}, invalidField("trial_days", "trial_days must be at least 1, got %d", days)
	}

	now := s.now().UTC()
	createdAt := now
	if days == expiredTrialDays {
		createdAt = now.Add(-31 * 24 * time.Hour)
	}
	trial := &entity.Trial{
		OrganizationID:  orgID,
		ContactID:       contact.ID,
		SoftwareEdition: edition,
		Status:          string(entitlement.StatusActive),
		CreatedAt:       createdAt,
		ExpiresAt:       now.Add(time.Duration(days) * 24 * time.Hour),
	}
	_, err = entitlement.IssueKey(s.keys, s.attempts, func(key string) error {
		trial.TrialKey = key
		if err := s.trials.Create(ctx, trial); err != nil {
			if errors.Is(err, repository.ErrTrialKeyDuplicate) {
				return entitlement.ErrKeyCollision
			}
			return err
		}
		return nil
	})
	if err != nil {
		return dto.TrialResponse{}, err
	}
	return trialResponse(trial, now), nil
}

// ListForContact returns the contact's trials with their evaluations.
func (s *TrialsService) ListForContact(ctx context.Context, orgID uuid.UUID, contactID string) ([]dto.TrialResponse, error) {
	contact, err := findContact(ctx, s.contacts, orgID, contactID)
	if err != nil {
		return nil, err
	}
	trials, err := s.trials.ListByContact(ctx, orgID, contact.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]dto.TrialResponse, 0, len(trials))
	for i := range trials {
		out = append(out, trialResponse(&trials[i], now))
	}
	return out, nil
}

// Extend adds days to an active trial.
func (s *TrialsService) Extend(ctx context.Context, orgID uuid.UUID, id string, days int) (resp dto.TrialResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("trial", "extend", err) }()

	return s.transition(ctx, orgID, id, func(t *entity.Trial, r entitlement.Record) (entitlement.Record, error) {
		return entitlement.Extend(r, days)
	})
}

// Convert marks an active trial as converted to a paid license.
func (s *TrialsService) Convert(ctx context.Context, orgID uuid.UUID, id string) (resp dto.TrialResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("trial", "convert", err) }()

	return s.transition(ctx, orgID, id, func(t *entity.Trial, r entitlement.Record) (entitlement.Record, error) {
		next, err := entitlement.Convert(r)
		if err != nil {
			return next, err
		}
		convertedAt := s.now().UTC()
		t.ConvertedAt = &convertedAt
		return next, nil
	})
}

// Cancel cancels an active trial.
func (s *TrialsService) Cancel(ctx context.Context, orgID uuid.UUID, id, reason string) (resp dto.TrialResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("trial", "cancel", err) }()

	return s.transition(ctx, orgID, id, func(t *entity.Trial, r entitlement.Record) (entitlement.Record, error) {
		return entitlement.Cancel(r, reason)
	})
}

func (s *TrialsService) transition(ctx context.Context, orgID uuid.UUID, id string, apply func(*entity.Trial, entitlement.Record) (entitlement.Record, error)) (dto.TrialResponse, error) {
	trialID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return dto.TrialResponse{}, notFound("trial")
	}
	trial, err := s.trials.FindByID(ctx, orgID, trialID)
	if err != nil {
		if errors.Is(err, repository.ErrTrialNotFound) {
			return dto.TrialResponse{}, notFound("trial")
		}
		return dto.TrialResponse{}, err
	}

	next, err := apply(trial, trialRecord(trial))
	if err != nil {
		return dto.TrialResponse{}, err
	}
	trial.Status = string(next.Status)
	trial.ExpiresAt = next.ExpiresAt
	trial.CancelReason = normalizeString(next.CancelReason)

	if err := s.trials.UpdateState(ctx, trial); err != nil {
		if errors.Is(err, repository.ErrTrialNotFound) {
			return dto.TrialResponse{}, notFound("trial")
		}
		return dto.TrialResponse{}, err
	}
	return trialResponse(trial, s.now()), nil
}

func trialRecord(t *entity.Trial) entitlement.Record {
	record := entitlement.Record{
		ContactID: t.ContactID.String(),
		Status:    entitlement.Status(t.Status),
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
	if t.CancelReason != nil {
		record.CancelReason = *t.CancelReason
	}
	return record
}

func trialResponse(t *entity.Trial, now time.Time) dto.TrialResponse {
	record := trialRecord(t)
	return dto.TrialResponse{
		ID:              t.ID.String(),
		ContactID:       t.ContactID.String(),
		TrialKey:        t.TrialKey,
		SoftwareEdition: t.SoftwareEdition,
		CancelReason:    t.CancelReason,
		ConvertedAt:     t.ConvertedAt,
		CreatedAt:       t.CreatedAt,
		ExpiresAt:       t.ExpiresAt,
		ProgressPercent: entitlement.ProgressPercent(record, now),
		CanExtend:       entitlement.CanExtendTrial(record, now),
		Evaluation:      evaluationDTO(entitlement.Evaluate(record, now)),
	}
}
