package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service/entitlement"
)

const (
	defaultExpiringWindowDays = 7
	maxExpiringWindowDays     = 90
	trialActionExtend         = "extend"
)

// OrganizationTrialService lets super admins manage tenant trials.
type OrganizationTrialService struct {
	orgs repository.OrganizationsRepository
	entitlementDeps
}

// NewOrganizationTrialService constructs an OrganizationTrialService.
func NewOrganizationTrialService(orgs repository.OrganizationsRepository, opts ...EntitlementOption) *OrganizationTrialService {
	return &OrganizationTrialService{orgs: orgs, entitlementDeps: newEntitlementDeps(opts)}
}

// Status returns the evaluated trial of one organization.
func (s *OrganizationTrialService) Status(ctx context.Context, orgID string) (dto.OrganizationTrialStatus, error) {
	org, err := s.find(ctx, orgID)
	if err != nil {
		return dto.OrganizationTrialStatus{}, err
	}
	return s.trialStatus(org), nil
}

// Extend pushes the trial end by req.Days and records who did it. Expired trials are reopened.
func (s *OrganizationTrialService) Extend(ctx context.Context, orgID string, req dto.OrganizationTrialRequest, actor string) (resp dto.OrganizationTrialStatus, err error) {
	defer func() { s.metrics.ObserveEntitlement("organization", "extend", err) }()

	if strings.ToLower(strings.TrimSpace(req.Action)) != trialActionExtend {
		return dto.OrganizationTrialStatus{}, invalidField("action", "unsupported trial action %q", req.Action)
	}
	if req.Days <= 0 {
		return dto.OrganizationTrialStatus{}, invalidField("days", "days must be positive, got %d", req.Days)
	}

	org, err := s.find(ctx, orgID)
	if err != nil {
		return dto.OrganizationTrialStatus{}, err
	}
	if org.TrialEndsAt == nil {
		return dto.OrganizationTrialStatus{}, fmt.Errorf("%w: organization has no trial", ErrInvalidState)
	}

	record := orgRecord(org)
	if record.Status == entitlement.StatusExpired {
		record.Status = entitlement.StatusActive
	}
	extended, err := entitlement.Extend(record, req.Days)
	if err != nil {
		return dto.OrganizationTrialStatus{}, err
	}

	note := entity.OrganizationNote{
		OrganizationID: org.ID,
		Kind:           "trial_extended",
		Body:           strings.TrimSpace(fmt.Sprintf("Trial extended by %d days. %s", req.Days, strings.TrimSpace(req.Reason))),
		CreatedBy:      actor,
	}
	updated, err := s.orgs.ExtendTrial(ctx, org.ID, extended.ExpiresAt, note)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			return dto.OrganizationTrialStatus{}, notFound("organization")
		}
		return dto.OrganizationTrialStatus{}, err
	}
	return s.trialStatus(updated), nil
}

// ConvertToPaid ends the trial and writes the subscription billing columns.
func (s *OrganizationTrialService) ConvertToPaid(ctx context.Context, orgID string, req dto.ConvertToPaidRequest, actor string) (resp dto.ConvertToPaidResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("organization", "convert", err) }()

	plan := strings.TrimSpace(req.SubscriptionPlan)
	if plan == "" {
		return dto.ConvertToPaidResponse{}, invalidField("subscriptionPlan", "subscriptionPlan is required")
	}
	if req.LicenseCount <= 0 {
		return dto.ConvertToPaidResponse{}, invalidField("licenseCount", "licenseCount must be positive, got %d", req.LicenseCount)
	}
	if req.PaymentAmount < 0 || math.IsNaN(req.PaymentAmount) || math.IsInf(req.PaymentAmount, 0) {
		return dto.ConvertToPaidResponse{}, invalidField("paymentAmount", "paymentAmount must be a non-negative number")
	}
	cycle := strings.ToLower(strings.TrimSpace(req.BillingCycle))
	if cycle == "" {
		cycle = "monthly"
	}

	org, err := s.find(ctx, orgID)
	if err != nil {
		return dto.ConvertToPaidResponse{}, err
	}
	previous := org.TrialStatus
	switch entitlement.Status(previous) {
	case entitlement.StatusConverted, entitlement.StatusCancelled, entitlement.StatusRevoked:
		return dto.ConvertToPaidResponse{}, fmt.Errorf("%w: organization trial is %s", ErrInvalidState, previous)
	}

	now := s.now().UTC()
	conv := repository.PaidConversion{
		SubscriptionPlan: plan,
		LicenseCount:     req.LicenseCount,
		BillingCycle:     cycle,
		MonthlyCost:      math.Round(req.PaymentAmount/float64(entitlement.MonthsInCycle(cycle))*100) / 100,
		LastPaymentDate:  now,
		NextBillingDate:  entitlement.CalculateEndDate(now, cycle),
	}
	note := entity.OrganizationNote{
		OrganizationID: org.ID,
		Kind:           "converted_to_paid",
		Body:           strings.TrimSpace(fmt.Sprintf("Converted to %s (%d licenses, %s, %.2f). %s", plan, req.LicenseCount, cycle, req.PaymentAmount, strings.TrimSpace(req.BillingNotes))),
		CreatedBy:      actor,
	}
	updated, err := s.orgs.ConvertToPaid(ctx, org.ID, conv, note)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			return dto.ConvertToPaidResponse{}, notFound("organization")
		}
		return dto.ConvertToPaidResponse{}, err
	}

	return dto.ConvertToPaidResponse{
		OrganizationID:  updated.ID.String(),
		PreviousStatus:  previous,
		NewStatus:       updated.TrialStatus,
		LastPaymentDate: conv.LastPaymentDate,
		NextBillingDate: conv.NextBillingDate,
		MonthlyCost:     conv.MonthlyCost,
	}, nil
}

// ExpiringTrials groups active trials ending within the window by risk: high within a day,
// medium within three days, low otherwise. Overdue trials not yet swept count as high.
func (s *OrganizationTrialService) ExpiringTrials(ctx context.Context, withinDays int) (dto.ExpiringTrialsResponse, error) {
	if withinDays <= 0 {
		withinDays = defaultExpiringWindowDays
	}
	if withinDays > maxExpiringWindowDays {
		withinDays = maxExpiringWindowDays
	}

	now := s.now()
	orgs, err := s.orgs.ListTrialsEndingBefore(ctx, now.AddDate(0, 0, withinDays))
	if err != nil {
		return dto.ExpiringTrialsResponse{}, err
	}

	resp := dto.ExpiringTrialsResponse{
		WithinDays: withinDays,
		Total:      len(orgs),
		High:       []dto.OrganizationTrialStatus{},
		Medium:     []dto.OrganizationTrialStatus{},
		Low:        []dto.OrganizationTrialStatus{},
	}
	for i := range orgs {
		status := s.trialStatus(&orgs[i])
		switch days := status.Evaluation.DaysUntilExpiry; {
		case days <= 1:
			resp.High = append(resp.High, status)
		case days <= 3:
			resp.Medium = append(resp.Medium, status)
		default:
			resp.Low = append(resp.Low, status)
		}
	}
	return resp, nil
}

// ExpireOverdue persists the expired status for every active trial past its end.
func (s *OrganizationTrialService) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.orgs.ExpireTrials(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.AddTrialsExpired(n)
	return n, nil
}

func (s *OrganizationTrialService) find(ctx context.Context, id string) (*entity.Organization, error) {
	orgID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, notFound("organization")
	}
	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			return nil, notFound("organization")
		}
		return nil, err
	}
	return org, nil
}

func (s *OrganizationTrialService) trialStatus(org *entity.Organization) dto.OrganizationTrialStatus {
	status := dto.OrganizationTrialStatus{
		OrganizationID:     org.ID.String(),
		Name:               org.Name,
		Slug:               org.Slug,
		TrialStatus:        org.TrialStatus,
		TrialEndsAt:        org.TrialEndsAt,
		TrialExtendedCount: org.TrialExtendedCount,
		Evaluation: dto.Evaluation{
			Status:          org.TrialStatus,
			EffectiveStatus: org.TrialStatus,
		},
	}
	if org.TrialEndsAt == nil {
		return status
	}

	now := s.now()
	record := orgRecord(org)
	status.ProgressPercent = entitlement.ProgressPercent(record, now)
	status.CanExtend = entitlement.CanExtendTrial(record, now)
	status.Evaluation = evaluationDTO(entitlement.Evaluate(record, now))
	return status
}

func orgRecord(org *entity.Organization) entitlement.Record {
	record := entitlement.Record{
		ContactID: org.ID.String(),
		Status:    entitlement.Status(org.TrialStatus),
		CreatedAt: org.CreatedAt,
	}
	if org.TrialStartedAt != nil {
		record.CreatedAt = *org.TrialStartedAt
	}
	if org.TrialEndsAt != nil {
		record.ExpiresAt = *org.TrialEndsAt
	}
	return record
}
