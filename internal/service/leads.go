package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service/normalize"
	"github.com/uppalcrm/crm/api/internal/service/scoring"
)

const csvImportSource = "csv_import"

// LeadsService turns inbound payloads into stored leads and serves lead reads.
type LeadsService struct {
	repo      repository.LeadsRepository
	processor *DataProcessor
}

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// UploadSummary reports how many rows were inserted or skipped during import.
type UploadSummary struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// NewLeadsService creates a new instance of LeadsService.
func NewLeadsService(repo repository.LeadsRepository, processor *DataProcessor) *LeadsService {
	if processor == nil {
		processor = NewDataProcessor("")
	}
	return &LeadsService{repo: repo, processor: processor}
}

// Ingest normalizes a webhook payload with the given profiles and stores the resulting lead.
// A payload without an email yields *normalize.Error.
func (s *LeadsService) Ingest(ctx context.Context, orgID uuid.UUID, payload map[string]any, profiles ...normalize.Profile) (*entity.Lead, error) {
	lead, err := normalize.Normalize(payload, profiles...)
	if err != nil {
		return nil, err
	}
	return s.persistLead(ctx, orgID, lead)
}

// CreateDirect stores a lead submitted in canonical form.
func (s *LeadsService) CreateDirect(ctx context.Context, orgID uuid.UUID, req dto.CreateLeadRequest) (*entity.Lead, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, &normalize.Error{Kind: normalize.KindMissingRequiredField, Field: "email"}
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "manual"
	}
	lead := normalize.Lead{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Company:      req.Company,
		Title:        req.Title,
		Website:      req.Website,
		Notes:        req.Notes,
		Source:       source,
		CustomFields: req.CustomFields,
	}
	if lead.FirstName == "" && lead.LastName == "" {
		if name, ok := req.CustomFields["name"].(string); ok {
			lead.FirstName, lead.LastName = normalize.SplitName(name)
		}
	}
	return s.persistLead(ctx, orgID, lead)
}

func (s *LeadsService) persistLead(ctx context.Context, orgID uuid.UUID, lead normalize.Lead) (*entity.Lead, error) {
	cleaned, err := s.processor.CleanLead(lead)
	if err != nil {
		return nil, err
	}

	record := toEntityLead(orgID, cleaned)
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrLeadEmailDuplicate) {
			return nil, &FieldError{Err: ErrConflict, Field: "email", Message: "a lead with this email already exists"}
		}
		return nil, err
	}
	return record, nil
}

// List returns one page of the organization's leads, applying pagination defaults.
func (s *LeadsService) List(ctx context.Context, orgID uuid.UUID, filter dto.LeadListFilter) (dto.LeadListResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	filter.Q = strings.TrimSpace(filter.Q)

	leads, total, err := s.repo.List(ctx, orgID, filter)
	if err != nil {
		return dto.LeadListResponse{}, err
	}
	return dto.LeadListResponse{Items: leads, Page: filter.Page, PerPage: filter.PerPage, Total: total}, nil
}

// Get returns one lead of the organization. Malformed ids and other tenants' leads are not found.
func (s *LeadsService) Get(ctx context.Context, orgID uuid.UUID, id string) (*entity.Lead, error) {
	leadID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, notFound("lead")
	}
	lead, err := s.repo.FindByID(ctx, orgID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, notFound("lead")
		}
		return nil, err
	}
	return lead, nil
}

// ImportCSV ingests leads from a CSV reader. Only the email column is required; rows without a
// usable email and emails already on file are skipped.
func (s *LeadsService) ImportCSV(ctx context.Context, orgID uuid.UUID, r io.Reader) (UploadSummary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return UploadSummary{}, CSVValidationError{Message: "csv file is empty"}
		}
		return UploadSummary{}, fmt.Errorf("read csv header: %w", err)
	}

	indexMap, valErr := buildHeaderIndex(header)
	if valErr != nil {
		return UploadSummary{}, valErr
	}

	var (
		records []entity.Lead
		rows    int
		invalid int
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return UploadSummary{}, fmt.Errorf("read csv row: %w", err)
		}
		rows++

		lead := normalize.Lead{
			FirstName: column(row, indexMap, "first_name"),
			LastName:  column(row, indexMap, "last_name"),
			Email:     column(row, indexMap, "email"),
			Phone:     column(row, indexMap, "phone"),
			Company:   column(row, indexMap, "company"),
			Title:     column(row, indexMap, "title"),
			Website:   column(row, indexMap, "website"),
			Notes:     column(row, indexMap, "notes"),
			Source:    column(row, indexMap, "source"),
		}
		if lead.FirstName == "" && lead.LastName == "" {
			lead.FirstName, lead.LastName = normalize.SplitName(column(row, indexMap, "name"))
		}
		if lead.Source == "" {
			lead.Source = csvImportSource
		}
		if lead.Email == "" {
			invalid++
			continue
		}

		cleaned, err := s.processor.CleanLead(lead)
		if err != nil {
			invalid++
			continue
		}
		records = append(records, *toEntityLead(orgID, cleaned))
	}

	result, err := s.repo.BulkInsert(ctx, records)
	if err != nil {
		return UploadSummary{}, err
	}

	return UploadSummary{
		Inserted: result.Inserted,
		Skipped:  result.Skipped + invalid,
		Total:    rows,
	}, nil
}

var requiredCSVHeaders = []string{"email"}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		key = strings.ReplaceAll(key, " ", "_")
		index[key] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredCSVHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

func column(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func toEntityLead(orgID uuid.UUID, lead normalize.Lead) *entity.Lead {
	record := &entity.Lead{
		OrganizationID: orgID,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Email:          lead.Email,
		Phone:          normalizeString(lead.Phone),
		Company:        normalizeString(lead.Company),
		Title:          normalizeString(lead.Title),
		Website:        normalizeString(lead.Website),
		Notes:          normalizeString(lead.Notes),
		Source:         lead.Source,
		Status:         "new",
		CustomFields:   lead.CustomFields,
	}
	if record.CustomFields == nil {
		record.CustomFields = map[string]any{}
	}
	record.Score = scoring.ComputeScore(scoring.LeadFeatures{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		Title:     lead.Title,
		Website:   lead.Website,
		Socials:   socialLinks(lead.CustomFields),
	}).Total
	return record
}

func socialLinks(fields map[string]any) map[string]string {
	links := make(map[string]string)
	for key, value := range fields {
		if s, ok := value.(string); ok && strings.Contains(s, ".") {
			links[key] = s
		}
	}
	return links
}

func normalizeString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
