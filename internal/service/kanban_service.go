package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/pipeline"
	"github.com/prospecta/leads-api/internal/repository"
	"go.uber.org/zap"
)

// KanbanService manages the pipeline board
type KanbanService struct {
	kanbanRepo  *repository.KanbanRepository
	companyRepo *repository.CompanyRepository
	board       *pipeline.Board
	logger      *zap.Logger
}

func NewKanbanService(
	kanbanRepo *repository.KanbanRepository,
	companyRepo *repository.CompanyRepository,
	logger *zap.Logger,
) *KanbanService {
	return &KanbanService{
		kanbanRepo:  kanbanRepo,
		companyRepo: companyRepo,
		board:       pipeline.NewBoard(kanbanRepo),
		logger:      logger,
	}
}

// List returns the board in column order, optionally one column only
func (s *KanbanService) List(ctx context.Context, stage *domain.KanbanStage) ([]domain.KanbanLeadDTO, error) {
	if stage != nil && !stage.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, *stage)
	}
	cards, err := s.kanbanRepo.List(ctx, &repository.KanbanFilters{Stage: stage})
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline: %w", err)
	}
	dtos := make([]domain.KanbanLeadDTO, 0, len(cards))
	for i := range cards {
		dtos = append(dtos, mapper.ToKanbanLeadDTO(&cards[i]))
	}
	return dtos, nil
}

// MoveToKanban puts the submitted leads on the board. Unknown companies are
// created first. Contact details come from the lead's enriched data when
// present, and the card value is the estimated deal size for its score.
func (s *KanbanService) MoveToKanban(ctx context.Context, req *domain.MoveToKanbanRequest) (*domain.MoveToKanbanResponse, error) {
	stage := req.Stage
	if stage == "" {
		stage = domain.StageLead
	}
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}

	cards := make([]domain.KanbanLead, 0, len(req.Leads))
	for i := range req.Leads {
		in := &req.Leads[i]
		company, _, err := findOrCreateCompany(ctx, s.companyRepo, in)
		if err != nil {
			return nil, err
		}
		card := newCard(company, stage)
		applyContact(&card, in.EnrichedData)
		cards = append(cards, card)
	}

	placed, skipped, err := s.board.MoveToKanban(ctx, cards)
	if err != nil {
		return nil, translate(err, "failed to move leads to pipeline")
	}

	resp := &domain.MoveToKanbanResponse{
		Created: make([]domain.KanbanLeadDTO, 0, len(placed)),
		Skipped: []string{},
	}
	for i := range placed {
		if placed[i].Company != nil {
			placed[i].Company.InCRM = true
			placed[i].Company.CRMStage = &placed[i].Stage
		}
		resp.Created = append(resp.Created, mapper.ToKanbanLeadDTO(&placed[i]))
	}
	resp.Skipped = append(resp.Skipped, skipped...)

	s.logger.Info("leads moved to pipeline",
		zap.Int("placed", len(placed)),
		zap.Int("skipped", len(skipped)),
		zap.String("stage", string(stage)),
	)
	return resp, nil
}

// Update edits a card. A stage change is applied first and fails with
// ErrStageConflict when from_stage no longer matches.
func (s *KanbanService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateKanbanLeadRequest) (*domain.KanbanLeadDTO, error) {
	if req.Stage != nil {
		var from domain.KanbanStage
		if req.FromStage != nil {
			from = *req.FromStage
		}
		if _, err := s.board.MoveStage(ctx, id, from, *req.Stage); err != nil {
			return nil, translate(err, "failed to move pipeline lead")
		}
	}

	card, err := s.kanbanRepo.CardByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get pipeline lead")
	}

	changed := false
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			changed = true
		}
	}
	set(&card.ContactName, req.ContactName)
	set(&card.Phone, req.Phone)
	set(&card.Email, req.Email)
	set(&card.Notes, req.Notes)
	if req.Value != nil {
		card.Value = *req.Value
		changed = true
	}

	if changed {
		card.UpdatedAt = time.Now().UTC()
		if err := s.kanbanRepo.Update(ctx, card); err != nil {
			return nil, translate(err, "failed to update pipeline lead")
		}
	}

	dto := mapper.ToKanbanLeadDTO(card)
	return &dto, nil
}

// Restore takes leads off the board and returns them as they now appear in
// search results.
func (s *KanbanService) Restore(ctx context.Context, cnpjs []string) (*domain.RestoreLeadsResponse, error) {
	ids, err := s.board.RestoreToSearch(ctx, cnpjs)
	if err != nil {
		return nil, translate(err, "failed to restore leads")
	}

	resp := &domain.RestoreLeadsResponse{Restored: make([]domain.LeadDTO, 0, len(ids))}
	for _, id := range ids {
		company, err := s.companyRepo.GetByID(ctx, id)
		if err != nil {
			return nil, translate(err, "failed to reload restored lead")
		}
		resp.Restored = append(resp.Restored, mapper.ToLeadDTO(company))
	}
	return resp, nil
}

// Delete removes one card and returns its company to the search results
func (s *KanbanService) Delete(ctx context.Context, id uuid.UUID) error {
	card, err := s.kanbanRepo.CardByID(ctx, id)
	if err != nil {
		return translate(err, "failed to get pipeline lead")
	}
	if card.Company == nil {
		return fmt.Errorf("pipeline lead %s has no company", id)
	}
	_, err = s.board.RestoreToSearch(ctx, []string{card.Company.CNPJ})
	return translate(err, "failed to remove pipeline lead")
}

// Counts returns the number of cards per stage
func (s *KanbanService) Counts(ctx context.Context) (map[domain.KanbanStage]int64, error) {
	counts, err := s.kanbanRepo.CountByStage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pipeline: %w", err)
	}
	return counts, nil
}

// applyContact copies contact fields from enriched data onto the card. The
// keys accepted are those written by manual and lookup enrichment.
func applyContact(card *domain.KanbanLead, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return
	}

	pick := func(m map[string]interface{}, keys ...string) string {
		for _, k := range keys {
			if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	if v := pick(data, "contato", "contact_name", "nome_contato"); v != "" {
		card.ContactName = v
	}
	if v := pick(data, "telefone", "phone"); v != "" {
		card.Phone = v
	}
	if v := pick(data, "email"); v != "" {
		card.Email = v
	}
	if contact, ok := data["contact"].(map[string]interface{}); ok {
		if v := pick(contact, "phone"); v != "" && card.Phone == "" {
			card.Phone = v
		}
		if v := pick(contact, "email"); v != "" && card.Email == "" {
			card.Email = v
		}
	}
	if partners, ok := data["partners"].([]interface{}); ok && card.ContactName == "" && len(partners) > 0 {
		if p, ok := partners[0].(map[string]interface{}); ok {
			card.ContactName = pick(p, "name")
		}
	}
}
