package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
)

// MemoryStore keeps companies and cards in process memory for board tests
type MemoryStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]domain.Company
	cards     map[uuid.UUID]domain.KanbanLead
}

func NewMemoryStore(companies ...domain.Company) *MemoryStore {
	s := &MemoryStore{
		companies: make(map[uuid.UUID]domain.Company),
		cards:     make(map[uuid.UUID]domain.KanbanLead),
	}
	for _, c := range companies {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		s.companies[c.ID] = c
	}
	return s
}

// InTx snapshots state and restores it if fn fails
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	companies := make(map[uuid.UUID]domain.Company, len(s.companies))
	for k, v := range s.companies {
		companies[k] = v
	}
	cards := make(map[uuid.UUID]domain.KanbanLead, len(s.cards))
	for k, v := range s.cards {
		cards[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.companies, s.cards = companies, cards
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) CardByID(_ context.Context, id uuid.UUID) (*domain.KanbanLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, ErrCardNotFound
	}
	return s.withCompany(card), nil
}

func (s *MemoryStore) CardsByCompany(_ context.Context, companyIDs []uuid.UUID) ([]domain.KanbanLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(companyIDs))
	for _, id := range companyIDs {
		wanted[id] = true
	}
	var out []domain.KanbanLead
	for _, card := range s.cards {
		if wanted[card.CompanyID] {
			out = append(out, *s.withCompany(card))
		}
	}
	return out, nil
}

func (s *MemoryStore) CardsByCNPJ(_ context.Context, cnpjs []string) ([]domain.KanbanLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(cnpjs))
	for _, c := range cnpjs {
		wanted[domain.NormalizeCNPJ(c)] = true
	}
	var out []domain.KanbanLead
	for _, card := range s.cards {
		if company, ok := s.companies[card.CompanyID]; ok && wanted[company.CNPJ] {
			out = append(out, *s.withCompany(card))
		}
	}
	return out, nil
}

func (s *MemoryStore) Place(_ context.Context, card *domain.KanbanLead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	company, ok := s.companies[card.CompanyID]
	if !ok {
		return ErrCardNotFound
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	now := time.Now().UTC()
	card.CreatedAt, card.UpdatedAt = now, now

	stage := card.Stage
	company.InCRM = true
	company.CRMStage = &stage
	s.companies[company.ID] = company

	stored := *card
	stored.Company = nil
	s.cards[card.ID] = stored
	return nil
}

func (s *MemoryStore) SetStage(_ context.Context, card *domain.KanbanLead, stage domain.KanbanStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.cards[card.ID]
	if !ok {
		return ErrCardNotFound
	}
	stored.Stage = stage
	stored.UpdatedAt = time.Now().UTC()
	s.cards[card.ID] = stored

	if company, ok := s.companies[stored.CompanyID]; ok {
		company.CRMStage = &stage
		s.companies[company.ID] = company
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, card *domain.KanbanLead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.cards[card.ID]
	if !ok {
		return ErrCardNotFound
	}
	delete(s.cards, card.ID)
	if company, ok := s.companies[stored.CompanyID]; ok {
		company.InCRM = false
		company.CRMStage = nil
		s.companies[company.ID] = company
	}
	return nil
}

// SearchResults returns the companies not on the board, ordered by CNPJ
func (s *MemoryStore) SearchResults() []domain.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Company
	for _, c := range s.companies {
		if !c.InCRM {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CNPJ < out[j].CNPJ })
	return out
}

// Cards returns the board, ordered by stage then creation
func (s *MemoryStore) Cards() []domain.KanbanLead {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := make(map[domain.KanbanStage]int, len(domain.KanbanStages))
	for i, st := range domain.KanbanStages {
		order[st] = i
	}
	out := make([]domain.KanbanLead, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, *s.withCompany(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if order[out[i].Stage] != order[out[j].Stage] {
			return order[out[i].Stage] < order[out[j].Stage]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// must hold s.mu
func (s *MemoryStore) withCompany(card domain.KanbanLead) *domain.KanbanLead {
	if company, ok := s.companies[card.CompanyID]; ok {
		c := company
		card.Company = &c
	}
	return &card
}
