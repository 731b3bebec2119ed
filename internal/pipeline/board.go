// Package pipeline holds the kanban board state. A company is either in the
// search results or on the board, never both; Board enforces that through
// its Store.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
)

var (
	ErrInvalidStage  = errors.New("invalid pipeline stage")
	ErrStageConflict = errors.New("lead is no longer in the expected stage")
	ErrCardNotFound  = errors.New("kanban lead not found")
)

// Store persists cards and the pipeline flags on their companies. Every
// method must keep the card set and companies.in_crm in agreement.
type Store interface {
	// InTx runs fn atomically
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	CardByID(ctx context.Context, id uuid.UUID) (*domain.KanbanLead, error)
	CardsByCompany(ctx context.Context, companyIDs []uuid.UUID) ([]domain.KanbanLead, error)
	CardsByCNPJ(ctx context.Context, cnpjs []string) ([]domain.KanbanLead, error)
	// Place inserts the card and marks its company as in the pipeline
	Place(ctx context.Context, card *domain.KanbanLead) error
	// SetStage moves the card and mirrors the stage on its company
	SetStage(ctx context.Context, card *domain.KanbanLead, stage domain.KanbanStage) error
	// Remove deletes the card and returns its company to the search results
	Remove(ctx context.Context, card *domain.KanbanLead) error
}

// Board applies pipeline transitions
type Board struct {
	store Store
}

func NewBoard(store Store) *Board {
	return &Board{store: store}
}

// MoveToKanban places one card per company. Companies that already have a
// card are skipped and their CNPJs returned. Cards without a stage start in
// the lead column.
func (b *Board) MoveToKanban(ctx context.Context, cards []domain.KanbanLead) (placed []domain.KanbanLead, skipped []string, err error) {
	for i := range cards {
		if cards[i].Stage == "" {
			cards[i].Stage = domain.StageLead
		}
		if !cards[i].Stage.IsValid() {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidStage, cards[i].Stage)
		}
		if cards[i].CompanyID == uuid.Nil {
			return nil, nil, fmt.Errorf("card %d has no company", i)
		}
	}

	err = b.store.InTx(ctx, func(ctx context.Context) error {
		ids := make([]uuid.UUID, 0, len(cards))
		for _, c := range cards {
			ids = append(ids, c.CompanyID)
		}
		existing, err := b.store.CardsByCompany(ctx, ids)
		if err != nil {
			return err
		}
		onBoard := make(map[uuid.UUID]bool, len(existing))
		for _, c := range existing {
			onBoard[c.CompanyID] = true
		}

		for i := range cards {
			card := cards[i]
			if onBoard[card.CompanyID] {
				skipped = append(skipped, cardCNPJ(&card))
				continue
			}
			if err := b.store.Place(ctx, &card); err != nil {
				return err
			}
			onBoard[card.CompanyID] = true
			placed = append(placed, card)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return placed, skipped, nil
}

// MoveStage moves a card to another column. A non-empty from must match the
// card's current stage.
func (b *Board) MoveStage(ctx context.Context, cardID uuid.UUID, from, to domain.KanbanStage) (*domain.KanbanLead, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, to)
	}
	if from != "" && !from.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, from)
	}

	var moved *domain.KanbanLead
	err := b.store.InTx(ctx, func(ctx context.Context) error {
		card, err := b.store.CardByID(ctx, cardID)
		if err != nil {
			return err
		}
		if from != "" && card.Stage != from {
			return fmt.Errorf("%w: expected %s, found %s", ErrStageConflict, from, card.Stage)
		}
		if card.Stage != to {
			if err := b.store.SetStage(ctx, card, to); err != nil {
				return err
			}
			card.Stage = to
		}
		moved = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// RestoreToSearch removes the cards of the given CNPJs and returns the ids
// of the companies put back into the search results. CNPJs without a card
// are ignored.
func (b *Board) RestoreToSearch(ctx context.Context, cnpjs []string) ([]uuid.UUID, error) {
	var restored []uuid.UUID
	err := b.store.InTx(ctx, func(ctx context.Context) error {
		cards, err := b.store.CardsByCNPJ(ctx, cnpjs)
		if err != nil {
			return err
		}
		for i := range cards {
			if err := b.store.Remove(ctx, &cards[i]); err != nil {
				return err
			}
			restored = append(restored, cards[i].CompanyID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

func cardCNPJ(card *domain.KanbanLead) string {
	if card.Company != nil {
		return card.Company.CNPJ
	}
	return card.CompanyID.String()
}
