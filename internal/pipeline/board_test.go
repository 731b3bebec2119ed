package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCompanies() []domain.Company {
	score := 80
	return []domain.Company{
		{
			BaseModel:          domain.BaseModel{ID: uuid.New()},
			CNPJ:               "11.222.333/0001-81",
			LegalName:          "ACME TECNOLOGIA LTDA",
			RegistrationStatus: domain.RegistrationActive,
			City:               "SAO PAULO",
			State:              "SP",
			ShareCapital:       1500000,
			AIScore:            &score,
		},
		{
			BaseModel:          domain.BaseModel{ID: uuid.New()},
			CNPJ:               "22.333.444/0001-05",
			LegalName:          "BETA COMERCIO LTDA",
			RegistrationStatus: domain.RegistrationActive,
			City:               "CURITIBA",
			State:              "PR",
		},
	}
}

func TestBoard_MoveAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	companies := sampleCompanies()
	store := NewMemoryStore(companies...)
	board := NewBoard(store)

	before := store.SearchResults()
	require.Len(t, before, 2)

	placed, skipped, err := board.MoveToKanban(ctx, []domain.KanbanLead{{CompanyID: companies[0].ID}})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, placed, 1)
	assert.Equal(t, domain.StageLead, placed[0].Stage)

	during := store.SearchResults()
	require.Len(t, during, 1)
	assert.Equal(t, companies[1].CNPJ, during[0].CNPJ)
	require.Len(t, store.Cards(), 1)

	restored, err := board.RestoreToSearch(ctx, []string{"11222333000181"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{companies[0].ID}, restored)

	after := store.SearchResults()
	assert.Equal(t, before, after)
	assert.Empty(t, store.Cards())
}

func TestBoard_MoveToKanban_SkipsCompaniesAlreadyOnBoard(t *testing.T) {
	ctx := context.Background()
	companies := sampleCompanies()
	store := NewMemoryStore(companies...)
	board := NewBoard(store)

	_, _, err := board.MoveToKanban(ctx, []domain.KanbanLead{{CompanyID: companies[0].ID, Stage: domain.StageQualified}})
	require.NoError(t, err)

	placed, skipped, err := board.MoveToKanban(ctx, []domain.KanbanLead{
		{CompanyID: companies[0].ID},
		{CompanyID: companies[1].ID},
		{CompanyID: companies[1].ID},
	})
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, companies[1].ID, placed[0].CompanyID)
	assert.Len(t, skipped, 2)

	cards := store.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, domain.StageLead, cards[0].Stage)
	assert.Equal(t, domain.StageQualified, cards[1].Stage)
	assert.Empty(t, store.SearchResults())
}

func TestBoard_MoveToKanban_InvalidStage(t *testing.T) {
	companies := sampleCompanies()
	store := NewMemoryStore(companies...)
	board := NewBoard(store)

	_, _, err := board.MoveToKanban(context.Background(), []domain.KanbanLead{{CompanyID: companies[0].ID, Stage: "won"}})
	assert.ErrorIs(t, err, ErrInvalidStage)
	assert.Empty(t, store.Cards())
	assert.Len(t, store.SearchResults(), 2)
}

func TestBoard_MoveToKanban_RollsBackOnFailure(t *testing.T) {
	companies := sampleCompanies()
	store := NewMemoryStore(companies...)
	board := NewBoard(store)

	_, _, err := board.MoveToKanban(context.Background(), []domain.KanbanLead{
		{CompanyID: companies[0].ID},
		{CompanyID: uuid.New()},
	})
	require.Error(t, err)
	assert.Empty(t, store.Cards())
	assert.Len(t, store.SearchResults(), 2)
}

func TestBoard_MoveStage(t *testing.T) {
	ctx := context.Background()
	companies := sampleCompanies()
	store := NewMemoryStore(companies...)
	board := NewBoard(store)

	placed, _, err := board.MoveToKanban(ctx, []domain.KanbanLead{{CompanyID: companies[0].ID}})
	require.NoError(t, err)
	cardID := placed[0].ID

	t.Run("moves and mirrors stage on company", func(t *testing.T) {
		card, err := board.MoveStage(ctx, cardID, domain.StageLead, domain.StageProposal)
		require.NoError(t, err)
		assert.Equal(t, domain.StageProposal, card.Stage)

		stored, err := store.CardByID(ctx, cardID)
		require.NoError(t, err)
		require.NotNil(t, stored.Company)
		require.NotNil(t, stored.Company.CRMStage)
		assert.Equal(t, domain.StageProposal, *stored.Company.CRMStage)
		assert.True(t, stored.Company.InCRM)
	})

	t.Run("stale from stage conflicts", func(t *testing.T) {
		_, err := board.MoveStage(ctx, cardID, domain.StageLead, domain.StageNegotiation)
		assert.ErrorIs(t, err, ErrStageConflict)

		stored, err := store.CardByID(ctx, cardID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageProposal, stored.Stage)
	})

	t.Run("empty from stage always moves", func(t *testing.T) {
		card, err := board.MoveStage(ctx, cardID, "", domain.StageClosedWon)
		require.NoError(t, err)
		assert.Equal(t, domain.StageClosedWon, card.Stage)
	})

	t.Run("invalid target stage", func(t *testing.T) {
		_, err := board.MoveStage(ctx, cardID, "", "archived")
		assert.ErrorIs(t, err, ErrInvalidStage)
	})

	t.Run("unknown card", func(t *testing.T) {
		_, err := board.MoveStage(ctx, uuid.New(), "", domain.StageLead)
		assert.ErrorIs(t, err, ErrCardNotFound)
	})
}

func TestBoard_RestoreToSearch_IgnoresUnknownCNPJs(t *testing.T) {
	companies := sampleCompanies()
	store := NewMemoryStore(companies...)
	board := NewBoard(store)

	restored, err := board.RestoreToSearch(context.Background(), []string{"99.999.999/0001-99"})
	require.NoError(t, err)
	assert.Empty(t, restored)
	assert.Len(t, store.SearchResults(), 2)
}
