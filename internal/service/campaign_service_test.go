package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"github.com/prospecta/leads-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignService(r *testRepos) *service.CampaignService {
	return service.NewCampaignService(r.campaigns, r.audiences, r.companies, r.logger)
}

func TestCampaignService_Lifecycle(t *testing.T) {
	r := setupRepos(t)
	svc := newCampaignService(r)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCampaignRequest{
		Name:            "Reativação",
		MessageTemplate: "Olá {{nome_empresa}}",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignDraft, created.Status)
	assert.Empty(t, created.StartedAt)

	t.Run("draft cannot pause", func(t *testing.T) {
		_, err := svc.Pause(ctx, created.ID)
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})

	t.Run("start pause resume complete", func(t *testing.T) {
		started, err := svc.Start(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CampaignActive, started.Status)
		assert.NotEmpty(t, started.StartedAt)

		paused, err := svc.Pause(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CampaignPaused, paused.Status)

		resumed, err := svc.Start(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CampaignActive, resumed.Status)
		assert.Equal(t, started.StartedAt, resumed.StartedAt)

		done, err := svc.Complete(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CampaignCompleted, done.Status)
		assert.NotEmpty(t, done.CompletedAt)
	})

	t.Run("completed is terminal and read-only", func(t *testing.T) {
		_, err := svc.Start(ctx, created.ID)
		assert.ErrorIs(t, err, service.ErrInvalidTransition)

		_, err = svc.Update(ctx, created.ID, &domain.UpdateCampaignRequest{Name: strPtr("x")})
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		_, err := svc.Start(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestCampaignService_CreateAndUpdate(t *testing.T) {
	r := setupRepos(t)
	svc := newCampaignService(r)
	ctx := context.Background()

	t.Run("scheduled_at must be RFC 3339", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateCampaignRequest{
			Name: "x", MessageTemplate: "y", ScheduledAt: "amanhã",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("audience must exist", func(t *testing.T) {
		id := uuid.New()
		_, err := svc.Create(ctx, &domain.CreateCampaignRequest{
			Name: "x", MessageTemplate: "y", AudienceID: &id,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	created, err := svc.Create(ctx, &domain.CreateCampaignRequest{
		Name: "Agendada", MessageTemplate: "Oi", ScheduledAt: "2030-01-02T10:00:00-03:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2030-01-02T13:00:00Z", created.ScheduledAt)

	updated, err := svc.Update(ctx, created.ID, &domain.UpdateCampaignRequest{
		MessageTemplate: strPtr("Oi {{seu_nome}}"),
		ScheduledAt:     strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Oi {{seu_nome}}", updated.MessageTemplate)
	assert.Empty(t, updated.ScheduledAt)

	status := domain.CampaignDraft
	list, err := svc.List(ctx, &status)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), service.ErrNotFound)
}

func TestCampaignService_ActivateDue(t *testing.T) {
	r := setupRepos(t)
	svc := newCampaignService(r)
	ctx := context.Background()

	past, err := svc.Create(ctx, &domain.CreateCampaignRequest{
		Name: "vencida", MessageTemplate: "m", ScheduledAt: "2024-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	future, err := svc.Create(ctx, &domain.CreateCampaignRequest{
		Name: "futura", MessageTemplate: "m", ScheduledAt: "2099-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &domain.CreateCampaignRequest{Name: "sem data", MessageTemplate: "m"})
	require.NoError(t, err)

	n, err := svc.ActivateDue(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.GetByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignActive, got.Status)

	got, err = svc.GetByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignDraft, got.Status)

	n, err = svc.ActivateDue(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCampaignService_Preview(t *testing.T) {
	r := setupRepos(t)
	svc := newCampaignService(r)
	ctx := context.Background()

	company := testutil.CreateTestCompany(t, r.db, &domain.Company{
		LegalName:    "ACME TECNOLOGIA LTDA",
		TradeName:    "Acme",
		MainActivity: "Desenvolvimento de Software",
	})
	campaign, err := svc.Create(ctx, &domain.CreateCampaignRequest{
		Name:            "Apresentação",
		MessageTemplate: "Olá {{nome_fantasia}}, sou {{seu_nome}} da {{sua_empresa}}. Atendemos {{segmento}}. {{desconhecido}}",
	})
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, campaign.ID, &domain.PreviewCampaignRequest{
		CompanyID:  company.ID.String(),
		SeuNome:    "Ana",
		SuaEmpresa: "Prospecta",
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá Acme, sou Ana da Prospecta. Atendemos desenvolvimento de software. {{desconhecido}}", preview.Message)

	_, err = svc.Preview(ctx, campaign.ID, &domain.PreviewCampaignRequest{CompanyID: uuid.NewString()})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCampaignService_RecordDelivery(t *testing.T) {
	r := setupRepos(t)
	svc := newCampaignService(r)
	ctx := context.Background()

	campaign, err := svc.Create(ctx, &domain.CreateCampaignRequest{Name: "c", MessageTemplate: "m"})
	require.NoError(t, err)

	require.NoError(t, svc.RecordDelivery(ctx, campaign.ID, true))
	require.NoError(t, svc.RecordDelivery(ctx, campaign.ID, false))

	got, err := svc.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.DeliveredCount)
	assert.Equal(t, 1, got.FailedCount)

	assert.ErrorIs(t, svc.RecordDelivery(ctx, uuid.New(), true), service.ErrNotFound)
}
