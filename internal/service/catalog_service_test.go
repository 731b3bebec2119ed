package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"github.com/prospecta/leads-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTagService(t *testing.T) {
	r := setupRepos(t)
	svc := service.NewTagService(r.tags, r.logger)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateTagRequest{Name: " Quente "})
	require.NoError(t, err)
	assert.Equal(t, "Quente", created.Name)
	assert.Equal(t, "#3b82f6", created.Color)

	t.Run("duplicate name conflicts ignoring case", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateTagRequest{Name: "quente"})
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("list carries company counts", func(t *testing.T) {
		company := testutil.CreateTestCompany(t, r.db, &domain.Company{})
		require.NoError(t, r.companies.ApplyTag(ctx, []uuid.UUID{company.ID}, created.ID))

		tags, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, int64(1), tags[0].CompanyCount)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := svc.Update(ctx, created.ID, &domain.UpdateTagRequest{
			Name:  strPtr("Quentíssimo"),
			Color: strPtr("#ef4444"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Quentíssimo", updated.Name)
		assert.Equal(t, "#ef4444", updated.Color)
		assert.Equal(t, int64(1), updated.CompanyCount)

		// keeping its own name is not a conflict
		_, err = svc.Update(ctx, created.ID, &domain.UpdateTagRequest{Name: strPtr("quentíssimo")})
		assert.NoError(t, err)
	})

	t.Run("delete cascades links", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, created.ID))
		count, err := r.tags.CountCompanies(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		assert.ErrorIs(t, svc.Delete(ctx, created.ID), service.ErrNotFound)
	})
}

func TestAudienceService(t *testing.T) {
	r := setupRepos(t)
	svc := service.NewAudienceService(r.audiences, r.companies, r.logger)
	ctx := context.Background()

	testutil.CreateTestCompany(t, r.db, &domain.Company{RegistrationStatus: domain.RegistrationActive, TradeName: "Um"})
	testutil.CreateTestCompany(t, r.db, &domain.Company{RegistrationStatus: domain.RegistrationActive, InCRM: true, TradeName: "Dois"})
	testutil.CreateTestCompany(t, r.db, &domain.Company{RegistrationStatus: domain.RegistrationActive})
	testutil.CreateTestCompany(t, r.db, &domain.Company{RegistrationStatus: domain.RegistrationClosed, TradeName: "Tres"})

	created, err := svc.Create(ctx, &domain.CreateAudienceRequest{
		Name:    "Ativas com fantasia",
		Filters: json.RawMessage(`{"situacao":"ativa","hasFantasia":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.CompanyCount, "audiences include pipeline leads")

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(created.Filters, &stored))
	assert.Equal(t, "ATIVA", stored["situacao_cadastral"])
	assert.NotContains(t, stored, "situacao")

	t.Run("get", func(t *testing.T) {
		got, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.CompanyCount)

		_, err = svc.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("update filters", func(t *testing.T) {
		updated, err := svc.Update(ctx, created.ID, &domain.UpdateAudienceRequest{
			Filters: json.RawMessage(`{"situacao":"all"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), updated.CompanyCount)
	})

	t.Run("invalid filters", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateAudienceRequest{
			Name:    "Quebrada",
			Filters: json.RawMessage(`{"min_score":90,"max_score":10}`),
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("list and delete", func(t *testing.T) {
		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, svc.Delete(ctx, created.ID))
		assert.ErrorIs(t, svc.Delete(ctx, created.ID), service.ErrNotFound)
	})
}

func TestSavedSearchService(t *testing.T) {
	r := setupRepos(t)
	svc := service.NewSavedSearchService(r.searches, r.logger)
	ctx := context.Background()

	first, err := svc.Create(ctx, &domain.CreateSavedSearchRequest{
		Name:    "TI em SP",
		Filters: json.RawMessage(`{"uf":"sp","keyword":"tecnologia"}`),
	})
	require.NoError(t, err)
	assert.Contains(t, string(first.Filters), `"uf":"SP"`)

	second, err := svc.Create(ctx, &domain.CreateSavedSearchRequest{
		Name:    "Comércio RJ",
		Filters: json.RawMessage(`{"uf":"RJ"}`),
	})
	require.NoError(t, err)

	t.Run("use bumps counter and ordering", func(t *testing.T) {
		used, err := svc.Use(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, used.UsedCount)
		assert.NotEmpty(t, used.LastUsed)

		list, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := svc.Update(ctx, second.ID, &domain.UpdateSavedSearchRequest{Name: strPtr("Comércio RJ e ES")})
		require.NoError(t, err)
		assert.Equal(t, "Comércio RJ e ES", updated.Name)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Use(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, uuid.New()), service.ErrNotFound)
	})
}
