package handler_test

import (
	"net/http"
	"testing"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/http/handler"
	"github.com/prospecta/leads-api/internal/service"
	"github.com/prospecta/leads-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignHandler(e *env) *handler.CampaignHandler {
	return handler.NewCampaignHandler(service.NewCampaignService(e.campaigns, e.audiences, e.companies, e.logger), e.logger)
}

func TestCampaignHandler_Lifecycle(t *testing.T) {
	e := setupEnv(t)
	h := newCampaignHandler(e)

	body := map[string]interface{}{
		"name":             "Boas-vindas",
		"message_template": "Olá {{nome_empresa}}, sou {{seu_nome}} da {{sua_empresa}}.",
	}
	rr := serve(h.Create, newRequest(t, http.MethodPost, "/api/campaigns", body))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	campaign := decode(t, rr)["campaign"].(map[string]interface{})
	id := campaign["id"].(string)
	assert.Equal(t, "draft", campaign["status"])

	step := func(t *testing.T, fn func(w http.ResponseWriter, r *http.Request), status int) map[string]interface{} {
		t.Helper()
		rr := serve(fn, newRequest(t, http.MethodPost, "/api/campaigns/x", nil, "id", id))
		require.Equal(t, status, rr.Code, rr.Body.String())
		return decode(t, rr)
	}

	t.Run("pause a draft conflicts", func(t *testing.T) {
		body := step(t, h.Pause, http.StatusConflict)
		assert.Equal(t, domain.ErrorTypeConflict, body["type"])
	})

	t.Run("start pause resume complete", func(t *testing.T) {
		started := step(t, h.Start, http.StatusOK)["campaign"].(map[string]interface{})
		assert.Equal(t, "active", started["status"])
		assert.NotEmpty(t, started["started_at"])

		assert.Equal(t, "paused", step(t, h.Pause, http.StatusOK)["campaign"].(map[string]interface{})["status"])
		assert.Equal(t, "active", step(t, h.Start, http.StatusOK)["campaign"].(map[string]interface{})["status"])

		done := step(t, h.Complete, http.StatusOK)["campaign"].(map[string]interface{})
		assert.Equal(t, "completed", done["status"])
		assert.NotEmpty(t, done["completed_at"])
	})

	t.Run("completed is terminal", func(t *testing.T) {
		step(t, h.Start, http.StatusConflict)
		rr := serve(h.Update, newRequest(t, http.MethodPut, "/api/campaigns/x", map[string]string{"name": "outra"}, "id", id))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("list by status", func(t *testing.T) {
		rr := serve(h.List, newRequest(t, http.MethodGet, "/api/campaigns?status=completed", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode(t, rr)["campaigns"], 1)

		rr = serve(h.List, newRequest(t, http.MethodGet, "/api/campaigns?status=draft", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode(t, rr)["campaigns"])

		rr = serve(h.List, newRequest(t, http.MethodGet, "/api/campaigns?status=sent", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCampaignHandler_CreateValidation(t *testing.T) {
	e := setupEnv(t)
	h := newCampaignHandler(e)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing template", map[string]interface{}{"name": "x"}},
		{"bad schedule", map[string]interface{}{"name": "x", "message_template": "y", "scheduled_at": "amanhã"}},
		{"unknown audience", map[string]interface{}{"name": "x", "message_template": "y", "audience_id": "7d5f0b8e-1c1a-4c55-9d1e-0f3c2b7a9e10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h.Create, newRequest(t, http.MethodPost, "/api/campaigns", tt.body))
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestCampaignHandler_Preview(t *testing.T) {
	e := setupEnv(t)
	h := newCampaignHandler(e)
	company := testutil.CreateTestCompany(t, e.db, &domain.Company{LegalName: "ACME LTDA"})

	rr := serve(h.Create, newRequest(t, http.MethodPost, "/api/campaigns", map[string]string{
		"name":             "Teste",
		"message_template": "Olá {{nome_empresa}}, aqui é {{seu_nome}}. {{desconhecido}}",
	}))
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode(t, rr)["campaign"].(map[string]interface{})["id"].(string)

	body := map[string]string{"company_id": company.ID.String(), "seu_nome": "Bruno"}
	rr = serve(h.Preview, newRequest(t, http.MethodPost, "/api/campaigns/x/preview", body, "id", id))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	preview := decode(t, rr)["preview"].(map[string]interface{})
	assert.Equal(t, "Olá ACME LTDA, aqui é Bruno. {{desconhecido}}", preview["message"])
}
