package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"github.com/prospecta/leads-api/internal/testutil"
	"github.com/prospecta/leads-api/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWebhookClient(searchURL, followUpURL string) *webhook.Client {
	return webhook.NewClient(&config.WebhookConfig{
		SearchURL:       searchURL,
		FollowUpURL:     followUpURL,
		Timeout:         5,
		BreakerFailures: 100,
		BreakerTimeout:  1,
	}, zap.NewNop())
}

func TestSearchService_Local(t *testing.T) {
	r := setupRepos(t)
	svc := service.NewSearchService(r.companies, nil, r.logger)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		testutil.CreateTestCompany(t, r.db, &domain.Company{
			State:              "SP",
			RegistrationStatus: domain.RegistrationActive,
			AIScore:            testutil.IntPtr(60 + i),
		})
	}
	testutil.CreateTestCompany(t, r.db, &domain.Company{State: "RJ"})
	testutil.CreateTestCompany(t, r.db, &domain.Company{State: "SP", InCRM: true})

	assert.Equal(t, service.SearchLocal, svc.DefaultSource())

	t.Run("filters and pages", func(t *testing.T) {
		res, err := svc.Search(ctx, json.RawMessage(`{"uf":"sp","pagina":"1","limite":2}`), "")
		require.NoError(t, err)
		assert.Equal(t, service.SearchLocal, res.Source)
		assert.Equal(t, int64(5), res.Total)
		assert.Equal(t, 3, res.TotalPages)
		assert.True(t, res.HasMore)
		require.Len(t, res.Leads, 2)
		assert.Equal(t, 64, res.Leads[0].AIScore)
	})

	t.Run("include pipeline", func(t *testing.T) {
		res, err := svc.Search(ctx, json.RawMessage(`{"uf":"SP","include_pipeline":true}`), service.SearchLocal)
		require.NoError(t, err)
		assert.Equal(t, int64(6), res.Total)
	})

	t.Run("empty body searches everything", func(t *testing.T) {
		res, err := svc.Search(ctx, nil, "")
		require.NoError(t, err)
		assert.Equal(t, int64(6), res.Total)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := svc.Search(ctx, json.RawMessage(`{"min_score":90,"max_score":10}`), "")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := svc.Search(ctx, json.RawMessage(`{}`), "cache")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("webhook without configuration is unavailable", func(t *testing.T) {
		_, err := svc.Search(ctx, json.RawMessage(`{}`), service.SearchWebhook)
		assert.ErrorIs(t, err, service.ErrSearchUnavailable)
	})
}

func TestSearchService_Webhook(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	onBoard := testutil.CreateTestCompany(t, r.db, &domain.Company{CNPJ: "22.333.444/0001-55", InCRM: true})
	known := testutil.CreateTestCompany(t, r.db, &domain.Company{
		CNPJ:             "33.444.555/0001-66",
		EnrichmentStatus: domain.EnrichmentManual,
	})

	var status int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		_, _ = w.Write([]byte(`[
			{"cnpj":"11222333000181","razao_social":"ACME TECNOLOGIA LTDA","nome_fantasia":"Acme",
			 "situacao_cadastral":{"situacao_atual":"ATIVA"},"capital_social":2000000,
			 "telefone":"1133334444","email":"contato@acme.com"},
			{"cnpj":"22333444000155","razao_social":"BORD LTDA"},
			{"cnpj":"33444555000166","razao_social":"CONHECIDA LTDA"}
		]`))
	}))
	defer server.Close()

	svc := service.NewSearchService(r.companies, newWebhookClient(server.URL, ""), r.logger)
	assert.Equal(t, service.SearchWebhook, svc.DefaultSource())

	t.Run("scores annotates and hides pipeline leads", func(t *testing.T) {
		res, err := svc.Search(ctx, json.RawMessage(`{"uf":"SP","pagina":1,"limite":3}`), "")
		require.NoError(t, err)
		assert.Equal(t, service.SearchWebhook, res.Source)
		require.Len(t, res.Leads, 2)

		acme := res.Leads[0]
		assert.Equal(t, 100, acme.AIScore)
		require.NotNil(t, acme.AIInsights)
		assert.Nil(t, acme.ID)

		assert.Equal(t, known.ID, *res.Leads[1].ID)
		assert.Equal(t, domain.EnrichmentManual, res.Leads[1].EnrichmentStatus)

		// three rows came back for a limit of three
		assert.True(t, res.Estimated)
		assert.True(t, res.HasMore)
		assert.Equal(t, 2, res.TotalPages)
		assert.Equal(t, int64(4), res.Total)
	})

	t.Run("include pipeline keeps board leads", func(t *testing.T) {
		res, err := svc.Search(ctx, json.RawMessage(`{"include_pipeline":true,"limite":10}`), "")
		require.NoError(t, err)
		require.Len(t, res.Leads, 3)
		assert.True(t, res.Leads[1].InCRM)
		assert.Equal(t, onBoard.ID, *res.Leads[1].ID)
		assert.False(t, res.HasMore)
		assert.Equal(t, int64(3), res.Total)
	})

	t.Run("malformed include_pipeline is rejected", func(t *testing.T) {
		_, err := svc.Search(ctx, json.RawMessage(`{"include_pipeline":"sim"}`), "")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("upstream failure is unavailable, never mocked", func(t *testing.T) {
		status = http.StatusBadGateway
		defer func() { status = 0 }()
		res, err := svc.Search(ctx, json.RawMessage(`{}`), "")
		assert.ErrorIs(t, err, service.ErrSearchUnavailable)
		assert.Nil(t, res)
	})

	t.Run("direct search relays upstream status", func(t *testing.T) {
		status = http.StatusBadRequest
		defer func() { status = 0 }()
		resp, err := svc.DirectSearch(ctx, json.RawMessage(`{"q":1}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"boom"}`, string(resp.Body))
	})
}

func TestSearchService_WebhookEnvelopeWithoutTotal(t *testing.T) {
	r := setupRepos(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"cnpjs":[
			{"cnpj":"11222333000181","razao_social":"ACME TECNOLOGIA LTDA"},
			{"cnpj":"22333444000105","razao_social":"BETA COMERCIO LTDA"}
		]}`))
	}))
	defer server.Close()

	svc := service.NewSearchService(r.companies, newWebhookClient(server.URL, ""), r.logger)
	res, err := svc.Search(context.Background(), json.RawMessage(`{"limite":2}`), service.SearchWebhook)
	require.NoError(t, err)
	require.Len(t, res.Leads, 2)
	assert.True(t, res.Estimated)
	assert.True(t, res.HasMore)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, int64(3), res.Total)
}

func TestSearchService_WebhookForwardsBodyVerbatim(t *testing.T) {
	r := setupRepos(t)
	var got []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, _ = io.ReadAll(req.Body)
		_, _ = w.Write([]byte(`{"cnpjs":[],"total":0}`))
	}))
	defer server.Close()

	svc := service.NewSearchService(r.companies, newWebhookClient(server.URL, ""), r.logger)
	body := `{"municipio":"Recife","capital_social_minimo":1000,"pagina":2}`
	res, err := svc.Search(context.Background(), json.RawMessage(body), service.SearchWebhook)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(got))
	assert.Empty(t, res.Leads)
	assert.Equal(t, int64(0), res.Total)
	assert.False(t, res.Estimated)
}
