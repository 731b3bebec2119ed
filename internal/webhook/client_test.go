package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(&config.WebhookConfig{
		SearchURL:       srv.URL + "/search",
		FollowUpURL:     srv.URL + "/follow-up",
		Token:           "secret",
		Timeout:         5,
		BreakerFailures: 2,
		BreakerTimeout:  60,
	}, zap.NewNop())
	return client, srv
}

func TestSearch_ArrayResponse(t *testing.T) {
	var received map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{
				"cnpj": "11222333000181",
				"razao_social": "ACME TECNOLOGIA LTDA",
				"situacao_cadastral": {"situacao_atual": "ATIVA", "motivo": "SEM MOTIVO", "data": "2005-01-03"},
				"endereco": {"uf": "sp", "municipio": "SAO PAULO", "bairro": "BELA VISTA", "cep": "01310-100"},
				"cnae_principal": {"codigo": "6201501", "descricao": "Desenvolvimento de software"},
				"natureza_juridica": {"codigo": "2062", "descricao": "Sociedade Empresaria Limitada"},
				"capital_social": "1.500.000,00",
				"data_inicio_atividade": "2005-01-03"
			},
			{"razao_social": "SEM CNPJ"},
			{"cnpj": "22.333.444/0001-05", "situacao_cadastral": "baixada", "capital_social": 1000, "cnae_principal": "4711302", "natureza_juridica": "Empresario Individual"}
		]`)
	})

	page, err := client.Search(context.Background(), json.RawMessage(`{"uf":"SP","pagina":2,"limite":3}`))
	require.NoError(t, err)

	assert.Equal(t, "SP", received["uf"], "filters are forwarded verbatim")
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.Limit)
	assert.Nil(t, page.Total)
	require.Len(t, page.Leads, 2)

	acme := page.Leads[0]
	assert.Equal(t, "11.222.333/0001-81", acme.CNPJ)
	assert.Equal(t, domain.RegistrationActive, acme.SituacaoCadastral)
	assert.Equal(t, "SEM MOTIVO", acme.MotivoSituacao)
	assert.Equal(t, "2005-01-03", acme.DataSituacao)
	assert.Equal(t, "SP", acme.UF)
	assert.Equal(t, "SAO PAULO", acme.Municipio)
	assert.Equal(t, "6201501", acme.CNAEPrincipal)
	assert.Equal(t, "Desenvolvimento de software", acme.CNAEDescricao)
	assert.Equal(t, "Sociedade Empresaria Limitada", acme.NaturezaJuridica)
	assert.Equal(t, 1500000.0, acme.CapitalSocial)
	assert.Equal(t, "2005-01-03", acme.DataAbertura)
	assert.Equal(t, domain.EnrichmentNone, acme.EnrichmentStatus)

	beta := page.Leads[1]
	assert.Equal(t, domain.RegistrationClosed, beta.SituacaoCadastral)
	assert.Equal(t, "Empresa não identificada", beta.RazaoSocial)
	assert.Equal(t, "4711302", beta.CNAEPrincipal)
	assert.Equal(t, "Empresario Individual", beta.NaturezaJuridica)
	assert.Equal(t, 1000.0, beta.CapitalSocial)
}

func TestSearch_EnvelopeResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"total": 250, "cnpjs": [{"cnpj": "11222333000181", "razao_social": "ACME"}]}`},
		{"wrapped in array", `[{"total": "250", "cnpjs": [{"cnpj": "11222333000181", "razao_social": "ACME"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			page, err := client.Search(context.Background(), nil)
			require.NoError(t, err)
			require.NotNil(t, page.Total)
			assert.Equal(t, int64(250), *page.Total)
			assert.Equal(t, 1, page.Page)
			assert.Equal(t, 1000, page.Limit)
			require.Len(t, page.Leads, 1)
			assert.Equal(t, domain.RegistrationUnknown, page.Leads[0].SituacaoCadastral)
		})
	}
}

func TestSearch_EnvelopeTotals(t *testing.T) {
	two := `{"cnpj": "11222333000181"}, {"cnpj": "22333444000105"}`
	tests := []struct {
		name    string
		body    string
		filters string
		want    *int64
	}{
		{"missing total", `{"cnpjs": [` + two + `]}`, `{"limite": 2}`, nil},
		{"null total", `[{"total": null, "cnpjs": [` + two + `]}]`, `{"limite": 2}`, nil},
		{"undercounted total", `{"total": 1, "cnpjs": [` + two + `]}`, `{"pagina": 3, "limite": 2}`, int64Ptr(6)},
		{"zero total", `{"total": 0, "cnpjs": [` + two + `]}`, `{"limite": 2}`, int64Ptr(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			page, err := client.Search(context.Background(), json.RawMessage(tt.filters))
			require.NoError(t, err)
			require.Len(t, page.Leads, 2)
			assert.Equal(t, tt.want, page.Total)
		})
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestSearch_Failures(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		client := NewClient(&config.WebhookConfig{}, zap.NewNop())
		_, err := client.Search(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("filters must be an object", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("webhook must not be called")
		})
		_, err := client.Search(context.Background(), json.RawMessage(`[1,2]`))
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unexpected body", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `"ok"`)
		})
		_, err := client.Search(context.Background(), nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("breaker opens after consecutive server errors", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		})
		for i := 0; i < 2; i++ {
			_, err := client.Search(context.Background(), nil)
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
		}
		_, err := client.Search(context.Background(), nil)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client errors do not trip the breaker", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		})
		for i := 0; i < 4; i++ {
			_, err := client.Search(context.Background(), nil)
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
		}
		assert.Equal(t, int32(4), calls.Load())
	})
}

func TestForward_RelaysUpstreamStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"uf inválida"}`)
	})

	resp, err := client.Forward(context.Background(), json.RawMessage(`{"uf":"XX"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"message":"uf inválida"}`, string(resp.Body))
}

func TestSendFollowUp(t *testing.T) {
	fixed := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	t.Run("delivers payload", func(t *testing.T) {
		var payload map[string]interface{}
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/follow-up", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			_, _ = io.WriteString(w, `{"queued":true}`)
		})
		client.now = func() time.Time { return fixed }

		receipt, err := client.SendFollowUp(context.Background(), map[string]string{"cnpj": "11.222.333/0001-81"}, "Olá ACME")
		require.NoError(t, err)
		assert.Equal(t, fixed, receipt.SentAt)
		assert.JSONEq(t, `{"queued":true}`, string(receipt.Response))

		assert.Equal(t, "Olá ACME", payload["message"])
		assert.Equal(t, "ProspectaB2B", payload["source"])
		assert.Equal(t, "2026-03-10T14:30:00Z", payload["timestamp"])
		assert.Equal(t, map[string]interface{}{"cnpj": "11.222.333/0001-81"}, payload["lead"])
	})

	t.Run("failure is reported", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.SendFollowUp(context.Background(), nil, "Olá")
		var statusErr *StatusError
		assert.ErrorAs(t, err, &statusErr)
	})

	t.Run("unreachable webhook", func(t *testing.T) {
		client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()
		_, err := client.SendFollowUp(context.Background(), nil, "Olá")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
