package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db        *gorm.DB
	companies *repository.CompanyRepository
	tags      *repository.TagRepository
	kanban    *repository.KanbanRepository
	audiences *repository.AudienceRepository
	campaigns *repository.CampaignRepository
	searches  *repository.SavedSearchRepository
	logger    *zap.Logger
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return &env{
		db:        db,
		companies: repository.NewCompanyRepository(db),
		tags:      repository.NewTagRepository(db),
		kanban:    repository.NewKanbanRepository(db),
		audiences: repository.NewAudienceRepository(db),
		campaigns: repository.NewCampaignRepository(db),
		searches:  repository.NewSavedSearchRepository(db),
		logger:    zap.NewNop(),
	}
}

// newRequest builds a request with an optional JSON body and chi path params
// given as name/value pairs.
func newRequest(t *testing.T, method, target string, body interface{}, params ...string) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}
