package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/filter"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/scoring"
	"github.com/prospecta/leads-api/internal/webhook"
	"go.uber.org/zap"
)

// Search sources
const (
	SearchLocal   = "local"
	SearchWebhook = "webhook"
)

// SearchService runs lead searches against the local store or the search
// webhook and returns both in the same shape.
type SearchService struct {
	companyRepo *repository.CompanyRepository
	webhook     *webhook.Client
	logger      *zap.Logger
}

func NewSearchService(companyRepo *repository.CompanyRepository, webhookClient *webhook.Client, logger *zap.Logger) *SearchService {
	return &SearchService{
		companyRepo: companyRepo,
		webhook:     webhookClient,
		logger:      logger,
	}
}

// DefaultSource is the webhook when it is configured, the local store otherwise
func (s *SearchService) DefaultSource() string {
	if s.webhook != nil && s.webhook.SearchEnabled() {
		return SearchWebhook
	}
	return SearchLocal
}

// Search runs the filters against the chosen source. An empty source picks
// DefaultSource. Page and limit come from "pagina" and "limite" in the body.
func (s *SearchService) Search(ctx context.Context, raw json.RawMessage, source string) (*domain.SearchResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if source == "" {
		source = s.DefaultSource()
	}

	switch source {
	case SearchLocal:
		return s.searchLocal(ctx, raw)
	case SearchWebhook:
		return s.searchWebhook(ctx, raw)
	default:
		return nil, fmt.Errorf("%w: unknown search source %q", ErrInvalidInput, source)
	}
}

func (s *SearchService) searchLocal(ctx context.Context, raw json.RawMessage) (*domain.SearchResult, error) {
	f, err := filter.Parse(raw)
	if err != nil {
		return nil, translate(err, "invalid search filters")
	}
	opts, err := optionsOf(raw)
	if err != nil {
		return nil, err
	}
	page, limit := clampPage(opts.page, opts.limit)

	companies, total, err := s.companyRepo.Search(ctx, f, repository.Offset(page, limit), limit)
	if err != nil {
		s.logger.Error("local search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return pageResult(mapper.ToLeadDTOs(companies), total, page, limit, SearchLocal), nil
}

func (s *SearchService) searchWebhook(ctx context.Context, raw json.RawMessage) (*domain.SearchResult, error) {
	if s.webhook == nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, webhook.ErrNotConfigured)
	}
	opts, err := optionsOf(raw)
	if err != nil {
		return nil, err
	}

	result, err := s.webhook.Search(ctx, raw)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidRequest) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		s.logger.Warn("webhook search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	out := webhookPage(result)
	for i := range out.Leads {
		scoreLead(&out.Leads[i])
	}
	out.Leads = s.annotate(ctx, out.Leads, opts.includePipeline)
	return out, nil
}

// annotate copies local state onto webhook leads and, unless includePipeline
// is set, drops leads that are on the kanban board. Page totals are left as
// the webhook reported them.
func (s *SearchService) annotate(ctx context.Context, leads []domain.LeadDTO, includePipeline bool) []domain.LeadDTO {
	if len(leads) == 0 {
		return leads
	}
	cnpjs := make([]string, 0, len(leads))
	for _, l := range leads {
		cnpjs = append(cnpjs, l.CNPJ)
	}
	known, err := s.companyRepo.GetByCNPJs(ctx, cnpjs)
	if err != nil {
		s.logger.Warn("failed to annotate webhook leads", zap.Error(err))
		return leads
	}
	byCNPJ := make(map[string]*domain.Company, len(known))
	for i := range known {
		byCNPJ[known[i].CNPJ] = &known[i]
	}

	out := leads[:0]
	for _, lead := range leads {
		if c, ok := byCNPJ[domain.NormalizeCNPJ(lead.CNPJ)]; ok {
			if c.InCRM && !includePipeline {
				continue
			}
			local := mapper.ToLeadDTO(c)
			lead.ID = local.ID
			lead.InCRM = local.InCRM
			lead.CRMStage = local.CRMStage
			lead.EnrichmentStatus = local.EnrichmentStatus
			lead.EnrichedAt = local.EnrichedAt
			lead.FollowUpSent = local.FollowUpSent
			lead.Latitude, lead.Longitude = local.Latitude, local.Longitude
		}
		out = append(out, lead)
	}
	return out
}

// DirectSearch relays the body to the search webhook and returns its answer
// unchanged, whatever the status.
func (s *SearchService) DirectSearch(ctx context.Context, body json.RawMessage) (*webhook.Response, error) {
	if s.webhook == nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, webhook.ErrNotConfigured)
	}
	resp, err := s.webhook.Forward(ctx, body)
	if err != nil {
		if errors.Is(err, webhook.ErrNotConfigured) || errors.Is(err, webhook.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return resp, nil
}

// webhookPage fills the pagination fields. Without an upstream total, a full
// page is taken to mean at least one more row exists.
func webhookPage(p *webhook.SearchPage) *domain.SearchResult {
	out := &domain.SearchResult{
		Leads:  p.Leads,
		Page:   p.Page,
		Limit:  p.Limit,
		Source: SearchWebhook,
	}
	n := len(p.Leads)

	if p.Total != nil {
		out.Total = *p.Total
		out.TotalPages = int((out.Total + int64(p.Limit) - 1) / int64(p.Limit))
		out.HasMore = p.Page < out.TotalPages
		return out
	}

	out.Estimated = true
	if n >= p.Limit {
		out.HasMore = true
		out.TotalPages = p.Page + 1
		out.Total = int64(p.Page)*int64(p.Limit) + 1
		return out
	}
	out.Total = int64(p.Page-1)*int64(p.Limit) + int64(n)
	out.TotalPages = p.Page
	return out
}

// scoreLead computes the score and insights of a lead that is not stored
func scoreLead(lead *domain.LeadDTO) {
	c := &domain.Company{
		CNPJ:               lead.CNPJ,
		LegalName:          lead.RazaoSocial,
		TradeName:          lead.NomeFantasia,
		RegistrationStatus: lead.SituacaoCadastral,
		Phone:              lead.Telefone,
		Email:              lead.Email,
		ShareCapital:       lead.CapitalSocial,
	}
	score := scoring.Score(c)
	insight := scoring.InsightsFor(c, score)
	lead.AIScore = score
	lead.AIInsights = &insight
}

// searchOptions are the body fields that steer a search rather than filter it
type searchOptions struct {
	page            int
	limit           int
	includePipeline bool
}

func optionsOf(raw json.RawMessage) (searchOptions, error) {
	var p struct {
		Pagina          json.Number `json:"pagina"`
		Limite          json.Number `json:"limite"`
		IncludePipeline bool        `json:"include_pipeline"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return searchOptions{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	toInt := func(n json.Number, field string) (int, error) {
		if n == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidInput, field)
		}
		return int(v), nil
	}
	opts := searchOptions{includePipeline: p.IncludePipeline}
	var err error
	if opts.page, err = toInt(p.Pagina, "pagina"); err != nil {
		return searchOptions{}, err
	}
	if opts.limit, err = toInt(p.Limite, "limite"); err != nil {
		return searchOptions{}, err
	}
	return opts, nil
}
