package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prospecta/leads-api/internal/circuit"
	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultLookupTimeout = 20 * time.Second

// lookupStatusError is a non-2xx answer from the lookup service
type lookupStatusError struct {
	status int
}

func (e *lookupStatusError) Error() string   { return fmt.Sprintf("lookup returned status %d", e.status) }
func (e *lookupStatusError) HTTPStatus() int { return e.status }

// HTTPProvider calls the CNPJ lookup service
type HTTPProvider struct {
	url     string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewHTTPProvider returns nil when no lookup URL is configured
func NewHTTPProvider(cfg *config.EnrichmentConfig, logger *zap.Logger) *HTTPProvider {
	if cfg.LookupURL == "" {
		return nil
	}
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &HTTPProvider{
		url:     cfg.LookupURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.New("cnpj-lookup", circuit.DefaultFailures, circuit.DefaultTimeout, logger),
		logger:  logger,
	}
}

func (p *HTTPProvider) Name() string { return "cnpj_lookup" }

type lookupResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Company *lookupCompany `json:"company"`
}

type lookupCompany struct {
	CNPJ                string     `json:"cnpj"`
	CompanyName         string     `json:"company_name"`
	TradeName           string     `json:"trade_name"`
	Contact             Contact    `json:"contact"`
	Address             Address    `json:"address"`
	Partners            []Partner  `json:"partners"`
	MainActivity        Activity   `json:"main_activity"`
	SecondaryActivities []Activity `json:"secondary_activities"`
	RegistrationStatus  string     `json:"registration_status"`
	RegistrationDate    string     `json:"registration_date"`
	ShareCapital        float64    `json:"share_capital"`
	CompanySize         string     `json:"company_size"`
	LegalNature         string     `json:"legal_nature"`
	Source              string     `json:"source"`
}

func (p *HTTPProvider) Lookup(ctx context.Context, cnpj string) (*Profile, error) {
	digits := domain.DigitsOnly(cnpj)
	body, err := json.Marshal(map[string]string{"cnpj": digits})
	if err != nil {
		return nil, err
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.do(ctx, body)
	})
	if err != nil {
		if circuit.IsOpen(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	resp := result.(*lookupResponse)
	if !resp.Success || resp.Company == nil {
		return nil, ErrNotFound
	}

	c := resp.Company
	profile := &Profile{
		CNPJ:                domain.NormalizeCNPJ(firstNonEmpty(c.CNPJ, digits)),
		CompanyName:         c.CompanyName,
		TradeName:           c.TradeName,
		Contact:             c.Contact,
		Address:             c.Address,
		Partners:            c.Partners,
		MainActivity:        c.MainActivity,
		SecondaryActivities: c.SecondaryActivities,
		RegistrationStatus:  c.RegistrationStatus,
		RegistrationDate:    c.RegistrationDate,
		ShareCapital:        c.ShareCapital,
		CompanySize:         c.CompanySize,
		LegalNature:         c.LegalNature,
		Source:              p.Name(),
	}
	return profile, nil
}

func (p *HTTPProvider) do(ctx context.Context, body []byte) (*lookupResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	start := time.Now()
	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Warn("CNPJ lookup request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &lookupResponse{Success: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, &lookupStatusError{status: resp.StatusCode})
	}

	var out lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: invalid lookup response: %v", ErrUnavailable, err)
	}

	p.logger.Debug("CNPJ lookup completed",
		zap.Bool("success", out.Success),
		zap.Duration("duration", time.Since(start)),
	)
	return &out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
