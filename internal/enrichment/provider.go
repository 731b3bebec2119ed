// Package enrichment looks up firmographic and contact data for a CNPJ from
// external sources.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prospecta/leads-api/internal/domain"
)

var (
	// ErrNotFound means the source has no data for the CNPJ
	ErrNotFound = errors.New("company not found by enrichment provider")
	// ErrUnavailable means the source could not be reached
	ErrUnavailable = errors.New("enrichment provider unavailable")
)

// Provider returns the profile of a company by CNPJ
type Provider interface {
	Name() string
	Lookup(ctx context.Context, cnpj string) (*Profile, error)
}

// Profile is the enrichment result. Field names follow the lookup service.
type Profile struct {
	CNPJ                string     `json:"cnpj"`
	CompanyName         string     `json:"company_name"`
	TradeName           string     `json:"trade_name,omitempty"`
	Contact             Contact    `json:"contact"`
	Address             Address    `json:"address"`
	Partners            []Partner  `json:"partners,omitempty"`
	MainActivity        Activity   `json:"main_activity"`
	SecondaryActivities []Activity `json:"secondary_activities,omitempty"`
	RegistrationStatus  string     `json:"registration_status,omitempty"`
	RegistrationDate    string     `json:"registration_date,omitempty"`
	ShareCapital        float64    `json:"share_capital"`
	CompanySize         string     `json:"company_size,omitempty"`
	LegalNature         string     `json:"legal_nature,omitempty"`
	Source              string     `json:"source"`
}

type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Address struct {
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
}

type Partner struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type Activity struct {
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// ApplyTo copies the profile onto the company. Non-empty profile values
// win; empty ones never clear existing data.
func (p *Profile) ApplyTo(c *domain.Company) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&c.LegalName, p.CompanyName)
	set(&c.TradeName, p.TradeName)
	set(&c.Phone, p.Contact.Phone)
	set(&c.Email, p.Contact.Email)
	set(&c.Street, p.Address.Street)
	set(&c.Number, p.Address.Number)
	set(&c.Complement, p.Address.Complement)
	set(&c.District, p.Address.Neighborhood)
	set(&c.City, p.Address.City)
	set(&c.State, strings.ToUpper(p.Address.State))
	set(&c.PostalCode, p.Address.ZipCode)
	set(&c.MainActivityCode, p.MainActivity.Code)
	set(&c.MainActivity, p.MainActivity.Description)
	set(&c.Size, p.CompanySize)
	set(&c.LegalNature, p.LegalNature)
	if p.RegistrationStatus != "" {
		if status := domain.ParseRegistrationStatus(p.RegistrationStatus); status != domain.RegistrationUnknown {
			c.RegistrationStatus = status
		}
	}
	if p.ShareCapital > 0 {
		c.ShareCapital = p.ShareCapital
	}
}

// Chain asks each provider in order and returns the first profile found.
// Providers that fail or have no data are skipped.
type Chain struct {
	providers []Provider
}

// NewChain keeps the order given. Callers must not pass typed nil providers.
func NewChain(providers ...Provider) *Chain {
	var active []Provider
	for _, p := range providers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &Chain{providers: active}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Len is the number of configured providers
func (c *Chain) Len() int {
	return len(c.providers)
}

// Lookup returns ErrNotFound when every provider reports no data, and the
// last failure when at least one provider failed.
func (c *Chain) Lookup(ctx context.Context, cnpj string) (*Profile, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrUnavailable)
	}

	var lastErr error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		profile, err := p.Lookup(ctx, cnpj)
		if err == nil {
			if profile.Source == "" {
				profile.Source = p.Name()
			}
			return profile, nil
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotFound
}
