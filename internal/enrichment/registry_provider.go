package enrichment

import (
	"context"

	"github.com/prospecta/leads-api/internal/registry"
)

// CompanyFinder reads establishments from the registry warehouse
type CompanyFinder interface {
	FindCompany(ctx context.Context, cnpj string) (*registry.Record, error)
}

// RegistryProvider serves profiles from the registry warehouse. It has no
// partner data.
type RegistryProvider struct {
	finder CompanyFinder
}

// NewRegistryProvider returns nil when the registry client is disabled
func NewRegistryProvider(client *registry.Client) *RegistryProvider {
	if !client.IsEnabled() {
		return nil
	}
	return &RegistryProvider{finder: client}
}

func NewRegistryProviderWithFinder(finder CompanyFinder) *RegistryProvider {
	return &RegistryProvider{finder: finder}
}

func (p *RegistryProvider) Name() string { return "registry" }

func (p *RegistryProvider) Lookup(ctx context.Context, cnpj string) (*Profile, error) {
	rec, err := p.finder.FindCompany(ctx, cnpj)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return &Profile{
		CNPJ:        rec.CNPJ,
		CompanyName: rec.LegalName,
		TradeName:   rec.TradeName,
		Contact:     Contact{Email: rec.Email, Phone: rec.Phone},
		Address: Address{
			Street:       rec.Street,
			Number:       rec.Number,
			Complement:   rec.Complement,
			Neighborhood: rec.District,
			City:         rec.City,
			State:        rec.State,
			ZipCode:      rec.PostalCode,
		},
		MainActivity:       Activity{Code: rec.MainActivityCode, Description: rec.MainActivity},
		RegistrationStatus: string(rec.RegistrationStatus),
		RegistrationDate:   rec.OpenedAt,
		ShareCapital:       rec.ShareCapital,
		CompanySize:        rec.Size,
		LegalNature:        rec.LegalNature,
		Source:             p.Name(),
	}, nil
}
