package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/prospecta/leads-api/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultSearchPage  = 1
	defaultSearchLimit = 1000
)

// SearchPage is one page of normalized webhook results
type SearchPage struct {
	Leads []domain.LeadDTO
	Page  int
	Limit int
	// Total is set only when the webhook reported it
	Total *int64
}

// Search forwards the filters verbatim and normalizes the answer. Page and
// limit are read from the "pagina" and "limite" fields of the filters.
func (c *Client) Search(ctx context.Context, filters json.RawMessage) (*SearchPage, error) {
	if !c.SearchEnabled() {
		return nil, ErrNotConfigured
	}
	if len(bytes.TrimSpace(filters)) == 0 {
		filters = json.RawMessage("{}")
	}

	page, limit, err := paging(filters)
	if err != nil {
		return nil, err
	}

	body, err := c.call(ctx, c.search, c.searchURL, filters)
	if err != nil {
		return nil, err
	}

	records, total, err := decodeSearchResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	leads := make([]domain.LeadDTO, 0, len(records))
	dropped := 0
	for _, r := range records {
		lead, ok := r.toLead()
		if !ok {
			dropped++
			continue
		}
		leads = append(leads, lead)
	}
	if dropped > 0 {
		c.logger.Warn("Dropped webhook records without cnpj", zap.Int("dropped", dropped))
	}

	// a reported total never undercounts the rows already delivered
	if total != nil && len(records) > 0 {
		if seen := int64(page-1)*int64(limit) + int64(len(records)); *total < seen {
			*total = seen
		}
	}

	return &SearchPage{Leads: leads, Page: page, Limit: limit, Total: total}, nil
}

func paging(filters json.RawMessage) (page, limit int, err error) {
	var p struct {
		Pagina flexNumber `json:"pagina"`
		Limite flexNumber `json:"limite"`
	}
	if err := json.Unmarshal(filters, &p); err != nil {
		return 0, 0, fmt.Errorf("%w: filters must be a JSON object: %v", ErrInvalidRequest, err)
	}
	page, limit = defaultSearchPage, defaultSearchLimit
	if n := int(p.Pagina); n > 0 {
		page = n
	}
	if n := int(p.Limite); n > 0 {
		limit = n
	}
	return page, limit, nil
}

// decodeSearchResponse accepts a bare array of records, an object
// {cnpjs, total}, or an array whose first element is that object.
func decodeSearchResponse(body []byte) ([]record, *int64, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil, fmt.Errorf("empty response")
	}

	type envelope struct {
		CNPJs []record    `json:"cnpjs"`
		Total *flexNumber `json:"total"`
	}

	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, nil, fmt.Errorf("invalid response array: %w", err)
		}
		if len(raw) > 0 && isEnvelope(raw[0]) {
			var env envelope
			if err := json.Unmarshal(raw[0], &env); err != nil {
				return nil, nil, fmt.Errorf("invalid response envelope: %w", err)
			}
			return env.CNPJs, totalOf(env.Total), nil
		}
		records := make([]record, 0, len(raw))
		for _, item := range raw {
			var r record
			if err := json.Unmarshal(item, &r); err != nil {
				return nil, nil, fmt.Errorf("invalid record: %w", err)
			}
			records = append(records, r)
		}
		return records, nil, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, nil, fmt.Errorf("invalid response envelope: %w", err)
		}
		return env.CNPJs, totalOf(env.Total), nil
	default:
		return nil, nil, fmt.Errorf("unexpected response format")
	}
}

// totalOf is nil when the envelope carried no total
func totalOf(n *flexNumber) *int64 {
	if n == nil {
		return nil
	}
	total := int64(*n)
	return &total
}

func isEnvelope(raw json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	_, ok := fields["cnpjs"]
	return ok
}

// record is one company as the webhook returns it. Several fields arrive
// either as plain values or as nested objects.
type record struct {
	CNPJ               flexString `json:"cnpj"`
	RazaoSocial        flexString `json:"razao_social"`
	NomeFantasia       flexString `json:"nome_fantasia"`
	SituacaoCadastral  situacao   `json:"situacao_cadastral"`
	UF                 flexString `json:"uf"`
	Municipio          flexString `json:"municipio"`
	Bairro             flexString `json:"bairro"`
	Logradouro         flexString `json:"logradouro"`
	Numero             flexString `json:"numero"`
	Complemento        flexString `json:"complemento"`
	CEP                flexString `json:"cep"`
	Endereco           *address   `json:"endereco"`
	Telefone           flexString `json:"telefone"`
	Email              flexString `json:"email"`
	AtividadePrincipal flexString `json:"atividade_principal"`
	CNAEPrincipal      codeDesc   `json:"cnae_principal"`
	CapitalSocial      flexNumber `json:"capital_social"`
	Porte              flexString `json:"porte"`
	NaturezaJuridica   codeDesc   `json:"natureza_juridica"`
	DataAbertura       flexString `json:"data_abertura"`
	DataInicio         flexString `json:"data_inicio_atividade"`
}

type address struct {
	UF          flexString `json:"uf"`
	Municipio   flexString `json:"municipio"`
	Bairro      flexString `json:"bairro"`
	Logradouro  flexString `json:"logradouro"`
	Numero      flexString `json:"numero"`
	Complemento flexString `json:"complemento"`
	CEP         flexString `json:"cep"`
}

func (r record) toLead() (domain.LeadDTO, bool) {
	cnpj := string(r.CNPJ)
	if cnpj == "" {
		return domain.LeadDTO{}, false
	}
	addr := r.Endereco
	if addr == nil {
		addr = &address{}
	}

	status := domain.RegistrationUnknown
	if r.SituacaoCadastral.Current != "" {
		status = domain.ParseRegistrationStatus(r.SituacaoCadastral.Current)
	}

	legalName := string(r.RazaoSocial)
	if legalName == "" {
		legalName = "Empresa não identificada"
	}

	// a plain cnae_principal is the activity code, a plain natureza_juridica
	// is its description
	activity := firstNonEmpty(string(r.AtividadePrincipal), r.CNAEPrincipal.Description)
	activityCode := firstNonEmpty(r.CNAEPrincipal.Code, r.CNAEPrincipal.Plain)
	nature := firstNonEmpty(r.NaturezaJuridica.Description, r.NaturezaJuridica.Plain)

	return domain.LeadDTO{
		CNPJ:              domain.NormalizeCNPJ(cnpj),
		RazaoSocial:       legalName,
		NomeFantasia:      string(r.NomeFantasia),
		SituacaoCadastral: status,
		MotivoSituacao:    r.SituacaoCadastral.Reason,
		DataSituacao:      r.SituacaoCadastral.Date,
		DataAbertura:      firstNonEmpty(string(r.DataAbertura), string(r.DataInicio)),
		UF:                strings.ToUpper(firstNonEmpty(string(r.UF), string(addr.UF))),
		Municipio:         firstNonEmpty(string(r.Municipio), string(addr.Municipio)),
		Bairro:            firstNonEmpty(string(r.Bairro), string(addr.Bairro)),
		Logradouro:        firstNonEmpty(string(r.Logradouro), string(addr.Logradouro)),
		Numero:            firstNonEmpty(string(r.Numero), string(addr.Numero)),
		Complemento:       firstNonEmpty(string(r.Complemento), string(addr.Complemento)),
		CEP:               firstNonEmpty(string(r.CEP), string(addr.CEP)),
		Telefone:          string(r.Telefone),
		Email:             string(r.Email),
		CapitalSocial:     float64(r.CapitalSocial),
		Porte:             string(r.Porte),
		CNAEPrincipal:     activityCode,
		CNAEDescricao:     activity,
		NaturezaJuridica:  nature,
		EnrichmentStatus:  domain.EnrichmentNone,
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexString decodes a JSON string, number or bool into trimmed text. Null
// and objects decode to empty.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
	case '{', '[':
		*s = ""
	default:
		*s = flexString(string(data))
	}
	return nil
}

// flexNumber decodes a JSON number or numeric string. Brazilian formatted
// values such as "1.500.000,00" are accepted.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] != '"' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*n = flexNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*n = flexNumber(parseDecimal(s))
	return nil
}

func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// codeDesc is either a plain value or an object {codigo, descricao}
type codeDesc struct {
	Code        string
	Description string
	Plain       string
}

func (c *codeDesc) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] != '{' {
		var s flexString
		if err := s.UnmarshalJSON(data); err != nil {
			return err
		}
		c.Plain = string(s)
		return nil
	}
	var obj struct {
		Codigo    flexString `json:"codigo"`
		Descricao flexString `json:"descricao"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Code, c.Description = string(obj.Codigo), string(obj.Descricao)
	return nil
}

// situacao is either a plain status string or an object
// {situacao_atual, motivo, data}.
type situacao struct {
	Current string
	Reason  string
	Date    string
}

func (s *situacao) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] != '{' {
		var v flexString
		if err := v.UnmarshalJSON(data); err != nil {
			return err
		}
		s.Current = string(v)
		return nil
	}
	var obj struct {
		Atual  flexString `json:"situacao_atual"`
		Motivo flexString `json:"motivo"`
		Data   flexString `json:"data"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Current, s.Reason, s.Date = string(obj.Atual), string(obj.Motivo), string(obj.Data)
	return nil
}
