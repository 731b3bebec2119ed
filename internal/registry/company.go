package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prospecta/leads-api/internal/domain"
)

// Record is one establishment as stored in the registry warehouse
type Record struct {
	CNPJ               string
	LegalName          string
	TradeName          string
	RegistrationStatus domain.RegistrationStatus
	StatusReason       string
	StatusDate         string
	OpenedAt           string
	Street             string
	Number             string
	Complement         string
	District           string
	City               string
	State              string
	PostalCode         string
	Phone              string
	Email              string
	ShareCapital       float64
	Size               string
	MainActivityCode   string
	MainActivity       string
	LegalNature        string
}

const companyColumns = `cnpj, razao_social, nome_fantasia, situacao_cadastral, motivo_situacao,
	data_situacao, data_inicio_atividade, logradouro, numero, complemento, bairro, municipio, uf,
	cep, ddd_telefone_1, correio_eletronico, capital_social, porte, cnae_fiscal,
	cnae_fiscal_descricao, natureza_juridica`

// FindCompany looks up an establishment by CNPJ. It returns nil when the
// registry has no row for it.
func (c *Client) FindCompany(ctx context.Context, cnpj string) (*Record, error) {
	digits := domain.DigitsOnly(cnpj)
	if len(digits) != 14 {
		return nil, fmt.Errorf("cnpj must have 14 digits, got %d", len(digits))
	}

	query := "SELECT " + companyColumns + " FROM " + c.table + " WHERE cnpj = @cnpj"
	row, err := c.QueryRow(ctx, query, sql.Named("cnpj", digits))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return recordFromRow(row), nil
}

func recordFromRow(row map[string]interface{}) *Record {
	return &Record{
		CNPJ:               domain.NormalizeCNPJ(asString(row["cnpj"])),
		LegalName:          asString(row["razao_social"]),
		TradeName:          asString(row["nome_fantasia"]),
		RegistrationStatus: domain.ParseRegistrationStatus(asString(row["situacao_cadastral"])),
		StatusReason:       asString(row["motivo_situacao"]),
		StatusDate:         asDate(row["data_situacao"]),
		OpenedAt:           asDate(row["data_inicio_atividade"]),
		Street:             asString(row["logradouro"]),
		Number:             asString(row["numero"]),
		Complement:         asString(row["complemento"]),
		District:           asString(row["bairro"]),
		City:               asString(row["municipio"]),
		State:              strings.ToUpper(asString(row["uf"])),
		PostalCode:         asString(row["cep"]),
		Phone:              asString(row["ddd_telefone_1"]),
		Email:              strings.ToLower(asString(row["correio_eletronico"])),
		ShareCapital:       asFloat(row["capital_social"]),
		Size:               asString(row["porte"]),
		MainActivityCode:   asString(row["cnae_fiscal"]),
		MainActivity:       asString(row["cnae_fiscal_descricao"]),
		LegalNature:        asString(row["natureza_juridica"]),
	}
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	default:
		// decimals arrive as text; the registry uses a comma separator
		s := strings.ReplaceAll(asString(v), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	}
}

// asDate renders dates as YYYY-MM-DD. The registry stores them either as
// DATE columns or as YYYYMMDD text.
func asDate(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	s := asString(v)
	if len(s) == 8 && domain.DigitsOnly(s) == s {
		return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	return s
}
