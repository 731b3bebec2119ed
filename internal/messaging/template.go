// Package messaging renders follow-up message templates.
package messaging

import (
	"regexp"
	"strings"

	"github.com/prospecta/leads-api/internal/domain"
)

// Placeholders understood by Render
const (
	PlaceholderCompanyName = "{{nome_empresa}}"
	PlaceholderCNPJ        = "{{cnpj}}"
	PlaceholderTradeName   = "{{nome_fantasia}}"
	PlaceholderSenderName  = "{{seu_nome}}"
	PlaceholderSenderOrg   = "{{sua_empresa}}"
	PlaceholderSegment     = "{{segmento}}"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*[a-zA-Z_]+\s*\}\}`)

// Sender identifies who signs the message
type Sender struct {
	Name    string
	Company string
}

// Render replaces the known placeholders with values from the company and
// sender. Unknown placeholders are left as written.
func Render(template string, c *domain.Company, sender Sender) string {
	tradeName := strings.TrimSpace(c.TradeName)
	if tradeName == "" {
		tradeName = c.LegalName
	}

	r := strings.NewReplacer(
		PlaceholderCompanyName, c.LegalName,
		PlaceholderCNPJ, c.CNPJ,
		PlaceholderTradeName, tradeName,
		PlaceholderSenderName, sender.Name,
		PlaceholderSenderOrg, sender.Company,
		PlaceholderSegment, strings.ToLower(c.MainActivity),
	)
	return r.Replace(template)
}

// Unresolved lists the placeholders Render would leave untouched, in order
// of first appearance.
func Unresolved(template string) []string {
	known := map[string]bool{
		PlaceholderCompanyName: true,
		PlaceholderCNPJ:        true,
		PlaceholderTradeName:   true,
		PlaceholderSenderName:  true,
		PlaceholderSenderOrg:   true,
		PlaceholderSegment:     true,
	}
	var out []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllString(template, -1) {
		if known[m] || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
