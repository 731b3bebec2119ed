package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/filter"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/storage"
	"go.uber.org/zap"
)

const (
	exportPrefix    = "exports/"
	exportBatchSize = 500
	// MaxExportRows caps a single export file
	MaxExportRows = 50000
)

var exportHeader = []string{
	"cnpj", "razao_social", "nome_fantasia", "situacao_cadastral",
	"municipio", "uf", "telefone", "email", "capital_social", "porte",
	"cnae_principal", "ai_score", "enrichment_status", "crm_stage",
}

// ExportService writes filtered leads to CSV files in storage
type ExportService struct {
	companyRepo *repository.CompanyRepository
	store       storage.Storage
	logger      *zap.Logger
	now         func() time.Time
}

func NewExportService(companyRepo *repository.CompanyRepository, store storage.Storage, logger *zap.Logger) *ExportService {
	return &ExportService{
		companyRepo: companyRepo,
		store:       store,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ExportLeads writes every lead matching the request, in CNPJ order, and
// returns the storage key of the file.
func (s *ExportService) ExportLeads(ctx context.Context, req *domain.ExportLeadsRequest) (*domain.ExportDTO, error) {
	f, err := filter.Parse(req.Filters)
	if err != nil {
		return nil, translate(err, "invalid export filters")
	}
	refine := filter.ClientFilter{SearchTerm: req.SearchTerm, Status: req.StatusFilter}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}

	rows := 0
	after := ""
	for rows < MaxExportRows {
		batch, err := s.companyRepo.FindBatch(ctx, f, after, exportBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read leads for export: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		after = batch[len(batch)-1].CNPJ

		for _, c := range refine.Apply(batch) {
			if rows == MaxExportRows {
				break
			}
			if err := w.Write(exportRecord(&c)); err != nil {
				return nil, fmt.Errorf("failed to write export row: %w", err)
			}
			rows++
		}
		if len(batch) < exportBatchSize {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	createdAt := s.now()
	key := fmt.Sprintf("%sleads-%s-%s.csv", exportPrefix, createdAt.Format("20060102T150405"), uuid.New().String()[:8])
	if _, err := s.store.Put(ctx, key, "text/csv", &buf); err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	s.logger.Info("leads exported", zap.String("key", key), zap.Int("rows", rows))
	return &domain.ExportDTO{
		Key:       key,
		Rows:      rows,
		CreatedAt: createdAt.Format("2006-01-02T15:04:05Z"),
	}, nil
}

// Open returns the contents of an export. Only keys under the exports prefix
// are served.
func (s *ExportService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !strings.HasPrefix(key, exportPrefix) {
		key = exportPrefix + key
	}
	rc, err := s.store.Open(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("export %s: %w", key, ErrNotFound)
	case errors.Is(err, storage.ErrInvalidKey):
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case err != nil:
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	return rc, nil
}

func exportRecord(c *domain.Company) []string {
	score := ""
	if c.AIScore != nil {
		score = strconv.Itoa(*c.AIScore)
	}
	stage := ""
	if c.CRMStage != nil {
		stage = string(*c.CRMStage)
	}
	return []string{
		c.CNPJ,
		c.LegalName,
		c.TradeName,
		string(c.RegistrationStatus),
		c.City,
		c.State,
		c.Phone,
		c.Email,
		strconv.FormatFloat(c.ShareCapital, 'f', 2, 64),
		c.Size,
		c.MainActivityCode,
		score,
		string(c.EnrichmentStatus),
		stage,
	}
}
