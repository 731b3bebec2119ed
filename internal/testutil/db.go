// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prospecta/leads-api/internal/database"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var cnpjSeq atomic.Int64

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NextCNPJ returns a unique, canonically formatted CNPJ for a head office
func NextCNPJ() string {
	n := cnpjSeq.Add(1)
	return domain.NormalizeCNPJ(fmt.Sprintf("%08d0001%02d", n, n%100))
}

// CreateTestCompany inserts a company. Empty CNPJ and legal name are filled in.
func CreateTestCompany(t *testing.T, db *gorm.DB, c *domain.Company) *domain.Company {
	t.Helper()
	if c.CNPJ == "" {
		c.CNPJ = NextCNPJ()
	}
	if c.LegalName == "" {
		c.LegalName = "EMPRESA TESTE " + c.CNPJ
	}
	if c.RegistrationStatus == "" {
		c.RegistrationStatus = domain.RegistrationUnknown
	}
	if c.EnrichmentStatus == "" {
		c.EnrichmentStatus = domain.EnrichmentNone
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateTestTag inserts a tag with the given name
func CreateTestTag(t *testing.T, db *gorm.DB, name string) *domain.Tag {
	t.Helper()
	tag := &domain.Tag{Name: name, Color: "#3b82f6"}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v
func FloatPtr(v float64) *float64 { return &v }

// BoolPtr returns a pointer to v
func BoolPtr(v bool) *bool { return &v }
