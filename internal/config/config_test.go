package config

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Comercial Illimani", "1020304050")
	cfg.Posting.Epsilon = decimal.RequireFromString("0.05")
	cfg.Accounts.DirectExpense = []string{"5211", "5212"}

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Business, got.Business)
	assert.Equal(t, cfg.Accounts, got.Accounts)
	assert.True(t, got.Posting.Epsilon.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, got.Consistency.Tolerance.Equal(cfg.Consistency.Tolerance))
	assert.Equal(t, cfg.Consistency.SalePattern, got.Consistency.SalePattern)
	assert.Equal(t, cfg.Storage, got.Storage)
	assert.Equal(t, cfg.Git, got.Git)
	assert.Equal(t, cfg.HTTP, got.HTTP)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Mi Tienda", "")

	assert.Equal(t, "Mi Tienda", cfg.Business.Name)
	assert.Equal(t, "default", cfg.Business.Tenant)
	assert.Equal(t, "1141", cfg.Accounts.Inventory)
	assert.Equal(t, "5111", cfg.Accounts.COGS)
	assert.True(t, cfg.Posting.Epsilon.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, cfg.Consistency.Tolerance.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, DriverCSV, cfg.Storage.Driver)
	assert.True(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())

	purchase := regexp.MustCompile(cfg.Consistency.PurchasePattern)
	sale := regexp.MustCompile(cfg.Consistency.SalePattern)
	assert.True(t, purchase.MatchString("Compras de mercadería"))
	assert.True(t, sale.MatchString("Ventas del día"))
	assert.False(t, sale.MatchString("Ventanilla"))
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	yml := "business:\n  name: Ferretería Sucre\n  tenant: sucre\nposting:\n  epsilon: 0.02\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sucre", cfg.Business.Tenant)
	assert.True(t, cfg.Posting.Epsilon.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, "1141", cfg.Accounts.Inventory)
	assert.Equal(t, DriverCSV, cfg.Storage.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative epsilon", func(c *Config) { c.Posting.Epsilon = decimal.NewFromInt(-1) }, "posting.epsilon"},
		{"negative tolerance", func(c *Config) { c.Consistency.Tolerance = decimal.NewFromInt(-1) }, "consistency.tolerance"},
		{"bad pattern", func(c *Config) { c.Consistency.SalePattern = "(" }, "consistency.sale_pattern"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, "storage.dsn"},
		{"empty tenant", func(c *Config) { c.Business.Tenant = "" }, "business.tenant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("x", "")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz", "123")
	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "inventory: \"1141\"")
	assert.Contains(t, contents, "driver: csv")
	assert.Contains(t, contents, "auto_commit: true")
}
