package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a books directory.
const FileName = "cuadra.yaml"

// Storage drivers.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// Config represents the top-level cuadra.yaml configuration.
type Config struct {
	Business    BusinessConfig    `yaml:"business"`
	Accounts    AccountsConfig    `yaml:"accounts"`
	Posting     PostingConfig     `yaml:"posting"`
	Consistency ConsistencyConfig `yaml:"consistency"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
	Git         GitConfig         `yaml:"git"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// BusinessConfig identifies the business whose books these are.
type BusinessConfig struct {
	Name   string `yaml:"name"`
	NIT    string `yaml:"nit,omitempty"`
	Tenant string `yaml:"tenant"`
}

// AccountsConfig names the chart codes the purchase, sale and adjustment
// flows post to.
type AccountsConfig struct {
	Inventory         string   `yaml:"inventory"`
	COGS              string   `yaml:"cogs"`
	Payable           string   `yaml:"payable"`
	Cash              string   `yaml:"cash"`
	Receivable        string   `yaml:"receivable"`
	Sales             string   `yaml:"sales"`
	InventorySurplus  string   `yaml:"inventory_surplus"`
	InventoryShortage string   `yaml:"inventory_shortage"`
	DirectExpense     []string `yaml:"direct_expense"`
}

// PostingConfig controls journal validation.
type PostingConfig struct {
	Epsilon decimal.Decimal `yaml:"epsilon"`
}

// ConsistencyConfig controls the cross-module checks.
type ConsistencyConfig struct {
	Tolerance       decimal.Decimal `yaml:"tolerance"`
	PurchasePattern string          `yaml:"purchase_pattern"`
	SalePattern     string          `yaml:"sale_pattern"`
}

// StorageConfig selects where the books live.
type StorageConfig struct {
	Driver   string `yaml:"driver"`        // csv or postgres
	Dir      string `yaml:"dir,omitempty"` // csv root, relative to the config file
	DSN      string `yaml:"dsn,omitempty"`
	MaxConns int32  `yaml:"max_conns,omitempty"`
	MinConns int32  `yaml:"min_conns,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads a cuadra.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new set of books.
func Default(businessName, nit string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:   businessName,
			NIT:    nit,
			Tenant: "default",
		},
		Accounts: AccountsConfig{
			Inventory:         "1141",
			COGS:              "5111",
			Payable:           "2111",
			Cash:              "1111",
			Receivable:        "1131",
			Sales:             "4111",
			InventorySurplus:  "4211",
			InventoryShortage: "5311",
			DirectExpense:     []string{"5211"},
		},
		Posting: PostingConfig{
			Epsilon: decimal.New(1, -2),
		},
		Consistency: ConsistencyConfig{
			Tolerance:       decimal.New(1, -2),
			PurchasePattern: `(?i)^\s*compras?\b`,
			SalePattern:     `(?i)^\s*ventas?\b`,
		},
		Storage: StorageConfig{
			Driver: DriverCSV,
			Dir:    "books",
		},
		Log: LogConfig{
			Level: "info",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Cuadra",
			AuthorEmail: "books@cuadra.local",
		},
		HTTP: HTTPConfig{
			Listen: "127.0.0.1:8080",
		},
	}
}

// Validate checks values Load cannot catch by type alone.
func (c *Config) Validate() error {
	var errs []error
	if c.Business.Tenant == "" {
		errs = append(errs, errors.New("business.tenant must not be empty"))
	}
	if c.Posting.Epsilon.IsNegative() {
		errs = append(errs, errors.New("posting.epsilon must not be negative"))
	}
	if c.Consistency.Tolerance.IsNegative() {
		errs = append(errs, errors.New("consistency.tolerance must not be negative"))
	}
	for name, pattern := range map[string]string{
		"consistency.purchase_pattern": c.Consistency.PurchasePattern,
		"consistency.sale_pattern":     c.Consistency.SalePattern,
	} {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	switch c.Storage.Driver {
	case DriverCSV:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not csv or postgres", c.Storage.Driver))
	}
	return errors.Join(errs...)
}
