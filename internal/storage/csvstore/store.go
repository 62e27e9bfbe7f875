// Package csvstore keeps a tenant's books as CSV files on disk, one
// directory per tenant:
//
//	<root>/<tenant>/accounts/chart-of-accounts.csv
//	<root>/<tenant>/journal/journal.csv
//	<root>/<tenant>/inventory/items.csv
//	<root>/<tenant>/inventory/movements.csv
//
// Appends go to the end of the file; updates rewrite it through a temp file
// and rename.
package csvstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cuadra-dev/cuadra/internal/model"
)

const (
	accountsFile  = "accounts/chart-of-accounts.csv"
	journalFile   = "journal/journal.csv"
	itemsFile     = "inventory/items.csv"
	movementsFile = "inventory/movements.csv"
)

// Store implements the books repositories over CSV files.
type Store struct {
	root string
	mu   sync.Mutex // serializes file access across tenants
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the directory holding every tenant.
func (s *Store) Root() string { return s.root }

// TenantDir returns the directory of one tenant.
func (s *Store) TenantDir(tenant model.Tenant) string {
	return filepath.Join(s.root, string(tenant))
}

// Init creates the tenant's directory layout.
func (s *Store) Init(tenant model.Tenant) error {
	if err := validTenant(tenant); err != nil {
		return err
	}
	for _, d := range []string{"accounts", "journal", "inventory"} {
		if err := os.MkdirAll(filepath.Join(s.TenantDir(tenant), d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	return nil
}

func (s *Store) path(tenant model.Tenant, file string) (string, error) {
	if err := validTenant(tenant); err != nil {
		return "", err
	}
	return filepath.Join(s.TenantDir(tenant), filepath.FromSlash(file)), nil
}

func validTenant(tenant model.Tenant) error {
	t := string(tenant)
	if t == "" || t == "." || t == ".." || strings.ContainsAny(t, `/\`) {
		return fmt.Errorf("invalid tenant name %q", t)
	}
	return nil
}

// readFile opens path and decodes it; a missing file decodes as empty.
func readFile[T any](ctx context.Context, path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return decode(f)
}

// appendFile appends rows to path, writing a header first when the file is
// new or empty.
func appendFile(path string, writeHeader, writeRows func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	needsHeader := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		needsHeader = false
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	if needsHeader {
		if err := writeHeader(f); err != nil {
			f.Close()
			return err
		}
	}
	if err := writeRows(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// rewriteFile replaces path with the output of write, atomically.
func rewriteFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
