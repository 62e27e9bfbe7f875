package csvstore

import (
	"context"
	"io"
	"sort"

	"github.com/cuadra-dev/cuadra/internal/accounts"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// LoadAccounts reads the tenant's chart of accounts.
func (s *Store) LoadAccounts(ctx context.Context, tenant model.Tenant) ([]model.Account, error) {
	path, err := s.path(tenant, accountsFile)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readFile(ctx, path, accounts.ReadAccounts)
}

// SaveAccount inserts or replaces one account, keeping the file sorted by code.
func (s *Store) SaveAccount(ctx context.Context, tenant model.Tenant, account model.Account) error {
	path, err := s.path(tenant, accountsFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := readFile(ctx, path, accounts.ReadAccounts)
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].Code == account.Code {
			all[i] = account
			replaced = true
		}
	}
	if !replaced {
		all = append(all, account)
	}
	return writeAccounts(path, all)
}

// SaveAccounts replaces the whole chart.
func (s *Store) SaveAccounts(_ context.Context, tenant model.Tenant, accts []model.Account) error {
	path, err := s.path(tenant, accountsFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAccounts(path, append([]model.Account(nil), accts...))
}

func writeAccounts(path string, accts []model.Account) error {
	sort.Slice(accts, func(i, j int) bool { return accts[i].Code < accts[j].Code })
	return rewriteFile(path, func(w io.Writer) error {
		return accounts.WriteAccounts(w, accts)
	})
}
