package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/cuadra-dev/cuadra/internal/model"
)

const accountsTable = "accounts"

type accountRow struct {
	Code        string `db:"code"`
	Name        string `db:"name"`
	Type        string `db:"type"`
	Active      bool   `db:"active"`
	Description string `db:"description"`
}

func (r accountRow) toModel() model.Account {
	return model.Account{
		Code:        r.Code,
		Name:        r.Name,
		Type:        model.AccountType(r.Type),
		Active:      r.Active,
		Description: r.Description,
	}
}

func (s *Store) loadAccountsQuery(tenant model.Tenant) squirrel.SelectBuilder {
	return s.builder.
		Select("code", "name", "type", "active", "description").
		From(accountsTable).
		Where(squirrel.Eq{"tenant": string(tenant)}).
		OrderBy("code")
}

// LoadAccounts returns the tenant's chart ordered by code.
func (s *Store) LoadAccounts(ctx context.Context, tenant model.Tenant) ([]model.Account, error) {
	sql, args, err := s.loadAccountsQuery(tenant).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []accountRow
	if err := pgxscan.Select(ctx, s.txm.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) saveAccountQuery(tenant model.Tenant, a model.Account) squirrel.InsertBuilder {
	return s.builder.
		Insert(accountsTable).
		Columns("tenant", "code", "name", "type", "active", "description").
		Values(string(tenant), a.Code, a.Name, string(a.Type), a.Active, a.Description).
		Suffix(`ON CONFLICT (tenant, code) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			active = EXCLUDED.active,
			description = EXCLUDED.description`)
}

// SaveAccount upserts one account.
func (s *Store) SaveAccount(ctx context.Context, tenant model.Tenant, a model.Account) error {
	sql, args, err := s.saveAccountQuery(tenant, a).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.txm.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save account %s: %w", a.Code, err)
	}
	return nil
}

// SaveAccounts upserts a whole chart in one transaction.
func (s *Store) SaveAccounts(ctx context.Context, tenant model.Tenant, accounts []model.Account) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, a := range accounts {
			if err := s.SaveAccount(ctx, tenant, a); err != nil {
				return err
			}
		}
		return nil
	})
}
