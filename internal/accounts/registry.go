// Package accounts holds the chart of accounts.
package accounts

import (
	"sort"
	"strings"
	"sync"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// Registry provides lookup over the chart of accounts. It is safe for
// concurrent use; writes are rare.
type Registry struct {
	mu     sync.RWMutex
	byCode map[string]model.Account
}

// NewRegistry creates a Registry from loaded accounts. A repeated code is
// reported as DuplicateCodeError.
func NewRegistry(accounts []model.Account) (*Registry, error) {
	r := &Registry{byCode: make(map[string]model.Account, len(accounts))}
	for _, a := range accounts {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an account to the chart.
func (r *Registry) Register(a model.Account) error {
	a.Code = strings.TrimSpace(a.Code)
	if err := validateFields(a); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[a.Code]; ok {
		return &apperr.DuplicateCodeError{Entity: "account", Value: a.Code}
	}
	r.byCode[a.Code] = a
	return nil
}

// CanRegister reports the error Register would return for a, without
// adding it. Callers persist first and register after.
func (r *Registry) CanRegister(a model.Account) error {
	a.Code = strings.TrimSpace(a.Code)
	if err := validateFields(a); err != nil {
		return err
	}
	if r.Exists(a.Code) {
		return &apperr.DuplicateCodeError{Entity: "account", Value: a.Code}
	}
	return nil
}

func validateFields(a model.Account) error {
	if a.Code == "" {
		return &apperr.InvalidInputError{Field: "code", Reason: "must not be empty"}
	}
	if strings.TrimSpace(a.Name) == "" {
		return &apperr.InvalidInputError{Field: "name", Reason: "must not be empty"}
	}
	if !a.Type.Valid() {
		return &apperr.InvalidInputError{Field: "type", Reason: "unknown account type " + string(a.Type)}
	}
	return nil
}

// Lookup returns the account with code.
func (r *Registry) Lookup(code string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byCode[code]
	if !ok {
		return model.Account{}, &apperr.NotFoundError{Entity: "account", ID: code}
	}
	return a, nil
}

// NatureOf returns the normal balance side of code.
func (r *Registry) NatureOf(code string) (model.Nature, error) {
	a, err := r.Lookup(code)
	if err != nil {
		return "", err
	}
	return a.Nature(), nil
}

// Exists reports whether code is registered.
func (r *Registry) Exists(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byCode[code]
	return ok
}

// IsLeaf reports whether no other account sits below code.
func (r *Registry) IsLeaf(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isLeafLocked(code)
}

func (r *Registry) isLeafLocked(code string) bool {
	for other := range r.byCode {
		if model.IsDescendantCode(other, code) {
			return false
		}
	}
	return true
}

// Postable checks that code can receive journal lines: it must exist, be
// active, and be a leaf.
func (r *Registry) Postable(code string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byCode[code]
	switch {
	case !ok:
		return &apperr.UnknownAccountError{AccountCode: code, Reason: "not found"}
	case !r.isLeafLocked(code):
		return &apperr.UnknownAccountError{AccountCode: code, Reason: "aggregate account"}
	case !a.Active:
		return &apperr.UnknownAccountError{AccountCode: code, Reason: "inactive"}
	}
	return nil
}

// Deactivate marks an account inactive. Accounts are never deleted because
// posted entries may reference them.
func (r *Registry) Deactivate(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byCode[code]
	if !ok {
		return &apperr.NotFoundError{Entity: "account", ID: code}
	}
	a.Active = false
	r.byCode[code] = a
	return nil
}

// All returns all accounts sorted by code.
func (r *Registry) All() []model.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]model.Account, 0, len(r.byCode))
	for _, a := range r.byCode {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// ByType returns all accounts of the given type, sorted by code.
func (r *Registry) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range r.All() {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}
