package accounts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// Header is the column order WriteAccounts produces.
var Header = []string{"code", "name", "type", "active", "description"}

// required columns; name, active and description may be absent.
var requiredColumns = []string{"code", "type"}

// ReadAccounts reads a chart-of-accounts CSV. Columns are matched by header
// name, so hand-edited files may reorder or drop the optional ones.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	cols, err := columnIndex(head)
	if err != nil {
		return nil, err
	}

	var chart []model.Account
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return chart, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading accounts CSV: %w", err)
		}
		acct, err := cols.account(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		chart = append(chart, acct)
	}
}

// WriteAccounts writes the chart in Header order.
func WriteAccounts(w io.Writer, chart []model.Account) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, a := range chart {
		rec := []string{a.Code, a.Name, string(a.Type), strconv.FormatBool(a.Active), a.Description}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing account %s: %w", a.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type columns map[string]int

func columnIndex(head []string) (columns, error) {
	cols := make(columns, len(head))
	for i, h := range head {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("accounts CSV: missing %q column", c)
		}
	}
	return cols, nil
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columns) account(rec []string) (model.Account, error) {
	code := c.get(rec, "code")
	if code == "" {
		return model.Account{}, errors.New("empty account code")
	}
	typ := model.AccountType(c.get(rec, "type"))
	if !typ.Valid() {
		return model.Account{}, fmt.Errorf("unknown account type %q", typ)
	}

	active := true
	if v := c.get(rec, "active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing active %q: %w", v, err)
		}
		active = b
	}

	return model.Account{
		Code:        code,
		Name:        c.get(rec, "name"),
		Type:        typ,
		Active:      active,
		Description: c.get(rec, "description"),
	}, nil
}
