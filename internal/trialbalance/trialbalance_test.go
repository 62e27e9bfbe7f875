package trialbalance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cuadra-dev/cuadra/internal/accounts"
	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func posted(seq int64, date time.Time, lines ...model.Line) model.JournalEntry {
	return model.JournalEntry{ID: "e", Seq: seq, Date: date, Status: model.StatusPosted, Lines: lines}
}

func registry(t *testing.T) *accounts.Registry {
	t.Helper()
	reg, err := accounts.NewRegistry(accounts.DefaultChart())
	require.NoError(t, err)
	return reg
}

func TestCalculate_Scenario(t *testing.T) {
	entries := []model.JournalEntry{
		posted(1, day(1), model.DebitLine("1141", dec("1000")), model.CreditLine("2111", dec("1000"))),
		posted(2, day(2), model.DebitLine("5111", dec("600")), model.CreditLine("1141", dec("600"))),
	}
	report, err := Calculate(context.Background(), entries, registry(t), Options{})
	require.NoError(t, err)

	assert.True(t, report.TotalDebit.Equal(dec("1600")))
	assert.True(t, report.TotalCredit.Equal(dec("1600")))
	require.Len(t, report.Rows, 3)

	inv := report.Rows[0]
	assert.Equal(t, "1141", inv.Account.Code)
	assert.True(t, inv.DebtorBalance.Equal(dec("400")))
	assert.True(t, inv.CreditorBalance.IsZero())

	pay := report.Rows[1]
	assert.True(t, pay.CreditorBalance.Equal(dec("1000")))
	assert.True(t, pay.DebtorBalance.IsZero())

	assert.True(t, report.TotalDebtor.Equal(dec("1000")))
	assert.True(t, report.TotalCreditor.Equal(dec("1000")))
}

func TestCalculate_SignedWrongSideBalance(t *testing.T) {
	entries := []model.JournalEntry{
		posted(1, day(1), model.DebitLine("5211", dec("80")), model.CreditLine("1111", dec("80"))),
	}
	report, err := Calculate(context.Background(), entries, registry(t), Options{})
	require.NoError(t, err)

	cash := report.Rows[0]
	assert.Equal(t, "1111", cash.Account.Code)
	assert.True(t, cash.DebtorBalance.Equal(dec("-80")), "must not clamp to zero")
}

func TestCalculate_AsOf(t *testing.T) {
	entries := []model.JournalEntry{
		posted(1, day(1), model.DebitLine("1141", dec("1000")), model.CreditLine("2111", dec("1000"))),
		posted(2, day(9), model.DebitLine("5111", dec("600")), model.CreditLine("1141", dec("600"))),
	}
	report, err := Calculate(context.Background(), entries, registry(t), Options{AsOf: day(5)})
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
	assert.True(t, report.TotalDebit.Equal(dec("1000")))
}

func TestCalculate_CorruptedLogIsFault(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctx := logger.WithLogger(context.Background(), logger.Wrap(zap.New(core)))

	entries := []model.JournalEntry{
		posted(1, day(1), model.DebitLine("1141", dec("500")), model.CreditLine("2111", dec("400"))),
	}
	report, err := Calculate(ctx, entries, registry(t), Options{Epsilon: dec("0.01")})

	var imb *apperr.TrialBalanceImbalanceError
	require.True(t, errors.As(err, &imb))
	assert.True(t, apperr.IsFault(err))
	assert.False(t, apperr.IsRecoverable(err))
	assert.True(t, report.Difference().Equal(dec("100")))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, true, fields["fault"])
	assert.Equal(t, "trialbalance", fields["component"])
}

func TestCalculate_ToleratesAdmittedEpsilon(t *testing.T) {
	entries := []model.JournalEntry{
		posted(1, day(1), model.DebitLine("1141", dec("100.01")), model.CreditLine("2111", dec("100.00"))),
		posted(2, day(2), model.DebitLine("1141", dec("50.01")), model.CreditLine("2111", dec("50.00"))),
	}
	_, err := Calculate(context.Background(), entries, registry(t), Options{Epsilon: dec("0.01")})
	assert.NoError(t, err)

	_, err = Calculate(context.Background(), entries, registry(t), Options{})
	assert.Error(t, err)
}

func TestCalculate_UnknownAccount(t *testing.T) {
	entries := []model.JournalEntry{
		posted(1, day(1), model.DebitLine("9999", dec("1")), model.CreditLine("2111", dec("1"))),
	}
	_, err := Calculate(context.Background(), entries, registry(t), Options{})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
