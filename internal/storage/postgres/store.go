package postgres

import (
	"github.com/Masterminds/squirrel"
)

// Store implements the books repositories over PostgreSQL.
type Store struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// New creates a Store that runs its statements through txm.
func New(txm *TxManager) *Store {
	return &Store{
		txm:     txm,
		builder: newBuilder(),
	}
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
