// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dbinterface holds the narrow query seams shared by the database
// layer and the model stores, keeping both sides free of import cycles.
package dbinterface

import (
	"context"
	"database/sql"
)

// Querier is the query surface the stores run against. *sql.DB, *sql.Tx
// and *database.DB all satisfy it, so the same store code works inside
// and outside a transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TxBeginner extends Querier with the ability to open a transaction.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
