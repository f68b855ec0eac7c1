// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"context"
	"strconv"
	"time"
)

// ReportFilter narrows a transaction report. Zero values mean "all".
type ReportFilter struct {
	Year        int
	Month       time.Month
	Type        TransactionType
	ExpenseType string // only meaningful when Type == TypeExpense
}

// ReportRow is one transaction joined with its member and operator.
type ReportRow struct {
	TransactionID   string
	TransactionDate time.Time
	Type            TransactionType
	Amount          float64
	MemberName      string
	OperatorName    string
	ExpenseType     string
	Comments        string
}

// Summary aggregates a report into income, expense, and net totals.
type Summary struct {
	Income  float64
	Expense float64
	Net     float64
}

// FilteredTransactions lists ledger rows matching the filter, newest
// first.
func (s *Store) FilteredTransactions(ctx context.Context, f ReportFilter) ([]ReportRow, error) {
	query := `
		SELECT t.transaction_id, t.transaction_date, t.transaction_type, t.amount,
		       COALESCE(m.first_name || ' ' || m.last_name, ''),
		       COALESCE(u.full_name, ''),
		       COALESCE(e.expense_type, ''), COALESCE(e.comments, '')
		FROM transactions t
		LEFT JOIN members m ON t.member_id = m.member_id
		LEFT JOIN users u ON t.user_id = u.user_id
		LEFT JOIN expenses e ON t.transaction_id = e.transaction_id
		WHERE 1=1`
	var args []any

	if f.Year != 0 {
		args = append(args, f.Year)
		query += ` AND EXTRACT(YEAR FROM t.transaction_date) = $` + strconv.Itoa(len(args))
	}
	if f.Month != 0 {
		args = append(args, int(f.Month))
		query += ` AND EXTRACT(MONTH FROM t.transaction_date) = $` + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		query += ` AND t.transaction_type = $` + strconv.Itoa(len(args))
	}
	if f.Type == TypeExpense && f.ExpenseType != "" {
		args = append(args, f.ExpenseType)
		query += ` AND e.expense_type = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY t.transaction_date DESC, t.created_at DESC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer rows.Close()

	var report []ReportRow
	for rows.Next() {
		var r ReportRow
		if err := rows.Scan(&r.TransactionID, &r.TransactionDate, &r.Type, &r.Amount,
			&r.MemberName, &r.OperatorName, &r.ExpenseType, &r.Comments); err != nil {
			return nil, classifyQuery(err)
		}
		report = append(report, r)
	}
	return report, classifyQuery(rows.Err())
}

// SummarizeTransactions folds report rows into income/expense/net
// totals. Expenses are stored negative; the summary reports their
// absolute value.
func SummarizeTransactions(rows []ReportRow) Summary {
	var sum Summary
	for _, r := range rows {
		if r.Amount >= 0 {
			sum.Income += r.Amount
		} else {
			sum.Expense += -r.Amount
		}
	}
	sum.Net = sum.Income - sum.Expense
	return sum
}

