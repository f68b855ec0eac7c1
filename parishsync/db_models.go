// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"math"
	"time"
)

// TransactionType tags a ledger row with the kind of payment it records.
type TransactionType string

const (
	TypeMembership   TransactionType = "membership"
	TypeTithe        TransactionType = "tithe"
	TypeDonation     TransactionType = "donation"
	TypeParking      TransactionType = "parking"
	TypeThanksgiving TransactionType = "thanksgiving"
	TypeExpense      TransactionType = "expense"
	TypeBagOffering  TransactionType = "bag_offering"
)

// User is an operator account row, mirrored locally for offline
// credential checks.
type User struct {
	UserID       int64
	Username     string
	PasswordHash string
	FullName     string
	Role         string
}

// Member is the subset of the members table the sync engine touches;
// the mirror keeps just enough for offline card/ID lookup.
type Member struct {
	MemberID         int64
	MembershipCardNo string
	FirstName        string
	LastName         string
}

// Transaction is one immutable ledger row. Expenses carry a negative
// amount. MemberID is nil for non-member donors.
type Transaction struct {
	TransactionID   string
	MemberID        *int64
	UserID          int64
	Type            TransactionType
	Amount          float64
	TransactionDate time.Time
}

// PaidPeriod is a flattened membership-period row pulled into the local
// mirror for offline "which months are already paid" queries.
type PaidPeriod struct {
	MemberID    int64
	PaymentYear int
	Month       int // 1-12
}

// PaymentGroup is one logical membership payment covering one or more
// months. Both the interactive online write and the drain replay apply
// groups through the same code path, so a queued group replays with the
// same transaction ids it would have received online.
type PaymentGroup struct {
	GroupID  string // client-generated UUID, the idempotence token
	MemberID int64
	UserID   int64 // operator who recorded the payment
	Year     int
	Months   []string // English month names, ordered
	Total    float64
}

// PerMonth returns the rounded per-month amount. Recomputed wherever a
// group is applied so stored rounding drift cannot leak into the ledger.
func (g PaymentGroup) PerMonth() float64 {
	if len(g.Months) == 0 {
		return 0
	}
	return round2(g.Total / float64(len(g.Months)))
}

// MonthNumber maps an English month name ("January".."December") to its
// 1-12 number.
func MonthNumber(name string) (time.Month, error) {
	t, err := time.Parse("January", name)
	if err != nil {
		return 0, err
	}
	return t.Month(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
