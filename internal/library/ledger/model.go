package ledger

import (
	"database/sql"
	"time"
)

// Overdue thresholds. Enforcement blocks new borrowing and feeds user stats;
// reporting only labels rows in the overdue report.
const (
	EnforcementOverdueDays = 7
	ReportingOverdueDays   = 14
)

type Loan struct {
	LoanID     uint64       `db:"loan_id"`
	LoanULID   string       `db:"loan_ulid"`
	BorrowerID uint64       `db:"borrower_id"`
	TitleID    uint64       `db:"title_id"`
	CopyNo     int          `db:"copy_no"`
	BorrowedAt time.Time    `db:"borrowed_at"`
	ReturnedAt sql.NullTime `db:"returned_at"`
}

func (l Loan) Open() bool { return !l.ReturnedAt.Valid }

// EnforcementOverdue reports an open loan aged at least EnforcementOverdueDays at now.
func (l Loan) EnforcementOverdue(now time.Time) bool {
	return l.Open() && DaysBetween(l.BorrowedAt, now) >= EnforcementOverdueDays
}

type LoanEntry struct {
	Loan
	TitleName string `db:"title_name"`
}

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

type InventoryChange struct {
	ChangeID   uint64        `db:"change_id"`
	ChangeULID string        `db:"change_ulid"`
	ActorID    sql.NullInt64 `db:"actor_id"`
	ActorName  string        `db:"actor_name"`
	TitleID    uint64        `db:"title_id"`
	TitleName  string        `db:"title_name"`
	Action     Action        `db:"action"`
	Delta      int           `db:"delta"`
	CreatedAt  time.Time     `db:"created_at"`
}

type overdueRow struct {
	LoanID     uint64    `db:"loan_id"`
	LoanULID   string    `db:"loan_ulid"`
	BorrowerID uint64    `db:"borrower_id"`
	UserName   string    `db:"user_name"`
	TitleID    uint64    `db:"title_id"`
	TitleName  string    `db:"title_name"`
	CopyNo     int       `db:"copy_no"`
	BorrowedAt time.Time `db:"borrowed_at"`
}

// DaysBetween counts calendar days (UTC) from a to b.
func DaysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
