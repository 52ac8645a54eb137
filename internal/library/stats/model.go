package stats

import (
	"database/sql"
	"math"
	"sort"
	"time"

	"libcirc/internal/library/ledger"
)

// BookUsage is one row of the book usage snapshot.
type BookUsage struct {
	TitleID        uint64          `db:"title_id"`
	BorrowCount    int             `db:"borrow_count"`
	AvgLoanDays    sql.NullFloat64 `db:"avg_loan_days"`
	AvailableRatio sql.NullFloat64 `db:"available_ratio"`
	EvaluatedAt    time.Time       `db:"evaluated_at"`
}

// UserBorrow is one row of a user's snapshot for a period.
type UserBorrow struct {
	UserID           uint64         `db:"user_id"`
	PeriodStart      time.Time      `db:"period_start"`
	PeriodEnd        time.Time      `db:"period_end"`
	TotalBorrowed    int            `db:"total_borrowed"`
	OverdueCount     int            `db:"overdue_count"`
	FavoriteCategory sql.NullString `db:"favorite_category"`
	EvaluatedAt      time.Time      `db:"evaluated_at"`
}

type copyStatus struct {
	TitleID uint64 `db:"title_id"`
	Status  string `db:"status"`
}

type titleCategory struct {
	TitleID uint64 `db:"title_id"`
	Name    string `db:"name"`
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// ComputeBookUsage derives the usage row of every title. Open loans count
// their duration up to at.
func ComputeBookUsage(titleIDs []uint64, cps []copyStatus, loans []ledger.Loan, at time.Time) []BookUsage {
	type acc struct {
		total, available, loans, days int
	}
	by := make(map[uint64]*acc, len(titleIDs))
	for _, id := range titleIDs {
		by[id] = &acc{}
	}
	for _, c := range cps {
		if a, ok := by[c.TitleID]; ok {
			a.total++
			if c.Status == "available" {
				a.available++
			}
		}
	}
	for _, l := range loans {
		a, ok := by[l.TitleID]
		if !ok {
			continue
		}
		end := at
		if l.ReturnedAt.Valid {
			end = l.ReturnedAt.Time
		}
		a.loans++
		a.days += ledger.DaysBetween(l.BorrowedAt, end)
	}

	out := make([]BookUsage, 0, len(titleIDs))
	for _, id := range titleIDs {
		a := by[id]
		row := BookUsage{TitleID: id, BorrowCount: a.loans, EvaluatedAt: at}
		if a.loans > 0 {
			row.AvgLoanDays = sql.NullFloat64{Float64: round2(float64(a.days) / float64(a.loans)), Valid: true}
		}
		if a.total > 0 {
			row.AvailableRatio = sql.NullFloat64{Float64: round2(float64(a.available) / float64(a.total)), Valid: true}
		}
		out = append(out, row)
	}
	return out
}

// ComputeUserBorrow derives per-borrower rows for p from the loans borrowed
// inside it. eval is the day open loans are aged to and is stamped on every
// row, so the same period and ledger always give the same rows. Borrowers
// with nothing to report are left out.
func ComputeUserBorrow(p Period, eval time.Time, loans []ledger.Loan, cats []titleCategory) []UserBorrow {
	catsOf := make(map[uint64][]string)
	for _, c := range cats {
		catsOf[c.TitleID] = append(catsOf[c.TitleID], c.Name)
	}

	type acc struct {
		total, overdue int
		perCat         map[string]int
	}
	by := make(map[uint64]*acc)
	var users []uint64
	for _, l := range loans {
		if !p.Contains(l.BorrowedAt) {
			continue
		}
		a, ok := by[l.BorrowerID]
		if !ok {
			a = &acc{perCat: map[string]int{}}
			by[l.BorrowerID] = a
			users = append(users, l.BorrowerID)
		}
		a.total++
		if overdueAt(l, eval) {
			a.overdue++
		}
		for _, name := range catsOf[l.TitleID] {
			a.perCat[name]++
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	out := make([]UserBorrow, 0, len(users))
	for _, uid := range users {
		a := by[uid]
		if a.total == 0 && a.overdue == 0 {
			continue
		}
		row := UserBorrow{
			UserID:        uid,
			PeriodStart:   p.Start,
			PeriodEnd:     p.End,
			TotalBorrowed: a.total,
			OverdueCount:  a.overdue,
			EvaluatedAt:   eval,
		}
		if fav, ok := favorite(a.perCat); ok {
			row.FavoriteCategory = sql.NullString{String: fav, Valid: true}
		}
		out = append(out, row)
	}
	return out
}

// overdueAt: open and aged >= 7 days at eval, or returned after >= 7 days.
func overdueAt(l ledger.Loan, eval time.Time) bool {
	if l.ReturnedAt.Valid {
		return ledger.DaysBetween(l.BorrowedAt, l.ReturnedAt.Time) >= ledger.EnforcementOverdueDays
	}
	return ledger.DaysBetween(l.BorrowedAt, eval) >= ledger.EnforcementOverdueDays
}

// favorite picks the highest count, ties broken by name ascending.
func favorite(counts map[string]int) (string, bool) {
	best, bestN := "", 0
	for name, n := range counts {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best, bestN > 0
}
