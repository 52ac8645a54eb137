package lending

import (
	"fmt"
	"time"

	"libcirc/internal/library/copies"
	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/apperr"
)

// MaxOpenLoans is how many copies one borrower may hold at once.
const MaxOpenLoans = 3

// BorrowState is everything the borrow rules look at, read inside the
// borrowing transaction.
type BorrowState struct {
	OpenLoans []ledger.Loan // borrower's unreturned loans
	Copy      *copies.Copy  // nil when the copy does not exist
	Now       time.Time
}

// CheckBorrow applies the borrow rules in order and returns the first
// violation. The order is part of the contract: an overdue borrower is told
// so even when they are also at the limit.
func CheckBorrow(st BorrowState, k copies.Key) error {
	for _, l := range st.OpenLoans {
		if l.EnforcementOverdue(st.Now) {
			return apperr.Policy(apperr.ReasonOverdueLock,
				fmt.Sprintf("loan %s is overdue (borrowed %s); return it before borrowing again", l.LoanULID, l.BorrowedAt.Format(time.DateOnly)))
		}
	}
	if len(st.OpenLoans) >= MaxOpenLoans {
		return apperr.Policy(apperr.ReasonLimitReached, fmt.Sprintf("borrow limit of %d reached", MaxOpenLoans))
	}
	for _, l := range st.OpenLoans {
		// 同じコピーを借り直す場合は unavailable で返す
		if l.TitleID == k.TitleID && l.CopyNo != k.CopyNo {
			return apperr.Policy(apperr.ReasonDuplicateTitle, "a copy of this title is already borrowed")
		}
	}
	if st.Copy == nil {
		return apperr.NotFound("copy not found")
	}
	if st.Copy.Status != copies.StatusAvailable {
		return apperr.Policy(apperr.ReasonUnavailable, fmt.Sprintf("copy %s is %s", k, st.Copy.Status))
	}
	return nil
}

// ReturnState is what the return rules look at.
type ReturnState struct {
	Loan        *ledger.Loan // nil when the loan does not exist
	RequesterID uint64
}

func CheckReturn(st ReturnState) error {
	if st.Loan == nil {
		return apperr.NotFound("loan not found")
	}
	if st.Loan.BorrowerID != st.RequesterID {
		return apperr.Forbidden("loan belongs to another borrower")
	}
	if !st.Loan.Open() {
		return apperr.Policy(apperr.ReasonAlreadyReturned, "loan already returned")
	}
	return nil
}
