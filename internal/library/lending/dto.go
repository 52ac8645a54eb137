package lending

import (
	"time"

	"libcirc/internal/library/copies"
	"libcirc/internal/library/ledger"
)

type BorrowResponse struct {
	LoanID     uint64    `json:"loan_id"`
	LoanULID   string    `json:"loan_ulid"`
	CopyKey    string    `json:"copy_key"`
	BorrowedAt time.Time `json:"borrowed_at"`
}

type ReturnResponse struct {
	LoanID     uint64    `json:"loan_id"`
	LoanULID   string    `json:"loan_ulid"`
	CopyKey    string    `json:"copy_key"`
	BorrowedAt time.Time `json:"borrowed_at"`
	ReturnedAt time.Time `json:"returned_at"`
}

func copyKey(l *ledger.Loan) string {
	return copies.Key{TitleID: l.TitleID, CopyNo: l.CopyNo}.String()
}

func toBorrowResponse(l *ledger.Loan) BorrowResponse {
	return BorrowResponse{LoanID: l.LoanID, LoanULID: l.LoanULID, CopyKey: copyKey(l), BorrowedAt: l.BorrowedAt}
}

func toReturnResponse(l *ledger.Loan) ReturnResponse {
	return ReturnResponse{
		LoanID:     l.LoanID,
		LoanULID:   l.LoanULID,
		CopyKey:    copyKey(l),
		BorrowedAt: l.BorrowedAt,
		ReturnedAt: l.ReturnedAt.Time,
	}
}
