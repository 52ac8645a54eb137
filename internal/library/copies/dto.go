package copies

import "time"

type AddCopiesRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type AddCopiesResponse struct {
	TitleID uint64   `json:"title_id"`
	Copies  []string `json:"copies"`
}

type CopyResponse struct {
	Key        string     `json:"key"`
	CopyNo     int        `json:"copy_no"`
	Status     Status     `json:"status"`
	LoanID     *uint64    `json:"loan_id,omitempty"`
	BorrowerID *uint64    `json:"borrower_id,omitempty"`
	Borrower   *string    `json:"borrower,omitempty"`
	BorrowedAt *time.Time `json:"borrowed_at,omitempty"`
}

type TitleCopiesResponse struct {
	TitleID uint64         `json:"title_id"`
	Name    string         `json:"name"`
	Copies  []CopyResponse `json:"copies"`
}

type RemoveCopyResponse struct {
	Key          string `json:"key"`
	TitleDeleted bool   `json:"title_deleted"`
	Remaining    int    `json:"remaining"`
}

func toCopyResponse(r copyRow) CopyResponse {
	out := CopyResponse{Key: r.Key().String(), CopyNo: r.CopyNo, Status: r.Status}
	if r.LoanID.Valid {
		id := uint64(r.LoanID.Int64)
		out.LoanID = &id
	}
	if r.BorrowerID.Valid {
		id := uint64(r.BorrowerID.Int64)
		out.BorrowerID = &id
	}
	if r.UserName.Valid {
		out.Borrower = &r.UserName.String
	}
	if r.BorrowedAt.Valid {
		out.BorrowedAt = &r.BorrowedAt.Time
	}
	return out
}
