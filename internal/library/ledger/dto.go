package ledger

import "time"

const (
	LabelOK      = "OK"
	LabelOverdue = "OVERDUE"

	StatusBorrowed = "borrowed"
	StatusReturned = "returned"
)

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type LoanResponse struct {
	LoanID     uint64     `json:"loan_id"`
	LoanULID   string     `json:"loan_ulid"`
	BorrowerID uint64     `json:"borrower_id"`
	TitleID    uint64     `json:"title_id"`
	TitleName  string     `json:"title_name,omitempty"`
	CopyNo     int        `json:"copy_no"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     string     `json:"status"`
}

func toLoanResponse(m Loan, titleName string) LoanResponse {
	r := LoanResponse{
		LoanID:     m.LoanID,
		LoanULID:   m.LoanULID,
		BorrowerID: m.BorrowerID,
		TitleID:    m.TitleID,
		TitleName:  titleName,
		CopyNo:     m.CopyNo,
		BorrowedAt: m.BorrowedAt,
		Status:     StatusBorrowed,
	}
	if m.ReturnedAt.Valid {
		t := m.ReturnedAt.Time
		r.ReturnedAt = &t
		r.Status = StatusReturned
	}
	return r
}

// ToResponse renders a loan without its title name.
func (m Loan) ToResponse() LoanResponse { return toLoanResponse(m, "") }

type ChangeResponse struct {
	ChangeULID string    `json:"change_ulid"`
	ActorID    *uint64   `json:"actor_id,omitempty"`
	ActorName  string    `json:"actor_name"`
	TitleID    uint64    `json:"title_id"`
	TitleName  string    `json:"title_name"`
	Action     Action    `json:"action"`
	Delta      int       `json:"delta"`
	CreatedAt  time.Time `json:"created_at"`
}

func toChangeResponse(m InventoryChange) ChangeResponse {
	r := ChangeResponse{
		ChangeULID: m.ChangeULID,
		ActorName:  m.ActorName,
		TitleID:    m.TitleID,
		TitleName:  m.TitleName,
		Action:     m.Action,
		Delta:      m.Delta,
		CreatedAt:  m.CreatedAt,
	}
	if m.ActorID.Valid {
		id := uint64(m.ActorID.Int64)
		r.ActorID = &id
	}
	return r
}

type OverdueResponse struct {
	LoanID     uint64    `json:"loan_id"`
	LoanULID   string    `json:"loan_ulid"`
	BorrowerID uint64    `json:"borrower_id"`
	UserName   string    `json:"user_name"`
	TitleID    uint64    `json:"title_id"`
	TitleName  string    `json:"title_name"`
	CopyNo     int       `json:"copy_no"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DaysOut    int       `json:"days_out"`
	Label      string    `json:"label"`
}
