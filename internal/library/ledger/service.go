package ledger

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
	"libcirc/internal/platform/db"
)

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// ClockFunc adapts a plain function, mostly for tests.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type IDGen interface{ NewULID(t time.Time) string }

type ULIDGen struct{}

func (ULIDGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Ledger --------------

// Ledger is the append-only record of loans and inventory changes.
// Writers take the caller's transaction; readers open their own.
type Ledger struct {
	db    *db.DB
	store *Store
	clock Clock
	id    IDGen
}

func New(conn *db.DB, clock Clock) *Ledger {
	if clock == nil {
		clock = RealClock{}
	}
	return &Ledger{
		db:    conn,
		store: NewStore(conn),
		clock: clock,
		id:    ULIDGen{},
	}
}

func (l *Ledger) Store() *Store  { return l.store }
func (l *Ledger) Clock() Clock   { return l.clock }
func (l *Ledger) Now() time.Time { return l.clock.Now() }

// OpenLoan appends a new open loan.
func (l *Ledger) OpenLoan(ctx context.Context, tx db.DBTX, borrowerID, titleID uint64, copyNo int, at time.Time) (*Loan, error) {
	m := &Loan{
		LoanULID:   l.id.NewULID(at),
		BorrowerID: borrowerID,
		TitleID:    titleID,
		CopyNo:     copyNo,
		BorrowedAt: at,
	}
	if err := l.store.InsertLoan(ctx, tx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CloseLoan sets the loan's return date. It is the only update the ledger allows.
func (l *Ledger) CloseLoan(ctx context.Context, tx db.DBTX, m *Loan, at time.Time) error {
	if err := l.store.CloseLoan(ctx, tx, m.LoanID, at); err != nil {
		return err
	}
	m.ReturnedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (l *Ledger) CountOpenLoans(ctx context.Context, tx db.DBTX, borrowerID uint64) (int, error) {
	return l.store.CountOpenLoans(ctx, tx, borrowerID)
}

// RecordChange appends an inventory change made by actor.
func (l *Ledger) RecordChange(ctx context.Context, tx db.DBTX, actor auth.Actor, titleID uint64, titleName string, action Action, delta int) (*InventoryChange, error) {
	now := l.clock.Now()
	m := &InventoryChange{
		ChangeULID: l.id.NewULID(now),
		ActorName:  actor.Name,
		TitleID:    titleID,
		TitleName:  titleName,
		Action:     action,
		Delta:      delta,
		CreatedAt:  now,
	}
	if actor.UserID != 0 {
		m.ActorID = sql.NullInt64{Int64: int64(actor.UserID), Valid: true}
	}
	if m.ActorName == "" {
		m.ActorName = "system"
	}
	if err := l.store.AppendChange(ctx, tx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// -------------- Queries --------------

func (l *Ledger) History(ctx context.Context, borrowerID uint64) ([]LoanResponse, error) {
	var rows []LoanEntry
	err := l.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		rows, err = l.store.History(ctx, tx, borrowerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]LoanResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toLoanResponse(r.Loan, r.TitleName))
	}
	return out, nil
}

func (l *Ledger) GetLoan(ctx context.Context, key string) (*Loan, error) {
	m, err := l.store.GetLoanByKey(ctx, l.db, key, false)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if m == nil {
		return nil, apperr.NotFound("loan not found")
	}
	return m, nil
}

// TitleLoans lists the loans of one title borrowed within [from, to), oldest first.
func (l *Ledger) TitleLoans(ctx context.Context, titleID uint64, from, to time.Time) ([]LoanResponse, error) {
	if !from.Before(to) {
		return nil, apperr.Validation("from must be before to")
	}
	var rows []Loan
	err := l.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		rows, err = l.store.LoansForTitle(ctx, tx, titleID, from.UTC(), to.UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]LoanResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToResponse())
	}
	return out, nil
}

type ListChangesResult struct {
	Items      []ChangeResponse `json:"items"`
	Total      int64            `json:"total"`
	NextOffset int              `json:"next_offset"`
}

func (l *Ledger) ListChanges(ctx context.Context, p Page) (ListChangesResult, error) {
	p = p.normalize()
	var (
		rows  []InventoryChange
		total int64
	)
	err := l.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		rows, total, err = l.store.ListChanges(ctx, tx, p.Limit, p.Offset)
		return err
	})
	if err != nil {
		return ListChangesResult{}, err
	}
	items := make([]ChangeResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, toChangeResponse(r))
	}
	next := p.Offset + p.Limit
	if next >= int(total) {
		next = 0
	} // 0=終端
	return ListChangesResult{Items: items, Total: total, NextOffset: next}, nil
}

// OverdueReport lists every open loan, labelled OVERDUE past the reporting threshold.
func (l *Ledger) OverdueReport(ctx context.Context) ([]OverdueResponse, error) {
	var rows []overdueRow
	err := l.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		rows, err = l.store.openLoansWithNames(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	out := make([]OverdueResponse, 0, len(rows))
	for _, r := range rows {
		days := DaysBetween(r.BorrowedAt, now)
		label := LabelOK
		if days > ReportingOverdueDays {
			label = LabelOverdue
		}
		out = append(out, OverdueResponse{
			LoanID:     r.LoanID,
			LoanULID:   r.LoanULID,
			BorrowerID: r.BorrowerID,
			UserName:   r.UserName,
			TitleID:    r.TitleID,
			TitleName:  r.TitleName,
			CopyNo:     r.CopyNo,
			BorrowedAt: r.BorrowedAt,
			DaysOut:    days,
			Label:      label,
		})
	}
	return out, nil
}
