package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/db"
)

type Store struct {
	db *db.DB
}

func NewStore(conn *db.DB) *Store { return &Store{db: conn} }

var loanCols = []any{
	goqu.I("l.loan_id"), goqu.I("l.loan_ulid"), goqu.I("l.borrower_id"),
	goqu.I("l.title_id"), goqu.I("l.copy_no"), goqu.I("l.borrowed_at"), goqu.I("l.returned_at"),
}

func (s *Store) loans() *goqu.SelectDataset {
	return s.db.From(goqu.T("loans").As("l")).Select(loanCols...)
}

// Loans

func (s *Store) InsertLoan(ctx context.Context, tx db.DBTX, m *Loan) error {
	id, err := db.InsertID(ctx, tx, s.db.Insert("loans").Rows(goqu.Record{
		"loan_ulid":   m.LoanULID,
		"borrower_id": m.BorrowerID,
		"title_id":    m.TitleID,
		"copy_no":     m.CopyNo,
		"borrowed_at": m.BorrowedAt,
	}))
	if err != nil {
		return err
	}
	m.LoanID = id
	return nil
}

// GetLoanByKey: 数値なら loan_id、それ以外は loan_ulid として検索する。
// lock=true で行ロックを取る。見つからなければ nil。
func (s *Store) GetLoanByKey(ctx context.Context, q db.DBTX, key string, lock bool) (*Loan, error) {
	ds := s.loans()
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		ds = ds.Where(goqu.I("l.loan_id").Eq(id))
	} else {
		ds = ds.Where(goqu.I("l.loan_ulid").Eq(key))
	}
	if lock {
		ds = s.db.ForUpdate(ds)
	}
	var m Loan
	err := db.Get(ctx, q, &m, ds)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CloseLoan sets the return date once.
func (s *Store) CloseLoan(ctx context.Context, tx db.DBTX, loanID uint64, at time.Time) error {
	n, err := db.ExecAffected(ctx, tx, s.db.Update("loans").
		Set(goqu.Record{"returned_at": at}).
		Where(goqu.C("loan_id").Eq(loanID), goqu.C("returned_at").IsNull()))
	if err != nil {
		return err
	}
	if n != 1 {
		return apperr.Policy(apperr.ReasonAlreadyReturned, "loan already returned")
	}
	return nil
}

func (s *Store) OpenLoans(ctx context.Context, q db.DBTX, borrowerID uint64) ([]Loan, error) {
	var out []Loan
	err := db.Select(ctx, q, &out, s.loans().
		Where(goqu.I("l.borrower_id").Eq(borrowerID), goqu.I("l.returned_at").IsNull()).
		Order(goqu.I("l.borrowed_at").Asc(), goqu.I("l.loan_id").Asc()))
	return out, err
}

func (s *Store) CountOpenLoans(ctx context.Context, q db.DBTX, borrowerID uint64) (int, error) {
	var n int
	err := db.Get(ctx, q, &n, s.db.From("loans").Select(goqu.COUNT("*")).
		Where(goqu.C("borrower_id").Eq(borrowerID), goqu.C("returned_at").IsNull()))
	return n, err
}

// OpenLoanOnCopy returns the open loan on the copy, nil if none.
func (s *Store) OpenLoanOnCopy(ctx context.Context, q db.DBTX, titleID uint64, copyNo int) (*Loan, error) {
	var m Loan
	err := db.Get(ctx, q, &m, s.loans().
		Where(goqu.I("l.title_id").Eq(titleID), goqu.I("l.copy_no").Eq(copyNo), goqu.I("l.returned_at").IsNull()).
		Limit(1))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// History lists a borrower's loans newest first.
func (s *Store) History(ctx context.Context, q db.DBTX, borrowerID uint64) ([]LoanEntry, error) {
	var out []LoanEntry
	err := db.Select(ctx, q, &out, s.loans().
		Join(goqu.T("titles").As("t"), goqu.On(goqu.I("t.title_id").Eq(goqu.I("l.title_id")))).
		SelectAppend(goqu.I("t.name").As("title_name")).
		Where(goqu.I("l.borrower_id").Eq(borrowerID)).
		Order(goqu.I("l.borrowed_at").Desc(), goqu.I("l.loan_id").Desc()))
	return out, err
}

// LoansForTitle lists loans of a title borrowed within [from, to).
func (s *Store) LoansForTitle(ctx context.Context, q db.DBTX, titleID uint64, from, to time.Time) ([]Loan, error) {
	var out []Loan
	err := db.Select(ctx, q, &out, s.loans().
		Where(
			goqu.I("l.title_id").Eq(titleID),
			goqu.I("l.borrowed_at").Gte(from),
			goqu.I("l.borrowed_at").Lt(to),
		).
		Order(goqu.I("l.borrowed_at").Asc()))
	return out, err
}

func (s *Store) openLoansWithNames(ctx context.Context, q db.DBTX) ([]overdueRow, error) {
	var out []overdueRow
	err := db.Select(ctx, q, &out, s.db.From(goqu.T("loans").As("l")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("l.borrower_id")))).
		Join(goqu.T("titles").As("t"), goqu.On(goqu.I("t.title_id").Eq(goqu.I("l.title_id")))).
		Select(
			goqu.I("l.loan_id"), goqu.I("l.loan_ulid"), goqu.I("l.borrower_id"), goqu.I("u.user_name"),
			goqu.I("l.title_id"), goqu.I("t.name").As("title_name"), goqu.I("l.copy_no"), goqu.I("l.borrowed_at"),
		).
		Where(goqu.I("l.returned_at").IsNull()).
		Order(goqu.I("l.borrowed_at").Asc(), goqu.I("l.loan_id").Asc()))
	return out, err
}

// Inventory changes

func (s *Store) AppendChange(ctx context.Context, tx db.DBTX, m *InventoryChange) error {
	id, err := db.InsertID(ctx, tx, s.db.Insert("inventory_changes").Rows(goqu.Record{
		"change_ulid": m.ChangeULID,
		"actor_id":    m.ActorID,
		"actor_name":  m.ActorName,
		"title_id":    m.TitleID,
		"title_name":  m.TitleName,
		"action":      string(m.Action),
		"delta":       m.Delta,
		"created_at":  m.CreatedAt,
	}))
	if err != nil {
		return err
	}
	m.ChangeID = id
	return nil
}

func (s *Store) ListChanges(ctx context.Context, q db.DBTX, limit, offset int) ([]InventoryChange, int64, error) {
	var out []InventoryChange
	err := db.Select(ctx, q, &out, s.db.From("inventory_changes").
		Select("change_id", "change_ulid", "actor_id", "actor_name", "title_id", "title_name", "action", "delta", "created_at").
		Order(goqu.C("created_at").Desc(), goqu.C("change_id").Desc()).
		Limit(uint(limit)).Offset(uint(offset)))
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := db.Get(ctx, q, &total, s.db.From("inventory_changes").Select(goqu.COUNT("*"))); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
