package stats

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/db"
)

type Store struct {
	db *db.DB
}

func NewStore(conn *db.DB) *Store { return &Store{db: conn} }

var loanCols = []any{"loan_id", "loan_ulid", "borrower_id", "title_id", "copy_no", "borrowed_at", "returned_at"}

func (s *Store) titleIDs(ctx context.Context, q db.DBTX) ([]uint64, error) {
	var out []uint64
	err := db.Select(ctx, q, &out, s.db.From("titles").Select("title_id").Order(goqu.C("title_id").Asc()))
	return out, err
}

func (s *Store) copyStatuses(ctx context.Context, q db.DBTX) ([]copyStatus, error) {
	var out []copyStatus
	err := db.Select(ctx, q, &out, s.db.From("copies").Select("title_id", "status"))
	return out, err
}

func (s *Store) allLoans(ctx context.Context, q db.DBTX) ([]ledger.Loan, error) {
	var out []ledger.Loan
	err := db.Select(ctx, q, &out, s.db.From("loans").Select(loanCols...))
	return out, err
}

// loansBetween returns loans borrowed in [from, until).
func (s *Store) loansBetween(ctx context.Context, q db.DBTX, from, until time.Time) ([]ledger.Loan, error) {
	var out []ledger.Loan
	err := db.Select(ctx, q, &out, s.db.From("loans").Select(loanCols...).
		Where(goqu.C("borrowed_at").Gte(from), goqu.C("borrowed_at").Lt(until)).
		Order(goqu.C("loan_id").Asc()))
	return out, err
}

func (s *Store) categoriesOf(ctx context.Context, q db.DBTX, titleIDs []uint64) ([]titleCategory, error) {
	if len(titleIDs) == 0 {
		return nil, nil
	}
	var out []titleCategory
	err := db.Select(ctx, q, &out, s.db.From(goqu.T("title_categories").As("tc")).
		Join(goqu.T("categories").As("g"), goqu.On(goqu.I("g.category_id").Eq(goqu.I("tc.category_id")))).
		Select(goqu.I("tc.title_id"), goqu.I("g.name")).
		Where(goqu.I("tc.title_id").In(titleIDs)).
		Order(goqu.I("g.name").Asc()))
	return out, err
}

func (s *Store) replaceBookUsage(ctx context.Context, tx db.DBTX, rows []BookUsage) error {
	if _, err := db.Exec(ctx, tx, s.db.Delete("book_usage_stats")); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	recs := make([]any, len(rows))
	for i, r := range rows {
		recs[i] = goqu.Record{
			"title_id":        r.TitleID,
			"borrow_count":    r.BorrowCount,
			"avg_loan_days":   r.AvgLoanDays,
			"available_ratio": r.AvailableRatio,
			"evaluated_at":    r.EvaluatedAt,
		}
	}
	_, err := db.Exec(ctx, tx, s.db.Insert("book_usage_stats").Rows(recs...))
	return err
}

// replaceUserBorrow swaps the snapshot of exactly one period.
func (s *Store) replaceUserBorrow(ctx context.Context, tx db.DBTX, p Period, rows []UserBorrow) error {
	if _, err := db.Exec(ctx, tx, s.db.Delete("user_borrow_stats").
		Where(goqu.C("period_start").Eq(p.Start), goqu.C("period_end").Eq(p.End))); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	recs := make([]any, len(rows))
	for i, r := range rows {
		recs[i] = goqu.Record{
			"user_id":           r.UserID,
			"period_start":      r.PeriodStart,
			"period_end":        r.PeriodEnd,
			"total_borrowed":    r.TotalBorrowed,
			"overdue_count":     r.OverdueCount,
			"favorite_category": r.FavoriteCategory,
			"evaluated_at":      r.EvaluatedAt,
		}
	}
	_, err := db.Exec(ctx, tx, s.db.Insert("user_borrow_stats").Rows(recs...))
	return err
}

type bookUsageRow struct {
	BookUsage
	Name string `db:"name"`
}

func (s *Store) listBookUsage(ctx context.Context, q db.DBTX) ([]bookUsageRow, error) {
	var out []bookUsageRow
	err := db.Select(ctx, q, &out, s.db.From(goqu.T("book_usage_stats").As("b")).
		Join(goqu.T("titles").As("t"), goqu.On(goqu.I("t.title_id").Eq(goqu.I("b.title_id")))).
		Select(
			goqu.I("b.title_id"), goqu.I("t.name"), goqu.I("b.borrow_count"),
			goqu.I("b.avg_loan_days"), goqu.I("b.available_ratio"), goqu.I("b.evaluated_at"),
		).
		Order(goqu.I("b.borrow_count").Desc(), goqu.I("t.name").Asc()))
	return out, err
}

type userBorrowRow struct {
	UserBorrow
	UserName string `db:"user_name"`
}

func (s *Store) listUserBorrow(ctx context.Context, q db.DBTX, p Period) ([]userBorrowRow, error) {
	var out []userBorrowRow
	err := db.Select(ctx, q, &out, s.db.From(goqu.T("user_borrow_stats").As("s")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("s.user_id")))).
		Select(
			goqu.I("s.user_id"), goqu.I("u.user_name"), goqu.I("s.period_start"), goqu.I("s.period_end"),
			goqu.I("s.total_borrowed"), goqu.I("s.overdue_count"), goqu.I("s.favorite_category"), goqu.I("s.evaluated_at"),
		).
		Where(goqu.I("s.period_start").Eq(p.Start), goqu.I("s.period_end").Eq(p.End)).
		Order(goqu.I("s.total_borrowed").Desc(), goqu.I("u.user_name").Asc()))
	return out, err
}

type popularRow struct {
	TitleID     uint64 `db:"title_id"`
	Name        string `db:"name"`
	Author      string `db:"author"`
	BorrowCount int    `db:"borrow_count"`
}

// popular ranks titles by loans since `since`, optionally within one category.
func (s *Store) popular(ctx context.Context, q db.DBTX, since time.Time, categoryID uint64, limit uint) ([]popularRow, error) {
	ds := s.db.From(goqu.T("loans").As("l")).
		Join(goqu.T("titles").As("t"), goqu.On(goqu.I("t.title_id").Eq(goqu.I("l.title_id")))).
		LeftJoin(goqu.T("authors").As("a"), goqu.On(goqu.I("a.author_id").Eq(goqu.I("t.author_id")))).
		Select(
			goqu.I("t.title_id"), goqu.I("t.name"),
			goqu.COALESCE(goqu.I("a.name"), "").As("author"),
			goqu.COUNT(goqu.I("l.loan_id")).As("borrow_count"),
		).
		Where(goqu.I("l.borrowed_at").Gte(since)).
		GroupBy(goqu.I("t.title_id"), goqu.I("t.name"), goqu.I("a.name")).
		Order(goqu.C("borrow_count").Desc(), goqu.I("t.name").Asc()).
		Limit(limit)
	if categoryID != 0 {
		ds = ds.Where(goqu.I("t.title_id").In(
			s.db.From("title_categories").Select("title_id").Where(goqu.C("category_id").Eq(categoryID)),
		))
	}
	var out []popularRow
	err := db.Select(ctx, q, &out, ds)
	return out, err
}

type categoryRef struct {
	CategoryID uint64 `db:"category_id"`
	Name       string `db:"name"`
}

func (s *Store) categories(ctx context.Context, q db.DBTX) ([]categoryRef, error) {
	var out []categoryRef
	err := db.Select(ctx, q, &out, s.db.From("categories").Select("category_id", "name").Order(goqu.C("name").Asc()))
	return out, err
}
