package stats

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/db"
)

const (
	popularLimit  = 10
	popularMonths = 3
)

// Aggregator rebuilds the statistics snapshots from loans and copies. It
// never touches the lending write path; each refresh is one transaction so
// readers never see a half-replaced snapshot.
type Aggregator struct {
	db    *db.DB
	store *Store
	clock ledger.Clock
	log   *log.Logger
}

func NewAggregator(conn *db.DB, clock ledger.Clock, logger *log.Logger) *Aggregator {
	if clock == nil {
		clock = ledger.RealClock{}
	}
	return &Aggregator{db: conn, store: NewStore(conn), clock: clock, log: logger}
}

// RefreshBookUsage replaces the whole book usage snapshot, aging open loans to at.
// A zero at means now.
func (a *Aggregator) RefreshBookUsage(ctx context.Context, at time.Time) error {
	if at.IsZero() {
		at = a.clock.Now()
	}
	var n int
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		ids, err := a.store.titleIDs(ctx, tx)
		if err != nil {
			return err
		}
		cps, err := a.store.copyStatuses(ctx, tx)
		if err != nil {
			return err
		}
		loans, err := a.store.allLoans(ctx, tx)
		if err != nil {
			return err
		}
		rows := ComputeBookUsage(ids, cps, loans, at)
		n = len(rows)
		return a.store.replaceBookUsage(ctx, tx, rows)
	})
	if err != nil {
		return err
	}
	a.log.Debug("book usage refreshed", "titles", n, "evaluated_at", at)
	return nil
}

// RefreshUserBorrow replaces the user snapshot of exactly period p.
func (a *Aggregator) RefreshUserBorrow(ctx context.Context, p Period) error {
	now := a.clock.Now()
	eval := p.EvaluationDate(now)
	var n int
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		loans, err := a.store.loansBetween(ctx, tx, p.Start, p.Until())
		if err != nil {
			return err
		}
		cats, err := a.store.categoriesOf(ctx, tx, distinctTitles(loans))
		if err != nil {
			return err
		}
		rows := ComputeUserBorrow(p, eval, loans, cats)
		n = len(rows)
		return a.store.replaceUserBorrow(ctx, tx, p, rows)
	})
	if err != nil {
		return err
	}
	a.log.Debug("user stats refreshed", "period", p.Label, "users", n, "evaluated_on", eval.Format(time.DateOnly))
	return nil
}

// RefreshAll is what the scheduler runs: book usage now and the current month.
func (a *Aggregator) RefreshAll(ctx context.Context) error {
	now := a.clock.Now()
	if err := a.RefreshBookUsage(ctx, now); err != nil {
		return err
	}
	return a.RefreshUserBorrow(ctx, MonthOf(now))
}

func (a *Aggregator) BookUsage(ctx context.Context, refresh bool) ([]BookUsageResponse, error) {
	if refresh {
		if err := a.RefreshBookUsage(ctx, time.Time{}); err != nil {
			return nil, err
		}
	}
	var rows []bookUsageRow
	err := a.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		rows, err = a.store.listBookUsage(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]BookUsageResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toBookUsageResponse(r))
	}
	return out, nil
}

func (a *Aggregator) UserBorrow(ctx context.Context, p Period, refresh bool) (UserBorrowResult, error) {
	if refresh {
		if err := a.RefreshUserBorrow(ctx, p); err != nil {
			return UserBorrowResult{}, err
		}
	}
	var rows []userBorrowRow
	err := a.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		rows, err = a.store.listUserBorrow(ctx, tx, p)
		return err
	})
	if err != nil {
		return UserBorrowResult{}, err
	}
	res := UserBorrowResult{Period: p, Items: make([]UserBorrowResponse, 0, len(rows))}
	for _, r := range rows {
		res.Items = append(res.Items, toUserBorrowResponse(r))
	}
	return res, nil
}

// Popular returns the top titles of the last three months overall and for one
// category. categoryID 0 picks the first category by name.
func (a *Aggregator) Popular(ctx context.Context, categoryID uint64) (PopularResult, error) {
	since := a.clock.Now().AddDate(0, -popularMonths, 0)
	var res PopularResult
	err := a.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		cats, err := a.store.categories(ctx, tx)
		if err != nil {
			return err
		}
		overall, err := a.store.popular(ctx, tx, since, 0, popularLimit)
		if err != nil {
			return err
		}
		if categoryID == 0 && len(cats) > 0 {
			categoryID = cats[0].CategoryID
		}
		var inCat []popularRow
		for _, c := range cats {
			if c.CategoryID != categoryID {
				continue
			}
			res.Category = &CategoryResponse{CategoryID: c.CategoryID, Name: c.Name}
			inCat, err = a.store.popular(ctx, tx, since, categoryID, popularLimit)
			if err != nil {
				return err
			}
		}

		ids := append(titleIDsOf(overall), titleIDsOf(inCat)...)
		tcs, err := a.store.categoriesOf(ctx, tx, ids)
		if err != nil {
			return err
		}
		names := map[uint64][]string{}
		for _, tc := range tcs {
			names[tc.TitleID] = appendUnique(names[tc.TitleID], tc.Name)
		}
		res.Overall = toPopular(overall, names)
		res.InCategory = toPopular(inCat, names)
		res.Categories = make([]CategoryResponse, len(cats))
		for i, c := range cats {
			res.Categories[i] = CategoryResponse{CategoryID: c.CategoryID, Name: c.Name}
		}
		return nil
	})
	if err != nil {
		return PopularResult{}, err
	}
	res.Since = since
	return res, nil
}

func distinctTitles(loans []ledger.Loan) []uint64 {
	seen := map[uint64]struct{}{}
	var out []uint64
	for _, l := range loans {
		if _, ok := seen[l.TitleID]; ok {
			continue
		}
		seen[l.TitleID] = struct{}{}
		out = append(out, l.TitleID)
	}
	return out
}

func titleIDsOf(rows []popularRow) []uint64 {
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.TitleID
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
