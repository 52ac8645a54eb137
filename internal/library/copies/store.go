package copies

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"libcirc/internal/platform/db"
)

type Store struct {
	db *db.DB
}

func NewStore(conn *db.DB) *Store { return &Store{db: conn} }

func keyWhere(k Key) []goqu.Expression {
	return []goqu.Expression{goqu.C("title_id").Eq(k.TitleID), goqu.C("copy_no").Eq(k.CopyNo)}
}

// lockTitle locks the title row; copy-no allocation and quantity sync happen under it.
func (s *Store) lockTitle(ctx context.Context, tx db.DBTX, titleID uint64) (*titleRow, error) {
	var t titleRow
	err := db.Get(ctx, tx, &t, s.db.ForUpdate(s.db.From("titles").
		Select("title_id", "name", "quantity").
		Where(goqu.C("title_id").Eq(titleID))))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) titleName(ctx context.Context, q db.DBTX, titleID uint64) (string, bool, error) {
	var name string
	err := db.Get(ctx, q, &name, s.db.From("titles").Select("name").Where(goqu.C("title_id").Eq(titleID)))
	if db.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (s *Store) maxCopyNo(ctx context.Context, tx db.DBTX, titleID uint64) (int, error) {
	var n int
	err := db.Get(ctx, tx, &n, s.db.From("copies").
		Select(goqu.COALESCE(goqu.MAX("copy_no"), 0)).
		Where(goqu.C("title_id").Eq(titleID)))
	return n, err
}

func (s *Store) countCopies(ctx context.Context, tx db.DBTX, titleID uint64) (int, error) {
	var n int
	err := db.Get(ctx, tx, &n, s.db.From("copies").
		Select(goqu.COUNT("*")).
		Where(goqu.C("title_id").Eq(titleID)))
	return n, err
}

func (s *Store) insertCopies(ctx context.Context, tx db.DBTX, titleID uint64, first, count int) ([]Key, error) {
	rows := make([]any, 0, count)
	keys := make([]Key, 0, count)
	for i := 0; i < count; i++ {
		no := first + i
		rows = append(rows, goqu.Record{"title_id": titleID, "copy_no": no, "status": string(StatusAvailable)})
		keys = append(keys, Key{TitleID: titleID, CopyNo: no})
	}
	if _, err := db.Exec(ctx, tx, s.db.Insert("copies").Rows(rows...)); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) addQuantity(ctx context.Context, tx db.DBTX, titleID uint64, delta int) error {
	_, err := db.Exec(ctx, tx, s.db.Update("titles").
		Set(goqu.Record{"quantity": goqu.L("quantity + ?", delta)}).
		Where(goqu.C("title_id").Eq(titleID)))
	return err
}

func (s *Store) setQuantity(ctx context.Context, tx db.DBTX, titleID uint64, qty int) error {
	_, err := db.Exec(ctx, tx, s.db.Update("titles").
		Set(goqu.Record{"quantity": qty}).
		Where(goqu.C("title_id").Eq(titleID)))
	return err
}

func (s *Store) deleteTitle(ctx context.Context, tx db.DBTX, titleID uint64) error {
	_, err := db.Exec(ctx, tx, s.db.Delete("titles").Where(goqu.C("title_id").Eq(titleID)))
	return err
}

// lockCopy returns the copy under a row lock, nil if it does not exist.
func (s *Store) lockCopy(ctx context.Context, tx db.DBTX, k Key) (*Copy, error) {
	var c Copy
	err := db.Get(ctx, tx, &c, s.db.ForUpdate(s.db.From("copies").
		Select("title_id", "copy_no", "status").
		Where(keyWhere(k)...)))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) setStatus(ctx context.Context, tx db.DBTX, k Key, st Status) (int64, error) {
	return db.ExecAffected(ctx, tx, s.db.Update("copies").
		Set(goqu.Record{"status": string(st)}).
		Where(keyWhere(k)...))
}

func (s *Store) deleteCopy(ctx context.Context, tx db.DBTX, k Key) (int64, error) {
	return db.ExecAffected(ctx, tx, s.db.Delete("copies").Where(keyWhere(k)...))
}

func (s *Store) hasOpenLoan(ctx context.Context, tx db.DBTX, k Key) (bool, error) {
	var n int
	err := db.Get(ctx, tx, &n, s.db.From("loans").
		Select(goqu.COUNT("*")).
		Where(append(keyWhere(k), goqu.C("returned_at").IsNull())...))
	return n > 0, err
}

func (s *Store) listByTitle(ctx context.Context, q db.DBTX, titleID uint64) ([]copyRow, error) {
	var out []copyRow
	err := db.Select(ctx, q, &out, s.db.From(goqu.T("copies").As("c")).
		LeftJoin(goqu.T("loans").As("l"), goqu.On(
			goqu.I("l.title_id").Eq(goqu.I("c.title_id")),
			goqu.I("l.copy_no").Eq(goqu.I("c.copy_no")),
			goqu.I("l.returned_at").IsNull(),
		)).
		LeftJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("l.borrower_id")))).
		Select(
			goqu.I("c.title_id"), goqu.I("c.copy_no"), goqu.I("c.status"),
			goqu.I("l.loan_id"), goqu.I("l.borrower_id"), goqu.I("u.user_name"), goqu.I("l.borrowed_at"),
		).
		Where(goqu.I("c.title_id").Eq(titleID)).
		Order(goqu.I("c.copy_no").Asc()))
	return out, err
}
