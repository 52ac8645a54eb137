package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"libcirc/internal/platform/db"
)

type Store struct {
	db *db.DB
}

func NewStore(conn *db.DB) *Store { return &Store{db: conn} }

// findOrCreateNamed looks a name up in an authors/categories style table and
// inserts it when absent. A concurrent insert of the same name is resolved by
// the unique index: re-read it under lock.
func (s *Store) findOrCreateNamed(ctx context.Context, tx db.DBTX, table, idCol, name string) (uint64, error) {
	sel := s.db.From(table).Select(idCol).Where(goqu.C("name").Eq(name))

	var id uint64
	err := db.Get(ctx, tx, &id, sel)
	if err == nil {
		return id, nil
	}
	if !db.IsNoRows(err) {
		return 0, err
	}

	id, err = db.InsertID(ctx, tx, s.db.Insert(table).Rows(goqu.Record{"name": name}))
	if err == nil {
		return id, nil
	}
	if !db.IsDuplicateKey(err) {
		return 0, err
	}
	err = db.Get(ctx, tx, &id, s.db.ForUpdate(sel))
	return id, err
}

func (s *Store) FindOrCreateAuthor(ctx context.Context, tx db.DBTX, name string) (uint64, error) {
	return s.findOrCreateNamed(ctx, tx, "authors", "author_id", name)
}

func (s *Store) FindOrCreateCategory(ctx context.Context, tx db.DBTX, name string) (uint64, error) {
	return s.findOrCreateNamed(ctx, tx, "categories", "category_id", name)
}

func (s *Store) titleByName(ctx context.Context, tx db.DBTX, name string) (*Title, error) {
	var t Title
	err := db.Get(ctx, tx, &t, s.db.ForUpdate(s.db.From("titles").
		Select("title_id", "name", "author_id", "quantity").
		Where(goqu.C("name").Eq(name))))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// insertTitle creates an empty title. created reports false when a concurrent
// writer won the race and the existing row was returned instead.
func (s *Store) insertTitle(ctx context.Context, tx db.DBTX, name string, authorID sql.NullInt64, createdBy uint64, at time.Time) (t *Title, created bool, err error) {
	rec := goqu.Record{"name": name, "author_id": authorID, "quantity": 0, "created_at": at}
	if createdBy != 0 {
		rec["created_by"] = createdBy
	}
	id, err := db.InsertID(ctx, tx, s.db.Insert("titles").Rows(rec))
	if err == nil {
		return &Title{TitleID: id, Name: name, AuthorID: authorID}, true, nil
	}
	if !db.IsDuplicateKey(err) {
		return nil, false, err
	}
	t, err = s.titleByName(ctx, tx, name)
	return t, false, err
}

func (s *Store) backfillAuthor(ctx context.Context, tx db.DBTX, titleID, authorID uint64) error {
	_, err := db.Exec(ctx, tx, s.db.Update("titles").
		Set(goqu.Record{"author_id": authorID}).
		Where(goqu.C("title_id").Eq(titleID), goqu.C("author_id").IsNull()))
	return err
}

// linkCategory is idempotent.
func (s *Store) linkCategory(ctx context.Context, tx db.DBTX, titleID, categoryID uint64) error {
	var n int
	err := db.Get(ctx, tx, &n, s.db.From("title_categories").Select(goqu.COUNT("*")).
		Where(goqu.C("title_id").Eq(titleID), goqu.C("category_id").Eq(categoryID)))
	if err != nil || n > 0 {
		return err
	}
	_, err = db.Exec(ctx, tx, s.db.Insert("title_categories").
		Rows(goqu.Record{"title_id": titleID, "category_id": categoryID}))
	if db.IsDuplicateKey(err) {
		return nil
	}
	return err
}

func (s *Store) search(ctx context.Context, q db.DBTX, in SearchQuery) ([]TitleRow, error) {
	avail := goqu.L("COALESCE(SUM(CASE WHEN c.status = ? THEN 1 ELSE 0 END), 0)", "available").As("available_quantity")
	ds := s.db.From(goqu.T("titles").As("t")).
		LeftJoin(goqu.T("authors").As("a"), goqu.On(goqu.I("a.author_id").Eq(goqu.I("t.author_id")))).
		LeftJoin(goqu.T("copies").As("c"), goqu.On(goqu.I("c.title_id").Eq(goqu.I("t.title_id")))).
		Select(
			goqu.I("t.title_id"),
			goqu.I("t.name"),
			goqu.COALESCE(goqu.I("a.name"), "").As("author"),
			goqu.I("t.quantity").As("total_quantity"),
			avail,
		).
		GroupBy(goqu.I("t.title_id"), goqu.I("t.name"), goqu.I("a.name"), goqu.I("t.quantity"))

	if in.Q != "" {
		switch in.By {
		case SearchByAuthor:
			ds = ds.Where(containsExpr(goqu.I("a.name"), in.Q))
		case SearchByCategory:
			sub := s.db.From(goqu.T("title_categories").As("tc")).
				Join(goqu.T("categories").As("g"), goqu.On(goqu.I("g.category_id").Eq(goqu.I("tc.category_id")))).
				Select(goqu.I("tc.title_id")).
				Where(containsExpr(goqu.I("g.name"), in.Q))
			ds = ds.Where(goqu.I("t.title_id").In(sub))
		default:
			ds = ds.Where(containsExpr(goqu.I("t.name"), in.Q))
		}
	}

	ds = ds.Order(orderExpr(in.Sort, in.Order), goqu.I("t.title_id").Asc())

	var out []TitleRow
	if err := db.Select(ctx, q, &out, ds); err != nil {
		return nil, err
	}
	return out, nil
}

// % と _ は文字として扱う
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsExpr matches col containing q literally. ESCAPE '!' works the same on MySQL and SQLite.
func containsExpr(col exp.IdentifierExpression, q string) exp.LiteralExpression {
	return goqu.L("? LIKE ? ESCAPE '!'", col, "%"+likeEscaper.Replace(q)+"%")
}

func orderExpr(sort, order string) exp.OrderedExpression {
	var col exp.Orderable
	switch sort {
	case SortAuthor:
		col = goqu.C("author")
	case SortTotalQuantity:
		col = goqu.C("total_quantity")
	case SortAvailableQuantity:
		col = goqu.C("available_quantity")
	default:
		col = goqu.I("t.name")
	}
	if order == OrderDesc {
		return col.Desc()
	}
	return col.Asc()
}

func (s *Store) categoriesFor(ctx context.Context, q db.DBTX, titleIDs []uint64) ([]titleCategory, error) {
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

func (s *Store) listCategories(ctx context.Context, q db.DBTX) ([]Category, error) {
	var out []Category
	err := db.Select(ctx, q, &out, s.db.From(goqu.T("categories").As("g")).
		LeftJoin(goqu.T("title_categories").As("tc"), goqu.On(goqu.I("tc.category_id").Eq(goqu.I("g.category_id")))).
		Select(goqu.I("g.category_id"), goqu.I("g.name"), goqu.COUNT(goqu.I("tc.title_id")).As("title_count")).
		GroupBy(goqu.I("g.category_id"), goqu.I("g.name")).
		Order(goqu.I("g.name").Asc()))
	return out, err
}

// deleteCategory removes the category and its title links; titles stay.
func (s *Store) deleteCategory(ctx context.Context, tx db.DBTX, id uint64) (int64, error) {
	if _, err := db.Exec(ctx, tx, s.db.Delete("title_categories").Where(goqu.C("category_id").Eq(id))); err != nil {
		return 0, err
	}
	return db.ExecAffected(ctx, tx, s.db.Delete("categories").Where(goqu.C("category_id").Eq(id)))
}
