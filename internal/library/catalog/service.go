package catalog

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"

	"libcirc/internal/library/copies"
	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
	"libcirc/internal/platform/db"
)

type Service struct {
	db       *db.DB
	store    *Store
	registry *copies.Registry
	ledger   *ledger.Ledger
	log      *log.Logger
}

func NewService(conn *db.DB, registry *copies.Registry, led *ledger.Ledger, logger *log.Logger) *Service {
	return &Service{
		db:       conn,
		store:    NewStore(conn),
		registry: registry,
		ledger:   led,
		log:      logger,
	}
}

// AddTitle finds a title by exact name or creates it, resolves its author and
// categories the same way, allocates the new copies and records the change.
// Everything happens in one transaction.
func (s *Service) AddTitle(ctx context.Context, actor auth.Actor, in AddTitleRequest) (AddTitleResponse, error) {
	name := NormalizeName(in.Name)
	if name == "" {
		return AddTitleResponse{}, apperr.Validation("name required")
	}
	if in.Quantity <= 0 {
		return AddTitleResponse{}, apperr.Validation("quantity must be > 0")
	}
	authorName := NormalizeName(in.Author)
	categories := normalizeAll(in.Categories)

	var res AddTitleResponse
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		var authorID sql.NullInt64
		if authorName != "" {
			id, err := s.store.FindOrCreateAuthor(ctx, tx, authorName)
			if err != nil {
				return err
			}
			authorID = sql.NullInt64{Int64: int64(id), Valid: true}
		}

		t, err := s.store.titleByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if t == nil {
			t, res.Created, err = s.store.insertTitle(ctx, tx, name, authorID, actor.UserID, s.ledger.Now())
			if err != nil {
				return err
			}
		}
		if !t.AuthorID.Valid && authorID.Valid {
			if err := s.store.backfillAuthor(ctx, tx, t.TitleID, uint64(authorID.Int64)); err != nil {
				return err
			}
		}

		for _, c := range categories {
			cid, err := s.store.FindOrCreateCategory(ctx, tx, c)
			if err != nil {
				return err
			}
			if err := s.store.linkCategory(ctx, tx, t.TitleID, cid); err != nil {
				return err
			}
		}

		keys, err := s.registry.AddCopiesTx(ctx, tx, t.TitleID, in.Quantity)
		if err != nil {
			return err
		}
		if _, err := s.ledger.RecordChange(ctx, tx, actor, t.TitleID, name, ledger.ActionAdd, in.Quantity); err != nil {
			return err
		}

		res.TitleID = t.TitleID
		res.Copies = make([]string, len(keys))
		for i, k := range keys {
			res.Copies[i] = k.String()
		}
		return nil
	})
	if err != nil {
		return AddTitleResponse{}, err
	}
	s.log.Info("title stocked", "title_id", res.TitleID, "name", name, "created", res.Created, "quantity", in.Quantity, "actor", actor.Name)
	return res, nil
}

// Search is read-only and never rejects sort input; bad values fall back to name/asc.
func (s *Service) Search(ctx context.Context, in SearchQuery) (SearchResult, error) {
	in = in.normalize()
	var (
		rows []TitleRow
		cats []titleCategory
	)
	err := s.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		rows, err = s.store.search(ctx, tx, in)
		if err != nil {
			return err
		}
		ids := make([]uint64, len(rows))
		for i, r := range rows {
			ids[i] = r.TitleID
		}
		cats, err = s.store.categoriesFor(ctx, tx, ids)
		return err
	})
	if err != nil {
		return SearchResult{}, err
	}

	byTitle := make(map[uint64][]string, len(rows))
	for _, c := range cats {
		byTitle[c.TitleID] = append(byTitle[c.TitleID], c.Name)
	}
	items := make([]TitleResponse, 0, len(rows))
	for _, r := range rows {
		names := byTitle[r.TitleID]
		if names == nil {
			names = []string{}
		}
		items = append(items, TitleResponse{
			TitleID:           r.TitleID,
			Name:              r.Name,
			Author:            r.Author,
			Categories:        names,
			TotalQuantity:     r.TotalQuantity,
			AvailableQuantity: r.AvailableQuantity,
		})
	}
	return SearchResult{Items: items, SearchBy: in.By, Query: in.Q, SortBy: in.Sort, SortOrder: in.Order}, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		out, err = s.store.listCategories(ctx, tx)
		return err
	})
	return out, err
}

// DeleteCategory drops a category and its links in one transaction.
func (s *Service) DeleteCategory(ctx context.Context, id uint64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		n, err := s.store.deleteCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("category not found")
		}
		return nil
	})
}

// normalizeAll drops blanks and duplicates, keeping first-seen order.
func normalizeAll(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = NormalizeName(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
