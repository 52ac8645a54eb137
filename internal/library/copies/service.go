package copies

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
	"libcirc/internal/platform/db"
)

// Registry owns copy identity and lifecycle, and keeps titles.quantity in
// step with the copies table.
type Registry struct {
	db     *db.DB
	store  *Store
	ledger *ledger.Ledger
	log    *log.Logger
}

func NewRegistry(conn *db.DB, led *ledger.Ledger, logger *log.Logger) *Registry {
	return &Registry{
		db:     conn,
		store:  NewStore(conn),
		ledger: led,
		log:    logger,
	}
}

// AddCopiesTx allocates count available copies numbered from MAX(copy_no)+1
// and raises the title quantity by count. It runs inside the caller's tx.
func (r *Registry) AddCopiesTx(ctx context.Context, tx db.DBTX, titleID uint64, count int) ([]Key, error) {
	if count <= 0 {
		return nil, apperr.Validation("quantity must be > 0")
	}
	t, err := r.store.lockTitle(ctx, tx, titleID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("title not found")
	}
	maxNo, err := r.store.maxCopyNo(ctx, tx, titleID)
	if err != nil {
		return nil, err
	}
	keys, err := r.store.insertCopies(ctx, tx, titleID, maxNo+1, count)
	if err != nil {
		return nil, err
	}
	if err := r.store.addQuantity(ctx, tx, titleID, count); err != nil {
		return nil, err
	}
	return keys, nil
}

// AddCopies adds copies to an existing title and records the change.
func (r *Registry) AddCopies(ctx context.Context, actor auth.Actor, titleID uint64, count int) (AddCopiesResponse, error) {
	var keys []Key
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		keys, err = r.AddCopiesTx(ctx, tx, titleID, count)
		if err != nil {
			return err
		}
		name, _, err := r.store.titleName(ctx, tx, titleID)
		if err != nil {
			return err
		}
		_, err = r.ledger.RecordChange(ctx, tx, actor, titleID, name, ledger.ActionAdd, count)
		return err
	})
	if err != nil {
		return AddCopiesResponse{}, err
	}
	r.log.Info("copies added", "title_id", titleID, "count", count, "actor", actor.Name)
	return AddCopiesResponse{TitleID: titleID, Copies: keyStrings(keys)}, nil
}

// RemoveCopy deletes one copy that is not on loan. The title goes with its
// last copy; otherwise its quantity becomes the remaining copy count.
func (r *Registry) RemoveCopy(ctx context.Context, actor auth.Actor, k Key) (RemovedCopy, error) {
	res := RemovedCopy{Key: k}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		t, err := r.store.lockTitle(ctx, tx, k.TitleID)
		if err != nil {
			return err
		}
		c, err := r.store.lockCopy(ctx, tx, k)
		if err != nil {
			return err
		}
		if t == nil || c == nil {
			return apperr.NotFound("copy not found")
		}
		open, err := r.store.hasOpenLoan(ctx, tx, k)
		if err != nil {
			return err
		}
		if open || c.Status == StatusBorrowed {
			return apperr.Conflict(apperr.ReasonBorrowed, "copy is currently borrowed")
		}

		if _, err := r.store.deleteCopy(ctx, tx, k); err != nil {
			return err
		}
		remaining, err := r.store.countCopies(ctx, tx, k.TitleID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := r.store.deleteTitle(ctx, tx, k.TitleID); err != nil {
				return err
			}
			res.TitleDeleted = true
		} else if err := r.store.setQuantity(ctx, tx, k.TitleID, remaining); err != nil {
			return err
		}
		res.Remaining = remaining

		// 書名はタイトル削除後も残るようスナップショットで記録
		res.TitleName = t.Name
		if res.TitleName == "" {
			res.TitleName = fmt.Sprintf("Book #%d", k.TitleID)
		}
		change, err := r.ledger.RecordChange(ctx, tx, actor, k.TitleID, res.TitleName, ledger.ActionRemove, -1)
		if err != nil {
			return err
		}
		res.RemovedAt = change.CreatedAt
		return nil
	})
	if err != nil {
		return RemovedCopy{}, err
	}
	r.log.Info("copy removed", "copy", k.String(), "title_deleted", res.TitleDeleted, "remaining", res.Remaining, "actor", actor.Name)
	return res, nil
}

// Lock returns the copy under a row lock inside tx, nil when it does not exist.
func (r *Registry) Lock(ctx context.Context, tx db.DBTX, k Key) (*Copy, error) {
	return r.store.lockCopy(ctx, tx, k)
}

// SetStatus is used by lending only; it checks nothing beyond existence.
func (r *Registry) SetStatus(ctx context.Context, tx db.DBTX, k Key, st Status) error {
	if !st.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown copy status %q", st))
	}
	n, err := r.store.setStatus(ctx, tx, k, st)
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL は値が変わらない UPDATE を 0 件と数えるので存在を確かめ直す
		c, err := r.store.lockCopy(ctx, tx, k)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.NotFound("copy not found")
		}
	}
	return nil
}

// ListCopies returns the copies of a title with their current borrower.
func (r *Registry) ListCopies(ctx context.Context, titleID uint64) (TitleCopiesResponse, error) {
	var (
		name string
		rows []copyRow
	)
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx db.DBTX) error {
		n, ok, err := r.store.titleName(ctx, tx, titleID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("title not found")
		}
		name = n
		rows, err = r.store.listByTitle(ctx, tx, titleID)
		return err
	})
	if err != nil {
		return TitleCopiesResponse{}, err
	}
	out := TitleCopiesResponse{TitleID: titleID, Name: name, Copies: make([]CopyResponse, 0, len(rows))}
	for _, row := range rows {
		out.Copies = append(out.Copies, toCopyResponse(row))
	}
	return out, nil
}

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
