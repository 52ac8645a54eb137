package copies

import (
	"context"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
	"libcirc/internal/platform/db"
	"libcirc/internal/platform/db/dbtest"
	"libcirc/internal/platform/logging"
)

var admin = auth.Actor{UserID: 1, Name: "admin", Role: auth.RoleAdmin}

func newTestRegistry(t *testing.T) (*Registry, *db.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	led := ledger.New(conn, ledger.ClockFunc(func() time.Time {
		return time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	}))
	return NewRegistry(conn, led, logging.Discard()), conn
}

func quantityOf(t *testing.T, conn *db.DB, titleID uint64) int {
	t.Helper()
	var q int
	require.NoError(t, db.Get(context.Background(), conn, &q,
		conn.From("titles").Select("quantity").Where(goqu.C("title_id").Eq(titleID))))
	return q
}

func changes(t *testing.T, conn *db.DB) []ledger.InventoryChange {
	t.Helper()
	var out []ledger.InventoryChange
	require.NoError(t, db.Select(context.Background(), conn, &out,
		conn.From("inventory_changes").Order(goqu.C("change_id").Asc())))
	return out
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey(" 12-3 ")
	require.NoError(t, err)
	assert.Equal(t, Key{TitleID: 12, CopyNo: 3}, k)
	assert.Equal(t, "12-3", k.String())

	for _, bad := range []string{"", "12", "12-", "-3", "0-1", "12-0", "12--3", "a-1", "1-b"} {
		_, err := ParseKey(bad)
		assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err), bad)
	}
}

func TestAddCopiesNumbersFromMax(t *testing.T) {
	r, conn := newTestRegistry(t)
	ctx := context.Background()
	title := dbtest.Title(t, conn, "Dune", 2)

	res, err := r.AddCopies(ctx, admin, title, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{keyOf(title, 3), keyOf(title, 4)}, res.Copies)
	assert.Equal(t, 4, quantityOf(t, conn, title))

	// 欠番があっても MAX+1 から振る
	_, err = r.RemoveCopy(ctx, admin, Key{TitleID: title, CopyNo: 2})
	require.NoError(t, err)
	res, err = r.AddCopies(ctx, admin, title, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{keyOf(title, 5)}, res.Copies)
	assert.Equal(t, 4, quantityOf(t, conn, title))

	ch := changes(t, conn)
	require.Len(t, ch, 3)
	assert.Equal(t, ledger.ActionAdd, ch[0].Action)
	assert.Equal(t, 2, ch[0].Delta)
	assert.Equal(t, "Dune", ch[0].TitleName)
	assert.Equal(t, ledger.ActionRemove, ch[1].Action)
	assert.Equal(t, -1, ch[1].Delta)
}

func TestAddCopiesValidation(t *testing.T) {
	r, conn := newTestRegistry(t)
	title := dbtest.Title(t, conn, "Dune", 1)

	_, err := r.AddCopies(context.Background(), admin, title, 0)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = r.AddCopies(context.Background(), admin, 999, 1)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	assert.Empty(t, changes(t, conn))
}

func TestRemoveLastCopyDeletesTitle(t *testing.T) {
	r, conn := newTestRegistry(t)
	ctx := context.Background()
	title := dbtest.Title(t, conn, "Foundation", 1)

	res, err := r.RemoveCopy(ctx, admin, Key{TitleID: title, CopyNo: 1})
	require.NoError(t, err)
	assert.True(t, res.TitleDeleted)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, "Foundation", res.TitleName)

	_, err = r.ListCopies(ctx, title)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	// 書名はスナップショットとして残る
	ch := changes(t, conn)
	require.Len(t, ch, 1)
	assert.Equal(t, "Foundation", ch[0].TitleName)
	assert.Equal(t, title, ch[0].TitleID)
}

func TestRemoveCopyRefusesBorrowed(t *testing.T) {
	r, conn := newTestRegistry(t)
	ctx := context.Background()
	title := dbtest.Title(t, conn, "Dune", 2)
	u := dbtest.User(t, conn, "alice", auth.RoleUser)
	k := Key{TitleID: title, CopyNo: 1}

	require.NoError(t, conn.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := r.ledger.OpenLoan(ctx, tx, u, title, 1, r.ledger.Now()); err != nil {
			return err
		}
		return r.SetStatus(ctx, tx, k, StatusBorrowed)
	}))

	_, err := r.RemoveCopy(ctx, admin, k)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.Equal(t, apperr.ReasonBorrowed, apperr.ReasonOf(err))
	assert.Equal(t, 2, quantityOf(t, conn, title))
	assert.Empty(t, changes(t, conn))

	_, err = r.RemoveCopy(ctx, admin, Key{TitleID: title, CopyNo: 9})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestListCopiesShowsBorrower(t *testing.T) {
	r, conn := newTestRegistry(t)
	ctx := context.Background()
	title := dbtest.Title(t, conn, "Dune", 2)
	u := dbtest.User(t, conn, "alice", auth.RoleUser)

	require.NoError(t, conn.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := r.ledger.OpenLoan(ctx, tx, u, title, 2, r.ledger.Now()); err != nil {
			return err
		}
		return r.SetStatus(ctx, tx, Key{TitleID: title, CopyNo: 2}, StatusBorrowed)
	}))

	res, err := r.ListCopies(ctx, title)
	require.NoError(t, err)
	assert.Equal(t, "Dune", res.Name)
	require.Len(t, res.Copies, 2)

	assert.Equal(t, StatusAvailable, res.Copies[0].Status)
	assert.Nil(t, res.Copies[0].Borrower)

	assert.Equal(t, StatusBorrowed, res.Copies[1].Status)
	require.NotNil(t, res.Copies[1].Borrower)
	assert.Equal(t, "alice", *res.Copies[1].Borrower)
	require.NotNil(t, res.Copies[1].BorrowerID)
	assert.Equal(t, u, *res.Copies[1].BorrowerID)
}

func TestSetStatus(t *testing.T) {
	r, conn := newTestRegistry(t)
	ctx := context.Background()
	title := dbtest.Title(t, conn, "Dune", 1)

	err := conn.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		return r.SetStatus(ctx, tx, Key{TitleID: title, CopyNo: 1}, "shelved")
	})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	err = conn.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		return r.SetStatus(ctx, tx, Key{TitleID: title, CopyNo: 7}, StatusLost)
	})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	// 同じ値への更新もエラーにしない
	err = conn.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		return r.SetStatus(ctx, tx, Key{TitleID: title, CopyNo: 1}, StatusAvailable)
	})
	assert.NoError(t, err)
}

func keyOf(titleID uint64, n int) string { return Key{TitleID: titleID, CopyNo: n}.String() }
