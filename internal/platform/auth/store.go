package auth

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"libcirc/internal/platform/db"
)

type Account struct {
	UserID       uint64    `db:"user_id"`
	UserName     string    `db:"user_name"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

type AccountStore interface {
	GetByName(ctx context.Context, name string) (*Account, error)
	GetByID(ctx context.Context, q db.DBTX, id uint64) (*Account, error)
	Create(ctx context.Context, a *Account) (uint64, error)
	Delete(ctx context.Context, q db.DBTX, id uint64) (int64, error)
}

type Store struct{ db *db.DB }

func NewStore(conn *db.DB) AccountStore {
	return &Store{db: conn}
}

func (s *Store) accounts() *goqu.SelectDataset {
	return s.db.From("users").Select("user_id", "user_name", "password_hash", "role", "created_at")
}

func (s *Store) GetByName(ctx context.Context, name string) (*Account, error) {
	var a Account
	err := db.Get(ctx, s.db, &a, s.accounts().Where(goqu.C("user_name").Eq(name)).Limit(1))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetByID(ctx context.Context, q db.DBTX, id uint64) (*Account, error) {
	var a Account
	err := db.Get(ctx, q, &a, s.db.ForUpdate(s.accounts().Where(goqu.C("user_id").Eq(id))))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) (uint64, error) {
	return db.InsertID(ctx, s.db, s.db.Insert("users").Rows(goqu.Record{
		"user_name":     a.UserName,
		"password_hash": a.PasswordHash,
		"role":          a.Role,
		"created_at":    a.CreatedAt,
	}))
}

func (s *Store) Delete(ctx context.Context, q db.DBTX, id uint64) (int64, error) {
	return db.ExecAffected(ctx, q, s.db.Delete("users").Where(goqu.C("user_id").Eq(id)))
}
