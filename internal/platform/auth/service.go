package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/db"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor is the authenticated principal handed to every operation that
// needs to know who is acting.
type Actor struct {
	UserID uint64
	Name   string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// OpenLoanCounter reports open loans held by a borrower inside tx.
type OpenLoanCounter interface {
	CountOpenLoans(ctx context.Context, tx db.DBTX, borrowerID uint64) (int, error)
}

type Options struct {
	JWTSecret []byte
	AdminCode string
	TokenTTL  time.Duration
}

type Service struct {
	db    *db.DB
	store AccountStore
	loans OpenLoanCounter
	opts  Options
	now   func() time.Time
}

func NewService(conn *db.DB, loans OpenLoanCounter, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Service{
		db:    conn,
		store: NewStore(conn),
		loans: loans,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

type AuthService interface {
	Login(ctx context.Context, name, password string) (string, error)
	Register(ctx context.Context, in RegisterRequest) (uint64, error)
	Delete(ctx context.Context, id uint64) error
}

func (s *Service) Login(ctx context.Context, name, password string) (string, error) {
	acct, err := s.store.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return "", apperr.Internal(err)
	}
	if acct == nil {
		return "", apperr.Unauthorized("invalid user name or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", apperr.Unauthorized("invalid user name or password")
	}
	return s.IssueToken(Actor{UserID: acct.UserID, Name: acct.UserName, Role: acct.Role})
}

func (s *Service) IssueToken(a Actor) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(a.UserID, 10),
		"name": a.Name,
		"role": a.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.opts.TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.opts.JWTSecret)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}

// Register creates a borrower or, with the configured admin code, an admin.
func (s *Service) Register(ctx context.Context, in RegisterRequest) (uint64, error) {
	name := strings.TrimSpace(in.UserName)
	if name == "" || in.Password == "" {
		return 0, apperr.Validation("user_name and password are required")
	}
	role := RoleUser
	if in.Role != nil && *in.Role != "" {
		role = *in.Role
	}
	switch role {
	case RoleUser:
	case RoleAdmin:
		// 管理者登録は設定ファイルの admin_code と一致した場合のみ
		if s.opts.AdminCode == "" || subtle.ConstantTimeCompare([]byte(in.AdminCode), []byte(s.opts.AdminCode)) != 1 {
			return 0, apperr.Forbidden("invalid admin code")
		}
	default:
		return 0, apperr.Validation("role must be user or admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	id, err := s.store.Create(ctx, &Account{
		UserName:     name,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	})
	if db.IsDuplicateKey(err) {
		return 0, apperr.Conflict(apperr.ReasonDuplicate, "user name already exists")
	}
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return id, nil
}

// Delete removes an account. Accounts still holding books are refused;
// otherwise their loan history cascades away with them.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		acct, err := s.store.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if acct == nil {
			return apperr.NotFound("account not found")
		}
		open, err := s.loans.CountOpenLoans(ctx, tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperr.Conflict(apperr.ReasonOpenLoans, fmt.Sprintf("account still has %d open loans", open))
		}
		if _, err := s.store.Delete(ctx, tx, id); err != nil {
			return err
		}
		return nil
	})
}
