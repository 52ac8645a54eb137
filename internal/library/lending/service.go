package lending

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/doug-martin/goqu/v9"

	"libcirc/internal/library/copies"
	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
	"libcirc/internal/platform/db"
)

type Service struct {
	db       *db.DB
	registry *copies.Registry
	ledger   *ledger.Ledger
	log      *log.Logger
}

func NewService(conn *db.DB, registry *copies.Registry, led *ledger.Ledger, logger *log.Logger) *Service {
	return &Service{db: conn, registry: registry, ledger: led, log: logger}
}

// Borrow lends copy k to the borrower. The borrower row and the copy row are
// locked for the whole check-then-write, so two requests for the same copy
// (or by the same borrower) cannot both pass the checks.
func (s *Service) Borrow(ctx context.Context, borrower auth.Actor, k copies.Key) (BorrowResponse, error) {
	var loan *ledger.Loan
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.lockBorrower(ctx, tx, borrower.UserID); err != nil {
			return err
		}
		open, err := s.ledger.Store().OpenLoans(ctx, tx, borrower.UserID)
		if err != nil {
			return err
		}
		c, err := s.registry.Lock(ctx, tx, k)
		if err != nil {
			return err
		}
		now := s.ledger.Now()
		if err := CheckBorrow(BorrowState{OpenLoans: open, Copy: c, Now: now}, k); err != nil {
			return err
		}

		loan, err = s.ledger.OpenLoan(ctx, tx, borrower.UserID, k.TitleID, k.CopyNo, now)
		if err != nil {
			return err
		}
		return s.registry.SetStatus(ctx, tx, k, copies.StatusBorrowed)
	})
	if err != nil {
		s.log.Debug("borrow refused", "user_id", borrower.UserID, "copy", k.String(), "code", apperr.CodeOf(err), "reason", apperr.ReasonOf(err))
		return BorrowResponse{}, err
	}
	s.log.Info("borrowed", "loan", loan.LoanULID, "user_id", borrower.UserID, "copy", k.String())
	return toBorrowResponse(loan), nil
}

// Return closes the loan identified by key (numeric id or ULID) for its own borrower.
func (s *Service) Return(ctx context.Context, requester auth.Actor, key string) (ReturnResponse, error) {
	var loan *ledger.Loan
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		loan, err = s.ledger.Store().GetLoanByKey(ctx, tx, key, true)
		if err != nil {
			return err
		}
		if err := CheckReturn(ReturnState{Loan: loan, RequesterID: requester.UserID}); err != nil {
			return err
		}
		k := copies.Key{TitleID: loan.TitleID, CopyNo: loan.CopyNo}
		if _, err := s.registry.Lock(ctx, tx, k); err != nil {
			return err
		}
		if err := s.ledger.CloseLoan(ctx, tx, loan, s.ledger.Now()); err != nil {
			return err
		}
		return s.registry.SetStatus(ctx, tx, k, copies.StatusAvailable)
	})
	if err != nil {
		return ReturnResponse{}, err
	}
	s.log.Info("returned", "loan", loan.LoanULID, "user_id", requester.UserID)
	return toReturnResponse(loan), nil
}

// lockBorrower serializes borrow attempts of one borrower so the limit and
// duplicate-title rules see each other's loans.
func (s *Service) lockBorrower(ctx context.Context, tx db.DBTX, userID uint64) error {
	var id uint64
	err := db.Get(ctx, tx, &id, s.db.ForUpdate(s.db.From("users").
		Select("user_id").
		Where(goqu.C("user_id").Eq(userID))))
	if db.IsNoRows(err) {
		return apperr.NotFound("borrower not found")
	}
	return err
}
