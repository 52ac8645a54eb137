package copies

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"libcirc/internal/platform/apperr"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBorrowed  Status = "borrowed"
	StatusLost      Status = "lost"
	StatusReserved  Status = "reserved"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBorrowed, StatusLost, StatusReserved:
		return true
	}
	return false
}

// Key identifies one physical copy. Its text form is "<titleID>-<copyNo>".
type Key struct {
	TitleID uint64
	CopyNo  int
}

func (k Key) String() string { return fmt.Sprintf("%d-%d", k.TitleID, k.CopyNo) }

func ParseKey(s string) (Key, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Key{}, apperr.Validation(fmt.Sprintf("invalid copy key %q, want <title_id>-<copy_no>", s))
	}
	titleID, err := strconv.ParseUint(left, 10, 64)
	if err != nil || titleID == 0 {
		return Key{}, apperr.Validation(fmt.Sprintf("invalid title id in copy key %q", s))
	}
	copyNo, err := strconv.Atoi(right)
	if err != nil || copyNo <= 0 {
		return Key{}, apperr.Validation(fmt.Sprintf("invalid copy number in copy key %q", s))
	}
	return Key{TitleID: titleID, CopyNo: copyNo}, nil
}

type Copy struct {
	TitleID uint64 `db:"title_id"`
	CopyNo  int    `db:"copy_no"`
	Status  Status `db:"status"`
}

func (c Copy) Key() Key { return Key{TitleID: c.TitleID, CopyNo: c.CopyNo} }

type titleRow struct {
	TitleID  uint64 `db:"title_id"`
	Name     string `db:"name"`
	Quantity int    `db:"quantity"`
}

// copyRow is a copy with the open loan on it, if any.
type copyRow struct {
	Copy
	LoanID     sql.NullInt64  `db:"loan_id"`
	BorrowerID sql.NullInt64  `db:"borrower_id"`
	UserName   sql.NullString `db:"user_name"`
	BorrowedAt sql.NullTime   `db:"borrowed_at"`
}

// RemovedCopy describes what RemoveCopy did to the catalog.
type RemovedCopy struct {
	Key          Key
	TitleName    string
	TitleDeleted bool
	Remaining    int
	RemovedAt    time.Time
}
