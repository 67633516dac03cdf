package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/synesthesie/verification/internal/models"
)

var (
	ErrCodeNotFound   = errors.New("security code not found")
	ErrStatusReversal = errors.New("security code status can only move to USED")
)

// StorageError wraps a failure of the underlying persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("security code store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// CodeSort is the ordering applied to search results.
type CodeSort string

const (
	SortByID           CodeSort = "id"
	SortByIDDesc       CodeSort = "id_desc"
	SortByCreateAt     CodeSort = "create_at"
	SortByCreateAtDesc CodeSort = "create_at_desc"
)

var sortClauses = map[CodeSort]string{
	SortByID:           "id ASC",
	SortByIDDesc:       "id DESC",
	SortByCreateAt:     "create_at ASC, id ASC",
	SortByCreateAtDesc: "create_at DESC, id DESC",
}

// ParseCodeSort maps a user supplied sort key to a CodeSort. Empty input
// yields SortByID.
func ParseCodeSort(s string) (CodeSort, error) {
	if s == "" {
		return SortByID, nil
	}
	if _, ok := sortClauses[CodeSort(s)]; !ok {
		return "", fmt.Errorf("unknown sort %q", s)
	}
	return CodeSort(s), nil
}

// CodeFilter selects security codes. Nil fields are not filtered on.
type CodeFilter struct {
	Name   *string
	Status *models.CodeStatus
	Type   *models.CodeType

	// Sort defaults to SortByID.
	Sort CodeSort
	// Limit caps the number of rows; zero or negative means no cap.
	Limit int
	// ForUpdate locks the selected rows until the surrounding transaction
	// ends. Ignored outside a transaction.
	ForUpdate bool
}

func (f CodeFilter) orderClause() string {
	if clause, ok := sortClauses[f.Sort]; ok {
		return clause
	}
	return sortClauses[SortByID]
}

func (f CodeFilter) matches(c *models.SecurityCode) bool {
	if f.Name != nil && c.Name != *f.Name {
		return false
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.Type != nil && c.Type != *f.Type {
		return false
	}
	return true
}

// CodePatch is a sparse update. Only non-nil fields are written; UpdateAt is
// always refreshed. Code is immutable and therefore absent.
type CodePatch struct {
	Name   *string
	Type   *models.CodeType
	Status *models.CodeStatus
}

// MarkUsed is the patch consuming a code.
func MarkUsed() CodePatch {
	used := models.CodeStatusUsed
	return CodePatch{Status: &used}
}

func (p CodePatch) validate() error {
	if p.Status != nil && *p.Status != models.CodeStatusUsed {
		return ErrStatusReversal
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, *p.Type)
	}
	return nil
}

// CodeStore is the durable table of issued codes.
//
// Update applies a status change only to rows that are still UNUSED, so two
// concurrent consumers of the same row cannot both see an affected count of 1.
type CodeStore interface {
	Insert(ctx context.Context, code *models.SecurityCode) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.SecurityCode, error)
	Search(ctx context.Context, filter CodeFilter) ([]models.SecurityCode, error)
	Update(ctx context.Context, id int64, patch CodePatch) (int64, error)
	Count(ctx context.Context, filter CodeFilter) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)

	// Transaction runs fn against a store bound to one atomic unit. It commits
	// when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx CodeStore) error) error
}
