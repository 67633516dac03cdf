package services

import (
	"context"
	"sort"
	"sync"

	"github.com/synesthesie/verification/internal/models"
)

// MemoryCodeStore is an in-process CodeStore. Transactions are serialized by a
// single mutex and work on a copy of the table that replaces the live one
// only on success.
type MemoryCodeStore struct {
	mu    *sync.Mutex
	table *memoryTable
	clock Clock
	inTx  bool
}

type memoryTable struct {
	nextID int64
	rows   map[int64]models.SecurityCode
}

func (t *memoryTable) clone() *memoryTable {
	c := &memoryTable{nextID: t.nextID, rows: make(map[int64]models.SecurityCode, len(t.rows))}
	for id, row := range t.rows {
		c.rows[id] = row
	}
	return c
}

func NewMemoryCodeStore(clock Clock) *MemoryCodeStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryCodeStore{
		mu:    &sync.Mutex{},
		table: &memoryTable{rows: make(map[int64]models.SecurityCode)},
		clock: clock,
	}
}

func (s *MemoryCodeStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryCodeStore) Insert(ctx context.Context, code *models.SecurityCode) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageError("insert", err)
	}
	defer s.lock()()

	s.table.nextID++
	code.ID = s.table.nextID
	s.table.rows[code.ID] = *code
	return code.ID, nil
}

func (s *MemoryCodeStore) FindByID(ctx context.Context, id int64) (*models.SecurityCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("find", err)
	}
	defer s.lock()()

	row, ok := s.table.rows[id]
	if !ok {
		return nil, ErrCodeNotFound
	}
	return &row, nil
}

func (s *MemoryCodeStore) Search(ctx context.Context, filter CodeFilter) ([]models.SecurityCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("search", err)
	}
	defer s.lock()()

	codes := s.matching(filter)
	sortCodes(codes, filter.Sort)
	if filter.Limit > 0 && len(codes) > filter.Limit {
		codes = codes[:filter.Limit]
	}
	return codes, nil
}

func (s *MemoryCodeStore) Update(ctx context.Context, id int64, patch CodePatch) (int64, error) {
	if err := patch.validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, storageError("update", err)
	}
	defer s.lock()()

	row, ok := s.table.rows[id]
	if !ok {
		return 0, nil
	}
	if patch.Status != nil {
		if row.Status != models.CodeStatusUnused {
			return 0, nil
		}
		row.Status = *patch.Status
	}
	if patch.Name != nil {
		row.Name = *patch.Name
	}
	if patch.Type != nil {
		row.Type = *patch.Type
	}
	row.UpdateAt = s.clock.Now().UTC()
	s.table.rows[id] = row
	return 1, nil
}

func (s *MemoryCodeStore) Count(ctx context.Context, filter CodeFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageError("count", err)
	}
	defer s.lock()()

	return int64(len(s.matching(filter))), nil
}

func (s *MemoryCodeStore) Delete(ctx context.Context, id int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageError("delete", err)
	}
	defer s.lock()()

	if _, ok := s.table.rows[id]; !ok {
		return 0, nil
	}
	delete(s.table.rows, id)
	return 1, nil
}

func (s *MemoryCodeStore) Transaction(ctx context.Context, fn func(tx CodeStore) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return storageError("transaction", err)
	}
	tx := &MemoryCodeStore{mu: s.mu, table: s.table.clone(), clock: s.clock, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.table = tx.table
	return nil
}

func (s *MemoryCodeStore) matching(filter CodeFilter) []models.SecurityCode {
	codes := make([]models.SecurityCode, 0)
	for _, row := range s.table.rows {
		row := row
		if filter.matches(&row) {
			codes = append(codes, row)
		}
	}
	return codes
}

func sortCodes(codes []models.SecurityCode, by CodeSort) {
	sort.Slice(codes, func(i, j int) bool {
		a, b := codes[i], codes[j]
		switch by {
		case SortByIDDesc:
			return a.ID > b.ID
		case SortByCreateAt:
			if !a.CreateAt.Equal(b.CreateAt) {
				return a.CreateAt.Before(b.CreateAt)
			}
			return a.ID < b.ID
		case SortByCreateAtDesc:
			if !a.CreateAt.Equal(b.CreateAt) {
				return a.CreateAt.After(b.CreateAt)
			}
			return a.ID > b.ID
		default:
			return a.ID < b.ID
		}
	})
}
