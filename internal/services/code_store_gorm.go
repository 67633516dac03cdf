package services

import (
	"context"
	"errors"

	"github.com/synesthesie/verification/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCodeStore keeps security codes in a relational database through gorm.
type GormCodeStore struct {
	db    *gorm.DB
	clock Clock
	inTx  bool
}

func NewGormCodeStore(db *gorm.DB, clock Clock) *GormCodeStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &GormCodeStore{db: db, clock: clock}
}

func (s *GormCodeStore) Insert(ctx context.Context, code *models.SecurityCode) (int64, error) {
	if err := s.db.WithContext(ctx).Create(code).Error; err != nil {
		return 0, storageError("insert", err)
	}
	return code.ID, nil
}

func (s *GormCodeStore) FindByID(ctx context.Context, id int64) (*models.SecurityCode, error) {
	var code models.SecurityCode
	if err := s.db.WithContext(ctx).First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, storageError("find", err)
	}
	return &code, nil
}

func (s *GormCodeStore) Search(ctx context.Context, filter CodeFilter) ([]models.SecurityCode, error) {
	query := s.filtered(ctx, filter).Order(filter.orderClause())
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.ForUpdate && s.inTx && s.supportsRowLocks() {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var codes []models.SecurityCode
	if err := query.Find(&codes).Error; err != nil {
		return nil, storageError("search", err)
	}
	return codes, nil
}

func (s *GormCodeStore) Update(ctx context.Context, id int64, patch CodePatch) (int64, error) {
	if err := patch.validate(); err != nil {
		return 0, err
	}

	updates := map[string]interface{}{
		"update_at": s.clock.Now().UTC(),
	}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Type != nil {
		updates["type"] = *patch.Type
	}

	query := s.db.WithContext(ctx).Model(&models.SecurityCode{}).Where("id = ?", id)
	if patch.Status != nil {
		updates["status"] = *patch.Status
		query = query.Where("status = ?", models.CodeStatusUnused)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return 0, storageError("update", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormCodeStore) Count(ctx context.Context, filter CodeFilter) (int64, error) {
	var total int64
	if err := s.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, storageError("count", err)
	}
	return total, nil
}

func (s *GormCodeStore) Delete(ctx context.Context, id int64) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&models.SecurityCode{}, id)
	if result.Error != nil {
		return 0, storageError("delete", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormCodeStore) Transaction(ctx context.Context, fn func(tx CodeStore) error) error {
	if s.inTx {
		return fn(s)
	}
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&GormCodeStore{db: tx, clock: s.clock, inTx: true})
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed
		return storageError("transaction", err)
	}
	return err
}

// SQLite serializes writers on the whole database and has no FOR UPDATE.
func (s *GormCodeStore) supportsRowLocks() bool {
	return s.db.Dialector.Name() != "sqlite"
}

func (s *GormCodeStore) filtered(ctx context.Context, filter CodeFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.SecurityCode{})
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	return query
}
