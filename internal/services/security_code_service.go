package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/synesthesie/verification/internal/models"
)

// CodeTTL is how long a code stays valid after creation.
const CodeTTL = 30 * time.Minute

var (
	// ErrWrongCode covers a missing code, a mismatch and a code consumed by a
	// concurrent verification. The cases are deliberately indistinguishable.
	ErrWrongCode   = errors.New("security code is wrong")
	ErrCodeExpired = errors.New("security code has expired")
)

// CodeDispatcher hands a code over for asynchronous delivery.
type CodeDispatcher interface {
	Dispatch(code models.SecurityCode)
}

type SecurityCodeService struct {
	store      CodeStore
	dispatcher CodeDispatcher
	clock      Clock
}

func NewSecurityCodeService(store CodeStore, dispatcher CodeDispatcher, clock Clock) *SecurityCodeService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SecurityCodeService{
		store:      store,
		dispatcher: dispatcher,
		clock:      clock,
	}
}

// Issue creates a fresh UNUSED code for person and queues its delivery.
// Delivery problems never fail the issuance.
func (s *SecurityCodeService) Issue(ctx context.Context, person models.Person, codeType models.CodeType) (*models.SecurityCode, error) {
	if !codeType.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, codeType)
	}
	name, err := ResolveName(person)
	if err != nil {
		return nil, err
	}
	code, err := GenerateCode(DefaultCodeLength)
	if err != nil {
		return nil, err
	}

	securityCode := &models.SecurityCode{
		Name: name,
		Code: code,
		Type: codeType,
	}
	if _, err := s.Save(ctx, securityCode); err != nil {
		return nil, err
	}

	log.Info().Int64("code_id", securityCode.ID).Str("type", string(codeType)).Msg("security code issued")
	s.SendCode(*securityCode)
	return securityCode, nil
}

// Save inserts code as UNUSED with both timestamps set to now.
func (s *SecurityCodeService) Save(ctx context.Context, code *models.SecurityCode) (int64, error) {
	now := s.clock.Now().UTC()
	code.Status = models.CodeStatusUnused
	code.CreateAt = now
	code.UpdateAt = now
	return s.store.Insert(ctx, code)
}

// SendCode queues code for delivery to its name.
func (s *SecurityCodeService) SendCode(code models.SecurityCode) {
	if s.dispatcher == nil {
		log.Warn().Int64("code_id", code.ID).Msg("no dispatcher configured, code not sent")
		return
	}
	s.dispatcher.Dispatch(code)
}

// Verify checks code against the earliest UNUSED code of name and codeType and
// consumes it. The lookup, checks and status change run in one transaction.
func (s *SecurityCodeService) Verify(ctx context.Context, code, name string, codeType models.CodeType) error {
	unused := models.CodeStatusUnused
	return s.store.Transaction(ctx, func(tx CodeStore) error {
		candidates, err := tx.Search(ctx, CodeFilter{
			Name:      &name,
			Type:      &codeType,
			Status:    &unused,
			Sort:      SortByID,
			Limit:     1,
			ForUpdate: true,
		})
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return ErrWrongCode
		}

		securityCode := candidates[0]
		if code != securityCode.Code {
			return ErrWrongCode
		}
		if securityCode.IsExpired(s.clock.Now().UTC(), CodeTTL) {
			return ErrCodeExpired
		}

		affected, err := tx.Update(ctx, securityCode.ID, MarkUsed())
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrWrongCode
		}
		log.Info().Int64("code_id", securityCode.ID).Str("type", string(codeType)).Msg("security code used")
		return nil
	})
}

func (s *SecurityCodeService) FindByID(ctx context.Context, id int64) (*models.SecurityCode, error) {
	return s.store.FindByID(ctx, id)
}

// Search lists codes matching filter, ordered by id unless filter says otherwise.
func (s *SecurityCodeService) Search(ctx context.Context, filter CodeFilter) ([]models.SecurityCode, error) {
	if filter.Sort == "" {
		filter.Sort = SortByID
	}
	filter.ForUpdate = false
	return s.store.Search(ctx, filter)
}

func (s *SecurityCodeService) Count(ctx context.Context, filter CodeFilter) (int64, error) {
	return s.store.Count(ctx, filter)
}

// Update applies patch and reports whether exactly one row changed.
func (s *SecurityCodeService) Update(ctx context.Context, id int64, patch CodePatch) (bool, error) {
	affected, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Delete removes a code. It is an administrative operation; verification
// never deletes.
func (s *SecurityCodeService) Delete(ctx context.Context, id int64) (bool, error) {
	affected, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
