package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/synesthesie/verification/internal/models"
)

const DefaultCodeLength = 4

var ErrInvalidInput = errors.New("invalid input")

// GenerateCode returns length uniformly random digits, zero padded.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	digits := n.String()
	return strings.Repeat("0", length-len(digits)) + digits, nil
}

// ResolveName picks the destination a code is sent to: the email when set,
// otherwise the phone.
func ResolveName(person models.Person) (string, error) {
	if email := strings.TrimSpace(person.Email); email != "" {
		return email, nil
	}
	if phone := strings.TrimSpace(person.Phone); phone != "" {
		return phone, nil
	}
	return "", fmt.Errorf("%w: email or phone is required", ErrInvalidInput)
}
