package models

import (
	"time"
)

// CodeStatus is the consumption state of a security code. It only moves
// from UNUSED to USED.
type CodeStatus string

const (
	CodeStatusUnused CodeStatus = "UNUSED"
	CodeStatusUsed   CodeStatus = "USED"
)

// CodeType scopes which codes are eligible for a verification attempt.
type CodeType string

const (
	CodeTypeRegister      CodeType = "REGISTER"
	CodeTypeChangeEmail   CodeType = "CHANGE_EMAIL"
	CodeTypeChangePhone   CodeType = "CHANGE_PHONE"
	CodeTypeResetPassword CodeType = "RESET_PASSWORD"
)

var codeTypes = map[CodeType]bool{
	CodeTypeRegister:      true,
	CodeTypeChangeEmail:   true,
	CodeTypeChangePhone:   true,
	CodeTypeResetPassword: true,
}

// Valid reports whether t is one of the known code types.
func (t CodeType) Valid() bool {
	return codeTypes[t]
}

// Valid reports whether s is one of the known statuses.
func (s CodeStatus) Valid() bool {
	return s == CodeStatusUnused || s == CodeStatusUsed
}

// SecurityCode is a short-lived one-time code sent to an email address or a
// phone number. Name holds that destination and is the verification lookup key.
type SecurityCode struct {
	ID       int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string     `gorm:"type:varchar(255);not null;index:idx_security_codes_lookup,priority:1" json:"name"`
	Code     string     `gorm:"type:varchar(16);not null" json:"-"`
	Type     CodeType   `gorm:"type:varchar(32);not null;index:idx_security_codes_lookup,priority:2" json:"type"`
	Status   CodeStatus `gorm:"type:varchar(16);not null;default:'UNUSED';index:idx_security_codes_lookup,priority:3" json:"status"`
	UpdateAt time.Time  `gorm:"column:update_at;not null" json:"update_at"`
	CreateAt time.Time  `gorm:"column:create_at;not null" json:"create_at"`
}

// TableName specifies the table name for SecurityCode
func (SecurityCode) TableName() string {
	return "security_codes"
}

// IsExpired reports whether the code is at least ttl old at now.
func (c *SecurityCode) IsExpired(now time.Time, ttl time.Duration) bool {
	return !c.CreateAt.After(now.Add(-ttl))
}

// IsUsable checks if the code can still be consumed at now
func (c *SecurityCode) IsUsable(now time.Time, ttl time.Duration) bool {
	return c.Status == CodeStatusUnused && !c.IsExpired(now, ttl)
}

// Person carries the contact info a code is issued for.
type Person struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}
