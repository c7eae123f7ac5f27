// Package utils provides small stateless helpers shared by the repositories
// and services: SQL null conversions and privacy-preserving masking for logs.
package utils

import (
	"database/sql"
	"strings"
	"time"
)

// ToNullString converts a string to sql.NullString, treating empty as NULL.
func ToNullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{
			String: str,
			Valid:  false,
		}
	}
	return sql.NullString{
		String: str,
		Valid:  true,
	}
}

// ToNullTime converts a *time.Time to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{
		Time:  *t,
		Valid: true,
	}
}

// FromNullTime converts a sql.NullTime back to *time.Time.
func FromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// MaskEmail masks the local part of an email for safe logging, e.g.
// "john.doe@example.com" becomes "j***e@example.com".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 1 {
		return email
	}
	local := email[:at]
	domain := email[at:]
	if len(local) == 1 {
		return "*" + domain
	}
	if len(local) == 2 {
		return local[:1] + "*" + local[1:] + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + domain
}
