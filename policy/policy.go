// Package policy decides whether a stored file may be released to a caller.
package policy

import (
	"time"

	"secureshare/models"
)

// Reason identifies why a retrieval was denied.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNotFound     Reason = "not_found"
	ReasonInactive     Reason = "inactive"
	ReasonExpired      Reason = "expired"
	ReasonLimitReached Reason = "limit_reached"
	ReasonBadPassword  Reason = "bad_password"
)

// Message is the human readable text returned alongside the reason code.
func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return "File not found"
	case ReasonInactive:
		return "File is no longer available"
	case ReasonExpired:
		return "File has expired"
	case ReasonLimitReached:
		return "Download limit reached"
	case ReasonBadPassword:
		return "Invalid password"
	default:
		return ""
	}
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// PasswordVerifier compares a plaintext password with a stored hash.
// Implementations must compare in constant time.
type PasswordVerifier interface {
	Verify(password, hash string) bool
}

// Engine evaluates retrieval attempts. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	verifier PasswordVerifier
}

func NewEngine(verifier PasswordVerifier) *Engine {
	return &Engine{verifier: verifier}
}

// Evaluate checks a retrieval attempt against record at time now.
// Checks run in a fixed order and the first failure wins: availability,
// expiry and quota are reported before the password is looked at, so a
// wrong password never hides a non-secret reason.
func (e *Engine) Evaluate(record *models.FileRecord, password string, now time.Time) Decision {
	if record == nil {
		return Deny(ReasonNotFound)
	}
	if !record.Active {
		return Deny(ReasonInactive)
	}
	if record.IsExpiredAt(now) {
		return Deny(ReasonExpired)
	}
	if record.LimitReached() {
		return Deny(ReasonLimitReached)
	}
	if record.HasPassword() {
		if password == "" || !e.verifier.Verify(password, *record.PasswordHash) {
			return Deny(ReasonBadPassword)
		}
	}
	return Allow()
}

// Availability runs the checks that do not need a password. It backs the
// metadata views, which must not consume quota or probe passwords.
func (e *Engine) Availability(record *models.FileRecord, now time.Time) Decision {
	if record == nil {
		return Deny(ReasonNotFound)
	}
	if !record.Active {
		return Deny(ReasonInactive)
	}
	if record.IsExpiredAt(now) {
		return Deny(ReasonExpired)
	}
	return Allow()
}
