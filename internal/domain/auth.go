package domain

import "strings"

// AccountType is the coarse tag carried in session tokens.
type AccountType string

const (
	AccountTypePrivileged AccountType = ":D"
	AccountTypeGuest      AccountType = "guest"
)

// PrivilegedDomain is the corporate email suffix that earns AccountTypePrivileged.
const PrivilegedDomain = "@colond.com"

// AccountTypeForEmail classifies an email by its domain suffix only. It is not an authorization check.
func AccountTypeForEmail(email string) AccountType {
	if strings.HasSuffix(email, PrivilegedDomain) {
		return AccountTypePrivileged
	}
	return AccountTypeGuest
}
