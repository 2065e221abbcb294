// Package validate contains the pure input validators used by the auth and
// items services. Validators never return an error value; they report
// violations through Result so callers can surface every failed rule at once.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Result aggregates the outcome of a validation.
type Result struct {
	Valid  bool
	Errors []string
}

func fail(errs ...string) Result { return Result{Valid: false, Errors: errs} }

func ok() Result { return Result{Valid: true} }

const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
	PasswordMinLen = 8

	// MaxFileSize bounds NFT media uploads (50 MiB).
	MaxFileSize = 50 << 20
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

	// Injection payloads rejected outright in any identity field.
	unsafeRe = regexp.MustCompile(`(?i)(<\s*script|javascript:|vbscript:|<\s*iframe|on\w+\s*=)`)

	allowedFileTypes = map[string]bool{
		"image/png":       true,
		"image/jpeg":      true,
		"image/gif":       true,
		"image/webp":      true,
		"image/svg+xml":   true,
		"video/mp4":       true,
		"video/webm":      true,
		"audio/mpeg":      true,
		"model/gltf+json": true,
	}

	maxEthPrice = decimal.RequireFromString("1000000")
)

// Email reports whether s has valid email shape. Injection payloads and
// strings over the RFC 5321 length limit are rejected.
func Email(s string) bool {
	if s == "" || len(s) > 320 {
		return false
	}
	if unsafeRe.MatchString(s) {
		return false
	}
	return emailRe.MatchString(s)
}

// Password checks minimum length and character-class diversity,
// reporting every violated rule.
func Password(s string) Result {
	var errs []string
	if len(s) < PasswordMinLen {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters long", PasswordMinLen))
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "password must contain a digit")
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}

// Username enforces length bounds and the character whitelist, and rejects
// the same injection payloads as Email.
func Username(s string) Result {
	var errs []string
	n := len([]rune(s))
	if n < UsernameMinLen {
		errs = append(errs, fmt.Sprintf("username must be at least %d characters long", UsernameMinLen))
	}
	if n > UsernameMaxLen {
		errs = append(errs, fmt.Sprintf("username must be no more than %d characters long", UsernameMaxLen))
	}
	if unsafeRe.MatchString(s) {
		errs = append(errs, "username contains unsafe content")
	} else if s != "" && !usernameRe.MatchString(s) {
		errs = append(errs, "username may only contain letters, digits, dots, hyphens and underscores")
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}

// EthPrice validates a decimal price string: parseable, positive, bounded.
func EthPrice(s string) Result {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fail("price must be a decimal number")
	}
	var errs []string
	if d.IsNegative() || d.IsZero() {
		errs = append(errs, "price must be greater than zero")
	}
	if d.GreaterThan(maxEthPrice) {
		errs = append(errs, "price exceeds the maximum of 1000000 ETH")
	}
	if d.Exponent() < -18 {
		errs = append(errs, "price has more than 18 decimal places")
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}

// NFTFile bounds media size and content type.
func NFTFile(size int64, contentType string) Result {
	var errs []string
	if size <= 0 {
		errs = append(errs, "file is empty")
	}
	if size > MaxFileSize {
		errs = append(errs, "file exceeds the 50 MiB limit")
	}
	if !allowedFileTypes[strings.ToLower(contentType)] {
		errs = append(errs, "unsupported file type: "+contentType)
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}

// Sanitize trims whitespace and strips control characters before a value is
// handed to a backing store. The stores parameterize their queries as well.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 10000 {
		out = out[:10000]
	}
	return out
}
