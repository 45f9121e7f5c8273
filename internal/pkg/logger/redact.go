package logger

import (
	"regexp"
	"strings"
)

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`)
)

// RedactEmail masks a mailbox address, keeping the domain.
// "john.doe@example.com" → "jo***@example.com"
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// RedactToken keeps the last four characters of an access token.
func RedactToken(tok string) string {
	if len(tok) <= 8 {
		return "***"
	}
	return "***" + tok[len(tok)-4:]
}

func redactIf(redact bool, key, val string) string {
	if !redact {
		return val
	}
	return redactPIIValue(key, val)
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "token") || key == "authorization":
		return RedactToken(val)
	case strings.Contains(key, "email") || strings.Contains(key, "user"):
		if strings.Contains(val, "@") {
			return RedactEmail(val)
		}
		return val
	}
	val = bearerRegex.ReplaceAllString(val, "Bearer ***")
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
