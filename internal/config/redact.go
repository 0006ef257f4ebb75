package config

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "***"

// dsnPassword matches the password of a keyword/value connection string.
var dsnPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S*)`) //nolint:gochecknoglobals // compiled once

// RedactURL hides the password in a PostgreSQL connection string, either a
// postgres:// URL or a keyword/value DSN. Strings without a password, or that
// cannot be parsed, are returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, "://") {
		return dsnPassword.ReplaceAllString(raw, "${1}"+redacted)
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, ok := u.User.Password(); !ok {
		return raw
	}

	start := strings.Index(raw, "://") + len("://")

	at := strings.LastIndex(raw[start:], "@")
	if at < 0 {
		return raw
	}

	userinfo := raw[start : start+at]

	colon := strings.IndexByte(userinfo, ':')
	if colon < 0 {
		return raw
	}

	return raw[:start] + userinfo[:colon+1] + redacted + raw[start+at:]
}
