package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// sensitiveFields are masked wherever they appear, including inside the
// history entries attached to request logs.
var sensitiveFields = []string{
	"password", "secret", "token", "credential", "credentials",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token", "refreshToken", "refresh_token",
	"authorization", "auth", "bearer", "cookie", "session",
	"privateKey", "private_key",
}

var sensitiveValues = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),
	// URLs with embedded credentials
	regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://[^/@\s]+:[^/@\s]+@`),
}

// RedactOptions returns the masq options applied to every logger built by
// this package. Extend them through NewReplaceAttr:
//
//	logging.NewReplaceAttr(masq.WithFieldName("ssn"))
func RedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+len(sensitiveValues)+2)
	for _, f := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(f))
	}
	opts = append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
	)
	for _, re := range sensitiveValues {
		opts = append(opts, masq.WithRegex(re))
	}
	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr that redacts sensitive attrs.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(RedactOptions(), extra...)...)
}
