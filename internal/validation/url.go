package validation

import (
	"net/url"
	"strings"
)

// ValidateURL checks that value is an absolute http(s) URL. Empty values are
// accepted; callers enforce presence separately.
func ValidateURL(value, field string, requireHTTPS bool) error {
	if value == "" {
		return nil
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return FieldError(field, "invalid URL format")
	}
	if parsed.Scheme == "" {
		return FieldError(field, "URL must include a scheme (http:// or https://)")
	}
	if parsed.Host == "" {
		return FieldError(field, "URL must include a host")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if requireHTTPS && scheme != "https" {
		return FieldError(field, "URL must use HTTPS")
	}
	if scheme != "http" && scheme != "https" {
		return FieldError(field, "URL scheme must be http or https")
	}
	return nil
}

// ValidateBaseURL is ValidateURL for URLs that are used as a prefix, such as
// the public address the API builds Location headers from.
func ValidateBaseURL(value, field string, requireHTTPS bool) error {
	if err := ValidateURL(value, field, requireHTTPS); err != nil || value == "" {
		return err
	}

	parsed, _ := url.Parse(value)
	switch {
	case parsed.Path != "" && parsed.Path != "/":
		return FieldError(field, "base URL must not contain a path")
	case parsed.RawQuery != "":
		return FieldError(field, "base URL must not contain query parameters")
	case parsed.Fragment != "":
		return FieldError(field, "base URL must not contain a fragment")
	}
	return nil
}
