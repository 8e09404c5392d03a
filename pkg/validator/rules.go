package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required", TranslationKey: "validation.required"},
	}
}

// MaxLenString counts runes, not bytes.
func MaxLenString(field, value string, limit int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= limit },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters long", limit),
			TranslationKey: "validation.max_length",
		},
	}
}

func InListString(field, value string, allowed []string) Rule {
	return Rule{
		Check: func() bool { return contains(allowed, value) },
		Error: ValidationError{
			Field:          field,
			Message:        "must be one of: " + strings.Join(allowed, ", "),
			TranslationKey: "validation.in_list",
		},
	}
}

func MaxLenSlice[T any](field string, value []T, limit int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= limit },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must have at most %d items", limit),
			TranslationKey: "validation.max_items",
		},
	}
}

// DateAfter requires value to be strictly later than after.
func DateAfter(field string, value, after time.Time) Rule {
	return Rule{
		Check: func() bool { return value.After(after) },
		Error: ValidationError{
			Field:          field,
			Message:        "must be after " + after.Format(time.RFC3339),
			TranslationKey: "validation.date_after",
		},
	}
}

// ValidEmail accepts a bare address with a dotted domain, no display name.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			at := strings.LastIndex(value, "@")
			domain := value[at+1:]
			return at > 0 && strings.Contains(domain, ".") &&
				!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address", TranslationKey: "validation.email"},
	}
}

// ValidURL accepts absolute http and https URLs.
func ValidURL(field, value string) Rule {
	return Rule{
		Check: func() bool {
			u, err := url.Parse(value)
			return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
		},
		Error: ValidationError{Field: field, Message: "must be a valid http(s) URL", TranslationKey: "validation.url"},
	}
}
