package workflow

import (
	"regexp"
	"strings"
	"time"
)

// The arrival form's selects use numeric option values; callers send
// human-readable strings. These mappers translate between the two.

// MapGender maps a free-form gender string to the form's option value
// (1 male, 2 female). Unrecognized input maps to empty, which skips
// the select.
func MapGender(g string) string {
	g = strings.ToLower(strings.TrimSpace(g))
	switch {
	case strings.HasPrefix(g, "m"):
		return "1"
	case strings.HasPrefix(g, "f"):
		return "2"
	}
	return ""
}

// MapMode maps a travel mode string to the form's option value
// (1 air, 2 land, 3 sea).
func MapMode(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	switch {
	case strings.HasPrefix(m, "air"):
		return "1"
	case strings.HasPrefix(m, "land"):
		return "2"
	case strings.HasPrefix(m, "sea"):
		return "3"
	}
	return ""
}

var regionRe = regexp.MustCompile(`^\+?0{0,2}(\d{1,3})`)

// ExtractRegionCode pulls a country calling code out of a phone number
// for the region select, e.g. "+8801712345678" yields "880".
func ExtractRegionCode(phone string) string {
	if phone == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range phone {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	m := regionRe.FindStringSubmatch(b.String())
	if m == nil {
		return ""
	}
	return m[1]
}

// MobileFromPhone strips the country calling code off a full phone
// number so the mobile field gets the national part. Falls back to the
// digits unchanged when the prefix does not match.
func MobileFromPhone(phone, region string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if region != "" {
		trimmed := strings.TrimLeft(digits, "0")
		if strings.HasPrefix(trimmed, region) {
			return trimmed[len(region):]
		}
	}
	return digits
}

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
}

// NormalizeDate converts common date spellings to the DD/MM/YYYY form
// the datepickers expect. Unparseable input is returned unchanged so
// the failure surfaces at the form, not silently here.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return s
}
