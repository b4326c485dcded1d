package workflow

import "testing"

func TestMapGender(t *testing.T) {
	cases := map[string]string{
		"male":   "1",
		"M":      "1",
		"Female": "2",
		"f":      "2",
		"other":  "",
		"":       "",
	}
	for in, want := range cases {
		if got := MapGender(in); got != want {
			t.Errorf("MapGender(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapMode(t *testing.T) {
	cases := map[string]string{
		"air":    "1",
		"AIR":    "1",
		"land":   "2",
		"sea":    "3",
		" Sea  ": "3",
		"rail":   "",
		"":       "",
	}
	for in, want := range cases {
		if got := MapMode(in); got != want {
			t.Errorf("MapMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractRegionCode(t *testing.T) {
	cases := map[string]string{
		"+8801712345678":  "880",
		"008801712345678": "880",
		"+60123456789":    "601",
		"0171-234-5678":   "171",
		"":                "",
		"no digits":       "",
	}
	for in, want := range cases {
		if got := ExtractRegionCode(in); got != want {
			t.Errorf("ExtractRegionCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMobileFromPhone(t *testing.T) {
	cases := []struct {
		phone, region, want string
	}{
		{"+8801712345678", "880", "1712345678"},
		{"008801712345678", "880", "1712345678"},
		{"0171-234-5678", "", "01712345678"},
		{"+8801712345678", "999", "8801712345678"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := MobileFromPhone(c.phone, c.region); got != c.want {
			t.Errorf("MobileFromPhone(%q, %q) = %q, want %q", c.phone, c.region, got, c.want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2026-09-15": "15/09/2026",
		"15/09/2026": "15/09/2026",
		"5/9/2026":   "05/09/2026",
		"15-09-2026": "15/09/2026",
		"2026/09/15": "15/09/2026",
		"15.09.2026": "15/09/2026",
		"":           "",
		"not-a-date": "not-a-date",
	}
	for in, want := range cases {
		if got := NormalizeDate(in); got != want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}
