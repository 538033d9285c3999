package invoicing

import "testing"

func TestParseAmount_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"MMK 20,000", "20000"},
		{"MMK -20,000", "-20000"},
		{"  ks 1,234.50  ", "1234.5"},
		{"$12.75", "12.75"},
	}
	for _, tc := range cases {
		d := ParseAmount(tc.in)
		if d.String() != tc.expected {
			t.Fatalf("ParseAmount(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseAmount_MalformedIsZero(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "-", "1.2.3"} {
		if d := ParseAmount(in); !d.IsZero() {
			t.Fatalf("ParseAmount(%q) expected 0, got %s", in, d)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]int{"3": 3, "2.7": 2, "": 0, "x": 0, "1,000": 1000}
	for in, expected := range cases {
		if got := ParseQuantity(in); got != expected {
			t.Fatalf("ParseQuantity(%q) expected %d, got %d", in, expected, got)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-03-01", "2024-03-01T00:00:00Z", "2024-03-01T15:04:05.123+06:30"} {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", in, err)
		}
		if got := d.Format(DateLayout); got != "2024-03-01" {
			t.Fatalf("ParseDate(%q) expected 2024-03-01, got %s", in, got)
		}
	}
	if _, err := ParseDate("03/01/2024"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}
