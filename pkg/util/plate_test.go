package util

import (
	"testing"
	"time"
)

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"abc123", "ABC123"},
		{" abc 123 ", "ABC123"},
		{"AbC-123", "ABC123"},
		{"  ", ""},
		{"---", ""},
		{"x1·y2", "X1Y2"},
	}
	for _, tc := range cases {
		if got := NormalizePlate(tc.in); got != tc.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseLooseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"10/01/2024", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{"2/1/2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"10-01-2024", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-10", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{"9 Feb 2024", time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), true},
		{" 09 Feb 2024 ", time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"n/a", time.Time{}, false},
		{"soon", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseLooseDate(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseLooseDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("ParseLooseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseLooseDatePrefersDayFirst(t *testing.T) {
	// 03/04 is ambiguous; the portal is Australian, so day comes first.
	got, ok := ParseLooseDate("03/04/2024")
	if !ok {
		t.Fatal("expected 03/04/2024 to parse")
	}
	if got.Day() != 3 || got.Month() != time.April {
		t.Errorf("ParseLooseDate(03/04/2024) = %v, want 3 April", got)
	}
}
