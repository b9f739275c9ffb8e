package core

import "testing"

func TestCentsRoundTrip(t *testing.T) {
	cases := []struct {
		in    float64
		cents int64
		back  float64
	}{
		{12.34, 1234, 12.34},
		{-1800, -180000, -1800},
		{0.01, 1, 0.01},
		{0.005, 1, 0.01},
		{-2.345, -235, -2.35},
	}
	for _, tc := range cases {
		got := ToCents(tc.in)
		if got != tc.cents {
			t.Fatalf("ToCents(%v) = %d, want %d", tc.in, got, tc.cents)
		}
		if back := FromCents(got); back != tc.back {
			t.Fatalf("FromCents(%d) = %v, want %v", got, back, tc.back)
		}
	}
}

func TestHasCentPrecision(t *testing.T) {
	cases := []struct {
		in   float64
		want bool
	}{
		{0, true},
		{6000, true},
		{-12.5, true},
		{0.333, false},
		{19.99, true},
		{-0.004, false},
		{1.235, false},
	}
	for _, tc := range cases {
		if got := HasCentPrecision(tc.in); got != tc.want {
			t.Fatalf("HasCentPrecision(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmountAndPercent(t *testing.T) {
	if got := FormatAmount(6000); got != "RM6000.00" {
		t.Fatalf("unexpected amount format %q", got)
	}
	if got := FormatAmount(-12.5); got != "RM-12.50" {
		t.Fatalf("unexpected negative format %q", got)
	}
	if got := FormatPercent(0.65); got != "65%" {
		t.Fatalf("unexpected percent %q", got)
	}
	if got := FormatPercent(0); got != "0%" {
		t.Fatalf("unexpected zero percent %q", got)
	}
}
