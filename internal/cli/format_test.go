package cli

import (
	"strings"
	"testing"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{0.15, "$0.15"},
		{1234.5, "$1,234.50"},
		{1999.999, "$2,000.00"},
		{-3, "-$3.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Errorf("FormatMoney(%g) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMoneyShort(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.5, "$2.50"},
		{45.25, "$45.2"},
		{450, "$450"},
		{12345.6, "$12,346"},
	}
	for _, tt := range tests {
		if got := FormatMoneyShort(tt.in); got != tt.want {
			t.Errorf("FormatMoneyShort(%g) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{999, "999"},
		{9999, "9,999"},
		{12345, "12.3K"},
		{2_500_000, "2.5M"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.in); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDays(t *testing.T) {
	if got := FormatDays(1); got != "1 day" {
		t.Errorf("FormatDays(1) = %q", got)
	}
	if got := FormatDays(12.4); got != "12 days" {
		t.Errorf("FormatDays(12.4) = %q", got)
	}
}

func TestFormatDelta(t *testing.T) {
	if got := FormatDelta(10, 4); got != "+$6.00" {
		t.Errorf("FormatDelta up = %q", got)
	}
	if got := FormatDelta(4, 10); got != "-$6.00" {
		t.Errorf("FormatDelta down = %q", got)
	}
}

func TestRenderSparkline(t *testing.T) {
	got := RenderSparkline([]float64{0, 4, 8})
	if got != "▁▄█" {
		t.Errorf("RenderSparkline = %q, want ▁▄█", got)
	}
	if RenderSparkline(nil) != "" {
		t.Error("empty sparkline should be empty")
	}
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Segment", "Users"},
		Rows:    [][]string{{"High Achievers", "12"}, {"New Members", "3"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "High Achievers") {
		t.Errorf("missing row text:\n%s", out)
	}
}
