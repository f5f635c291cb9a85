package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"saasreports/internal/clock"
	"saasreports/internal/config"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := config.Default()
	cfg.LogLevel = "error"
	clk := clock.NewFixed(time.Date(2024, 6, 15, 9, 30, 15, 0, time.UTC))

	root := NewRootCommand(cfg, clk)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	out, err := runCommand(t, "stats", "--seed-demo")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Total customers", "Outstanding invoices", "2023-07", "2024-06"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsCommandJSON(t *testing.T) {
	out, err := runCommand(t, "stats", "--seed-demo", "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var snap struct {
		TotalCustomers int
		RevenueByMonth []struct{ Period string }
	}
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if snap.TotalCustomers == 0 || len(snap.RevenueByMonth) != 12 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestInvoicesCommand(t *testing.T) {
	out, err := runCommand(t, "invoices", "--seed-demo", "--sort", "amount")
	if err != nil {
		t.Fatalf("invoices: %v", err)
	}
	if !strings.HasPrefix(out, "INVOICE") || !strings.Contains(out, "Total revenue") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestInvoicesCommandRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{"invoices", "--sort", "customer.Name"},
		{"invoices", "--status", "Lost"},
		{"invoices", "--from", "15/06/2024"},
		{"invoices", "--tenant", "not-a-uuid"},
	}
	for _, args := range cases {
		if _, err := runCommand(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "invoices.xlsx")

	out, err := runCommand(t, "export", "--seed-demo", "--format", "xlsx", "--out", path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Fatalf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("xlsx should be a zip archive")
	}
}

func TestExportCommandPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.pdf")
	if _, err := runCommand(t, "export", "--seed-demo", "--format", "pdf", "--out", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("missing pdf header")
	}
}

func TestExportCommandUnsupportedFormat(t *testing.T) {
	if _, err := runCommand(t, "export", "--format", "csv", "--out", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatalf("expected error for csv")
	}
}

func TestRevenueCommand(t *testing.T) {
	out, err := runCommand(t, "revenue", "--seed-demo", "--from", "2024-01-01", "--to", "2024-03-31")
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if !strings.HasPrefix(out, "MONTH") || !strings.Contains(out, "Total") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "2024-04") {
		t.Fatalf("bucket outside range:\n%s", out)
	}
}
