package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKline = `{
  "600001": {"name": "测试股份", "dates": ["2024-01-02", "2024-01-03", "2024-01-04"],
             "values": [[10, 10, 9.9, 10.1], [10.5, 11, 10.4, 11], [11.2, 12, 11, 12.1]],
             "volumes": [1000, 2000, 3000]}
}`

const testLadder = `{
  "20240102": {"1": [{"code": "600001", "name": "测试股份", "price": 10, "limitUpDays": 1, "boardType": "main"}]},
  "20240103": {"2": [{"code": "600001", "name": "测试股份", "price": 11, "limitUpDays": 2, "boardType": "main", "nextDayOpenChangePct": 1.8}]},
  "20240104": {"3": [{"code": "600001", "name": "测试股份", "price": 12, "limitUpDays": 3, "boardType": "main"}]}
}`

// setup writes the exports and a config file into a temp dir and points
// LADDERSIM_CONFIG at it.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	kline := write("kline.json", testKline)
	lad := write("ladder.json", testLadder)
	cfg := write("laddersim.yaml", `
storage:
  data_dir: `+filepath.Join(dir, "data")+`
  snapshot_backend: file
  snapshot_file: `+filepath.Join(dir, "data", "snapshot.json")+`
logging:
  level: error
simulation:
  source: json
  kline_file: `+kline+`
  ladder_file: `+lad+`
`)
	for _, k := range []string{"DATA_DIR", "LADDERSIM_DATA_DIR", "LADDERSIM_SNAPSHOT_BACKEND", "LADDERSIM_SOURCE",
		"LADDERSIM_KLINE_FILE", "LADDERSIM_LADDER_FILE", "LADDERSIM_SERVER", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("LADDERSIM_CONFIG", cfg)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	if !strings.Contains(out, "laddersim "+version) {
		t.Errorf("version output = %q", out)
	}
}

func TestSimSession(t *testing.T) {
	dir := setup(t)

	out := mustRun(t, "sim", "advance", "2024-01-02")
	if !strings.Contains(out, "current day 2024-01-02") {
		t.Fatalf("advance output = %q", out)
	}

	out = mustRun(t, "sim", "cond", "600001", "100")
	if !strings.Contains(out, "at 11.00 on 2024-01-03") {
		t.Errorf("cond output = %q", out)
	}

	// The order survives between invocations through the snapshot.
	out = mustRun(t, "sim", "next")
	if !strings.Contains(out, "triggered") {
		t.Errorf("next output = %q", out)
	}

	out = mustRun(t, "sim", "status")
	if !strings.Contains(out, "600001") || !strings.Contains(out, "in 1d") {
		t.Errorf("status output = %q", out)
	}

	if _, err := run(t, "sim", "sell", "600001"); err == nil {
		t.Error("selling on the buy day: want error")
	}

	mustRun(t, "sim", "next")
	out = mustRun(t, "sim", "sell", "600001")
	if !strings.Contains(out, "sold 600001") {
		t.Errorf("sell output = %q", out)
	}

	out = mustRun(t, "sim", "summary")
	if !strings.Contains(out, "100.0%") {
		t.Errorf("summary output = %q", out)
	}

	if _, err := run(t, "sim", "next"); err == nil {
		t.Error("next after the last day: want error")
	}

	export := filepath.Join(dir, "archive.json")
	out = mustRun(t, "sim", "reset", "--export", export)
	if !strings.Contains(out, "archived 2 trades") {
		t.Errorf("reset output = %q", out)
	}
	if _, err := os.Stat(export); err != nil {
		t.Errorf("export file: %v", err)
	}

	out = mustRun(t, "sim", "summary")
	if strings.Contains(out, "100.0%") {
		t.Errorf("summary after reset = %q", out)
	}
}

func TestSimArgs(t *testing.T) {
	setup(t)
	if _, err := run(t, "sim", "buy", "600001", "ten", "100"); err == nil {
		t.Error("bad price: want error")
	}
	if _, err := run(t, "sim", "sell", "600001", "100"); err == nil {
		t.Error("quantity without --price: want error")
	}
	if _, err := run(t, "sim", "cancel", "nope"); err == nil {
		t.Error("unknown order: want error")
	}
}

func TestLadderCommands(t *testing.T) {
	dir := setup(t)

	out := mustRun(t, "ladder", "query", "--date", "20240103")
	if !strings.Contains(out, "2024-01-03  1 stocks") || !strings.Contains(out, "+1.80%") {
		t.Errorf("query output = %q", out)
	}

	out = mustRun(t, "ladder", "query", "--min", "4")
	if !strings.Contains(out, "2024-01-04  0 stocks") {
		t.Errorf("filtered query output = %q", out)
	}

	out = mustRun(t, "ladder", "search", "测试")
	if !strings.Contains(out, "3 limit-up days") {
		t.Errorf("search output = %q", out)
	}
	if _, err := run(t, "ladder", "search", "missing"); err == nil {
		t.Error("search miss: want error")
	}

	out = mustRun(t, "ladder", "stats")
	if !strings.Contains(out, "2024-01-02 .. 2024-01-04") || !strings.Contains(out, "main") {
		t.Errorf("stats output = %q", out)
	}

	out = mustRun(t, "ladder", "trend", "-n", "2")
	if !strings.Contains(out, "2024-01-04") || strings.Contains(out, "2024-01-02") {
		t.Errorf("trend output = %q", out)
	}

	csvPath := filepath.Join(dir, "out.csv")
	out = mustRun(t, "ladder", "export", "--date", "2024-01-02", "-o", csvPath)
	if !strings.Contains(out, "wrote 1 rows") {
		t.Errorf("export output = %q", out)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "\ufeffdate,symbol") {
		t.Errorf("csv header = %q", data)
	}
}

func TestImportThenQueryParquet(t *testing.T) {
	dir := setup(t)

	out := mustRun(t, "import", "--ladder", filepath.Join(dir, "ladder.json"))
	if !strings.Contains(out, "imported 3 bars for 1 instruments, 3 ladder rows") {
		t.Errorf("import output = %q", out)
	}

	table := filepath.Join(dir, "data", "cn", "ladder.parquet")
	out = mustRun(t, "ladder", "query", "--file", table)
	if !strings.Contains(out, "2024-01-04  1 stocks") {
		t.Errorf("parquet query output = %q", out)
	}

	t.Setenv("LADDERSIM_SOURCE", "parquet")
	out = mustRun(t, "sim", "status")
	if !strings.Contains(out, "2024-01-04") {
		t.Errorf("status from parquet = %q", out)
	}
}
