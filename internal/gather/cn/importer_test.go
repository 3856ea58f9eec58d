package cn

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"laddersim/internal/gather"
	"laddersim/internal/store"
	"laddersim/internal/util"
)

const klineJS = `window.klineData = {
  "600001": {"name": "测试股份", "dates": ["2024-01-02", "2024-01-03", "2024-01-04"],
             "values": [[10, 10, 9.9, 10.1], [10.5, 11, 10.4, 11], [11.2, 12, 11, 12.1]],
             "volumes": [1000, 2000, 3000]},
  "600002": {"name": "ST样例", "dates": ["2024-01-02"], "values": [[5, 5, 4.9, 5.1]], "volumes": [10]}
};`

const ladderJSON = `{
  "20240102": {"1": [{"code": "600001", "name": "测试股份", "price": 10, "limitUpDays": 1}]},
  "20240103": {"2": [{"code": "600001", "name": "测试股份", "price": 11, "limitUpDays": 2}]}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestKlineImporterName(t *testing.T) {
	g := NewKlineImporter("", "", nil, nil, util.NopLogger())
	if g.Name() != "cn-kline" {
		t.Errorf("expected name 'cn-kline', got %q", g.Name())
	}
}

func TestKlineImporterRun(t *testing.T) {
	dir := t.TempDir()
	kline := writeFile(t, dir, "kline.js", klineJS)
	lad := writeFile(t, dir, "ladder.json", ladderJSON)

	ps := store.NewParquetStore(filepath.Join(dir, "data"))
	g := NewKlineImporter(kline, lad, ps, ps, util.NopLogger())
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := g.Stats()
	if stats.Instruments != 2 || stats.Bars != 4 || stats.LadderRows != 2 {
		t.Errorf("stats = %+v", stats)
	}

	ser, err := ps.ReadSeries(context.Background(), "600001")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if ser.Len() != 3 || ser.Name() != "测试股份" {
		t.Errorf("series = %d bars, name %q", ser.Len(), ser.Name())
	}
	if b, ok := ser.Bar("2024-01-03"); !ok || b.Close != 11 || b.Volume != 2000 {
		t.Errorf("bar 2024-01-03 = %+v, %v", b, ok)
	}

	feed, err := store.ParquetSource{Store: ps}.LoadLadder(context.Background())
	if err != nil {
		t.Fatalf("LoadLadder: %v", err)
	}
	if got := feed.Dates(); len(got) != 2 || got[0] != "2024-01-02" {
		t.Errorf("ladder dates = %v", got)
	}
}

func TestKlineImporterRange(t *testing.T) {
	dir := t.TempDir()
	kline := writeFile(t, dir, "kline.json", klineJS)

	ps := store.NewParquetStore(dir)
	g := NewKlineImporter(kline, "", ps, nil, util.NopLogger())
	g.Range = gather.DateRange{Start: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}

	stats, err := g.Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Bars != 2 {
		t.Errorf("Bars = %d, want 2", stats.Bars)
	}
	codes, err := ps.ListCodes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 1 || codes[0] != "600001" {
		t.Errorf("codes = %v, want only 600001", codes)
	}
}

func TestKlineImporterErrors(t *testing.T) {
	dir := t.TempDir()
	ps := store.NewParquetStore(dir)

	if err := NewKlineImporter(filepath.Join(dir, "missing.json"), "", ps, nil, nil).Run(context.Background()); err == nil {
		t.Error("expected error for missing kline file")
	}

	kline := writeFile(t, dir, "kline.json", klineJS)
	if err := NewKlineImporter(kline, "ladder.json", ps, nil, nil).Run(context.Background()); err == nil {
		t.Error("expected error for ladder path without a ladder store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewKlineImporter(kline, "", ps, nil, nil).Run(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestDateRangeContains(t *testing.T) {
	var open gather.DateRange
	if !open.Contains("garbage") {
		t.Error("open range should contain everything")
	}
	r := gather.DateRange{
		Start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	for date, want := range map[string]bool{
		"2024-01-01": false,
		"2024-01-02": true,
		"2024-01-03": true,
		"2024-01-04": false,
		"bad":        false,
	} {
		if got := r.Contains(date); got != want {
			t.Errorf("Contains(%q) = %v, want %v", date, got, want)
		}
	}
}
