// Command genmock writes a mock IMGW warning feed fixture for local runs and
// test suites. It routes every generated record through the actual domain
// normalizer so the fixture stays in step with real pipeline behavior.
//
// Serve the output with any static file server and point IMGW_FEED_URL at it.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/warningsmeteo.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/imgw-warning-proxy/internal/domain"
)

// baseTime anchors all generated windows so the fixture is reproducible.
var baseTime = time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)

const feedTimeLayout = "2006-01-02 15:04:05"

type mockDef struct {
	title       string
	level       string
	probability int
	offsetStart time.Duration // relative to baseTime
	duration    time.Duration
	teryt       []any
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the feed fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fixed clock so normalized fetched_at stamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseTime))
	defer domain.SetClock(nil)

	defs := []mockDef{
		{"Silny wiatr", "2", 80, -6 * time.Hour, 24 * time.Hour, []any{"0401", "0402"}},
		{"Burze z gradem", "3", 90, -2 * time.Hour, 8 * time.Hour, []any{"0401"}},
		{"Upał", "1", 70, -48 * time.Hour, 12 * time.Hour, []any{"1465"}},
		{"Gęsta mgła", "1", 60, 12 * time.Hour, 10 * time.Hour, []any{"0402", "1465"}},
		{"Oblodzenie", "2", 75, -1 * time.Hour, 36 * time.Hour, []any{"2201", "2202", "2203"}},
	}

	records := make([]map[string]any, 0, len(defs)+1)
	for _, d := range defs {
		start := baseTime.Add(d.offsetStart)
		records = append(records, map[string]any{
			"id":                 uuid.NewString(),
			"nazwa_zdarzenia":    d.title,
			"stopien":            d.level,
			"prawdopodobienstwo": fmt.Sprintf("%d", d.probability),
			"obowiazuje_od":      start.Format(feedTimeLayout),
			"obowiazuje_do":      start.Add(d.duration).Format(feedTimeLayout),
			"opublikowano":       baseTime.Add(-12 * time.Hour).Format(feedTimeLayout),
			"tresc":              fmt.Sprintf("Prognozuje się %s.", d.title),
			"komentarz":          "",
			"biuro":              "Centralne Biuro Prognoz Meteorologicznych w Warszawie",
			"teryt":              d.teryt,
		})
	}

	// One record without a stable id, to exercise the fallback match path.
	records = append(records, map[string]any{
		"id":              "none",
		"nazwa_zdarzenia": "Przymrozki",
		"stopien":         "1",
		"obowiazuje_od":   baseTime.Add(6 * time.Hour).Format(feedTimeLayout),
		"obowiazuje_do":   baseTime.Add(18 * time.Hour).Format(feedTimeLayout),
		"teryt":           "0401, 0402",
	})

	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing feed fixture: %w", err)
	}
	log.Printf("wrote feed fixture: %s (%d records)", *out, len(records))

	printStats(records)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []map[string]any) {
	levelCounts := map[string]int{}
	terytCounts := map[string]int{}
	var active, withID int

	for _, rec := range records {
		w := domain.Normalize(rec)
		if w.Level != nil {
			levelCounts[*w.Level]++
		}
		for _, t := range w.Areas {
			terytCounts[t]++
		}
		if w.ActiveAt(baseTime) {
			active++
		}
		if w.StableID() != "" {
			withID++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(records))
	fmt.Printf("With stable id: %d\n", withID)
	fmt.Printf("Active at %s: %d\n", baseTime.Format(time.RFC3339), active)
	fmt.Printf("By level: 1=%d, 2=%d, 3=%d\n",
		levelCounts["1"], levelCounts["2"], levelCounts["3"])
	fmt.Print("By teryt:")
	for _, t := range []string{"0401", "0402", "1465", "2201", "2202", "2203"} {
		fmt.Printf(" %s=%d", t, terytCounts[t])
	}
	fmt.Println()
}
