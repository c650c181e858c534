package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/meteofill"
	"github.com/lox/meteofill/internal/bulk"
	"github.com/lox/meteofill/internal/catalog"
	"github.com/lox/meteofill/internal/config"
	"github.com/lox/meteofill/pkg/wx"
)

const dateLayout = "2006-01-02"

func main() {
	lat := flag.Float64("lat", 0, "latitude of the target point")
	lon := flag.Float64("lon", 0, "longitude of the target point")
	interval := flag.String("interval", "daily", "observation interval: daily or hourly")
	startStr := flag.String("start", "", "range start (YYYY-MM-DD, default 2018-02-01)")
	endStr := flag.String("end", "", "range end (YYYY-MM-DD, default 2018-04-15)")
	seed := flag.Int64("seed", 0, "imputation seed (0 = random)")
	trees := flag.Int("trees", 0, "trees per imputation model (0 = default 5000)")
	rawIDs := flag.Bool("raw-station-ids", false, "use numeric station identifiers as regression input")
	allMeta := flag.Bool("all-meta", false, "carry each station's own metadata instead of the nearest station's")
	output := flag.String("o", "", "output CSV path (default stdout)")
	flag.Parse()

	if *lat == 0 && *lon == 0 {
		log.Fatal("-lat and -lon are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var start, end time.Time
	if *startStr != "" {
		if start, err = time.Parse(dateLayout, *startStr); err != nil {
			log.Fatalf("parse -start: %v", err)
		}
	}
	if *endStr != "" {
		if end, err = time.Parse(dateLayout, *endStr); err != nil {
			log.Fatalf("parse -end: %v", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
		log.Fatalf("create cache dir: %v", err)
	}
	db, err := sql.Open("sqlite", cfg.CachePath)
	if err != nil {
		log.Fatalf("open catalog cache: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	cat := catalog.New(db, cfg.StationsURL)
	cat.SetTimeout(cfg.HTTPTimeout)
	if err := cat.Migrate(); err != nil {
		log.Fatalf("migrate catalog: %v", err)
	}

	dl := bulk.NewClient(cfg.BulkURL)
	dl.SetTimeout(cfg.HTTPTimeout)
	if cfg.FTPHost != "" {
		dl.UseFTP(cfg.FTPHost)
	}

	pipeline := meteofill.New(cat, dl)
	pipeline.SetSeed(*seed)
	pipeline.SetTrees(*trees)
	pipeline.SetRawStationEncoding(*rawIDs)
	pipeline.SetMetaFromAllStations(*allMeta)

	tbl, err := pipeline.FetchAndImpute(context.Background(), meteofill.Request{
		Latitude:  *lat,
		Longitude: *lon,
		Interval:  wx.Interval(*interval),
		Start:     start,
		End:       end,
	})
	if err != nil {
		log.Fatalf("fetch and impute: %v", err)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		out = f
	}
	if err := tbl.WriteCSV(out); err != nil {
		log.Fatalf("write csv: %v", err)
	}
	log.Printf("wrote %d rows", tbl.Nrow())
}
