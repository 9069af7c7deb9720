package journal

import (
	"context"
	"database/sql"
	"log"
	"time"

	"Mirror_Rank_Go/pkg/model"

	_ "modernc.org/sqlite"
)

// History keeps successful probes across runs in a local SQLite file so
// mirror speeds can be compared over time. It is strictly best-effort:
// open or insert failures are logged and never fail the run.
type History struct {
	db *sql.DB
}

// OpenHistory opens (and if needed initializes) the history database.
// Returns a nil-db History on failure, which all methods tolerate.
func OpenHistory(path string) *History {
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Printf("history store disabled, open failed: %v", err)
		return &History{}
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Printf("history store disabled, ping failed: %v", err)
		_ = db.Close()
		return &History{}
	}
	schema := `CREATE TABLE IF NOT EXISTS probe_history(
		run_id TEXT, url TEXT, region TEXT,
		speed_bps REAL, elapsed_s REAL, bytes INTEGER, ts INTEGER);
	CREATE INDEX IF NOT EXISTS idx_probe_history_url ON probe_history(url);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Printf("history store disabled, init schema failed: %v", err)
		_ = db.Close()
		return &History{}
	}
	return &History{db: db}
}

// Record inserts one successful probe. Best-effort.
func (h *History) Record(runID string, o model.ProbeOutcome) {
	if h == nil || h.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = h.db.ExecContext(ctx,
		`INSERT INTO probe_history(run_id, url, region, speed_bps, elapsed_s, bytes, ts) VALUES(?,?,?,?,?,?,?)`,
		runID, o.Endpoint.URL, o.Endpoint.Region, o.SpeedBps, o.ElapsedSeconds, o.BytesTransferred, time.Now().Unix())
}

// Close releases the database handle.
func (h *History) Close() {
	if h == nil || h.db == nil {
		return
	}
	_ = h.db.Close()
}
