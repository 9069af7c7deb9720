package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"Mirror_Rank_Go/internal/config"
	"Mirror_Rank_Go/internal/engine"
	"Mirror_Rank_Go/internal/output"
	"Mirror_Rank_Go/internal/server"
)

//go:embed default_config.yaml
var defaultConfigData []byte

//go:embed default_mirrors.yaml
var defaultMirrorsData []byte

// ensureFile checks whether the file exists next to the executable and
// materializes the embedded default on first run.
func ensureFile(fileName string, defaultData []byte) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine executable path: %w", err)
	}
	filePath := filepath.Join(filepath.Dir(exePath), fileName)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := os.WriteFile(filePath, defaultData, 0644); err != nil {
			return "", fmt.Errorf("cannot write default %s: %w", fileName, err)
		}
		log.Printf("first run, wrote default %s", filePath)
	} else if err != nil {
		return "", fmt.Errorf("cannot stat %s: %w", fileName, err)
	}
	return filePath, nil
}

func main() {
	serveMode := flag.Bool("serve", false, "run the web UI instead of a one-shot benchmark")
	port := flag.Int("port", 8080, "web UI port (with -serve)")
	flag.Parse()

	cfgPath, err := ensureFile("config.yaml", defaultConfigData)
	if err != nil {
		log.Fatalf("init config: %v", err)
	}
	mirrorsPath, err := ensureFile("mirrors.yaml", defaultMirrorsData)
	if err != nil {
		log.Fatalf("init mirror catalog: %v", err)
	}

	if *serveMode {
		if err := server.Start(*port, cfgPath, mirrorsPath); err != nil {
			log.Fatalf("server failed: %v", err)
		}
		return
	}

	runCli(cfgPath, mirrorsPath)
}

func runCli(cfgPath, mirrorsPath string) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("config loaded: concurrency=%d, top_n=%d, output_dir=%s", cfg.ProbeConcurrency, cfg.TopN, cfg.OutputDir)

	// Interrupt stops dispatching new probes; results persisted so far
	// stay usable.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := engine.RunBenchmark(ctx, cfg, mirrorsPath, func(message string) {
		log.Println(message)
	})
	if err != nil {
		log.Fatalf("benchmark failed: %v", err)
	}

	s := res.Summary
	log.Println("--- Run summary ---")
	log.Printf("Probed: %d  Succeeded: %d  Failed: %d", s.Probed, s.Succeeded, s.Failed)

	if s.Succeeded == 0 {
		log.Println("error: no mirror completed the timed transfer; ranked artifacts skipped")
		os.Exit(1)
	}

	log.Printf("Best: %.2f Mbps  Mean: %.2f Mbps", s.BestMbps(), s.MeanMbps())
	log.Printf("Connection quality: %s", s.Quality)
	log.Printf("Recommended parallel downloads: %d", s.ParallelHint)
	log.Printf("Artifacts written to %s (%s, %s)", cfg.OutputDir, output.MirrorlistFileName, output.ReportFileName)
}
