package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	bioreactor "github.com/Anindya-Karmaker/openua-bioreactor"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/store"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/app/export"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "export":
		err = exportCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("openua-bioreactor %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to logger configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := bioreactor.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, w := range cfg.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	rt, err := bioreactor.NewRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := bioreactor.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func exportCommand(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to logger configuration file")
	dbPath := fs.String("db", "", "Database file to export (default: today's file from the config)")
	outPath := fs.String("out", "export.xlsx", "Output xlsx path")
	start := fs.String("start", "", "Window start, RFC 3339 (default: beginning of data)")
	end := fs.String("end", "", "Window end, RFC 3339 (default: now)")
	interval := fs.Int("interval", 0, "Resample interval in seconds, 0 for raw rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := bioreactor.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := *dbPath
	if path == "" {
		path = cfg.Storage.StorePath(time.Now())
	}
	st, err := store.Open(path, cfg.ChannelKeys())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	req := export.Request{
		EndTS:        float64(time.Now().Unix()),
		IntervalS:    *interval,
		DisplayNames: cfg.DisplayNames(),
	}
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			return fmt.Errorf("parse -start: %w", err)
		}
		req.StartTS = float64(t.Unix())
	}
	if *end != "" {
		t, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			return fmt.Errorf("parse -end: %w", err)
		}
		req.EndTS = float64(t.Unix())
	}

	if err := export.Export(st, *outPath, req); err != nil {
		if errors.Is(err, export.ErrNoDataInRange) {
			return fmt.Errorf("%w (db %s)", err, path)
		}
		return err
	}
	fmt.Printf("exported %s to %s\n", path, *outPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"bioreactor_samples_polled_total":    0,
		"bioreactor_samples_persisted_total": 0,
		"bioreactor_cache_length":            0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] polled=%f persisted=%f cached=%f\n",
		time.Now().Format(time.RFC3339),
		targets["bioreactor_samples_polled_total"],
		targets["bioreactor_samples_persisted_total"],
		targets["bioreactor_cache_length"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`OpenUA Bioreactor Logger

Usage:
  openua-bioreactor <command> [flags]

Commands:
  run        Start the acquisition session using the provided config
  validate   Load and validate a config file without connecting
  export     Write a windowed xlsx export from a recorded database
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  openua-bioreactor run -config ./data/config.yaml
  openua-bioreactor validate -config ./data/config.yaml
  openua-bioreactor export -config ./data/config.yaml -interval 60 -out run.xlsx
  openua-bioreactor stats -url http://localhost:9100/metrics -interval 1s
`)
}
