package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stockadvisor/internal/config"
	"stockadvisor/internal/store"
	"stockadvisor/internal/util"
	"stockadvisor/pkg/advisor"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: advisor-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version    Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  health     Print the service health object\n")
		fmt.Fprintf(os.Stderr, "  top        Browse ranked recommendations (-cap, -pages, -export, -save)\n")
		fmt.Fprintf(os.Stderr, "  analyze    Analyze one or more tickers (-exchange)\n")
		fmt.Fprintf(os.Stderr, "  history    List or print saved snapshots (-cap, -date)\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	if os.Args[1] == "version" {
		fmt.Printf("advisor-cli %s\n", version)
		return
	}

	cfgPath := "config/advisor.yaml"
	if p := os.Getenv("ADVISOR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	util.SetDefault(logger)

	client := advisor.NewClient(cfg.API.BaseURL, append(cfg.ClientOptions(), advisor.WithLogger(logger))...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, client, logger, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, client *advisor.Client, logger *slog.Logger, cmd string, args []string) error {
	switch cmd {
	case "health":
		return runHealth(ctx, client, os.Stdout)

	case "top":
		fs := flag.NewFlagSet("top", flag.ExitOnError)
		capFlag := fs.String("cap", string(advisor.CapAll), "cap filter: all, small, mid, large")
		pages := fs.Int("pages", 1, "number of pages to browse (1-3)")
		export := fs.String("export", "", "write the browsed records to this parquet file")
		save := fs.Bool("save", false, "write today's snapshot under storage.data_dir")
		fs.Parse(args)

		capFilter, err := advisor.ParseCapFilter(*capFlag)
		if err != nil {
			return err
		}
		opts := topOptions{capFilter: capFilter, pages: *pages, export: *export}
		if *save {
			if cfg.Storage.DataDir == "" {
				return fmt.Errorf("-save requires storage.data_dir or ADVISOR_DATA_DIR")
			}
			opts.snapshots = store.NewParquetStore(cfg.Storage.DataDir)
		}
		return runTop(ctx, client, opts, logger, os.Stdout)

	case "analyze":
		fs := flag.NewFlagSet("analyze", flag.ExitOnError)
		exchangeFlag := fs.String("exchange", cfg.Lookup.Exchange, "exchange: NSE or BSE")
		fs.Parse(args)

		exchange, err := advisor.ParseExchange(*exchangeFlag)
		if err != nil {
			return err
		}
		return runAnalyze(ctx, client, exchange, fs.Args(), os.Stdout)

	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		capFlag := fs.String("cap", string(advisor.CapAll), "cap filter: all, small, mid, large")
		date := fs.String("date", "", "snapshot date (YYYY-MM-DD); empty lists dates")
		fs.Parse(args)

		if cfg.Storage.DataDir == "" {
			return fmt.Errorf("history requires storage.data_dir or ADVISOR_DATA_DIR")
		}
		capFilter, err := advisor.ParseCapFilter(*capFlag)
		if err != nil {
			return err
		}
		return runHistory(ctx, store.NewParquetStore(cfg.Storage.DataDir), capFilter, *date, os.Stdout)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
