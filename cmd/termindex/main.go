// Command termindex builds an inverted index over a document corpus, answers
// batch query files against a saved index, and optionally serves a saved
// index over HTTP.
//
//	termindex build -dataset corpus.tsv -index corpus.idx
//	termindex query -index corpus.idx -queries queries.txt
//	termindex serve -index corpus.idx -config termindex.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkovalev-dev/termindex/internal/corpus"
	"github.com/mkovalev-dev/termindex/internal/index"
	"github.com/mkovalev-dev/termindex/internal/index/codec"
	"github.com/mkovalev-dev/termindex/internal/search"
	"github.com/mkovalev-dev/termindex/internal/server"
	"github.com/mkovalev-dev/termindex/pkg/config"
	"github.com/mkovalev-dev/termindex/pkg/errors"
	"github.com/mkovalev-dev/termindex/pkg/logger"
	"github.com/mkovalev-dev/termindex/pkg/metrics"
	"github.com/mkovalev-dev/termindex/pkg/redis"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("invocation failed", "command", os.Args[1], "error", err)
		os.Exit(errors.ExitCode(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: termindex <build|query|serve> [flags]")
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	dataset := fs.String("dataset", "", "corpus to index: TSV file, .db/.sqlite file, or postgres:// URL")
	indexPath := fs.String("index", "", "path to write the index artifact")
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := setup(*configPath)
	if err != nil {
		return err
	}
	if *dataset == "" || *indexPath == "" {
		return errors.New(errors.ErrInvalidInput, "build requires -dataset and -index")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}()
	}

	src, err := corpus.Open(*dataset, cfg.Corpus)
	if err != nil {
		return err
	}

	start := time.Now()
	idx, err := index.BuildSharded(src, cfg.Indexer.Shards)
	if err != nil {
		return err
	}
	if err := codec.WriteFile(*indexPath, idx); err != nil {
		return err
	}
	if m != nil {
		m.DocsIndexedTotal.Add(float64(idx.DocCount()))
		m.IndexedTerms.Set(float64(idx.Len()))
		m.BuildDuration.Observe(time.Since(start).Seconds())
	}
	slog.Info("index built",
		"dataset", *dataset,
		"index", *indexPath,
		"docs", idx.DocCount(),
		"terms", idx.Len(),
		"shards", cfg.Indexer.Shards,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	indexPath := fs.String("index", "", "path to a saved index artifact")
	queriesPath := fs.String("queries", "", "query file: one whitespace-separated query per line")
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	if _, err := setup(*configPath); err != nil {
		return err
	}
	if *indexPath == "" || *queriesPath == "" {
		return errors.New(errors.ErrInvalidInput, "query requires -index and -queries")
	}

	idx, err := codec.ReadFile(*indexPath)
	if err != nil {
		return err
	}
	f, err := os.Open(*queriesPath)
	if err != nil {
		return fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()

	return search.NewRunner(idx, os.Stdout).Run(f)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	indexPath := fs.String("index", "", "path to a saved index artifact")
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := setup(*configPath)
	if err != nil {
		return err
	}
	if *indexPath == "" {
		return errors.New(errors.ErrIndexNotLoaded, "serve requires -index")
	}

	idx, err := codec.ReadFile(*indexPath)
	if err != nil {
		return err
	}
	slog.Info("index loaded", "index", *indexPath, "docs", idx.DocCount(), "terms", idx.Len())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.IndexedTerms.Set(float64(idx.Len()))
	}

	var cache *server.QueryCache
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		cache = server.NewQueryCache(client, cfg.Redis)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(idx, cache, m, cfg.Search)
	return srv.ListenAndServe(ctx, cfg.Server)
}

func setup(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
