package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/neko233-com/csv233-go/internal/config"
	"github.com/neko233-com/csv233-go/internal/logging"
	"github.com/neko233-com/csv233-go/internal/progress"
	"github.com/neko233-com/csv233-go/pkg/csv233"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "csv233",
		Usage:     "One-shot CSV table loader, checker and converter",
		Version:   version,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "csv233.yaml",
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:    "separator",
				Aliases: []string{"s"},
				Usage:   `Field separator (single byte, "\t" for tab)`,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the header and the first rows of a table",
				ArgsUsage: "FILE",
				Action:    showTable,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 10,
						Usage: "Number of rows to print (0 for all)",
					},
				},
			},
			{
				Name:      "check",
				Usage:     "Load tables and report width errors",
				ArgsUsage: "FILE...",
				Action:    checkTables,
			},
			{
				Name:      "convert",
				Usage:     "Convert a table between csv, tsv, xlsx, json and sqlite",
				ArgsUsage: "SRC DST",
				Action:    convertTable,
			},
			{
				Name:      "batch",
				Usage:     "Convert every table in a directory",
				ArgsUsage: "DIR OUTDIR",
				Action:    batchConvert,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "to",
						Value: "xlsx",
						Usage: "Target file suffix",
					},
				},
			},
			{
				Name:      "watch",
				Usage:     "Load a directory and hot reload tables on change",
				ArgsUsage: "[DIR]",
				Action:    watchDir,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override from flags
	if c.IsSet("separator") {
		cfg.Separator = c.String("separator")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	csv233.SetLogger(logging.NewLogger(c.App.ErrWriter, level, format).WithName("csv233"))
	return nil
}

func showTable(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: csv233 show FILE", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	t, err := csv233.NewDefaultRegistry(cfg.SeparatorByte()).ReadTable(path, cfg.SeparatorByte())
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "%s: %s, %d columns, %d rows\n",
		path, humanize.Bytes(uint64(info.Size())), len(t.Header()), t.Len())
	fmt.Fprintln(out, strings.Join(t.Header(), " | "))

	limit := c.Int("limit")
	for i, row := range t.Rows() {
		if limit > 0 && i >= limit {
			fmt.Fprintf(out, "... %d more rows\n", t.Len()-limit)
			break
		}
		fmt.Fprintln(out, strings.Join(row, " | "))
	}
	return nil
}

func checkTables(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: csv233 check FILE...", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	registry := csv233.NewDefaultRegistry(cfg.SeparatorByte())
	failed := 0
	for _, path := range c.Args().Slice() {
		t, err := registry.ReadTable(path, cfg.SeparatorByte())
		if err != nil {
			failed++
			fmt.Fprintf(c.App.Writer, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "OK   %s (%d columns, %d rows)\n", path, len(t.Header()), t.Len())
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d tables failed", failed, c.NArg()), 1)
	}
	return nil
}

func convertTable(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: csv233 convert SRC DST", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	src, dst := c.Args().Get(0), c.Args().Get(1)
	if err := csv233.NewDefaultRegistry(cfg.SeparatorByte()).Convert(src, dst, cfg.SeparatorByte()); err != nil {
		return fmt.Errorf("convert %s -> %s: %w", src, dst, err)
	}
	fmt.Fprintf(c.App.Writer, "%s -> %s\n", src, dst)
	return nil
}

func batchConvert(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: csv233 batch DIR OUTDIR --to SUFFIX", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	dir, outDir := c.Args().Get(0), c.Args().Get(1)
	suffix := strings.TrimPrefix(c.String("to"), ".")
	registry := csv233.NewDefaultRegistry(cfg.SeparatorByte())
	if _, ok := registry.HandlerFor("x." + suffix); !ok {
		return fmt.Errorf("unsupported target suffix %q (supported: %s)", suffix, strings.Join(registry.Suffixes(), ", "))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var sources []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, ok := registry.HandlerFor(path); ok {
			sources = append(sources, path)
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	tracker := progress.New(len(sources), "Converting", c.App.ErrWriter)
	var errs []error
	for _, src := range sources {
		dst := filepath.Join(outDir, csv233.TableNameOf(src)+"."+suffix)
		err := registry.Convert(src, dst, cfg.SeparatorByte())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
		}
		tracker.Done(err == nil)
	}
	tracker.Finish()
	return errors.Join(errs...)
}

func watchDir(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	dir := cfg.Dir
	if c.NArg() > 0 {
		dir = c.Args().First()
	}

	manager := csv233.NewTableManager(dir,
		csv233.WithSeparator(cfg.SeparatorByte()),
		csv233.WithParallelism(cfg.Parallelism),
		csv233.WithReloadTiming(cfg.Watch.BatchDelay, cfg.Watch.Cooldown),
	)
	manager.RegisterReloadFunc(func(names []string) {
		for _, name := range names {
			fmt.Fprintf(c.App.Writer, "loaded %s (%d rows)\n", name, manager.RowCount(name))
		}
	})

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := manager.LoadAll(ctx); err != nil {
		return err
	}
	if err := manager.StartWatching(); err != nil {
		return err
	}
	defer manager.Close()

	<-ctx.Done()
	fmt.Fprintln(c.App.Writer, "\nStopped watching.")
	return nil
}
