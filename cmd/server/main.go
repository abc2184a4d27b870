package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/leadsheet/pkg/api"
	"github.com/hazyhaar/leadsheet/pkg/clean"
	"github.com/hazyhaar/leadsheet/pkg/dedup"
	"github.com/hazyhaar/leadsheet/pkg/ingest"
	"github.com/hazyhaar/leadsheet/pkg/kit"
	"github.com/hazyhaar/leadsheet/pkg/lead"
	"github.com/hazyhaar/leadsheet/pkg/sheet"
	"github.com/hazyhaar/leadsheet/pkg/store"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "clean":
		err = cmdClean(os.Args[2:])
	case "ingest":
		err = cmdIngest(os.Args[2:])
	case "duplicates":
		err = cmdDuplicates(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "leadsheet %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: leadsheet <command> [flags]

Commands:
  serve        Start the HTTP server (REST, /metrics, MCP at /mcp)
  clean        Clean a spreadsheet, optionally exporting the corrected xlsx
  ingest       Clean a spreadsheet and load it into a bucket
  duplicates   List fresh intake leads sharing a name
  mcp          Serve the MCP tools over stdio
`)
}

// app holds the wired pipeline for one command run.
type app struct {
	cfg    config
	logger *slog.Logger
	store  *store.Store
	eps    *api.Endpoints
}

// newApp loads the config and wires the pipeline. The store is opened only
// when withStore is set.
func newApp(ctx context.Context, cfgPath string, withStore bool) (*app, error) {
	boot := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg, err := loadConfig(cfgPath, boot)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	a := &app{cfg: cfg, logger: logger}
	deps := api.Deps{Cleaner: clean.NewCleaner(nil), Logger: logger}
	if withStore {
		s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", "driver", cfg.Store.Driver)
		a.store = s
		deps.Store = s
		deps.Detector = dedup.NewDetector(s, cfg.Ingest.IntakeBucket, cfg.Ingest.FreshStatus, logger)
		deps.Coordinator = ingest.NewCoordinator(s, deps.Detector, ingest.Config{
			ChunkSize:    cfg.Ingest.ChunkSize,
			IntakeBucket: cfg.Ingest.IntakeBucket,
		}, logger)
	}
	a.eps = api.NewEndpoints(deps)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func (a *app) mcpServer() *server.MCPServer {
	srv := server.NewMCPServer("leadsheet", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, a.eps, a.cfg.Clean)
	return srv
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *cfgPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	router := api.NewRouter(a.eps, api.Config{
		Clean:          a.cfg.Clean,
		MaxUploadBytes: a.cfg.Upload.MaxBytes,
		CSVEncoding:    a.cfg.Upload.CSVEncoding,
	}, server.NewStreamableHTTPServer(a.mcpServer()))

	srv := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: router,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("leadsheet listening", "addr", a.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	return srv.Shutdown(context.Background())
}

func cmdClean(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	in := fs.String("in", "", "spreadsheet to clean (.xlsx or .csv)")
	out := fs.String("out", "", "write the corrected workbook here instead of printing JSON")
	encoding := fs.String("encoding", "", "CSV text encoding (default from config)")
	dashes := fs.Bool("remove-dashes", false, "blank out cells containing only --")
	fs.Parse(args)

	ctx := kit.WithTransport(context.Background(), kit.TransportCLI)
	a, err := newApp(ctx, *cfgPath, false)
	if err != nil {
		return err
	}

	table, err := readTable(*in, a.encoding(*encoding))
	if err != nil {
		return err
	}
	opts := a.cfg.Clean
	if *dashes {
		opts.RemoveDashes = true
	}

	resp, err := a.eps.Clean(ctx, &api.CleanRequest{Table: table, Options: opts})
	if err != nil {
		return err
	}
	res := resp.(*api.CleanResponse)
	a.logger.Info("cleaned", "file", *in, "cells_changed", res.CellsChanged, "rows_removed", res.RowsRemoved,
		"batch_duplicates", len(res.BatchDuplicates))

	if *out == "" {
		return printJSON(res)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := sheet.WriteWorkbook(f, res.Table, sheet.ExportSheetName); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	in := fs.String("in", "", "spreadsheet to load (.xlsx or .csv)")
	bucket := fs.String("bucket", lead.BucketIntake, "destination bucket")
	name := fs.String("name", "", "source file name recorded on every lead (default: -in without extension)")
	encoding := fs.String("encoding", "", "CSV text encoding (default from config)")
	fs.Parse(args)

	target := lead.Target{Bucket: *bucket, SourceFile: strings.TrimSpace(*name)}
	if target.SourceFile == "" {
		target.SourceFile = ingest.SourceName(*in)
	}
	if err := ingest.ValidateTarget(target); err != nil {
		return err
	}

	ctx := kit.WithTransport(context.Background(), kit.TransportCLI)
	a, err := newApp(ctx, *cfgPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := readTable(*in, a.encoding(*encoding))
	if err != nil {
		return err
	}
	resp, err := a.eps.Ingest(ctx, &api.IngestRequest{Table: table, Options: a.cfg.Clean, Target: target})
	if resp != nil {
		if perr := printJSON(resp); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func cmdDuplicates(args []string) error {
	fs := flag.NewFlagSet("duplicates", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	ctx := kit.WithTransport(context.Background(), kit.TransportCLI)
	a, err := newApp(ctx, *cfgPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.eps.Duplicates(ctx, nil)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	a, err := newApp(context.Background(), *cfgPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("serving MCP over stdio")
	return server.ServeStdio(a.mcpServer())
}

func (a *app) encoding(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return a.cfg.Upload.CSVEncoding
}

func readTable(path, encoding string) (*sheet.Table, error) {
	if path == "" {
		return nil, errors.New("-in is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := sheet.Read(path, f, sheet.ReadOptions{Encoding: encoding})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
