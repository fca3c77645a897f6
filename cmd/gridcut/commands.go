package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/export"
	"github.com/piwi3910/GridCut/internal/httpapi"
	"github.com/piwi3910/GridCut/internal/importer"
	"github.com/piwi3910/GridCut/internal/model"
	"github.com/piwi3910/GridCut/internal/project"
	"github.com/piwi3910/GridCut/internal/session"
)

// report is the JSON document written by the run command.
type report struct {
	Job        string            `json:"job"`
	Reason     engine.StopReason `json:"reason"`
	Efficiency float64           `json:"efficiency"`
	Offcuts    []model.Offcut    `json:"offcuts,omitempty"`
	model.RunResult
}

func runFlags(fs *flag.FlagSet, stdout io.Writer) func(project.AppConfig) error {
	jobPath := fs.String("job", "", "job file to run")
	stocksPath := fs.String("stocks", "", "CSV or Excel stock table")
	productsPath := fs.String("products", "", "CSV or Excel product table")
	dxfPath := fs.String("dxf", "", "DXF drawing whose outlines become products")
	cellSize := fs.Float64("cell", importer.DefaultCellSize, "drawing units per grid cell for -dxf")
	outDir := fs.String("out", ".", "directory for reports")
	formats := fs.String("formats", "json,pdf,labels,xlsx", "comma-separated reports to write")
	maxSteps := fs.Int("max-steps", -1, "placement limit; -1 uses the config value")

	return func(cfg project.AppConfig) error {
		var job project.Job
		var err error
		if *jobPath != "" {
			job, err = project.LoadJob(*jobPath)
		} else {
			job, err = jobFromImports(*stocksPath, *productsPath, *dxfPath, *cellSize)
		}
		if err != nil {
			return err
		}

		policy, err := job.Policy()
		if err != nil {
			return err
		}
		opts := engine.RunOptions{MaxSteps: cfg.MaxSteps}
		if *maxSteps >= 0 {
			opts.MaxSteps = *maxSteps
		}

		ctx, cancel := signalContext()
		defer cancel()
		result, reason, runErr := engine.Run(ctx, policy, job.Stocks, job.Products, opts)
		job.Record(result.Pieces...)

		rep := report{Job: job.Name, Reason: reason, RunResult: job.Result()}
		rep.Efficiency = rep.TotalEfficiency()
		if cfg.OffcutMinArea > 0 {
			rep.Offcuts = model.DetectAllOffcuts(rep.Stocks, cfg.OffcutMinArea)
		}

		if err := writeReports(*outDir, splitList(*formats), job, rep, cfg.OffcutMinArea); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "%s: placed %d pieces on %d stocks (%.1f%% used), %d unplaced, stopped: %s\n",
			job.Name, len(rep.Pieces), len(rep.Stocks), rep.Efficiency, rep.UnplacedCount(), reason)
		return runErr
	}
}

// jobFromImports builds a job from stock and product tables and an optional
// drawing. Import warnings are logged; any import error aborts.
func jobFromImports(stocksPath, productsPath, dxfPath string, cellSize float64) (project.Job, error) {
	if stocksPath == "" {
		return project.Job{}, errors.New("either -job or -stocks is required")
	}
	if productsPath == "" && dxfPath == "" {
		return project.Job{}, errors.New("-products or -dxf is required with -stocks")
	}

	job := project.NewJob(strings.TrimSuffix(filepath.Base(stocksPath), filepath.Ext(stocksPath)))

	stocks := importer.ImportFile(stocksPath, importer.Stocks)
	if err := checkImport(stocksPath, stocks); err != nil {
		return project.Job{}, err
	}
	job.Stocks = stocks.Stocks

	if productsPath != "" {
		products := importer.ImportFile(productsPath, importer.Products)
		if err := checkImport(productsPath, products); err != nil {
			return project.Job{}, err
		}
		job.Products = append(job.Products, products.Products...)
	}
	if dxfPath != "" {
		drawn := importer.ImportDXF(dxfPath, cellSize)
		if err := checkImport(dxfPath, drawn); err != nil {
			return project.Job{}, err
		}
		job.Products = append(job.Products, drawn.Products...)
	}

	if err := job.Validate(); err != nil {
		return project.Job{}, err
	}
	return job, nil
}

func checkImport(path string, result importer.ImportResult) error {
	for _, w := range result.Warnings {
		log.Warn().Str("file", path).Msg(w)
	}
	if !result.OK() {
		return fmt.Errorf("import %s: %s", path, strings.Join(result.Errors, "; "))
	}
	return nil
}

func writeReports(dir string, formats []string, job project.Job, rep report, offcutMinArea int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := project.SaveJob(filepath.Join(dir, "job.json"), job); err != nil {
		return err
	}

	for _, format := range formats {
		var err error
		var path string
		switch format {
		case "json":
			path = filepath.Join(dir, "result.json")
			err = writeJSON(path, rep)
		case "pdf":
			path = filepath.Join(dir, "layout.pdf")
			err = export.ExportPDF(path, rep.RunResult, export.PDFOptions{MinOffcutArea: offcutMinArea})
		case "labels":
			path = filepath.Join(dir, "labels.pdf")
			err = export.ExportLabels(path, rep.RunResult)
		case "xlsx":
			path = filepath.Join(dir, "placements.xlsx")
			err = export.ExportExcel(path, rep.RunResult)
		default:
			return fmt.Errorf("unknown report format %q", format)
		}
		if errors.Is(err, export.ErrNothingToExport) {
			log.Warn().Str("format", format).Msg("Nothing placed, report skipped")
			continue
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		log.Info().Str("path", path).Msg("Report written")
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func nextFlags(fs *flag.FlagSet, stdout io.Writer) func(project.AppConfig) error {
	jobPath := fs.String("job", "", "job file to advance (rewritten in place)")

	return func(project.AppConfig) error {
		if *jobPath == "" {
			return errors.New("-job is required")
		}
		job, err := project.LoadJob(*jobPath)
		if err != nil {
			return err
		}
		policy, err := job.Policy()
		if err != nil {
			return err
		}

		s := session.New(policy, job.Stocks, job.Products)
		piece, ok := s.Step()
		if !ok {
			fmt.Fprintln(stdout, "no placement")
			return nil
		}

		state := s.State()
		job.Stocks = state.Stocks
		job.Products = state.Products
		job.Record(piece)
		if err := project.SaveJob(*jobPath, job); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "placed %s (%s) on stock %d at (%d,%d)\n",
			piece.Label, piece.Size, piece.StockIndex, piece.Position.X, piece.Position.Y)
		return nil
	}
}

func serveFlags(fs *flag.FlagSet) func(project.AppConfig) error {
	addr := fs.String("addr", "", "listen address; empty uses the config value")
	origins := fs.String("cors", "", "comma-separated allowed origins; empty allows all")
	compress := fs.Bool("gzip", true, "gzip responses")

	return func(cfg project.AppConfig) error {
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		listen := cfg.ListenAddr
		if *addr != "" {
			listen = *addr
		}

		handler := httpapi.NewHandler(cfg.MaxSteps, cfg.OffcutMinArea)
		router := httpapi.NewRouter(handler, httpapi.RouterConfig{
			CORSOrigins: splitList(*origins),
			Compress:    *compress,
		})
		return httpapi.NewServer(router, listen).Run()
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
