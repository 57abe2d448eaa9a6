package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/certcraft/certcraft/pkg/dataset"
	"github.com/certcraft/certcraft/pkg/datasource"
)

// RowErrorPolicy decides what a render run does when a row fails.
type RowErrorPolicy string

// Supported policies. Abort stops dispatching further rows and returns the
// first failure; Continue renders the remaining rows and reports failures
// in the render report.
const (
	AbortOnError    RowErrorPolicy = "abort"
	ContinueOnError RowErrorPolicy = "continue"
)

// Validate checks that the policy is one of the supported values.
func (p RowErrorPolicy) Validate() error {
	switch p {
	case AbortOnError, ContinueOnError:
		return nil
	}
	return fmt.Errorf("unsupported row error policy: %q (supported: abort, continue)", string(p))
}

// ManagerConfig tunes a TemplateManager run.
type ManagerConfig struct {
	WorkerCount   int                 // default 1 (sequential)
	OnRowError    RowErrorPolicy      // default abort
	WriteManifest bool                // write render-manifest.json next to the outputs
	Encoding      datasource.Encoding // output encoding for HTML documents
}

// SetDefaults fills in the defaults for unset fields.
func (c *ManagerConfig) SetDefaults() {
	if c.WorkerCount == 0 {
		c.WorkerCount = 1
	}
	if c.OnRowError == "" {
		c.OnRowError = AbortOnError
	}
	if c.Encoding == "" {
		c.Encoding = datasource.EncodingUTF8
	}
}

// Validate validates the configuration parameters.
func (c *ManagerConfig) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	if err := c.OnRowError.Validate(); err != nil {
		return err
	}
	return c.Encoding.Validate()
}

// RenderResult records the outcome of one row.
type RenderResult struct {
	Index     int           // dataset row index
	Name      string        // decided file name, extension included
	Template  string        // name of the template that rendered the row
	Path      string        // written path, empty on failure
	PageCount int           // pdf only, best effort
	Bytes     int64
	Duration  time.Duration
	Err       error
}

// RenderReport aggregates a whole run. Results are ordered by row index.
type RenderReport struct {
	OutputDir  string
	OutputType OutputType
	Results    []RenderResult
	Rendered   int
	Failed     int
	TotalBytes int64
	Elapsed    time.Duration
}

// FirstError returns the lowest-index row failure, or nil.
func (r *RenderReport) FirstError() error {
	for _, res := range r.Results {
		if res.Err != nil {
			if res.Name != "" {
				return fmt.Errorf("row %d (%s): %w", res.Index, res.Name, res.Err)
			}
			return fmt.Errorf("row %d: %w", res.Index, res.Err)
		}
	}
	return nil
}

// Summary returns a one-line digest of the run.
func (r *RenderReport) Summary() string {
	return fmt.Sprintf("rendered %d/%d documents (%d failed, %d bytes) in %s",
		r.Rendered, len(r.Results), r.Failed, r.TotalBytes, r.Elapsed.Round(time.Millisecond))
}

// renderJob is one unit of work for the render pool.
type renderJob struct {
	index int
	row   dataset.Row
}

// TemplateManager renders a dataset through one or more templates into a
// directory of documents. It is a chaining builder: wire the inputs, then
// call ToPDF or ToHTML. Managers are single-use and not safe for concurrent
// configuration.
type TemplateManager struct {
	source    datasource.DataSource
	ds        *dataset.Dataset
	templates map[string]*Template
	order     []string
	selector  func(dataset.Row) string
	filename  func(dataset.Row) string
	engine    PDFEngine
	cfg       ManagerConfig
	logger    *slog.Logger
}

// NewTemplateManager creates an empty manager.
func NewTemplateManager() *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*Template),
	}
}

// FromSource feeds the run from a DataSource. Mutually exclusive with
// FromDataset.
func (m *TemplateManager) FromSource(src datasource.DataSource) *TemplateManager {
	m.source = src
	return m
}

// FromDataset feeds the run from rows already in memory. Mutually exclusive
// with FromSource.
func (m *TemplateManager) FromDataset(ds *dataset.Dataset) *TemplateManager {
	m.ds = ds
	return m
}

// AddTemplate registers a template under a name the selector can return.
func (m *TemplateManager) AddTemplate(name string, tpl *Template) *TemplateManager {
	if _, exists := m.templates[name]; !exists {
		m.order = append(m.order, name)
	}
	m.templates[name] = tpl
	return m
}

// SelectTemplateBy sets the per-row template selector. Optional when exactly
// one template is registered.
func (m *TemplateManager) SelectTemplateBy(fn func(dataset.Row) string) *TemplateManager {
	m.selector = fn
	return m
}

// DecideFilenameBy sets the per-row file namer. The returned name must be
// non-empty and carries no extension.
func (m *TemplateManager) DecideFilenameBy(fn func(dataset.Row) string) *TemplateManager {
	m.filename = fn
	return m
}

// WithEngine overrides the PDF engine (default wkhtmltopdf).
func (m *TemplateManager) WithEngine(engine PDFEngine) *TemplateManager {
	m.engine = engine
	return m
}

// WithConfig sets the run configuration.
func (m *TemplateManager) WithConfig(cfg ManagerConfig) *TemplateManager {
	m.cfg = cfg
	return m
}

// WithLogger sets the logger (default slog.Default).
func (m *TemplateManager) WithLogger(logger *slog.Logger) *TemplateManager {
	m.logger = logger
	return m
}

// ToPDF renders every row to <outputDir>/<name>.pdf.
func (m *TemplateManager) ToPDF(ctx context.Context, outputDir string, createDir bool) (*RenderReport, error) {
	return m.run(ctx, OutputPDF, outputDir, createDir)
}

// ToHTML renders every row to <outputDir>/<name>.html.
func (m *TemplateManager) ToHTML(ctx context.Context, outputDir string, createDir bool) (*RenderReport, error) {
	return m.run(ctx, OutputHTML, outputDir, createDir)
}

// checkWiring validates the builder state before any side effects.
func (m *TemplateManager) checkWiring() error {
	if (m.source == nil) == (m.ds == nil) {
		return fmt.Errorf("exactly one of a data source or a dataset must be provided")
	}
	if len(m.templates) == 0 {
		return fmt.Errorf("at least one template is required")
	}
	if m.selector == nil && len(m.templates) > 1 {
		return fmt.Errorf("a template selector is required with multiple templates")
	}
	if m.filename == nil {
		return fmt.Errorf("a filename decider is required")
	}
	return nil
}

func (m *TemplateManager) run(ctx context.Context, t OutputType, outputDir string, createDir bool) (*RenderReport, error) {
	if err := m.checkWiring(); err != nil {
		return nil, fmt.Errorf("invalid manager: %w", err)
	}

	cfg := m.cfg
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manager config: %w", err)
	}

	logger := m.logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := m.engine
	if engine == nil {
		engine = NewWKHTMLEngine()
	}

	if err := ensureOutputDir(outputDir, createDir); err != nil {
		return nil, err
	}

	lock, err := acquireRunLock(outputDir, logger)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	ds := m.ds
	if m.source != nil {
		ds, err = m.source.LoadData(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load data: %w", err)
		}
	}

	logger.Info("Starting render run.",
		"rows", ds.Len(), "type", string(t), "workers", cfg.WorkerCount, "output", outputDir)

	start := time.Now()
	results := make([]RenderResult, ds.Len())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workChan := make(chan renderJob, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		row, err := ds.Row(i)
		if err != nil {
			return nil, err
		}
		workChan <- renderJob{index: i, row: row}
	}
	close(workChan)

	var wg sync.WaitGroup
	for w := 0; w < cfg.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range workChan {
				if err := runCtx.Err(); err != nil {
					results[job.index] = RenderResult{Index: job.index, Err: err}
					continue
				}

				res := m.renderRow(runCtx, t, outputDir, engine, cfg.Encoding, logger, job)
				results[job.index] = res
				if res.Err != nil {
					logger.Error("Failed to render row.", "row", job.index, "name", res.Name, "error", res.Err)
					if cfg.OnRowError == AbortOnError {
						cancel()
					}
				}
			}
		}()
	}
	wg.Wait()

	report := &RenderReport{
		OutputDir:  outputDir,
		OutputType: t,
		Results:    results,
		Elapsed:    time.Since(start),
	}
	for _, res := range results {
		if res.Err != nil {
			report.Failed++
		} else {
			report.Rendered++
			report.TotalBytes += res.Bytes
		}
	}
	logger.Info("Render run complete.", "summary", report.Summary())

	var runErr error
	if cfg.OnRowError == AbortOnError {
		runErr = report.FirstError()
	}

	if cfg.WriteManifest {
		if err := writeManifest(outputDir, buildManifest(report)); err != nil {
			logger.Error("Failed to write manifest.", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	return report, runErr
}

// renderRow renders one dataset row into its document file.
func (m *TemplateManager) renderRow(ctx context.Context, t OutputType, outputDir string, engine PDFEngine, enc datasource.Encoding, logger *slog.Logger, job renderJob) RenderResult {
	start := time.Now()
	res := RenderResult{Index: job.index}

	finish := func() RenderResult {
		res.Duration = time.Since(start)
		return res
	}

	tplName, tpl, err := m.templateFor(job.row)
	if err != nil {
		res.Err = err
		return finish()
	}
	res.Template = tplName

	name := m.filename(job.row)
	if name == "" {
		res.Err = fmt.Errorf("filename decider returned an empty name")
		return finish()
	}
	res.Name = name + t.Ext()

	data, err := renderDocument(ctx, t, enc, engine, tpl, job.row)
	if err != nil {
		res.Err = err
		return finish()
	}

	path := filepath.Join(outputDir, res.Name)
	if err := writeFileAtomic(path, data); err != nil {
		res.Err = err
		return finish()
	}

	res.Path = path
	res.Bytes = int64(len(data))
	if t == OutputPDF {
		res.PageCount = pdfPageCount(logger, data)
	}
	return finish()
}

// templateFor resolves the template a row renders through.
func (m *TemplateManager) templateFor(row dataset.Row) (string, *Template, error) {
	if m.selector == nil {
		name := m.order[0]
		return name, m.templates[name], nil
	}
	name := m.selector(row)
	tpl, ok := m.templates[name]
	if !ok {
		return "", nil, fmt.Errorf("no template registered under %q", name)
	}
	return name, tpl, nil
}

// ensureOutputDir checks the output directory, creating it when allowed.
func ensureOutputDir(outputDir string, createDir bool) error {
	info, err := os.Stat(outputDir)
	if os.IsNotExist(err) {
		if !createDir {
			return fmt.Errorf("output directory %s does not exist", outputDir)
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("could not create output directory %s: %w", outputDir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat output directory %s: %w", outputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", outputDir)
	}
	return nil
}
