package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/certcraft/certcraft/pkg/dataset"
	"github.com/certcraft/certcraft/pkg/datasource"
)

// OutputType selects the document format a render run produces.
type OutputType string

// Supported output types.
const (
	OutputPDF  OutputType = "pdf"
	OutputHTML OutputType = "html"
)

// Validate checks that the output type is one of the supported values.
func (t OutputType) Validate() error {
	switch t {
	case OutputPDF, OutputHTML:
		return nil
	}
	return fmt.Errorf("%w: %q (supported: pdf, html)", ErrUnsupportedOutputType, string(t))
}

// Ext returns the file extension for the output type, dot included.
func (t OutputType) Ext() string {
	return "." + string(t)
}

// CraftConfig configures a one-shot Craft run. OutputPath writes a single
// document (the dataset must hold exactly one row); OutputDir writes one
// document per row, named by DecideFilename. Exactly one of the two must be
// set.
type CraftConfig struct {
	OutputType     OutputType
	Encoding       datasource.Encoding // output encoding for HTML documents
	TemplatePath   string              // directory scanned with TemplateFromDir
	OutputPath     string
	OutputDir      string
	DecideFilename func(dataset.Row) string
	Engine         PDFEngine // default wkhtmltopdf
	Logger         *slog.Logger
}

// SetDefaults fills in the defaults for unset fields.
func (c *CraftConfig) SetDefaults() {
	if c.OutputType == "" {
		c.OutputType = OutputPDF
	}
	if c.Encoding == "" {
		c.Encoding = datasource.EncodingUTF8
	}
	if c.Engine == nil {
		c.Engine = NewWKHTMLEngine()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate validates the configuration parameters.
func (c *CraftConfig) Validate() error {
	if err := c.OutputType.Validate(); err != nil {
		return err
	}

	if err := c.Encoding.Validate(); err != nil {
		return err
	}

	if c.TemplatePath == "" {
		return fmt.Errorf("template path cannot be empty")
	}
	info, err := os.Stat(c.TemplatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("template path %s does not exist", c.TemplatePath)
		}
		return fmt.Errorf("failed to stat template path %s: %w", c.TemplatePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("template path %s is not a directory", c.TemplatePath)
	}

	if (c.OutputPath == "") == (c.OutputDir == "") {
		return fmt.Errorf("exactly one of output path or output dir must be set")
	}

	if c.OutputDir != "" && c.DecideFilename == nil {
		return fmt.Errorf("a filename decider is required when writing to a directory")
	}

	return nil
}

// Craft renders every dataset row through the template directory and writes
// the documents. In OutputDir mode each row becomes <dir>/<decided><ext>;
// in OutputPath mode the dataset must hold exactly one row. It returns the
// written paths in row order.
func Craft(ctx context.Context, cfg CraftConfig, ds *dataset.Dataset) ([]string, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid craft config: %w", err)
	}

	if cfg.OutputPath != "" && ds.Len() != 1 {
		return nil, fmt.Errorf("output path mode requires exactly one row, dataset has %d", ds.Len())
	}

	tpl, err := TemplateFromDir(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		row, err := ds.Row(i)
		if err != nil {
			return paths, err
		}

		target := cfg.OutputPath
		if target == "" {
			name := cfg.DecideFilename(row)
			if name == "" {
				return paths, fmt.Errorf("row %d produced an empty file name", i)
			}
			target = filepath.Join(cfg.OutputDir, name+cfg.OutputType.Ext())
		}

		data, err := renderDocument(ctx, cfg.OutputType, cfg.Encoding, cfg.Engine, tpl, row)
		if err != nil {
			return paths, fmt.Errorf("row %d: %w", i, err)
		}

		if err := writeFileAtomic(target, data); err != nil {
			return paths, fmt.Errorf("row %d: %w", i, err)
		}
		paths = append(paths, target)
	}

	cfg.Logger.Info("Craft complete.", "documents", len(paths), "type", string(cfg.OutputType))
	return paths, nil
}

// renderDocument renders one row into final document bytes.
func renderDocument(ctx context.Context, t OutputType, enc datasource.Encoding, engine PDFEngine, tpl *Template, values map[string]string) ([]byte, error) {
	html, err := tpl.Render(values)
	if err != nil {
		return nil, err
	}

	if t == OutputPDF {
		data, err := engine.RenderPDF(ctx, html, tpl.CSSPath())
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	return encodeText(enc, html)
}

// encodeText encodes UTF-8 text into the target output encoding.
func encodeText(enc datasource.Encoding, text string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := enc.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to encode output as %s: %w", enc, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode output as %s: %w", enc, err)
	}
	return buf.Bytes(), nil
}
