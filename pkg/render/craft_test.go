package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/certcraft/certcraft/pkg/dataset"
	"github.com/certcraft/certcraft/pkg/datasource"
)

// newTestDataset builds a dataset from a header and rows.
func newTestDataset(t *testing.T, columns []string, rows [][]string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(columns)
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	for _, row := range rows {
		if err := ds.AppendRow(row); err != nil {
			t.Fatalf("AppendRow() error = %v", err)
		}
	}
	return ds
}

func nameDecider(row dataset.Row) string {
	return row["name"]
}

func TestOutputType_Validate(t *testing.T) {
	if err := OutputPDF.Validate(); err != nil {
		t.Errorf("Validate(pdf) error = %v", err)
	}
	if err := OutputHTML.Validate(); err != nil {
		t.Errorf("Validate(html) error = %v", err)
	}

	err := OutputType("docx").Validate()
	if !errors.Is(err, ErrUnsupportedOutputType) {
		t.Fatalf("Validate(docx) error = %v, want ErrUnsupportedOutputType", err)
	}
	want := `unsupported output type: "docx" (supported: pdf, html)`
	if err.Error() != want {
		t.Errorf("Validate(docx) error = %q, want %q", err, want)
	}
}

func TestOutputType_Ext(t *testing.T) {
	if got := OutputPDF.Ext(); got != ".pdf" {
		t.Errorf("Ext(pdf) = %q", got)
	}
	if got := OutputHTML.Ext(); got != ".html" {
		t.Errorf("Ext(html) = %q", got)
	}
}

func TestCraftConfig_Validate(t *testing.T) {
	tplDir := writeTemplateDir(t, map[string]string{"cert.html": "<h1>{name}</h1>"})
	outDir := t.TempDir()

	tests := []struct {
		name   string
		cfg    CraftConfig
		errMsg string
	}{
		{
			name: "dir mode",
			cfg:  CraftConfig{TemplatePath: tplDir, OutputDir: outDir, DecideFilename: nameDecider},
		},
		{
			name: "path mode needs no decider",
			cfg:  CraftConfig{TemplatePath: tplDir, OutputPath: filepath.Join(outDir, "one.pdf")},
		},
		{
			name:   "both outputs set",
			cfg:    CraftConfig{TemplatePath: tplDir, OutputPath: "a.pdf", OutputDir: outDir},
			errMsg: "exactly one of output path or output dir must be set",
		},
		{
			name:   "neither output set",
			cfg:    CraftConfig{TemplatePath: tplDir},
			errMsg: "exactly one of output path or output dir must be set",
		},
		{
			name:   "missing template path",
			cfg:    CraftConfig{OutputDir: outDir, DecideFilename: nameDecider},
			errMsg: "template path cannot be empty",
		},
		{
			name: "template path does not exist",
			cfg: CraftConfig{
				TemplatePath: filepath.Join(tplDir, "missing"),
				OutputDir:    outDir, DecideFilename: nameDecider,
			},
			errMsg: "does not exist",
		},
		{
			name: "template path is a file",
			cfg: CraftConfig{
				TemplatePath: filepath.Join(tplDir, "cert.html"),
				OutputDir:    outDir, DecideFilename: nameDecider,
			},
			errMsg: "is not a directory",
		},
		{
			name: "unknown output type",
			cfg: CraftConfig{
				OutputType:   OutputType("docx"),
				TemplatePath: tplDir, OutputDir: outDir, DecideFilename: nameDecider,
			},
			errMsg: "unsupported output type",
		},
		{
			name: "bad encoding",
			cfg: CraftConfig{
				Encoding:     datasource.Encoding("ebcdic"),
				TemplatePath: tplDir, OutputDir: outDir, DecideFilename: nameDecider,
			},
			errMsg: "unsupported encoding",
		},
		{
			name:   "dir mode without decider",
			cfg:    CraftConfig{TemplatePath: tplDir, OutputDir: outDir},
			errMsg: "a filename decider is required when writing to a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.SetDefaults()
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Error("Validate() expected error but got none")
				return
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestCraft_HTMLPerRow(t *testing.T) {
	tplDir := writeTemplateDir(t, map[string]string{
		"cert.html": "<h1>{name}</h1><p>{content}</p>",
	})
	outDir := t.TempDir()

	ds := newTestDataset(t,
		[]string{"name", "content"},
		[][]string{{"ada", "Go Fundamentals"}, {"grace", "Compilers"}})

	paths, err := Craft(context.Background(), CraftConfig{
		OutputType:     OutputHTML,
		TemplatePath:   tplDir,
		OutputDir:      outDir,
		DecideFilename: nameDecider,
	}, ds)
	if err != nil {
		t.Fatalf("Craft() error = %v", err)
	}

	want := []string{filepath.Join(outDir, "ada.html"), filepath.Join(outDir, "grace.html")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("Craft() paths = %v, want %v", paths, want)
	}

	data, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := string(data); got != "<h1>grace</h1><p>Compilers</p>" {
		t.Errorf("document = %q", got)
	}
}

func TestCraft_OutputPathRequiresSingleRow(t *testing.T) {
	tplDir := writeTemplateDir(t, map[string]string{"cert.html": "<h1>{name}</h1>"})
	outDir := t.TempDir()

	ds := newTestDataset(t, []string{"name"}, [][]string{{"ada"}, {"grace"}})

	_, err := Craft(context.Background(), CraftConfig{
		OutputType:   OutputHTML,
		TemplatePath: tplDir,
		OutputPath:   filepath.Join(outDir, "one.html"),
	}, ds)
	if err == nil {
		t.Fatal("Craft() expected error but got none")
	}
	want := "output path mode requires exactly one row, dataset has 2"
	if err.Error() != want {
		t.Errorf("Craft() error = %q, want %q", err, want)
	}
}

func TestCraft_OutputPathSingleRow(t *testing.T) {
	tplDir := writeTemplateDir(t, map[string]string{"cert.html": "<h1>{name}</h1>"})
	target := filepath.Join(t.TempDir(), "certificate.html")

	ds := newTestDataset(t, []string{"name"}, [][]string{{"ada"}})

	paths, err := Craft(context.Background(), CraftConfig{
		OutputType:   OutputHTML,
		TemplatePath: tplDir,
		OutputPath:   target,
	}, ds)
	if err != nil {
		t.Fatalf("Craft() error = %v", err)
	}
	if len(paths) != 1 || paths[0] != target {
		t.Fatalf("Craft() paths = %v", paths)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "<h1>ada</h1>" {
		t.Errorf("document = %q", data)
	}
}

func TestCraft_EmptyDecidedName(t *testing.T) {
	tplDir := writeTemplateDir(t, map[string]string{"cert.html": "<h1>{name}</h1>"})
	outDir := t.TempDir()

	ds := newTestDataset(t, []string{"name"}, [][]string{{"ada"}})

	_, err := Craft(context.Background(), CraftConfig{
		OutputType:     OutputHTML,
		TemplatePath:   tplDir,
		OutputDir:      outDir,
		DecideFilename: func(dataset.Row) string { return "" },
	}, ds)
	if err == nil {
		t.Fatal("Craft() expected error but got none")
	}
	if !strings.Contains(err.Error(), "empty file name") {
		t.Errorf("Craft() error = %q", err)
	}
}

func TestCraft_PDFUsesEngine(t *testing.T) {
	tplDir := writeTemplateDir(t, map[string]string{"cert.html": "<h1>{name}</h1>"})
	outDir := t.TempDir()

	engine := &fakePDFEngine{
		renderFunc: func(_ context.Context, html, _ string) ([]byte, error) {
			return []byte("pdf::" + html), nil
		},
	}

	ds := newTestDataset(t, []string{"name"}, [][]string{{"ada"}})

	paths, err := Craft(context.Background(), CraftConfig{
		OutputType:     OutputPDF,
		TemplatePath:   tplDir,
		OutputDir:      outDir,
		DecideFilename: nameDecider,
		Engine:         engine,
	}, ds)
	if err != nil {
		t.Fatalf("Craft() error = %v", err)
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "pdf::<h1>ada</h1>" {
		t.Errorf("document = %q", data)
	}
	if filepath.Ext(paths[0]) != ".pdf" {
		t.Errorf("path = %q, want a .pdf file", paths[0])
	}
}

func TestCraft_ISO88591Output(t *testing.T) {
	tplDir := writeTemplateDir(t, map[string]string{"cert.html": "<h1>{name}</h1>"})
	outDir := t.TempDir()

	ds := newTestDataset(t, []string{"name"}, [][]string{{"José"}})

	paths, err := Craft(context.Background(), CraftConfig{
		OutputType:     OutputHTML,
		Encoding:       datasource.EncodingISO88591,
		TemplatePath:   tplDir,
		OutputDir:      outDir,
		DecideFilename: func(dataset.Row) string { return "jose" },
	}, ds)
	if err != nil {
		t.Fatalf("Craft() error = %v", err)
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := append([]byte("<h1>Jos"), 0xE9, '<', '/', 'h', '1', '>')
	if !bytes.Equal(data, want) {
		t.Errorf("document bytes = %v, want %v", data, want)
	}
}
