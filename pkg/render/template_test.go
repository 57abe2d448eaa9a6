package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTemplateDir lays out a template directory with the given files and
// returns its path. A nil content writes an assets subdirectory instead.
func writeTemplateDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}
	return dir
}

func TestNewTemplate_Validation(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{
		"cert.html": "<html>{name}</html>",
		"cert.css":  "body {}",
	})
	htmlPath := filepath.Join(dir, "cert.html")
	cssPath := filepath.Join(dir, "cert.css")

	tests := []struct {
		name       string
		htmlPath   string
		cssPath    string
		assetsPath string
		errMsg     string
	}{
		{name: "html only", htmlPath: htmlPath},
		{name: "html and css", htmlPath: htmlPath, cssPath: cssPath},
		{name: "empty html path", errMsg: "html template path cannot be empty"},
		{
			name: "missing html", htmlPath: filepath.Join(dir, "other.html"),
			errMsg: "does not exist",
		},
		{
			name: "missing css", htmlPath: htmlPath, cssPath: filepath.Join(dir, "other.css"),
			errMsg: "does not exist",
		},
		{
			name: "missing assets dir", htmlPath: htmlPath, assetsPath: filepath.Join(dir, "assets"),
			errMsg: "does not exist",
		},
		{
			name: "assets path is a file", htmlPath: htmlPath, assetsPath: cssPath,
			errMsg: "is not a directory",
		},
		{
			name: "html path is a directory", htmlPath: dir,
			errMsg: "is a directory, not a file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTemplate(tt.htmlPath, tt.cssPath, tt.assetsPath)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("NewTemplate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Error("NewTemplate() expected error but got none")
				return
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("NewTemplate() error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestTemplate_SettersValidateBeforeMutating(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"cert.html": "<html></html>"})
	htmlPath := filepath.Join(dir, "cert.html")

	tpl, err := NewTemplate(htmlPath, "", "")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	if err := tpl.SetHTMLPath(filepath.Join(dir, "missing.html")); err == nil {
		t.Error("SetHTMLPath() expected error for missing file but got none")
	}
	if tpl.HTMLPath() != htmlPath {
		t.Errorf("HTMLPath() = %q after failed set, want %q", tpl.HTMLPath(), htmlPath)
	}

	if err := tpl.SetCSSPath(filepath.Join(dir, "missing.css")); err == nil {
		t.Error("SetCSSPath() expected error for missing file but got none")
	}
	if tpl.CSSPath() != "" {
		t.Errorf("CSSPath() = %q after failed set, want empty", tpl.CSSPath())
	}
}

func TestTemplate_ClearOptionalPaths(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "cert.html")
	cssPath := filepath.Join(dir, "cert.css")
	assetsPath := filepath.Join(dir, "assets")
	if err := os.WriteFile(htmlPath, []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cssPath, []byte("body {}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(assetsPath, 0755); err != nil {
		t.Fatal(err)
	}

	tpl, err := NewTemplate(htmlPath, cssPath, assetsPath)
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	if err := tpl.SetCSSPath(""); err != nil {
		t.Errorf("SetCSSPath(\"\") error = %v", err)
	}
	if tpl.CSSPath() != "" {
		t.Errorf("CSSPath() = %q, want empty", tpl.CSSPath())
	}

	if err := tpl.SetAssetsPath(""); err != nil {
		t.Errorf("SetAssetsPath(\"\") error = %v", err)
	}
	if tpl.AssetsPath() != "" {
		t.Errorf("AssetsPath() = %q, want empty", tpl.AssetsPath())
	}
}

func TestTemplateFromDir(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{
		"certificate.html": "<html>{name}</html>",
		"style.css":        "body {}",
		"notes.txt":        "ignored",
	})
	if err := os.Mkdir(filepath.Join(dir, "assets"), 0755); err != nil {
		t.Fatal(err)
	}

	tpl, err := TemplateFromDir(dir)
	if err != nil {
		t.Fatalf("TemplateFromDir() error = %v", err)
	}

	if got, want := tpl.HTMLPath(), filepath.Join(dir, "certificate.html"); got != want {
		t.Errorf("HTMLPath() = %q, want %q", got, want)
	}
	if got, want := tpl.CSSPath(), filepath.Join(dir, "style.css"); got != want {
		t.Errorf("CSSPath() = %q, want %q", got, want)
	}
	if got, want := tpl.AssetsPath(), filepath.Join(dir, "assets"); got != want {
		t.Errorf("AssetsPath() = %q, want %q", got, want)
	}
}

func TestTemplateFromDir_NoHTML(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"style.css": "body {}"})

	_, err := TemplateFromDir(dir)
	if err == nil {
		t.Fatal("TemplateFromDir() expected error but got none")
	}
	if !strings.Contains(err.Error(), "no html template found") {
		t.Errorf("TemplateFromDir() error = %q", err)
	}
}

func TestTemplate_Render(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{
		"cert.html": "<h1>{name}</h1><p>{content} issued by {entity} for {name}</p>",
	})

	tpl, err := NewTemplate(filepath.Join(dir, "cert.html"), "", "")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	got, err := tpl.Render(map[string]string{
		"name":    "Ada Lovelace",
		"content": "Go Fundamentals",
		"entity":  "Analytical Engines",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "<h1>Ada Lovelace</h1><p>Go Fundamentals issued by Analytical Engines for Ada Lovelace</p>"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestTemplate_RenderMissingKey(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{
		"cert.html": "<h1>{name}</h1><p>{award}</p>",
	})

	tpl, err := NewTemplate(filepath.Join(dir, "cert.html"), "", "")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	_, err = tpl.Render(map[string]string{"name": "Ada"})
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Render() error = %v, want ErrMissingKey", err)
	}
	if !strings.Contains(err.Error(), `"award"`) {
		t.Errorf("Render() error = %q, want it to name the missing key", err)
	}
}

func TestTemplate_RenderLeavesCSSBracesAlone(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{
		"cert.html": "<style>body { color: red; }</style><h1>{name}</h1>",
	})

	tpl, err := NewTemplate(filepath.Join(dir, "cert.html"), "", "")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	got, err := tpl.Render(map[string]string{"name": "Ada"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "<style>body { color: red; }</style><h1>Ada</h1>"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestTemplate_CSS(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{
		"cert.html": "<html></html>",
		"cert.css":  "h1 { font-size: 40px; }",
	})

	withCSS, err := NewTemplate(filepath.Join(dir, "cert.html"), filepath.Join(dir, "cert.css"), "")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}
	css, err := withCSS.CSS()
	if err != nil {
		t.Fatalf("CSS() error = %v", err)
	}
	if css != "h1 { font-size: 40px; }" {
		t.Errorf("CSS() = %q", css)
	}

	withoutCSS, err := NewTemplate(filepath.Join(dir, "cert.html"), "", "")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}
	if _, err := withoutCSS.CSS(); !errors.Is(err, ErrNoCSSPath) {
		t.Errorf("CSS() error = %v, want ErrNoCSSPath", err)
	}
}

func TestTemplate_HTML(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"cert.html": "<html>{name}</html>"})

	tpl, err := NewTemplate(filepath.Join(dir, "cert.html"), "", "")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	html, err := tpl.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if html != "<html>{name}</html>" {
		t.Errorf("HTML() = %q, placeholders must stay raw", html)
	}
}
