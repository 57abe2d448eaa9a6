package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// placeholderPattern matches {key} tokens with identifier-style keys, so
// literal braces in embedded CSS or scripts pass through untouched.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// Template points at the files a document is rendered from: a required HTML
// file, an optional CSS file and an optional assets directory. Every path is
// validated when it is set, not when it is used.
type Template struct {
	htmlPath   string
	cssPath    string
	assetsPath string
}

// NewTemplate creates a Template. cssPath and assetsPath may be empty.
func NewTemplate(htmlPath, cssPath, assetsPath string) (*Template, error) {
	t := &Template{}
	if err := t.SetHTMLPath(htmlPath); err != nil {
		return nil, err
	}
	if err := t.SetCSSPath(cssPath); err != nil {
		return nil, err
	}
	if err := t.SetAssetsPath(assetsPath); err != nil {
		return nil, err
	}
	return t, nil
}

// TemplateFromDir scans a directory and builds a Template from the first
// *.html file, the first *.css file and an assets subdirectory, when present.
func TemplateFromDir(dir string) (*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan template directory %s: %w", dir, err)
	}

	var htmlPath, cssPath, assetsPath string
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			if name == "assets" && assetsPath == "" {
				assetsPath = filepath.Join(dir, name)
			}
		case htmlPath == "" && strings.HasSuffix(name, ".html"):
			htmlPath = filepath.Join(dir, name)
		case cssPath == "" && strings.HasSuffix(name, ".css"):
			cssPath = filepath.Join(dir, name)
		}
	}

	if htmlPath == "" {
		return nil, fmt.Errorf("no html template found in %s", dir)
	}

	return NewTemplate(htmlPath, cssPath, assetsPath)
}

// HTMLPath returns the path of the HTML template file.
func (t *Template) HTMLPath() string { return t.htmlPath }

// CSSPath returns the path of the stylesheet, or "" when none is set.
func (t *Template) CSSPath() string { return t.cssPath }

// AssetsPath returns the assets directory, or "" when none is set.
func (t *Template) AssetsPath() string { return t.assetsPath }

// SetHTMLPath points the template at a new HTML file. The file must exist.
func (t *Template) SetHTMLPath(path string) error {
	if err := checkFile(path, "html template"); err != nil {
		return err
	}
	t.htmlPath = path
	return nil
}

// SetCSSPath points the template at a new stylesheet. An empty path clears it.
func (t *Template) SetCSSPath(path string) error {
	if path == "" {
		t.cssPath = ""
		return nil
	}
	if err := checkFile(path, "css file"); err != nil {
		return err
	}
	t.cssPath = path
	return nil
}

// SetAssetsPath points the template at a new assets directory. An empty path
// clears it.
func (t *Template) SetAssetsPath(path string) error {
	if path == "" {
		t.assetsPath = ""
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("assets directory %s does not exist", path)
		}
		return fmt.Errorf("failed to stat assets directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets path %s is not a directory", path)
	}
	t.assetsPath = path
	return nil
}

// HTML returns the raw template text.
func (t *Template) HTML() (string, error) {
	data, err := os.ReadFile(t.htmlPath)
	if err != nil {
		return "", fmt.Errorf("failed to read html template %s: %w", t.htmlPath, err)
	}
	return string(data), nil
}

// Render substitutes every {key} placeholder in the template with its value.
// A placeholder without a matching key fails with ErrMissingKey naming the
// first missing key.
func (t *Template) Render(values map[string]string) (string, error) {
	html, err := t.HTML()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(html, -1) {
		key := html[m[2]:m[3]]
		value, ok := values[key]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingKey, key)
		}
		b.WriteString(html[last:m[0]])
		b.WriteString(value)
		last = m[1]
	}
	b.WriteString(html[last:])

	return b.String(), nil
}

// CSS returns the stylesheet text. It fails with ErrNoCSSPath when the
// template has no stylesheet.
func (t *Template) CSS() (string, error) {
	if t.cssPath == "" {
		return "", ErrNoCSSPath
	}
	data, err := os.ReadFile(t.cssPath)
	if err != nil {
		return "", fmt.Errorf("failed to read css file %s: %w", t.cssPath, err)
	}
	return string(data), nil
}

// checkFile checks that the path names an existing regular file.
func checkFile(path, what string) error {
	if path == "" {
		return fmt.Errorf("%s path cannot be empty", what)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %s does not exist", what, path)
		}
		return fmt.Errorf("failed to stat %s %s: %w", what, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s %s is a directory, not a file", what, path)
	}
	return nil
}
