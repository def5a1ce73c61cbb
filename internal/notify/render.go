package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"sort"
	"strings"
)

//go:embed templates/*.html
var templateFiles embed.FS

const layoutFile = "templates/layout.html"

// Renderer renders notification bodies from named templates.
// Rendering is a pure function of the template and the field set.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the embedded templates once.
func NewRenderer() (*Renderer, error) {
	return newRenderer(templateFiles)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	pages, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	r := &Renderer{templates: make(map[string]*template.Template)}
	for _, page := range pages {
		if page == layoutFile {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(page, "templates/"), ".html")
		t, err := template.New(name).Option("missingkey=zero").ParseFS(fsys, layoutFile, page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Names lists the available template names.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named template with fields. Field values are HTML-escaped.
func (r *Renderer) Render(name string, fields map[string]string) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name+".html", fields); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
