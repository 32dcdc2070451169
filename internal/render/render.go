// Package render writes the report model as Markdown, JSON or YAML.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/models"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer writes a Changelog in one output format.
type Renderer struct {
	format string
	tmpl   *template.Template
}

// New returns a renderer for format. For Markdown, templatePath selects a
// user template; empty means the built-in one.
func New(format, templatePath string) (*Renderer, error) {
	r := &Renderer{format: strings.ToLower(format)}
	switch r.format {
	case config.FormatJSON, config.FormatYAML:
		return r, nil
	case config.FormatMarkdown, "":
		r.format = config.FormatMarkdown
	default:
		return nil, fmt.Errorf("unknown format %q (use: markdown, json, yaml)", format)
	}

	var (
		tmpl *template.Template
		err  error
	)
	if templatePath == "" {
		tmpl, err = template.New("changelog.md.tmpl").Funcs(Funcs()).ParseFS(templatesFS, "templates/changelog.md.tmpl")
	} else {
		var data []byte
		data, err = os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("read template: %w", err)
		}
		tmpl, err = template.New(filepath.Base(templatePath)).Funcs(Funcs()).Parse(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Format returns the output format name.
func (r *Renderer) Format() string {
	return r.format
}

// Render writes cl to w.
func (r *Renderer) Render(w io.Writer, cl *models.Changelog) error {
	switch r.format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cl)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cl); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		if err := r.tmpl.Execute(w, cl); err != nil {
			return fmt.Errorf("render template: %w", err)
		}
		return nil
	}
}

// Funcs are the helpers available to changelog templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"firstLine": FirstLine,
		"shortHash": ShortHash,
		"join":      strings.Join,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
	}
}

// FirstLine returns the trimmed first non-empty line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// ShortHash abbreviates a commit hash to seven characters.
func ShortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
