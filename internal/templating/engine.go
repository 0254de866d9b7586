// Package templating renders text briefings from the cached weather picture.
package templating

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sync"
	"text/template"

	"github.com/vaahk/wxdecode/pkg/logger"
)

// DefaultTemplate names the built-in briefing.
const DefaultTemplate = "briefing.tmpl"

//go:embed templates/*.tmpl
var builtin embed.FS

// Engine handles template loading, caching, and rendering. Paths other than
// DefaultTemplate are read from disk.
type Engine struct {
	templateCache map[string]*template.Template
	cacheMutex    sync.RWMutex
	reload        bool
	logger        *logger.Logger
}

// NewEngine creates a new template engine. With reload set, file templates
// are re-read on every render.
func NewEngine(reload bool, log *logger.Logger) *Engine {
	return &Engine{
		templateCache: make(map[string]*template.Template),
		reload:        reload,
		logger:        log.Named("template-engine"),
	}
}

// Render executes the named template with data.
func (e *Engine) Render(templatePath string, data any) (string, error) {
	if templatePath == "" {
		templatePath = DefaultTemplate
	}

	tmpl, err := e.getTemplate(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	e.logger.Debug("Template rendered",
		logger.String("template_path", templatePath),
		logger.Int("rendered_length", buf.Len()))
	return buf.String(), nil
}

// getTemplate retrieves a template from cache or loads it
func (e *Engine) getTemplate(templatePath string) (*template.Template, error) {
	if !e.reload || templatePath == DefaultTemplate {
		e.cacheMutex.RLock()
		tmpl, ok := e.templateCache[templatePath]
		e.cacheMutex.RUnlock()
		if ok {
			return tmpl, nil
		}
	}

	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	// another goroutine may have loaded it
	if tmpl, ok := e.templateCache[templatePath]; ok && (!e.reload || templatePath == DefaultTemplate) {
		return tmpl, nil
	}

	tmpl, err := e.loadTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	e.templateCache[templatePath] = tmpl
	e.logger.Debug("Template loaded and cached", logger.String("template_path", templatePath))
	return tmpl, nil
}

func (e *Engine) loadTemplate(templatePath string) (*template.Template, error) {
	var (
		content []byte
		err     error
	)
	if templatePath == DefaultTemplate {
		content, err = builtin.ReadFile("templates/" + DefaultTemplate)
	} else {
		content, err = os.ReadFile(templatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template file '%s': %w", templatePath, err)
	}

	tmpl, err := template.New(templatePath).Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file '%s': %w", templatePath, err)
	}
	return tmpl, nil
}

// ClearCache clears the template cache
func (e *Engine) ClearCache() {
	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	n := len(e.templateCache)
	e.templateCache = make(map[string]*template.Template)
	e.logger.Info("Template cache cleared", logger.Int("cleared_count", n))
}
