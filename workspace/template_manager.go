package workspace

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"sync"

	"github.com/abiosoft/mold"
)

// TemplateManager manages templates using mold for layout inheritance
type TemplateManager struct {
	engine mold.Engine
	funcs  template.FuncMap
	mu     sync.RWMutex
}

// NewTemplateManager creates a new template manager using mold
func NewTemplateManager() *TemplateManager {
	return &TemplateManager{
		funcs: template.FuncMap{},
	}
}

// LoadFromFS loads templates from an embedded filesystem
func (tm *TemplateManager) LoadFromFS(fs embed.FS) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	engine, err := mold.New(fs,
		mold.WithRoot("templates"),
		mold.WithFuncMap(tm.funcs),
	)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	tm.engine = engine

	return nil
}

// Render renders a page template
func (tm *TemplateManager) Render(w io.Writer, pageName string, data interface{}) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	return tm.engine.Render(w, pageName, data)
}

// AddFuncMap adds custom template functions
func (tm *TemplateManager) AddFuncMap(funcMap template.FuncMap) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for k, v := range funcMap {
		tm.funcs[k] = v
	}
}
