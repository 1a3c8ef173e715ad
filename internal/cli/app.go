// Package cli implements stashctl, a read-only inspector for a store directory.
package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/jsonstash/jsonstash/internal/document/repository"
	"golang.org/x/term"
)

// Store is the read side of a document repository.
type Store interface {
	Get(key string) (document.Document, error)
	Keys() []string
	Grouped() map[string][]string
}

// App holds state shared across commands.
type App struct {
	Store Store
	Out   io.Writer
	Err   io.Writer
}

// AppProvider lazily opens the store on first use.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// populated from flags before Execute()
	Dir string
	Ext string
	Out io.Writer
	Err io.Writer
}

// Get returns the App, opening the store on the first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// NewTestProvider returns a provider pre-initialised with app.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{app: app, Out: app.Out, Err: app.Err}
}

func (p *AppProvider) init() (*App, error) {
	info, err := os.Stat(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access store directory %s: %w", p.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store path is not a directory: %s", p.Dir)
	}

	// one broken file must not block inspection of the rest
	repo := repository.NewFileRepo(p.Dir, p.Ext, repository.LoadSkip)
	report, err := repo.Load()
	if err != nil {
		return nil, err
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(p.Err, "warning: skipped %s: %v\n", s.Name, s.Err)
	}
	return &App{Store: repo, Out: p.Out, Err: p.Err}, nil
}

// useColor resolves a --color flag value against the output stream.
func useColor(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("invalid --color %q (want auto, always or never)", mode)
}
