package main

import (
	"fmt"

	"github.com/pepe-http/pepe/internal/compact"
	"github.com/pepe-http/pepe/internal/config"
	"github.com/pepe-http/pepe/internal/control"
	"github.com/pepe-http/pepe/internal/dashboard"
	"github.com/pepe-http/pepe/internal/output"
)

// newPresenter builds the view for mode. The returned func releases the
// terminal and must be called before anything else is printed.
func newPresenter(mode config.UIMode, term streams) (control.Presenter, func(), error) {
	switch mode {
	case config.UIDashboard:
		d, err := dashboard.New(dashboard.DefaultRefreshInterval)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case config.UICompact:
		return compact.New(term.in, term.out, compact.DefaultRefreshInterval), func() {}, nil
	case config.UIHeadless:
		return output.NewHeadless(term.out, output.DefaultProgressInterval), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported ui mode %q", mode)
	}
}
