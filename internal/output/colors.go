package output

import "github.com/fatih/color"

// palette holds the colors used by the text report.
type palette struct {
	title  *color.Color
	label  *color.Color
	ok     *color.Color
	warn   *color.Color
	bad    *color.Color
	subtle *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		title:  color.New(color.FgCyan, color.Bold),
		label:  color.New(color.FgYellow),
		ok:     color.New(color.FgGreen, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		bad:    color.New(color.FgRed, color.Bold),
		subtle: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.title, p.label, p.ok, p.warn, p.bad, p.subtle} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// status picks a color for a status class.
func (p *palette) status(code int) *color.Color {
	switch code / 100 {
	case 2:
		return p.ok
	case 3:
		return p.warn
	default:
		return p.bad
	}
}
