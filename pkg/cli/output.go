package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// printer writes the colored status lines of the commands.
type printer struct {
	w     io.Writer
	okC   *color.Color
	failC *color.Color
	dimC  *color.Color
	bold  *color.Color
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		w:     w,
		okC:   color.New(color.FgGreen),
		failC: color.New(color.FgRed),
		dimC:  color.New(color.FgHiBlack),
		bold:  color.New(color.Bold),
	}
}

func (p *printer) header(s string) {
	p.bold.Fprintln(p.w, s)
}

func (p *printer) ok(key, value string) {
	fmt.Fprintf(p.w, "  %s %-28s %s\n", p.okC.Sprint("✓"), key, value)
}

func (p *printer) fail(key string, err error) {
	fmt.Fprintf(p.w, "  %s %-28s %s\n", p.failC.Sprint("✗"), key, p.failC.Sprint(err))
}

func (p *printer) info(key, value string) {
	fmt.Fprintf(p.w, "  %s %-28s %s\n", p.dimC.Sprint("·"), key, value)
}
