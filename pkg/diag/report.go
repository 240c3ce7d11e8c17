package diag

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	positionColor = color.New(color.Bold)
	kindColor     = color.New(color.FgRed, color.Bold)
	fragmentColor = color.New(color.FgYellow)
)

// Report writes err for a terminal: position in bold, kind in red and the
// offending fragment in yellow. Errors that are not diagnostics are
// printed as-is. With color.NoColor set the output matches err.Error().
func Report(w io.Writer, err error) {
	var d *Error
	if !errors.As(err, &d) {
		kindColor.Fprint(w, "error: ")
		fmt.Fprintln(w, err)
		return
	}

	if pos := d.position(); pos != "" {
		positionColor.Fprint(w, pos+" ")
	}
	kindColor.Fprint(w, d.Kind.String()+": ")
	fmt.Fprint(w, d.Msg)
	if d.Fragment != "" {
		fmt.Fprint(w, " (near ")
		fragmentColor.Fprintf(w, "%q", d.Fragment)
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)
}
