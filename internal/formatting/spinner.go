package formatting

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// StartSpinner shows a progress spinner with msg on w and returns the
// function that stops it. Nothing is drawn unless w is a terminal, so
// piped output stays clean.
func StartSpinner(w io.Writer, msg string) (stop func()) {
	if !IsTerminal(w) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}
