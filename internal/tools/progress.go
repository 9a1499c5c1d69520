// Package tools implements the CLI collaborators: CSV import/export,
// connection smoke testing, and the server-setting audit. Everything here
// consumes connections exclusively through the capability interface; cache
// internals stay out of reach.
package tools

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// ProgressTracker provides colored output and progress reporting for
// import/export operations.
type ProgressTracker struct {
	verbose   bool
	startTime time.Time
	bar       *progressbar.ProgressBar

	cyan   *color.Color
	green  *color.Color
	yellow *color.Color
	blue   *color.Color
}

// NewProgressTracker creates a new progress tracker. If verbose is true,
// detailed logging is enabled.
func NewProgressTracker(verbose bool) *ProgressTracker {
	return &ProgressTracker{
		verbose:   verbose,
		startTime: time.Now(),
		cyan:      color.New(color.FgCyan, color.Bold),
		green:     color.New(color.FgGreen, color.Bold),
		yellow:    color.New(color.FgYellow, color.Bold),
		blue:      color.New(color.FgBlue),
	}
}

func (pt *ProgressTracker) Info(format string, args ...interface{}) {
	if pt.verbose {
		pt.blue.Printf("   ℹ  "+format+"\n", args...)
	}
}

func (pt *ProgressTracker) Success(format string, args ...interface{}) {
	if pt.verbose {
		pt.green.Printf("   ✓  "+format+"\n", args...)
	}
}

func (pt *ProgressTracker) Warning(format string, args ...interface{}) {
	pt.yellow.Printf("   ⚠  "+format+"\n", args...)
}

// Progress advances the row progress bar, creating it on first use.
func (pt *ProgressTracker) Progress(current, total int, description string) {
	if pt.bar == nil || total != int(pt.bar.GetMax()) {
		pt.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("rows"),
		)
	}
	pt.bar.Set(current)
}

func (pt *ProgressTracker) FinishProgress() {
	if pt.bar != nil {
		pt.bar.Finish()
		fmt.Fprintln(os.Stderr)
		pt.bar = nil
	}
}

// Complete prints the summary line with row count and elapsed time.
func (pt *ProgressTracker) Complete(action string, totalRows int) {
	elapsed := time.Since(pt.startTime)
	pt.green.Printf("✓ %s %d rows in %v\n", action, totalRows, elapsed.Round(time.Millisecond))
}
