package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/pipeline"
)

// stdout receives all user-facing output. Tests replace it.
var stdout io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // success, done runs
	colorYellow = lipgloss.Color("220") // warnings, cancelled runs
	colorRed    = lipgloss.Color("167") // errors, failed runs
	colorBlue   = lipgloss.Color("75")  // links, commands
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// Status Output
// =============================================================================

type status struct {
	icon  string
	style lipgloss.Style
}

var (
	statusSuccess = status{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	statusError   = status{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	statusWarning = status{"!", lipgloss.NewStyle().Foreground(colorYellow)}
	statusInfo    = status{"›", lipgloss.NewStyle().Foreground(colorGray)}
)

func (s status) print(msg string) {
	fmt.Fprintln(stdout, s.style.Render(s.icon)+" "+msg)
}

func printSuccess(format string, args ...any) { statusSuccess.print(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { statusError.print(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { statusInfo.print(fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	statusWarning.print(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// PrintError writes err to w: the message first, then the code and cause of
// coded errors on a dimmed line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, statusError.style.Render(statusError.icon)+" "+errors.UserMessage(err))
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return
	}
	detail := string(e.Code)
	if e.Cause != nil {
		detail += ": " + e.Cause.Error()
	}
	fmt.Fprintln(w, "  "+StyleDim.Render(detail))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints an output location.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(stdout)
}

// stateColor colors a run state in tables.
func stateColor(state string) lipgloss.Color {
	switch pipeline.State(state) {
	case pipeline.StateDone:
		return colorGreen
	case pipeline.StateFailed:
		return colorRed
	case pipeline.StateCancelled:
		return colorYellow
	}
	return colorGray
}

// =============================================================================
// Run Summary
// =============================================================================

// printReport prints the summary of a finished run.
func printReport(r *pipeline.Report) {
	counts := r.Counts
	printSuccess("%s", StyleTitle.Render(r.Title))
	printKeyValue("Run", r.RunID)
	printKeyValue("Assets", fmt.Sprintf("%d documented, %d skipped", counts.Successful, counts.Skipped))
	printKeyValue("Entities", fmt.Sprintf("%d graphs, %d nodes", counts.Graphs, counts.Nodes))
	printKeyValue("References", fmt.Sprintf("%d resolved, %d external, %d unresolved",
		counts.Resolved, counts.OutOfCorpus, counts.Unresolved))
	printKeyValue("Thumbnails", fmt.Sprintf("%d rendered, %d missing", counts.Rendered, counts.MissingThumbnails))
	docs := fmt.Sprintf("%d written", r.Documents)
	if r.Unchanged > 0 {
		docs += fmt.Sprintf(", %d unchanged", r.Unchanged)
	}
	printKeyValue("Documents", docs)

	for _, a := range r.Skipped() {
		printWarning("Skipped %s", a.Path)
		printDetail("%s", a.Error)
	}
	for _, u := range r.Unresolved {
		printWarning("Unresolved %s in %s (%s)", u.Target, u.From, u.Field)
	}
}
