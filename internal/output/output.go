package output

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/changelog/internal/issues"
)

// UI writes command results to Out and warnings to ErrOut.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")

	refColor  = color.New(color.FgHiCyan).SprintFunc()
	kindColor = map[issues.Kind]func(...any) string{
		issues.KindGitHub: color.New(color.FgHiGreen).SprintFunc(),
		issues.KindJira:   color.New(color.FgHiCyan).SprintFunc(),
		issues.KindCustom: color.New(color.FgHiYellow).SprintFunc(),
	}
	zeroColor  = color.New(color.FgHiRed).SprintFunc()
	countColor = color.New(color.FgHiGreen).SprintFunc()
)

// Ref highlights a tag name or issue id.
func Ref(s string) string { return refColor(s) }

// KindColor colors a tracker kind. Unknown kinds are returned as is.
func KindColor(kind string) string {
	if c, ok := kindColor[issues.Kind(kind)]; ok {
		return c(kind)
	}
	return kind
}

// CountColor returns n colored red when zero, green otherwise.
func CountColor(n int) string {
	s := strconv.Itoa(n)
	if n == 0 {
		return zeroColor(s)
	}
	return countColor(s)
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

// Diagnostics prints one warning per ignored issue reference. Nothing is
// printed for an empty list.
func (u *UI) Diagnostics(ds []issues.Diagnostic) {
	for _, d := range ds {
		u.Warning("%s", d)
	}
	if len(ds) > 0 {
		u.Warning("%d issue reference(s) ignored; the changelog is incomplete", len(ds))
	}
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Table returns a borderless, left-aligned table writing to Out.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
