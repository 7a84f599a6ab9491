// Package printer writes styled CLI output: status lines, check items and
// error boxes. Styling follows the color profile of the destination writer,
// so piped output stays plain.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/criterio"
	"github.com/muesli/termenv"

	"github.com/hay-kot/hive-chat/internal/styles"
)

// Symbols
const (
	Check = "✔"
	Cross = "✘"
	Dot   = "•"
)

type ctxKey struct{}

// Printer handles formatted output with colors and styles
type Printer struct {
	writer io.Writer

	red     lipgloss.Style
	green   lipgloss.Style
	yellow  lipgloss.Style
	gray    lipgloss.Style
	section lipgloss.Style
}

// New creates a Printer for w. Colors are used only when w is a terminal that
// supports them and NO_COLOR is unset.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Printer{
		writer:  w,
		red:     r.NewStyle().Foreground(styles.ColorRed),
		green:   r.NewStyle().Foreground(styles.ColorGreen),
		yellow:  r.NewStyle().Foreground(styles.ColorYellow),
		gray:    r.NewStyle().Foreground(styles.ColorGray),
		section: r.NewStyle().Foreground(styles.ColorBlue).Bold(true).Underline(true),
	}
}

// NewContext returns a context with the printer attached
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx retrieves the printer from context, or creates a default one
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr)
}

func (p *Printer) line(s string) {
	_, _ = io.WriteString(p.writer, s+"\n")
}

// FatalError prints a boxed error and does NOT exit; the caller owns the exit code.
// criterio.FieldErrors anywhere in the chain are listed one field per line.
func (p *Printer) FatalError(err error) {
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		p.box("Error", []string{p.gray.Render(err.Error())})
		return
	}

	// Keep the wrapping context, e.g. "load config: invalid config".
	var body []string
	if idx := strings.Index(err.Error(), fieldErrs.Error()); idx > 0 {
		body = append(body, p.gray.Render(strings.TrimSuffix(err.Error()[:idx], ": ")), "")
	}
	for _, fe := range fieldErrs {
		entry := p.red.Render(Cross) + " "
		if fe.Field != "" {
			entry += p.gray.Render(fe.Field + ": ")
		}
		body = append(body, entry+fe.Err.Error())
	}
	p.box("Validation Error", body)
}

func (p *Printer) box(title string, body []string) {
	p.line(p.red.Render("╭ " + title))
	for _, b := range body {
		if b == "" {
			p.line(p.red.Render("│"))
			continue
		}
		p.line(p.red.Render("│") + " " + b)
	}
	p.line(p.red.Render("╵"))
}

// Errorf prints an error message in red
func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.red.Render(Cross + " " + fmt.Sprintf(format, args...)))
}

// Successf prints a success message in green
func (p *Printer) Successf(format string, args ...any) {
	p.line(p.green.Render(Check + " " + fmt.Sprintf(format, args...)))
}

// Infof prints an info message in gray
func (p *Printer) Infof(format string, args ...any) {
	p.line(p.gray.Render(Dot + " " + fmt.Sprintf(format, args...)))
}

// Printf prints a plain message without colors
func (p *Printer) Printf(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

// Section prints a bold, underlined header.
func (p *Printer) Section(title string) {
	p.line(p.section.Render(title))
}

// CheckItem prints a passing item.
func (p *Printer) CheckItem(label, detail string) {
	p.item(p.green, Check, label, detail)
}

// WarnItem prints a warning item.
func (p *Printer) WarnItem(label, detail string) {
	p.item(p.yellow, Dot, label, detail)
}

// FailItem prints a failing item.
func (p *Printer) FailItem(label, detail string) {
	p.item(p.red, Cross, label, detail)
}

// KeyValue prints an indented, gray-keyed setting line.
func (p *Printer) KeyValue(key, value string) {
	p.line("  " + p.gray.Render(key+":") + " " + value)
}

func (p *Printer) item(style lipgloss.Style, symbol, label, detail string) {
	out := "  " + style.Render(symbol) + " " + label
	if detail != "" {
		out += ": " + detail
	}
	p.line(out)
}
