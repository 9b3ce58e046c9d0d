package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/geobet/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime la decisión en el modo configurado.
func (c *Console) Notify(_ context.Context, d domain.Decision, events []domain.Event) error {
	if c.table {
		c.printFull(d, events)
	} else {
		c.printCompact(d)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(d domain.Decision) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s → %s conf:%.2f",
		d.Timestamp.Format("15:04:05"), d.Attractor, d.Type, d.Confidence)

	for i, a := range d.Allocations {
		if i >= 4 {
			fmt.Fprintf(&sb, " | +%d more", len(d.Allocations)-i)
			break
		}
		fmt.Fprintf(&sb, " | %s %.2f%% $%.2f", a.GameID, a.Fraction*100, a.DollarAmount)
	}
	if len(d.Allocations) == 0 && len(d.Reasons) > 0 {
		fmt.Fprintf(&sb, " | %s", d.Reasons[0])
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla de allocations con el detalle del tick.
func (c *Console) printFull(d domain.Decision, events []domain.Event) {
	fmt.Fprintf(c.out, "\n[%s] %s — %s conf:%.2f execute:%v\n",
		d.Timestamp.Format("15:04:05"), d.Attractor, d.Type, d.Confidence, d.Execute)

	if len(d.Allocations) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Game", "Fraction", "Amount", "Edge", "Conf")
		for i, a := range d.Allocations {
			table.Append(
				fmt.Sprintf("%d", i+1),
				a.GameID,
				fmt.Sprintf("%.2f%%", a.Fraction*100),
				fmt.Sprintf("$%.2f", a.DollarAmount),
				fmt.Sprintf("%.3f", a.Edge),
				fmt.Sprintf("%.2f", a.Confidence),
			)
		}
		table.Render()
	}

	for _, r := range d.Reasons {
		fmt.Fprintf(c.out, "  · %s\n", r)
	}
	for _, ev := range events {
		fmt.Fprintf(c.out, "  ! %s: %s\n", ev.Type, ev.Detail)
	}
}
