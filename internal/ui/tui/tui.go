// Package tui renders a periodically refreshing textual view of a running
// manager, polled over the control socket.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/zafkar/oxwm/internal/control"
	"github.com/zafkar/oxwm/internal/control/client"
	"github.com/zafkar/oxwm/internal/state"
)

const (
	defaultRefresh = 500 * time.Millisecond
	titleWidth     = 48
)

// Renderer periodically polls the daemon and renders a textual dashboard.
type Renderer struct {
	Client  *client.Client
	Writer  io.Writer
	Refresh time.Duration
}

// New returns a renderer configured with sensible defaults.
func New(cli *client.Client, w io.Writer) *Renderer {
	return &Renderer{Client: cli, Writer: w, Refresh: defaultRefresh}
}

// Run starts the render loop until the context is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Writer == nil {
		r.Writer = os.Stdout
	}
	if r.Client == nil {
		return fmt.Errorf("watch renderer requires a control client")
	}

	refresh := r.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	fmt.Fprint(r.Writer, "\033[?25l")
	defer fmt.Fprint(r.Writer, "\033[?25h")

	r.render(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.render(ctx)
		}
	}
}

func (r *Renderer) render(ctx context.Context) {
	snapshot, err := r.Client.State(ctx)

	var buf bytes.Buffer
	buf.WriteString("\033[H\033[2J")
	buf.WriteString("oxwm watch — Ctrl+C to exit\n")
	buf.WriteString(time.Now().Format(time.RFC1123))
	buf.WriteString("\n\n")

	if err != nil {
		buf.WriteString(fmt.Sprintf("error: %v\n", err))
		fmt.Fprint(r.Writer, buf.String())
		return
	}

	buf.WriteString(renderMonitors(snapshot))
	buf.WriteString(renderClients(snapshot))
	fmt.Fprint(r.Writer, buf.String())
}

func renderMonitors(snap control.StateSnapshot) string {
	var b strings.Builder
	b.WriteString("Monitors:\n")
	if len(snap.Monitors) == 0 {
		b.WriteString("  (none)\n\n")
		return b.String()
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Index\tGeometry\tLayout\tVisible tags\tBar")
	for _, mon := range snap.Monitors {
		index := fmt.Sprintf("%d", mon.Index)
		if mon.Selected {
			index += "*"
		}
		barState := "shown"
		if !mon.ShowBar {
			barState = "hidden"
		}
		fmt.Fprintf(tw, "%s\t%dx%d @ %d,%d\t%s\t%s\t%s\n",
			index, mon.Width, mon.Height, mon.X, mon.Y,
			mon.Layout, tagLabel(snap.Tags, mon.VisibleTags), barState)
	}
	tw.Flush()
	b.WriteByte('\n')
	return b.String()
}

func renderClients(snap control.StateSnapshot) string {
	var b strings.Builder
	b.WriteString("Clients:\n")
	if len(snap.Clients) == 0 {
		b.WriteString("  (none)\n\n")
		return b.String()
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Window\tClass\tTitle\tTags\tMonitor\tState")
	for _, cl := range snap.Clients {
		window := fmt.Sprintf("0x%08x", cl.Window)
		if cl.Focused {
			window = "*" + window
		}
		className := cl.Class
		if className == "" {
			className = "(unknown)"
		}
		title := cl.Title
		if title == "" {
			title = "(untitled)"
		}
		title = runewidth.Truncate(title, titleWidth, "…")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			window, className, title, tagLabel(snap.Tags, cl.Tags), cl.Monitor, clientState(cl))
	}
	tw.Flush()
	b.WriteByte('\n')
	return b.String()
}

// tagLabel renders a tag mask with the configured tag names.
func tagLabel(tags []string, mask uint32) string {
	var parts []string
	for _, i := range state.TagMask(mask).Indices() {
		if i < len(tags) {
			parts = append(parts, tags[i])
		} else {
			parts = append(parts, fmt.Sprintf("%d", i))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func clientState(cl control.ClientInfo) string {
	var parts []string
	if cl.Focused {
		parts = append(parts, "focused")
	}
	if cl.Floating {
		parts = append(parts, "floating")
	}
	if cl.Fullscreen {
		parts = append(parts, "fullscreen")
	}
	if cl.Urgent {
		parts = append(parts, "urgent")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
