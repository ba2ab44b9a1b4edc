// Package render turns board nodes into HTML, SVG and terminal output.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"healthboard/internal/board"
	"healthboard/internal/metrics"
	"healthboard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultTitle is the page heading.
const DefaultTitle = "Microservice Health Dashboard"

// CardView is the data behind one service card.
type CardView struct {
	Node   board.ServiceNode
	Uptime *metrics.ServiceUptime
}

// PageData is the data behind the dashboard page.
type PageData struct {
	Title           string
	BootID          string
	IntervalSeconds int
	Targets         []models.Target
	Cards           []CardView
	Pending         []models.Target
}

// HTML renders the dashboard page and card fragments.
type HTML struct {
	tmpl *template.Template
}

// NewHTML parses the embedded templates.
func NewHTML() (*HTML, error) {
	tmpl, err := template.New("render").Funcs(template.FuncMap{
		// Chart markup is produced by SVGPie from numeric data only.
		"chart":   func(markup string) template.HTML { return template.HTML(markup) },
		"shortID": shortID,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HTML{tmpl: tmpl}, nil
}

// Page writes the full dashboard document.
func (h *HTML) Page(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = DefaultTitle
	}
	return h.tmpl.ExecuteTemplate(w, "page", data)
}

// Card renders the fragment of one service card.
func (h *HTML) Card(view CardView) (string, error) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "card", view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NewCardView pairs a node with its uptime summary when one is tracked.
func NewCardView(node board.ServiceNode, uptime *metrics.UptimeTracker) CardView {
	view := CardView{Node: node}
	if uptime != nil {
		if summary, ok := uptime.Get(node.Name); ok {
			view.Uptime = &summary
		}
	}
	return view
}

// NewPageData builds the page for the current board. Targets without a
// node yet are listed as pending.
func NewPageData(nodes []board.ServiceNode, targets []models.Target, intervalSeconds int, uptime *metrics.UptimeTracker) PageData {
	data := PageData{
		Title:           DefaultTitle,
		IntervalSeconds: intervalSeconds,
		Targets:         targets,
		Cards:           make([]CardView, 0, len(nodes)),
	}
	seen := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		seen[node.Name] = true
		data.Cards = append(data.Cards, NewCardView(node, uptime))
	}
	for _, t := range targets {
		if !seen[t.Name] {
			data.Pending = append(data.Pending, t)
		}
	}
	return data
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
