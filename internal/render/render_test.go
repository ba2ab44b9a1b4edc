package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthboard/internal/board"
	"healthboard/internal/metrics"
	"healthboard/internal/models"
)

func reconciled(t *testing.T, report models.StatusReport) board.ServiceNode {
	t.Helper()
	b := board.New(board.WithChartRenderer(NewSVGPie()))
	b.Apply(models.PollResult{
		Target:     "Books Service",
		Seq:        1,
		CycleID:    "0123456789abcdef",
		ObservedAt: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
		Report:     report,
	})
	node, ok := b.Service("Books Service")
	require.True(t, ok)
	return node
}

func TestHTML_Card(t *testing.T) {
	h, err := NewHTML()
	require.NoError(t, err)

	tests := []struct {
		name     string
		report   models.StatusReport
		contains []string
		excludes []string
	}{
		{
			name: "up with disk and details",
			report: models.StatusReport{Status: models.StatusUp, Components: map[string]models.ComponentReport{
				"diskSpace": {Status: models.StatusUp, Details: map[string]any{"total": json.Number("100"), "free": json.Number("40")}},
				"db":        {Status: models.StatusUp, Details: map[string]any{"database": "<H2>"}},
				"ping":      {Status: models.StatusUp},
			}},
			contains: []string{
				`data-target="Books Service"`,
				`<h2>Books Service</h2>`,
				`Status: <span class="status status-up">UP</span>`,
				`data-component="diskSpace"`,
				`<svg class="pie"`,
				`&#34;database&#34;: &#34;&lt;H2&gt;&#34;`,
				board.NoDetailsMessage,
				"cycle 01234567",
			},
			excludes: []string{board.NoComponentsMessage, "<H2>"},
		},
		{
			name:     "down without components",
			report:   models.StatusReport{Status: models.StatusDown},
			contains: []string{`class="status status-down">DOWN`, board.NoComponentsMessage},
			excludes: []string{"component-card"},
		},
		{
			name:     "failure report",
			report:   models.FailureReport("connection refused"),
			contains: []string{`data-component="error"`, "connection refused", "status-down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Card(CardView{Node: reconciled(t, tt.report)})
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestHTML_CardUptime(t *testing.T) {
	h, err := NewHTML()
	require.NoError(t, err)

	tracker := metrics.NewUptimeTracker()
	tracker.Record("Books Service", true, "UP", time.Now())
	tracker.Record("Books Service", false, "DOWN", time.Now())

	node := reconciled(t, models.StatusReport{Status: models.StatusUp})
	out, err := h.Card(NewCardView(node, tracker))
	require.NoError(t, err)
	assert.Contains(t, out, "Uptime 50.00% (1/2 checks)")

	out, err = h.Card(NewCardView(node, nil))
	require.NoError(t, err)
	assert.NotContains(t, out, "Uptime")
}

func TestHTML_Page(t *testing.T) {
	h, err := NewHTML()
	require.NoError(t, err)

	node := reconciled(t, models.StatusReport{Status: models.StatusUp})
	targets := []models.Target{
		{Name: "Books Service", URL: "http://localhost:8081/actuator/health"},
		{Name: "Users Service", URL: "http://localhost:8082/actuator/health"},
	}
	data := NewPageData([]board.ServiceNode{node}, targets, 10, nil)
	require.Len(t, data.Cards, 1)
	require.Len(t, data.Pending, 1)

	var buf strings.Builder
	require.NoError(t, h.Page(&buf, data))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>"+DefaultTitle+"</title>")
	assert.Contains(t, out, `id="dashboard"`)
	assert.Contains(t, out, "Polling 2 services every 10s")
	assert.Contains(t, out, `data-target="Users Service" data-version="0"`)
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, `/static/board.js`)
}

func TestSVGPie(t *testing.T) {
	pie := NewSVGPie()

	tests := []struct {
		name     string
		data     board.PieData
		paths    int
		circles  int
		contains []string
	}{
		{
			name:     "two slices",
			data:     board.PieData{Labels: []string{board.LabelFree, board.LabelUsed}, Values: []float64{40, 60}},
			paths:    2,
			contains: []string{"free: 40 (40.0%)", "used: 60 (60.0%)", "#4caf50", "#f44336"},
		},
		{
			name:     "one full slice",
			data:     board.PieData{Labels: []string{board.LabelFree, board.LabelUsed}, Values: []float64{0, 10}},
			circles:  1,
			contains: []string{"used: 10 (100.0%)"},
		},
		{
			name:    "empty",
			data:    board.PieData{Labels: []string{board.LabelFree, board.LabelUsed}, Values: []float64{0, 0}},
			circles: 1,
		},
		{
			name:     "negative counts as zero",
			data:     board.PieData{Labels: []string{board.LabelFree, board.LabelUsed}, Values: []float64{12, -2}},
			circles:  1,
			contains: []string{"free: 12 (100.0%)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pie.Pie(tt.data)
			assert.True(t, strings.HasPrefix(out, `<svg class="pie"`))
			assert.True(t, strings.HasSuffix(out, `</svg>`))
			assert.Equal(t, tt.paths, strings.Count(out, "<path"))
			assert.Equal(t, tt.circles, strings.Count(out, "<circle"))
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestSVGPie_LargeArcFlag(t *testing.T) {
	out := NewSVGPie().Pie(board.PieData{Labels: []string{"a", "b"}, Values: []float64{25, 75}})
	assert.Contains(t, out, " 0 0 1 ")
	assert.Contains(t, out, " 0 1 1 ")
}

func TestTerminal_Render(t *testing.T) {
	term := NewTerminal()

	t.Run("empty board", func(t *testing.T) {
		assert.Contains(t, term.Render(nil), "no services polled")
	})

	t.Run("service with components", func(t *testing.T) {
		node := reconciled(t, models.StatusReport{Status: models.StatusDown, Components: map[string]models.ComponentReport{
			"diskSpace": {Status: models.StatusUp, Details: map[string]any{"total": json.Number("2048"), "free": json.Number("1024")}},
			"db":        {Status: models.StatusDown, Details: map[string]any{"error": "refused"}},
			"ping":      {},
		}})
		out := term.Render([]board.ServiceNode{node})
		assert.Contains(t, out, "Books Service")
		assert.Contains(t, out, "DOWN")
		assert.Contains(t, out, "1.0 KiB used of 2.0 KiB (50.0%)")
		assert.Contains(t, out, `"free": 1024`)
		assert.Contains(t, out, `"total": 2048`)
		assert.Less(t, strings.Index(out, "1.0 KiB used"), strings.Index(out, `"free": 1024`))
		assert.Contains(t, out, `"error": "refused"`)
		assert.Contains(t, out, board.NoDetailsMessage)
	})

	t.Run("service without components", func(t *testing.T) {
		node := reconciled(t, models.StatusReport{Status: models.StatusUp})
		assert.Contains(t, term.Render([]board.ServiceNode{node}), board.NoComponentsMessage)
	})
}

func TestTerminal_Summary(t *testing.T) {
	term := NewTerminal()
	assert.Empty(t, term.Summary(nil))

	up := reconciled(t, models.StatusReport{Status: models.StatusUp, Components: map[string]models.ComponentReport{
		"db": {Status: models.StatusUp}, "ping": {Status: models.StatusUp},
	}})
	down := board.ServiceNode{Name: "Users Service", Status: "DOWN", StatusClass: board.ClassDown}

	out := term.Summary([]board.ServiceNode{up, down})
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "COMPONENTS")
	assert.Contains(t, out, "Books Service")
	assert.Contains(t, out, "Users Service")
	assert.Contains(t, out, "DOWN")
}

func TestBytesHuman(t *testing.T) {
	assert.Equal(t, "512 B", bytesHuman(512))
	assert.Equal(t, "1.5 KiB", bytesHuman(1536))
	assert.Equal(t, "465.6 GiB", bytesHuman(499963174912))
}
