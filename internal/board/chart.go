package board

import (
	"encoding/json"
	"math"
)

// Pie slice labels for disk usage charts.
const (
	LabelFree = "free"
	LabelUsed = "used"
)

// PieData is the dataset handed to a ChartRenderer.
type PieData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// ChartRenderer draws a proportion chart and returns its markup.
type ChartRenderer interface {
	Pie(data PieData) string
}

// DiskUsage extracts the free/used split from disk-space details. It
// reports false when total or free is missing or not a JSON number;
// numeric strings do not count.
func DiskUsage(details map[string]any) (PieData, bool) {
	total, ok := number(details["total"])
	if !ok {
		return PieData{}, false
	}
	free, ok := number(details["free"])
	if !ok {
		return PieData{}, false
	}
	used := total - free
	return PieData{
		Labels: []string{LabelFree, LabelUsed},
		Values: []float64{free, used},
	}, true
}

// Used returns the used slice value of a disk usage dataset.
func (p PieData) Used() float64 {
	for i, label := range p.Labels {
		if label == LabelUsed && i < len(p.Values) {
			return p.Values[i]
		}
	}
	return 0
}

// Total returns the sum of all slices.
func (p PieData) Total() float64 {
	var sum float64
	for _, v := range p.Values {
		sum += v
	}
	return sum
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
