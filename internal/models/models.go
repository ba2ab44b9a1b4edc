package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the health state reported by a target or one of its components.
// Values other than the known constants are kept verbatim for display.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = "UNKNOWN"
)

// ErrorComponent names the synthetic component attached to failed polls.
const ErrorComponent = "error"

// ErrMalformedReport is returned when a health body is not a JSON object.
var ErrMalformedReport = errors.New("malformed health report")

// IsUp reports whether s is exactly UP.
func (s Status) IsUp() bool {
	return s == StatusUp
}

// Target defines a monitored health endpoint.
type Target struct {
	Name string `koanf:"name" yaml:"name" json:"name"`
	URL  string `koanf:"url" yaml:"url" json:"url"`
}

// ComponentReport is the sub-status of one internal component of a target.
// An empty Status means the target did not report one; a nil Details means
// no details were reported.
type ComponentReport struct {
	Status  Status         `json:"status,omitempty" yaml:"status,omitempty"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// StatusReport is the normalized result of polling a target for one cycle.
type StatusReport struct {
	Status     Status                     `json:"status" yaml:"status"`
	Components map[string]ComponentReport `json:"components,omitempty" yaml:"components,omitempty"`
}

// PollResult is a report delivered for one target in one poll cycle. Seq
// orders cycles; zero means the result is not part of a sequenced cycle.
type PollResult struct {
	Target     string
	Seq        uint64
	CycleID    string
	ObservedAt time.Time
	Latency    time.Duration
	Report     StatusReport
	Err        error
}

type rawReport struct {
	Status     json.RawMessage            `json:"status"`
	Components map[string]json.RawMessage `json:"components"`
}

type rawComponent struct {
	Status  json.RawMessage `json:"status"`
	Details json.RawMessage `json:"details"`
}

// ParseReport decodes a health body. The top level must be a JSON object;
// everything below it is read leniently so that a missing or oddly shaped
// field degrades instead of failing the whole report. Numbers are kept as
// json.Number so details render back exactly as received.
func ParseReport(body []byte) (StatusReport, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return StatusReport{}, fmt.Errorf("%w: body is not a JSON object", ErrMalformedReport)
	}

	var raw rawReport
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		// A well-formed object whose components field has the wrong shape
		// still carries a usable status.
		var statusOnly struct {
			Status json.RawMessage `json:"status"`
		}
		if err2 := json.Unmarshal(trimmed, &statusOnly); err2 != nil {
			return StatusReport{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
		}
		return StatusReport{Status: parseOverall(statusOnly.Status)}, nil
	}

	report := StatusReport{Status: parseOverall(raw.Status)}
	if len(raw.Components) == 0 {
		return report, nil
	}
	report.Components = make(map[string]ComponentReport, len(raw.Components))
	for name, data := range raw.Components {
		report.Components[name] = parseComponent(data)
	}
	return report, nil
}

// FailureReport synthesizes the report used when a target could not be
// polled or answered with something that is not a health report.
func FailureReport(reason string) StatusReport {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "could not retrieve health information"
	}
	return StatusReport{
		Status: StatusDown,
		Components: map[string]ComponentReport{
			ErrorComponent: {
				Status:  StatusDown,
				Details: map[string]any{"error": reason},
			},
		},
	}
}

func parseOverall(raw json.RawMessage) Status {
	status := parseStatus(raw)
	if status == "" {
		return StatusUnknown
	}
	return status
}

func parseStatus(raw json.RawMessage) Status {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return ""
	}
	return Status(strings.TrimSpace(text))
}

func parseComponent(data json.RawMessage) ComponentReport {
	var raw rawComponent
	if err := json.Unmarshal(data, &raw); err != nil {
		return ComponentReport{}
	}
	return ComponentReport{
		Status:  parseStatus(raw.Status),
		Details: parseDetails(raw.Details),
	}
}

func parseDetails(raw json.RawMessage) map[string]any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var details map[string]any
	if err := dec.Decode(&details); err != nil {
		return nil
	}
	return details
}
