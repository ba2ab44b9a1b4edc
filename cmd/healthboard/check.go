package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"healthboard/internal/board"
	"healthboard/internal/config"
	"healthboard/internal/logger"
	"healthboard/internal/models"
	"healthboard/internal/monitor"
	"healthboard/internal/render"
)

// Output formats of the check command.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

const defaultCheckTimeout = 10 * time.Second

var errUnhealthy = errors.New("one or more services are not UP")

type checkOptions struct {
	output  string
	timeout time.Duration
	logOut  io.Writer
}

func newCheckCmd(configPath *string) *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Poll every service once and print the result",
		Long: `Run a single poll cycle against all configured services, print the
resulting cards and exit with status 1 if any service is not UP.

Examples:
  healthboard check
  healthboard check --output yaml
  healthboard check --timeout 3s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), *configPath, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", formatText, "output format: text, json or yaml")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default: request_timeout_seconds, else 10s)")
	return cmd
}

func runCheck(ctx context.Context, configPath string, opts checkOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch opts.output {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	// stdout carries the report, so logs go to stderr
	logOut := opts.logOut
	if logOut == nil {
		logOut = os.Stderr
	}
	log := logger.New(logOut).Named("check")

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = cfg.RequestTimeout()
	}
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	b := board.New(board.WithDiskSpaceComponent(cfg.DiskSpaceComponent))
	mon := monitor.New(cfg.Interval(), cfg.Targets, b,
		monitor.WithLogger(log),
		monitor.WithRequestTimeout(timeout),
	)
	defer mon.Stop()
	mon.PollAll(ctx).Wait()

	nodes := orderByTargets(b.Snapshot(), cfg.Targets)
	if err := writeReport(out, opts.output, nodes); err != nil {
		return err
	}
	for _, n := range nodes {
		if !n.Up() {
			return errUnhealthy
		}
	}
	return nil
}

// orderByTargets puts nodes in configuration order; the board keeps them
// in the order results arrived.
func orderByTargets(nodes []board.ServiceNode, targets []models.Target) []board.ServiceNode {
	byName := make(map[string]board.ServiceNode, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}
	ordered := make([]board.ServiceNode, 0, len(nodes))
	for _, t := range targets {
		if n, ok := byName[t.Name]; ok {
			ordered = append(ordered, n)
		}
	}
	return ordered
}

func writeReport(w io.Writer, format string, nodes []board.ServiceNode) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(nodes); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		term := render.NewTerminal()
		if summary := term.Summary(nodes); summary != "" {
			if _, err := fmt.Fprintln(w, summary); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w, term.Render(nodes))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
