package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/panelrt/cli/render"
	"github.com/justapithecus/panelrt/cli/tui"
	"github.com/justapithecus/panelrt/engine"
)

// StatsResponse is the non-TUI rendering of `panelrt stats`.
type StatsResponse struct {
	engine.RuntimeStats
	MetricsText         string `json:"metrics_text"`
	MutationsAdmitted   int64  `json:"mutations_admitted"`
	MutationsOverflowed int64  `json:"mutations_overflowed"`
	MutationsRejected   int64  `json:"mutations_rejected"`
	EventsAdmitted      int64  `json:"events_admitted"`
	EventsOverflowed    int64  `json:"events_overflowed"`
	EventsRejected      int64  `json:"events_rejected"`
}

// StatsCommand returns the `stats` command: a fresh in-process runtime,
// optionally primed by precompiling a handler, reporting its coarse
// health snapshot and the effect policy's admit/overflow/reject
// counters.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show runtime statistics",
		ArgsUsage: "[handler.lua]",
		Flags:     append(TUIReadOnlyFlags(), ConfigFlag),
		Action:    statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("stats: %v", err), exitInvalidArgument)
	}

	eng, err := engine.New(cfg, defaultRegistry())
	if err != nil {
		return cli.Exit(fmt.Sprintf("stats: %v", err), 1)
	}
	defer eng.Shutdown()

	if handlerPath := c.Args().First(); handlerPath != "" {
		source, err := os.ReadFile(handlerPath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("stats: %v", err), exitInvalidArgument)
		}
		if _, err := eng.PrecompileHandler(string(source)); err != nil {
			return cli.Exit(fmt.Sprintf("stats: %v", err), 1)
		}
	}

	snap := eng.GetStats()
	policyStats := eng.PolicyStats()

	if c.Bool("tui") {
		view := &tui.RuntimeStatsView{
			TotalExecutions:     snap.TotalExecutions,
			ActiveInstances:     snap.ActiveInstances,
			AvailableInstances:  snap.AvailableInstances,
			SuspendedInstances:  snap.SuspendedInstances,
			CacheHitRate:        snap.CacheHitRate,
			AvgExecutionTimeUs:  snap.AvgExecutionTimeUs,
			TotalMemoryBytes:    snap.TotalMemoryBytes,
			MutationsAdmitted:   policyStats.MutationsAdmitted,
			MutationsOverflowed: policyStats.MutationsOverflowed,
			MutationsRejected:   policyStats.MutationsRejected,
			EventsAdmitted:      policyStats.EventsAdmitted,
			EventsOverflowed:    policyStats.EventsOverflowed,
			EventsRejected:      policyStats.EventsRejected,
		}
		return r.RenderTUI("stats_runtime", view)
	}

	resp := StatsResponse{
		RuntimeStats:        snap,
		MetricsText:         eng.GetMetricsText(),
		MutationsAdmitted:   policyStats.MutationsAdmitted,
		MutationsOverflowed: policyStats.MutationsOverflowed,
		MutationsRejected:   policyStats.MutationsRejected,
		EventsAdmitted:      policyStats.EventsAdmitted,
		EventsOverflowed:    policyStats.EventsOverflowed,
		EventsRejected:      policyStats.EventsRejected,
	}
	return r.Render(resp)
}
