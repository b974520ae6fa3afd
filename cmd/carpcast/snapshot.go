package main

import (
	"bytes"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lox/carpcast/internal/forecast"
)

type SnapshotCmd struct {
	Save    SnapshotSaveCmd    `cmd:"" help:"Store an input bundle."`
	List    SnapshotListCmd    `cmd:"" help:"List stored bundles, newest first."`
	Replay  SnapshotReplayCmd  `cmd:"" help:"Score a stored bundle again."`
	Stats   SnapshotStatsCmd   `cmd:"" help:"Summarise the store and recent runs."`
	Cleanup SnapshotCleanupCmd `cmd:"" help:"Delete bundles past the retention period."`
}

type SnapshotSaveCmd struct {
	Bundle string `arg:"" help:"Input bundle JSON file, or - for stdin."`
}

func (c *SnapshotSaveCmd) Run(a *app) error {
	payload, err := readInput(c.Bundle)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	b, err := forecast.DecodeBundle(bytes.NewReader(payload))
	if err != nil {
		return err
	}
	in, err := b.Input(time.Now())
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id, created, err := st.SaveSnapshot(a.ctx, newSnapshot(in, in.Species, payload))
	if err != nil {
		return err
	}
	if created {
		fmt.Println(id)
	} else {
		fmt.Printf("%s (already stored)\n", id)
	}
	return nil
}

type SnapshotListCmd struct {
	Limit int `help:"Maximum number of snapshots." default:"20"`
}

func (c *SnapshotListCmd) Run(a *app) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.ListSnapshots(a.ctx, c.Limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSPECIES\tLAT\tLON\tBYTES")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.3f\t%d\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), s.Species, s.Latitude, s.Longitude, s.PayloadSize)
	}
	return tw.Flush()
}

type SnapshotReplayCmd struct {
	ID   string `arg:"" help:"Snapshot ID."`
	JSON bool   `help:"Print the full result as JSON."`
}

func (c *SnapshotReplayCmd) Run(a *app) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.GetSnapshot(a.ctx, c.ID)
	if err != nil {
		return err
	}
	b, err := forecast.DecodeBundle(bytes.NewReader(snap.Payload))
	if err != nil {
		return err
	}
	// Bundles without an anchor replay as of when they were stored.
	in, err := b.Input(snap.CreatedAt)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := a.runner().Run(a.ctx, in)
	if err != nil {
		a.recordFailedRun(st, string(in.Species), snap.ID, started, err)
		return err
	}
	a.recordRun(st, result, snap.ID, started)

	if c.JSON {
		return printJSON(result)
	}
	return renderResult(os.Stdout, result)
}

type SnapshotStatsCmd struct {
	Days int `help:"Days of run history to summarise." default:"7"`
}

func (c *SnapshotStatsCmd) Run(a *app) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.SnapshotStats(a.ctx)
	if err != nil {
		return err
	}
	version, err := st.MigrationVersion()
	if err != nil {
		return err
	}

	fmt.Printf("Schema version:   %d\n", version)
	fmt.Printf("Snapshots:        %d\n", stats.TotalCount)
	if stats.TotalCount > 0 {
		fmt.Printf("Stored bytes:     %d (%d uncompressed)\n", stats.CompressedBytes, stats.PayloadBytes)
		fmt.Printf("Oldest / newest:  %s / %s\n",
			stats.Oldest.Local().Format(time.DateTime), stats.Newest.Local().Format(time.DateTime))
		for species, n := range stats.CountBySpecies {
			fmt.Printf("  %-10s %d\n", species, n)
		}
	}

	health, err := st.RunHealth(a.ctx, c.Days)
	if err != nil {
		return err
	}
	if len(health) == 0 {
		return nil
	}
	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSPECIES\tRUNS\tFAILED\tPOINTS\tFALLBACKS")
	for _, h := range health {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", h.Date, h.Species, h.TotalRuns, h.FailedRuns, h.TotalPoints, h.TotalFailures)
	}
	return tw.Flush()
}

type SnapshotCleanupCmd struct {
	RetentionDays int `help:"Override CARPCAST_SNAPSHOT_RETENTION_DAYS."`
}

func (c *SnapshotCleanupCmd) Run(a *app) error {
	days := a.cfg.SnapshotRetentionDays
	if c.RetentionDays > 0 {
		days = c.RetentionDays
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.CleanupSnapshots(a.ctx, days)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d snapshots older than %d days\n", deleted, days)
	return nil
}
