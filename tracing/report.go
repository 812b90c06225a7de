package tracing

import (
	"context"
	"fmt"

	"github.com/sarchlab/cpfifo/datarecording"
)

// Report summarizes a recorded trace.
type Report struct {
	Commits       int
	LinkedCommits int
	MaxDistance   uint32

	InterruptsAsserted int
	InterruptsCleared  int
	InterruptsDeferred int

	BreakpointHits    int
	BreakpointClears  int
	LineChanges       int
	RegisterAccesses  int
	LastRecordedCycle uint64
}

// Summarize reads the tables written by a Recorder. The register table is
// only read if registers is true, as it only exists when register accesses
// were recorded.
func Summarize(
	ctx context.Context,
	reader datarecording.DataReader,
	registers bool,
) (Report, error) {
	reader.MapTable(InterruptTable, interruptEntry{})
	reader.MapTable(CommitTable, commitEntry{})
	reader.MapTable(BreakpointTable, breakpointEntry{})
	reader.MapTable(LineTable, lineEntry{})

	if registers {
		reader.MapTable(RegisterTable, registerEntry{})
	}

	var rep Report

	commits, err := query(ctx, reader, CommitTable)
	if err != nil {
		return rep, err
	}

	for _, row := range commits {
		e := row.(*commitEntry)
		rep.Commits++
		if e.Linked {
			rep.LinkedCommits++
		}
		rep.MaxDistance = max(rep.MaxDistance, e.Distance)
		rep.LastRecordedCycle = max(rep.LastRecordedCycle, e.Time)
	}

	interrupts, err := query(ctx, reader, InterruptTable)
	if err != nil {
		return rep, err
	}

	for _, row := range interrupts {
		e := row.(*interruptEntry)
		switch {
		case e.Deferred:
			rep.InterruptsDeferred++
		case e.Asserted:
			rep.InterruptsAsserted++
		default:
			rep.InterruptsCleared++
		}
		rep.LastRecordedCycle = max(rep.LastRecordedCycle, e.Time)
	}

	edges, err := query(ctx, reader, BreakpointTable)
	if err != nil {
		return rep, err
	}

	for _, row := range edges {
		if row.(*breakpointEntry).Hit {
			rep.BreakpointHits++
		} else {
			rep.BreakpointClears++
		}
	}

	lines, err := query(ctx, reader, LineTable)
	if err != nil {
		return rep, err
	}

	rep.LineChanges = len(lines)

	if registers {
		accesses, err := query(ctx, reader, RegisterTable)
		if err != nil {
			return rep, err
		}

		rep.RegisterAccesses = len(accesses)
	}

	return rep, nil
}

func query(
	ctx context.Context,
	reader datarecording.DataReader,
	table string,
) ([]any, error) {
	rows, _, err := reader.Query(ctx, table, datarecording.QueryParams{
		OrderBy: "Time",
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}

	return rows, nil
}
