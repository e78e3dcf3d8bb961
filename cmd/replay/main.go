package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chalktalk/lesson-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	verbose := flag.Bool("v", false, "print the full dispatch trace")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [-v]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	sum, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}

	printSteps(f, sum)
	if *verbose {
		printTrace(sum)
	}

	mismatches := replay.Compare(f, sum)
	if len(mismatches) > 0 {
		fmt.Printf("\n%d mismatch(es):\n", len(mismatches))
		for _, m := range mismatches {
			fmt.Printf("  event %d %s: expected %s, observed %s\n", m.EventIndex, m.Field, m.Expected, m.Observed)
		}
		os.Exit(1)
	}
	fmt.Println("\nall expectations matched")
}

// #endregion main

// #region output

func printSteps(f *replay.Fixture, sum *replay.Summary) {
	fmt.Printf("%s\n\n", f.Description)
	fmt.Printf("%-5s  %-16s  %8s  %-12s  %s\n", "Event", "Kind", "At (ms)", "Phase", "Topic")
	for _, s := range sum.Steps {
		fmt.Printf("%-5d  %-16s  %8d  %-12s  %d\n", s.EventIndex, s.EventKind, s.AtMs, s.Phase, s.TopicIndex)
	}
	fmt.Printf("\nfinal: phase=%s topic=%d completed=%d commands=%d\n",
		sum.FinalPhase, sum.FinalTopicIndex, sum.CompletedTopics, len(sum.Commands))
}

func printTrace(sum *replay.Summary) {
	fmt.Println("\ndispatch trace:")
	for _, lc := range sum.Lifecycles {
		fmt.Printf("  %8dms  %-15s  %s\n", lc.OffsetMs, lc.Kind, lc.BlockID)
	}
	for _, cmd := range sum.Commands {
		if cmd.Mark != nil {
			fmt.Printf("  %8dms  mark %-9s  %q\n", cmd.OffsetMs, cmd.Mark.Kind, cmd.Mark.Value)
			continue
		}
		fmt.Printf("  %8dms  %-14s  %s\n", cmd.OffsetMs, cmd.PayloadKind, cmd.Surface)
	}
}

// #endregion output
