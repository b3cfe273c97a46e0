package main

import (
	"flag"
	"fmt"
	"os"

	"tycoon.ai/internal/agent/tick"
	persistlog "tycoon.ai/internal/persistence/log"
	"tycoon.ai/internal/persistence/snapshot"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory containing ticks/")
		runID    = flag.String("run", "", "only verify this run id (optional)")
		fromSeq  = flag.Uint64("from_seq", 0, "start verifying from seq (inclusive, optional)")
		toSeq    = flag.Uint64("to_seq", 0, "stop at seq (inclusive, optional)")
		snapPath = flag.String("snapshot", "", "print the header of a .snap.zst and exit (optional)")
		verbose  = flag.Bool("v", false, "print every verified tick")
	)
	flag.Parse()

	if *snapPath != "" {
		h, err := snapshot.ReadHeader(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d tick=%d digest=%s\n", h.Version, h.Tick, h.Digest)
		return
	}

	var checked, failedTicks, skipped int
	err := persistlog.ReadTicks(*dataDir, func(e tick.TickLogEntry) error {
		if *runID != "" && e.RunID != *runID {
			skipped++
			return nil
		}
		if e.Seq < *fromSeq || (*toSeq != 0 && e.Seq > *toSeq) {
			skipped++
			return nil
		}
		if err := tick.Verify(e); err != nil {
			return fmt.Errorf("run %s: %w", e.RunID, err)
		}
		checked++
		if e.Failed() {
			failedTicks++
		}
		if *verbose {
			status := "ok"
			if e.Failed() {
				status = "aborted " + e.ErrorCode
			}
			fmt.Printf("run=%s seq=%d turn=%d steps=%d executed=%d %s\n", e.RunID, e.Seq, e.Tick, len(e.Steps), e.Executed, status)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if checked == 0 {
		fmt.Fprintln(os.Stderr, "no tick log entries found in", persistlog.TicksDir(*dataDir))
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (aborted=%d skipped=%d)\n", checked, failedTicks, skipped)
}
