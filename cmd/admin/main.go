package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"tycoon.ai/internal/agent/tick"
	persistlog "tycoon.ai/internal/persistence/log"
	"tycoon.ai/internal/persistence/snapshot"
	"tycoon.ai/internal/sim/state"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "show":
			showCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the snapshots and log files found in the data dir.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	ents, err := os.ReadDir(snapshot.SnapshotsDir(*dataDir))
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range ents {
		fmt.Println("snapshot", e.Name())
	}
	for _, d := range []struct{ dir, prefix string }{
		{persistlog.TicksDir(*dataDir), "ticks"},
		{persistlog.AuditDir(*dataDir), "audit"},
	} {
		files, err := persistlog.ListFiles(d.dir, d.prefix)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list:", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Println(d.prefix, f)
		}
	}
}

// showCmd summarizes a state file (.json or .snap.zst; defaults to the latest snapshot).
func showCmd(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	path := fs.String("state", "", "state file (optional; defaults to latest snapshot)")
	asJSON := fs.Bool("json", false, "print the full state as json")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		latest, err := snapshot.LatestSnapshot(*dataDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest snapshot:", err)
			os.Exit(1)
		}
		if latest == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found; provide -state")
			os.Exit(2)
		}
		p = latest
	}
	s, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read state:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(s)
		return
	}
	printSummary(s)
}

// auditCmd prints audit records, optionally only those touching one site or worker.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	target := fs.String("target", "", "site domain or worker name (optional)")
	failedOnly := fs.Bool("failed", false, "only rejected commands")
	_ = fs.Parse(args)

	files, err := persistlog.ListFiles(persistlog.AuditDir(*dataDir), "audit")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, f := range files {
		err := persistlog.ReadLines(f, func(line []byte) error {
			var a tick.AuditEntry
			if err := json.Unmarshal(line, &a); err != nil {
				return err
			}
			if *target != "" && a.Command.Target() != *target && a.Command.Site != *target {
				return nil
			}
			if *failedOnly && a.OK {
				return nil
			}
			printJSON(a)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read audit:", err)
			os.Exit(1)
		}
	}
}

func printSummary(s *state.Snapshot) {
	fmt.Printf("turn=%d balance=%d level=%d score=%d/%d digest=%s\n",
		s.Tick, s.Person.Balance, s.Person.Level, s.Person.Score, s.Person.NextScore, s.Digest()[:12])
	for _, site := range s.SortedSites() {
		task := "-"
		if site.Task != nil {
			task = site.Task.Zone
		}
		fmt.Printf("site %-24s tier=%d level=%d traffic=%d contents=%d ads=%d task=%s work=%v pay=%v normalize=%v levelup=%v\n",
			site.Domain, site.HostingID, site.Level, site.Traffic, len(site.Contents), len(site.Ads), task, site.Work,
			site.CanPayForHosting, site.CanNormalize, site.CanLevelUp)
	}
	for _, w := range s.Workers {
		task := "idle"
		if w.Task != nil {
			task = w.Task.Zone
			if w.Task.Site != "" {
				task += "@" + w.Task.Site
			}
			if w.Task.Done {
				task += " (done)"
			}
		}
		fmt.Printf("worker %-16s %-12s energy=%3d %s\n", w.Name, w.Specialty, w.EnergyValue, task)
	}
}
