package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/bot.sqlite)")
	runID := fs.String("run", "", "run id filter (ticks, commands, failures)")
	target := fs.String("target", "", "site or worker filter (commands)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "ticks"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "bot.sqlite")
	}
	if *limit <= 0 {
		*limit = 20
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "ticks", "failures":
		where := []string{}
		args := []any{}
		if *runID != "" {
			where = append(where, "run_id=?")
			args = append(args, *runID)
		}
		if q == "failures" {
			where = append(where, "error IS NOT NULL")
		}
		sqlq := `SELECT run_id,seq,tick,mode,started_at,duration_ms,planned,executed,COALESCE(error,''),COALESCE(error_code,''),COALESCE(failed_policy,'') FROM ticks`
		if len(where) > 0 {
			sqlq += " WHERE " + strings.Join(where, " AND ")
		}
		sqlq += " ORDER BY started_at DESC, seq DESC LIMIT ?"
		args = append(args, *limit)

		rows, err := db.Query(sqlq, args...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID        string `json:"run_id"`
				Seq          int64  `json:"seq"`
				Tick         int64  `json:"tick"`
				Mode         string `json:"mode"`
				StartedAt    string `json:"started_at"`
				DurationMs   int64  `json:"duration_ms"`
				Planned      int    `json:"planned"`
				Executed     int    `json:"executed"`
				Error        string `json:"error,omitempty"`
				ErrorCode    string `json:"error_code,omitempty"`
				FailedPolicy string `json:"failed_policy,omitempty"`
			}
			if err := rows.Scan(&r.RunID, &r.Seq, &r.Tick, &r.Mode, &r.StartedAt, &r.DurationMs, &r.Planned, &r.Executed, &r.Error, &r.ErrorCode, &r.FailedPolicy); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "commands":
		where := []string{}
		args := []any{}
		if *runID != "" {
			where = append(where, "run_id=?")
			args = append(args, *runID)
		}
		if *target != "" {
			where = append(where, "target=?")
			args = append(args, *target)
		}
		sqlq := `SELECT run_id,seq,idx,tick,policy,kind,target,ok,COALESCE(code,''),COALESCE(message,''),COALESCE(reason,'') FROM commands`
		if len(where) > 0 {
			sqlq += " WHERE " + strings.Join(where, " AND ")
		}
		sqlq += " ORDER BY tick DESC, seq DESC, idx DESC LIMIT ?"
		args = append(args, *limit)

		rows, err := db.Query(sqlq, args...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID   string `json:"run_id"`
				Seq     int64  `json:"seq"`
				Idx     int    `json:"idx"`
				Tick    int64  `json:"tick"`
				Policy  string `json:"policy"`
				Kind    string `json:"kind"`
				Target  string `json:"target"`
				OK      bool   `json:"ok"`
				Code    string `json:"code,omitempty"`
				Message string `json:"message,omitempty"`
				Reason  string `json:"reason,omitempty"`
			}
			if err := rows.Scan(&r.RunID, &r.Seq, &r.Idx, &r.Tick, &r.Policy, &r.Kind, &r.Target, &r.OK, &r.Code, &r.Message, &r.Reason); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,digest,balance,sites,workers FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick    int64  `json:"tick"`
				Path    string `json:"path"`
				Digest  string `json:"digest"`
				Balance int64  `json:"balance"`
				Sites   int    `json:"sites"`
				Workers int    `json:"workers"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Digest, &r.Balance, &r.Sites, &r.Workers); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "tunings":
		rows, err := db.Query(`SELECT digest,json,recorded_at FROM tunings ORDER BY recorded_at DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Digest     string          `json:"digest"`
				Tuning     json.RawMessage `json:"tuning"`
				RecordedAt string          `json:"recorded_at"`
			}
			var raw string
			if err := rows.Scan(&r.Digest, &raw, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.Tuning = json.RawMessage(raw)
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-run ID] [-target NAME] [-limit N] ticks|failures|commands|snapshots|tunings")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
