package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"tycoon.ai/internal/agent/report"
	"tycoon.ai/internal/agent/tick"
	"tycoon.ai/internal/persistence/indexdb"
	persistlog "tycoon.ai/internal/persistence/log"
	"tycoon.ai/internal/persistence/snapshot"
	"tycoon.ai/internal/sim/store"
	"tycoon.ai/internal/sim/tuning"
	"tycoon.ai/internal/transport/ws"
)

// envConfig supplies flag defaults from the environment.
type envConfig struct {
	URL       string `env:"TYCOON_WS_URL"`
	DataDir   string `env:"TYCOON_DATA_DIR" envDefault:"./data"`
	Tuning    string `env:"TYCOON_TUNING" envDefault:"./configs/tuning.yaml"`
	AgentName string `env:"TYCOON_AGENT_NAME" envDefault:"bot"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var ecfg envConfig
	if err := env.Parse(&ecfg); err != nil {
		log.Printf("parse env: %v", err)
		return 2
	}

	var (
		url        = flag.String("url", ecfg.URL, "domain ws url (remote mode)")
		statePath  = flag.String("state", "", "state file, .json or .snap.zst (local mode)")
		savePath   = flag.String("save", "", "write the local state here on exit (default: -state when it is .snap.zst)")
		advance    = flag.Bool("advance", true, "local mode: advance the store one turn after every tick")
		name       = flag.String("name", ecfg.AgentName, "agent name sent in HELLO")
		dataDir    = flag.String("data", ecfg.DataDir, "runtime data directory (tick/audit logs, index)")
		tuningPath = flag.String("tuning", ecfg.Tuning, "path to tuning.yaml")
		interval   = flag.Duration("interval", 0, "tick interval (default: tuning tick.interval_ms)")
		once       = flag.Bool("once", false, "run a single tick and exit")
		ticks      = flag.Int("ticks", 0, "local mode: stop after this many ticks (0 = until interrupted)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite tick index")
		quiet      = flag.Bool("quiet", false, "do not print per-command lines")
		ping       = flag.Duration("ping", ws.DefaultPingInterval, "remote mode: keepalive ping interval (negative disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("load tuning: %v", err)
			return 1
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	ctx, cancel := signalContext()
	defer cancel()

	var (
		domain tick.Domain
		local  *store.Store
	)
	switch {
	case strings.TrimSpace(*statePath) != "":
		snap, err := snapshot.ReadSnapshot(*statePath)
		if err != nil {
			logger.Printf("read state: %v", err)
			return 1
		}
		local, err = store.New(snap, store.DefaultRules())
		if err != nil {
			logger.Printf("store: %v", err)
			return 1
		}
		domain = local
		logger.Printf("local mode: state=%s tick=%d sites=%d workers=%d", *statePath, snap.Tick, len(snap.Sites), len(snap.Workers))
	case strings.TrimSpace(*url) != "":
		dctx, dcancel := context.WithTimeout(ctx, 15*time.Second)
		c, err := ws.DialWith(dctx, *url, *name, ws.Options{PingInterval: *ping})
		dcancel()
		if err != nil {
			logger.Printf("%v", err)
			return 1
		}
		defer c.Close()
		domain = c
		logger.Printf("connected: url=%s session=%s", *url, c.SessionID())
	default:
		logger.Printf("missing -url or -state")
		return 1
	}

	tickLog := persistlog.NewTickLogger(*dataDir)
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer tickLog.Close()
	defer auditLog.Close()
	tickLoggers := tick.TickLoggers{tickLog}
	auditLoggers := tick.AuditLoggers{auditLog}

	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "bot.sqlite"))
		if err != nil {
			logger.Printf("open index: %v", err)
			return 1
		}
		defer func() {
			st := idx.Stats()
			if st.DropTickTotal+st.DropAuditTotal > 0 {
				logger.Printf("index dropped writes: ticks=%d audits=%d", st.DropTickTotal, st.DropAuditTotal)
			}
			_ = idx.Close()
		}()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
		tickLoggers = append(tickLoggers, idx)
		auditLoggers = append(auditLoggers, idx)
	}

	cfg := tick.Config{
		Domain:      domain,
		Tuning:      tune,
		TickLogger:  tickLoggers,
		AuditLogger: auditLoggers,
		Logger:      logger,
	}
	if !*quiet {
		cfg.Reporter = report.New(logger)
	}
	engine, err := tick.New(cfg)
	if err != nil {
		logger.Printf("engine: %v", err)
		return 1
	}
	logger.Printf("run=%s mode=%s reserve=%v tuning=%s", engine.RunID(), tune.Tick.Mode, tune.Assignment.Reserve, tune.Digest()[:12])

	code := 0
	switch {
	case *once:
		if _, err := engine.Tick(ctx); err != nil {
			logger.Printf("tick failed: %v", err)
			code = 1
		}
		if local != nil && *advance {
			local.Advance()
		}
	case local != nil:
		after := func() {}
		if *advance {
			after = func() { local.Advance() }
		}
		if err := engine.RunN(ctx, *interval, *ticks, after); err != nil {
			logger.Printf("stopped: %v", err)
			code = 1
		}
	default:
		if err := engine.Run(ctx, *interval); err != nil {
			logger.Printf("stopped: %v", err)
			code = 1
		}
	}

	if local != nil {
		out := strings.TrimSpace(*savePath)
		if out == "" && strings.HasSuffix(*statePath, ".snap.zst") {
			out = *statePath
		}
		if out != "" {
			snap, err := local.Snapshot(context.Background())
			if err == nil {
				err = snapshot.WriteSnapshot(out, snap)
			}
			if err != nil {
				logger.Printf("save state: %v", err)
			} else {
				logger.Printf("saved state: %s tick=%d", out, snap.Tick)
			}
		}
	}
	return code
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
