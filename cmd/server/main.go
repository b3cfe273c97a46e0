package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"tycoon.ai/internal/persistence/archive"
	"tycoon.ai/internal/persistence/indexdb"
	"tycoon.ai/internal/persistence/snapshot"
	"tycoon.ai/internal/sim/state"
	"tycoon.ai/internal/sim/store"
	"tycoon.ai/internal/transport/ws"
)

type envConfig struct {
	DataDir       string `env:"TYCOON_DATA_DIR" envDefault:"./data"`
	EnableAdmin   bool   `env:"TYCOON_ENABLE_ADMIN_HTTP" envDefault:"true"`
	SnapshotEvery int    `env:"TYCOON_SNAPSHOT_EVERY" envDefault:"10"`
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
		addr          = flag.String("addr", ":8080", "http listen address")
		dataDir       = flag.String("data", ecfg.DataDir, "runtime data directory")
		seedPath      = flag.String("state", "./configs/seed_state.json", "initial state for a fresh store (.json or .snap.zst)")
		loadLatest    = flag.Bool("load_latest_snapshot", true, "resume from the latest snapshot in the data dir if present")
		turn          = flag.Duration("turn", 30*time.Second, "game turn length (0 disables advancing)")
		snapshotEvery = flag.Int("snapshot_every", ecfg.SnapshotEvery, "write a snapshot every N turns (0 disables)")
		disableDB     = flag.Bool("disable_db", false, "disable snapshot indexing")
		readTimeout   = flag.Duration("read_timeout", ws.DefaultReadTimeout, "drop a bot session silent for this long")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	initialPath := strings.TrimSpace(*seedPath)
	if *loadLatest {
		latest, err := snapshot.LatestSnapshot(*dataDir)
		if err != nil {
			logger.Printf("find latest snapshot: %v", err)
			return 1
		}
		if latest != "" {
			initialPath = latest
		}
	}
	if initialPath == "" {
		logger.Printf("missing -state")
		return 1
	}
	initial, err := snapshot.ReadSnapshot(initialPath)
	if err != nil {
		logger.Printf("read state: %v", err)
		return 1
	}
	st, err := store.New(initial, store.DefaultRules())
	if err != nil {
		logger.Printf("store: %v", err)
		return 1
	}
	logger.Printf("loaded state=%s tick=%d sites=%d workers=%d", initialPath, initial.Tick, len(initial.Sites), len(initial.Workers))

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "server.sqlite"))
		if err != nil {
			logger.Printf("open index: %v", err)
			return 1
		}
		defer idx.Close()
	}

	// Snapshot writes are serialized; the turn loop and the admin endpoint both use it.
	var snapMu sync.Mutex
	writeSnapshot := func(ctx context.Context) (uint64, error) {
		snapMu.Lock()
		defer snapMu.Unlock()
		s, err := st.Snapshot(ctx)
		if err != nil {
			return 0, err
		}
		path := snapshot.PathFor(*dataDir, s.Tick)
		if err := snapshot.WriteSnapshot(path, s); err != nil {
			return s.Tick, err
		}
		idx.RecordSnapshot(path, s)
		if archived, ok, err := archive.ArchiveLevelSnapshot(*dataDir, path, s); err != nil {
			logger.Printf("archive level snapshot: %v", err)
		} else if ok {
			logger.Printf("archived level %d snapshot: %s", s.Person.Level, archived)
		}
		return s.Tick, nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	if *turn > 0 {
		go func() {
			t := time.NewTicker(*turn)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
				tick := st.Advance()
				if *snapshotEvery > 0 && tick%uint64(*snapshotEvery) == 0 {
					if _, err := writeSnapshot(ctx); err != nil {
						logger.Printf("snapshot write: %v", err)
					}
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		s, err := st.Snapshot(r.Context())
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeMetrics(rw, s, idx.Stats())
	})

	if ecfg.EnableAdmin {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			s, err := st.Snapshot(r.Context())
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(s)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			tick, err := writeSnapshot(r.Context())
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
		})
	} else {
		logger.Printf("admin endpoints disabled (TYCOON_ENABLE_ADMIN_HTTP=false)")
	}
	wsSrv := ws.NewServer(st, logger)
	wsSrv.ReadTimeout = *readTimeout
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		return 1
	}

	if *snapshotEvery > 0 {
		if tick, err := writeSnapshot(context.Background()); err != nil {
			logger.Printf("final snapshot: %v", err)
		} else {
			logger.Printf("final snapshot tick=%d", tick)
		}
	}
	return 0
}

func writeMetrics(rw http.ResponseWriter, s *state.Snapshot, st indexdb.Stats) {
	idle, working, resting := 0, 0, 0
	for i := range s.Workers {
		switch w := &s.Workers[i]; {
		case w.Task == nil:
			idle++
		case w.Task.IsVacation():
			resting++
		default:
			working++
		}
	}
	_, _ = fmt.Fprintf(rw, "tycoon_tick %d\n", s.Tick)
	_, _ = fmt.Fprintf(rw, "tycoon_balance_minor %d\n", s.Person.Balance)
	_, _ = fmt.Fprintf(rw, "tycoon_person_level %d\n", s.Person.Level)
	_, _ = fmt.Fprintf(rw, "tycoon_sites %d\n", len(s.Sites))
	_, _ = fmt.Fprintf(rw, "tycoon_workers{state=\"idle\"} %d\n", idle)
	_, _ = fmt.Fprintf(rw, "tycoon_workers{state=\"working\"} %d\n", working)
	_, _ = fmt.Fprintf(rw, "tycoon_workers{state=\"vacation\"} %d\n", resting)
	_, _ = fmt.Fprintf(rw, "tycoon_index_queue_depth %d\n", st.QueueDepth)
	_, _ = fmt.Fprintf(rw, "tycoon_index_drop_snapshot_total %d\n", st.DropSnapshotTotal)
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

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
