package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelscope.ai/internal/catalogs"
	"voxelscope.ai/internal/harness"
	"voxelscope.ai/internal/persistence/flightlog"
	"voxelscope.ai/internal/persistence/runindex"
	"voxelscope.ai/internal/transport/viewer"
	"voxelscope.ai/internal/tuning"
	"voxelscope.ai/internal/viewerproto"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (default from tuning)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		seed       = flag.Int64("seed", 0, "override world seed (0 keeps the tuning value)")
		generator  = flag.String("generator", "", "override terrain generator (layers|noise)")
		headless   = flag.Bool("headless", false, "run without the viewer endpoint")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		disableLog = flag.Bool("disable_flight_log", false, "disable the zstd flight recorder")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[voxelscope] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if *generator != "" {
		tune.Generator = *generator
	}
	if *addr != "" {
		tune.ListenAddr = *addr
	}

	bp := tune.BlocksPath
	if bp == "" {
		bp = filepath.Join(*configDir, "blocks.json")
	}
	cats, err := catalogs.Load(bp)
	if err != nil {
		logger.Fatalf("load block catalog: %v", err)
	}

	runID := fmt.Sprintf("run_%s", time.Now().UTC().Format("20060102_150405"))
	runDir := filepath.Join(*dataDir, "runs", runID)

	opts := harness.Options{
		Logger: logger,
		RunID:  runID,
	}

	if !*disableLog {
		dir := tune.FlightLogDir
		if dir == "" {
			dir = runDir
		}
		rec := flightlog.NewRecorder(dir)
		defer rec.Close()
		opts.Recorder = rec
	}

	if !*disableDB {
		dbPath := tune.RunIndexPath
		if dbPath == "" {
			dbPath = filepath.Join(*dataDir, "index.db")
		}
		idx, err := runindex.OpenSQLite(dbPath)
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer idx.Close()
		if err := idx.RecordRun(runindex.RunInfo{
			RunID:         runID,
			StartedAt:     time.Now(),
			Seed:          tune.Seed,
			Generator:     tune.Generator,
			Height:        tune.Height,
			ViewRadius:    tune.ViewRadius,
			TickRateHz:    tune.TickRateHz,
			PaletteDigest: cats.PaletteDigest,
		}); err != nil {
			logger.Fatalf("record run: %v", err)
		}
		opts.Index = idx
	}

	var srv *viewer.Server
	if !*headless {
		srv = viewer.NewServer(viewerproto.BootstrapMsg{
			Type:            viewerproto.TypeBootstrap,
			ProtocolVersion: viewerproto.Version,
			RunID:           runID,
			WorldParams: viewerproto.WorldParams{
				TickRateHz: tune.TickRateHz,
				ChunkSize:  [3]int{16, tune.Height, 16},
				Height:     tune.Height,
				Seed:       tune.Seed,
				Generator:  tune.Generator,
				ViewRadius: tune.ViewRadius,
			},
			BlockPalette:  cats.Palette,
			PaletteDigest: cats.PaletteDigest,
		}, logger)
		opts.Sink = srv
		opts.Input = srv
	}

	h, err := harness.New(tune, cats, opts)
	if err != nil {
		logger.Fatalf("init harness: %v", err)
	}
	h.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if srv != nil {
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/viewer/bootstrap", srv.BootstrapHandler())
		mux.HandleFunc("/v1/viewer/ws", srv.WSHandler())
		mux.HandleFunc("/debug/pprof/", pprof.Index)

		httpSrv := &http.Server{Addr: tune.ListenAddr, Handler: mux}
		go func() {
			logger.Printf("viewer endpoint on %s (run %s)", tune.ListenAddr, runID)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("http server: %v", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutCtx)
		}()
	}

	logger.Printf("tick loop at %d Hz, seed %d, generator %s", tune.TickRateHz, tune.Seed, tune.Generator)
	if err := h.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("harness: %v", err)
	}
	logger.Printf("stopped at tick %d", h.CurrentTick())
}
