package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fmsgo/internal/api"
	"fmsgo/pkg/config"
	"fmsgo/pkg/db"
	"fmsgo/pkg/db/maintenance"
	"fmsgo/pkg/export"
	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/logging"
	"fmsgo/pkg/session"
	"fmsgo/pkg/sim"
	"fmsgo/pkg/store"
	"fmsgo/pkg/trajectory"
	"fmsgo/pkg/version"
	"fmsgo/pkg/waypoint"
)

const defaultConfigPath = "configs/fmsgo.yaml"

// flightFlags describes the flight to fly and what to do after it.
type flightFlags struct {
	origin      string
	destination string
	via         []string
	geojsonPath string
	shpPath     string
	stay        bool // Keep serving the API after arrival
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig := flag.Bool("init-config", false, "Generate default config file and exit")
	origin := flag.String("origin", "GMMN", "Origin waypoint code")
	destination := flag.String("dest", "GMAD", "Destination waypoint code")
	via := flag.String("via", "GMMX", "Comma separated intermediate waypoint codes")
	geojsonPath := flag.String("geojson", "", "Write the flown route and trajectory as GeoJSON to this path")
	shpPath := flag.String("shp", "", "Write the trajectory as a shapefile to this path")
	stay := flag.Bool("stay", false, "Keep the API running after arrival until interrupted")
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	fl := flightFlags{
		origin:      *origin,
		destination: *destination,
		via:         splitCodes(*via),
		geojsonPath: *geojsonPath,
		shpPath:     *shpPath,
		stay:        *stay,
	}
	if err := run(context.Background(), *configPath, fl); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func splitCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

func run(ctx context.Context, configPath string, fl flightFlags) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("fmsgo Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	wpMgr, err := initWaypoints(ctx, appCfg, st)
	if err != nil {
		return err
	}

	if err := maintenance.Run(ctx, st, wpMgr, dbConn, appCfg.Waypoints.ImportFile, time.Duration(appCfg.DB.Retention)); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	plan, err := flightplan.NewPlanner(wpMgr, nil).CreatePlan(ctx, strings.ToUpper(fl.origin), strings.ToUpper(fl.destination), fl.via...)
	if err != nil {
		return fmt.Errorf("failed to create flight plan: %w", err)
	}
	slog.Info("Flight plan created",
		"route", plan.String(),
		"distance_km", fmt.Sprintf("%.1f", plan.TotalDistance()),
		"ete", plan.EstimatedTimeEnRoute(appCfg.Autopilot.TargetSpeed).Round(time.Second))

	provider := config.NewProvider(appCfg, st)
	telH := api.NewTelemetryHandler()

	journal := session.NewJournal()
	session.TryRestore(ctx, st, journal, plan.Origin().Position)

	sess := newSession(ctx, appCfg, provider, plan, st, telH, journal)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sess.Run(gctx)
		if last, ok := sess.Last(); ok {
			if serr := session.SaveJournal(context.WithoutCancel(gctx), st, journal, last.State.Position); serr != nil {
				slog.Warn("Failed to persist trip journal", "error", serr)
			}
		}
		switch {
		case errors.Is(err, context.Canceled):
			slog.Info("Flight interrupted", "session", sess.ID())
			return nil
		case err != nil:
			return fmt.Errorf("flight failed: %w", err)
		}

		if err := exportFlight(plan, appCfg.Sim.PointsPerLeg, fl); err != nil {
			return err
		}
		if !fl.stay {
			cancel()
		}
		return nil
	})

	if appCfg.Server.Enabled {
		srv := api.NewServer(appCfg.Server.Address,
			telH,
			api.NewFlightHandler(sess, appCfg.Sim.PointsPerLeg),
			api.NewWaypointHandler(wpMgr),
			api.NewFlightsHandler(st),
			api.NewTripHandler(journal, st),
			func() { quit <- syscall.SIGTERM },
		)
		srv.Handler = loggingMiddleware(srv.Handler)
		g.Go(func() error {
			defer cancel()
			return runServerLifecycle(gctx, srv, quit)
		})
	} else {
		g.Go(func() error {
			select {
			case <-quit:
				slog.Info("Interrupted, stopping flight...")
				cancel()
			case <-gctx.Done():
			}
			return nil
		})
	}

	return g.Wait()
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func initWaypoints(ctx context.Context, appCfg *config.Config, st store.WaypointStore) (*waypoint.Manager, error) {
	region := geo.DefaultRegion()
	if appCfg.Waypoints.RegionFile != "" {
		r, err := geo.LoadRegion(appCfg.Waypoints.RegionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load region: %w", err)
		}
		region = r
	}
	slog.Info("Operating region", "name", region.Name)

	mgr, err := waypoint.NewManager(st, region, appCfg.Waypoints, nil)
	if err != nil {
		return nil, err
	}
	if _, err := mgr.Seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed waypoints: %w", err)
	}
	return mgr, nil
}

func newSession(ctx context.Context, appCfg *config.Config, provider config.Provider, plan *flightplan.FlightPlan, st store.FlightStore, sink session.Sink, journal *session.Journal) *session.Session {
	simOpts := []sim.Option{sim.WithPointsPerLeg(appCfg.Sim.PointsPerLeg)}
	if appCfg.Sim.Seed != 0 {
		simOpts = append(simOpts, sim.WithRandom(sim.NewPCGRandom(appCfg.Sim.Seed)))
	}

	opts := []session.Option{
		session.WithSimulatorOptions(simOpts...),
		session.WithInterval(provider.StepInterval(ctx)),
		session.WithTargets(provider),
		session.WithAutopilot(appCfg.Autopilot.Enabled),
		session.WithSink(sink),
		session.WithJournal(journal),
	}
	if appCfg.Session.Record {
		opts = append(opts, session.WithRecorder(st))
	}
	return session.New(plan, appCfg.Session, opts...)
}

// exportFlight writes the requested export files. The trajectory is rebuilt from the plan,
// which yields the points the simulator flew.
func exportFlight(plan *flightplan.FlightPlan, pointsPerLeg int, fl flightFlags) error {
	if fl.geojsonPath == "" && fl.shpPath == "" {
		return nil
	}
	traj := trajectory.Build(plan.Route(), pointsPerLeg)

	if fl.geojsonPath != "" {
		f, err := os.Create(fl.geojsonPath)
		if err != nil {
			return fmt.Errorf("failed to create geojson file: %w", err)
		}
		werr := export.WriteGeoJSON(f, export.GeoJSON(plan, traj))
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return werr
		}
		slog.Info("GeoJSON exported", "path", fl.geojsonPath)
	}

	if fl.shpPath != "" {
		if err := export.WriteShapefile(fl.shpPath, plan, traj); err != nil {
			return fmt.Errorf("failed to export shapefile: %w", err)
		}
		slog.Info("Shapefile exported", "path", fl.shpPath)
	}
	return nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
