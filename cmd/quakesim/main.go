package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quakesim/engine/internal/cache"
	"github.com/quakesim/engine/internal/config"
	"github.com/quakesim/engine/internal/database"
	"github.com/quakesim/engine/internal/dispatcher"
	"github.com/quakesim/engine/internal/engine"
	"github.com/quakesim/engine/internal/geo"
	"github.com/quakesim/engine/internal/influx"
	"github.com/quakesim/engine/internal/intensity"
	"github.com/quakesim/engine/internal/logging"
	"github.com/quakesim/engine/internal/model"
	"github.com/quakesim/engine/internal/monitor"
	intOtel "github.com/quakesim/engine/internal/otel"
	"github.com/quakesim/engine/internal/projection"
	"github.com/quakesim/engine/internal/queue"
	"github.com/quakesim/engine/internal/region"
	"github.com/quakesim/engine/internal/seismic"
	"github.com/quakesim/engine/internal/station"
	"github.com/quakesim/engine/internal/util"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/datatypes"
)

// CurrentVersion and BuildDate can be set at build time via ldflags.
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "quakesim"
)

// file paths
var (
	// ConfigDir is where quakesim.cfg.json is looked up. Defaults to the
	// working directory.
	ConfigDir string

	LogFilePath string
	LogFile     *os.File
)

// global services
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	engineService   *engine.Service
	monitorService  *monitor.Service
	stationManager  *station.Manager
	estimator       *intensity.Estimator
	regionIndex     *region.Index
	dbManager       *database.Manager
	influxManager   *influx.Manager
	eventDispatcher *dispatcher.Dispatcher
)

func init() {
	var err error

	ConfigDir, err = os.Getwd()
	if err != nil {
		ConfigDir = "."
	}

	// Initialize slog manager with initial config
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil, nil)
	Logger = SlogManager.Logger()

	// load config
	err = config.Load(ConfigDir)
	if err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	// create logs dir if it doesn't exist
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath)
		}
	}

	// Re-setup logging with file output, optional OTel, and run-state
	// attributes stamped on every record
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(LogFile, viper.GetString("logLevel"), otelLogProvider, func() []slog.Attr {
		if engineService == nil {
			return nil
		}
		return []slog.Attr{
			slog.String("run_state", engineService.State().String()),
			slog.Float64("elapsed", engineService.Event().Elapsed()),
		}
	})
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	dispatcherLogger := logging.NewDispatcherLogger(fileZerolog())
	eventDispatcher, err = dispatcher.New(dispatcherLogger)
	if err != nil {
		Logger.Error("Failed to create dispatcher", "error", err)
		panic(err)
	}
}

func fileZerolog() zerolog.Logger {
	if LogFile == nil {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(LogFile).With().Timestamp().Logger()
}

// buildServices loads the datasets and wires the engine together.
func buildServices() error {
	sim := config.GetSimConfig()
	est := intensity.NewEstimator(sim.Attenuation.A, sim.Attenuation.B, sim.Attenuation.C, sim.Attenuation.D)
	if len(sim.IntensityThresholds) > 0 {
		est.Thresholds = sim.IntensityThresholds
	}
	estimator = est

	stationManager = station.NewManager(est, Logger)
	regionIndex = region.NewIndex(Logger)

	ds := config.GetDatasetConfig()
	switch ds.Type {
	case "database":
		dbManager = database.NewManager(fileZerolog())
		if err := dbManager.Connect(); err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		if err := dbManager.Setup(); err != nil {
			return fmt.Errorf("setting up database: %w", err)
		}
		regions, err := dbManager.LoadRegions()
		if err != nil {
			Logger.Warn("Failed to load regions from database", "error", err)
		} else if err := regionIndex.Load(regions); err != nil {
			Logger.Warn("No usable regions in database", "error", err)
		}
		count, err := dbManager.LoadStations(stationManager)
		if err != nil {
			Logger.Warn("Failed to load stations from database", "error", err)
		} else {
			Logger.Info("Loaded stations from database", "count", count)
		}
	default:
		regions, err := region.LoadGeoJSON(ds.GeoJSONPath)
		if err != nil {
			Logger.Warn("Failed to load region GeoJSON", "error", err, "path", ds.GeoJSONPath)
		} else if err := regionIndex.Load(regions); err != nil {
			Logger.Warn("No usable regions in GeoJSON", "error", err, "path", ds.GeoJSONPath)
		}
		if err := stationManager.LoadFile(ds.StationsPath); err != nil {
			Logger.Warn("Failed to load stations", "error", err, "path", ds.StationsPath)
		}
	}
	Logger.Info("Datasets loaded",
		"regions", regionIndex.Len(),
		"stations", stationManager.Count())

	influxManager = influx.NewManager(fileZerolog(),
		logging.LogFilePath(viper.GetString("logsDir"), AppName+"_metrics", SessionStartTime)+".gz")
	if err := influxManager.Connect(); err != nil {
		Logger.Info("InfluxDB disabled", "reason", err)
		influxManager = nil
	}

	// Without a metrics sink there is nothing to drain the sample queues
	// into, so the monitor stays off entirely.
	if influxManager != nil {
		monitorService = monitor.NewService(monitor.Dependencies{
			LogManager: SlogManager,
			Influx:     influxManager,
			Frames:     queue.New[monitor.FrameSample](),
			Stations:   queue.New[monitor.StationSample](),
			Interval:   5 * time.Second,
		})
		if !monitorService.IsRunning() {
			monitorService.Start()
		}
	}

	bounds := geo.BBox{
		MinLat: sim.MapBounds.MinLat, MinLon: sim.MapBounds.MinLon,
		MaxLat: sim.MapBounds.MaxLat, MaxLon: sim.MapBounds.MaxLon,
	}
	engineService = engine.NewService(engine.Dependencies{
		Sim:         sim,
		Regions:     regionIndex,
		Stations:    stationManager,
		Estimator:   est,
		Projector:   projection.New(bounds, sim.Viewport.Width, sim.Viewport.Height),
		RegionCache: cache.NewRegionCache(0.01),
		LogManager:  SlogManager,
		Monitor:     monitorService,
		Logger:      Logger,
	})

	registerCommandHandlers(eventDispatcher)
	return nil
}

func parseFloatArg(arg string) (float64, error) {
	return strconv.ParseFloat(util.FixEscapeQuotes(util.TrimQuotes(arg)), 64)
}

func parseLatLon(args []string) (geo.Point, error) {
	if len(args) < 2 {
		return geo.Point{}, fmt.Errorf("expected lat and lon, got %d args", len(args))
	}
	lat, err := parseFloatArg(args[0])
	if err != nil {
		return geo.Point{}, fmt.Errorf("bad latitude %q: %w", args[0], err)
	}
	lon, err := parseFloatArg(args[1])
	if err != nil {
		return geo.Point{}, fmt.Errorf("bad longitude %q: %w", args[1], err)
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}

// registerCommandHandlers routes control commands to the engine
func registerCommandHandlers(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":SET:EPICENTER:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) < 4 {
			return nil, fmt.Errorf("expected lat lon depth magnitude, got %d args", len(e.Args))
		}
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := parseFloatArg(e.Args[i])
			if err != nil {
				return nil, fmt.Errorf("bad epicenter arg %q: %w", e.Args[i], err)
			}
			vals[i] = v
		}
		if err := engineService.SetEpicenter(vals[0], vals[1], vals[2], vals[3]); err != nil {
			return nil, err
		}
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(":START:", func(e dispatcher.Event) (any, error) {
		if err := engineService.StartSimulation(); err != nil {
			return nil, err
		}
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(":PAUSE:", func(e dispatcher.Event) (any, error) {
		engineService.PauseSimulation()
		return "ok", nil
	})

	d.Register(":RESUME:", func(e dispatcher.Event) (any, error) {
		engineService.ResumeSimulation()
		return "ok", nil
	})

	d.Register(":RESET:", func(e dispatcher.Event) (any, error) {
		engineService.ResetSimulation()
		return "ok", nil
	})

	d.Register(":SPEED:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) < 1 {
			return nil, fmt.Errorf("expected speed multiplier")
		}
		m, err := parseFloatArg(e.Args[0])
		if err != nil {
			return nil, fmt.Errorf("bad speed %q: %w", e.Args[0], err)
		}
		engineService.SetPlaybackSpeed(m)
		return "ok", nil
	})

	d.Register(":QUERY:INTENSITY:", func(e dispatcher.Event) (any, error) {
		p, err := parseLatLon(e.Args)
		if err != nil {
			return nil, err
		}
		res := engineService.IntensityAt(p)
		return fmt.Sprintf("%.2f (%s)", res.Raw, res.Scale), nil
	})

	d.Register(":QUERY:REGION:", func(e dispatcher.Event) (any, error) {
		p, err := parseLatLon(e.Args)
		if err != nil {
			return nil, err
		}
		locale := viper.GetString("locale")
		if len(e.Args) > 2 {
			locale = util.TrimQuotes(e.Args[2])
		}
		return engineService.RegionNameAt(p, locale), nil
	})

	d.Register(":RADII:", func(e dispatcher.Event) (any, error) {
		p, s := engineService.CurrentWaveRadii()
		return fmt.Sprintf("p=%.1fkm s=%.1fkm", p, s), nil
	})

	d.Register(":STATUS:", func(e dispatcher.Event) (any, error) {
		out, err := json.Marshal(engineService.Status())
		if err != nil {
			return nil, err
		}
		return string(out), nil
	})

	// Frontend performance metrics go straight to InfluxDB; buffered so a
	// slow sink never stalls the render loop.
	d.Register(":METRIC:", func(e dispatcher.Event) (any, error) {
		if influxManager == nil {
			return nil, fmt.Errorf("metrics sink not configured")
		}
		bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
		if err != nil {
			return nil, err
		}
		if err := influxManager.WritePoint(context.Background(), bucket, point); err != nil {
			return nil, err
		}
		return "ok", nil
	}, dispatcher.Buffered(1000), dispatcher.Logged())
}

func dispatchCommand(command string, args []string) (any, error) {
	return eventDispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
}

func logSecondStatus() {
	p, s := engineService.CurrentWaveRadii()
	Logger.Info("wave fronts", "p_km", fmt.Sprintf("%.1f", p), "s_km", fmt.Sprintf("%.1f", s))

	st, ok := stationManager.Strongest()
	if !ok {
		return
	}
	res := estimator.Resolve(st.Intensity)
	Logger.Info("strongest station",
		"name", st.Name,
		"intensity", fmt.Sprintf("%.2f", st.Intensity),
		"scale", res.Scale.String())
	if monitorService != nil {
		monitorService.RecordStation(monitor.StationSample{
			Time:      time.Now(),
			StationID: st.ID,
			Name:      st.Name,
			Intensity: st.Intensity,
			Scale:     res.Scale.String(),
		})
	}
}

// runInteractive drives the fixed-timestep frame loop while reading
// pipe-separated commands from stdin, e.g.
// ":SET:EPICENTER:|35.68|139.77|30|7.0".
func runInteractive() {
	sim := config.GetSimConfig()
	dt := 1.0 / float64(sim.FPS)

	stop := make(chan struct{})
	go func() {
		frameTicker := time.NewTicker(time.Second / time.Duration(sim.FPS))
		defer frameTicker.Stop()
		statusTicker := time.NewTicker(time.Second)
		defer statusTicker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-frameTicker.C:
				engineService.Advance(dt)
			case <-statusTicker.C:
				if engineService.State() == seismic.StateRunning {
					logSecondStatus()
				}
			}
		}
	}()

	fmt.Println("quakesim ready. Commands: :SET:EPICENTER:|lat|lon|depth|mag, :START:, :PAUSE:, :RESUME:, :RESET:, :SPEED:|m, :QUERY:INTENSITY:|lat|lon, :QUERY:REGION:|lat|lon, :RADII:, :STATUS:, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			break
		}
		fields := strings.Split(line, "|")
		result, err := dispatchCommand(fields[0], fields[1:])
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println(result)
	}
	close(stop)
}

// runDemo plays a scripted M6.8 event at full speed and exits when the S
// front clears the map.
func runDemo() error {
	sim := config.GetSimConfig()

	if _, err := dispatchCommand(":SET:EPICENTER:", []string{"34.69", "135.18", "16", "6.8"}); err != nil {
		return err
	}
	if _, err := dispatchCommand(":START:", nil); err != nil {
		return err
	}

	dt := 1.0 / float64(sim.FPS)
	lastLogged := -10.0
	for engineService.State() == seismic.StateRunning {
		engineService.Advance(dt)
		if elapsed := engineService.Event().Elapsed(); elapsed-lastLogged >= 10 {
			lastLogged = elapsed
			logSecondStatus()
			status, _ := dispatchCommand(":STATUS:", nil)
			fmt.Println(status)
		}
	}
	Logger.Info("Demo event finished", "elapsed", engineService.Event().Elapsed())
	return nil
}

// importRegions loads a GeoJSON region dataset and stores it in the
// database as mercator WKB, the format LoadRegions reads back.
func importRegions(path string) error {
	regions, err := region.LoadGeoJSON(path)
	if err != nil {
		return fmt.Errorf("loading GeoJSON: %w", err)
	}

	db := database.NewManager(fileZerolog())
	if err := db.Connect(); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	if err := db.Setup(); err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}

	records := make([]model.RegionRecord, 0, len(regions))
	for i, r := range regions {
		wkb, err := region.ToWKB3857(r)
		if err != nil {
			Logger.Warn("Skipping region with unprojectable geometry", "error", err, "position", i)
			continue
		}
		names, err := json.Marshal(r.Names)
		if err != nil {
			return fmt.Errorf("encoding region names: %w", err)
		}
		records = append(records, model.RegionRecord{
			Names:    datatypes.JSON(names),
			Geometry: wkb,
			Position: i,
		})
	}
	if err := db.SaveRegions(records); err != nil {
		return fmt.Errorf("saving regions: %w", err)
	}
	Logger.Info("Imported regions", "count", len(records), "path", path)
	return nil
}

func shutdown() {
	if monitorService != nil {
		monitorService.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if OTelProvider != nil {
		if err := OTelProvider.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush OTel data", "error", err)
		}
		OTelProvider.Shutdown(ctx)
	}
	SlogManager.Flush(ctx)
	if dbManager != nil {
		dbManager.Close()
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

func main() {
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	if err := buildServices(); err != nil {
		Logger.Error("Failed to build services", "error", err)
		os.Exit(1)
	}
	defer shutdown()

	args := os.Args[1:]
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "demo":
			if err := runDemo(); err != nil {
				Logger.Error("Demo failed", "error", err)
				os.Exit(1)
			}
		case "importregions":
			if len(args) < 2 {
				fmt.Println("usage: quakesim importregions <regions.geojson>")
				os.Exit(1)
			}
			if err := importRegions(args[1]); err != nil {
				Logger.Error("Region import failed", "error", err)
				os.Exit(1)
			}
		default:
			fmt.Println("unknown command:", args[0])
			os.Exit(1)
		}
		return
	}

	runInteractive()
}
