package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"socsim/config"
	"socsim/internal/alerts"
	"socsim/internal/api"
	"socsim/internal/feed"
	inputredis "socsim/internal/input/redis"
	"socsim/internal/logger"
	"socsim/internal/metrics"
	"socsim/internal/output/alerthttp"
	"socsim/internal/output/alertjson"
	"socsim/internal/output/incidentclickhouse"
	"socsim/internal/output/incidenthttp"
	"socsim/internal/output/incidentjson"
	"socsim/internal/output/incidentkafka"
	"socsim/internal/output/incidentnats"
	"socsim/internal/output/incidentredis"
	"socsim/internal/pattern"
	"socsim/internal/pipeline"
	"socsim/internal/report"
	"socsim/internal/rules"
	"socsim/internal/simulator"
	"socsim/internal/store"
	"socsim/internal/stream"
	"socsim/internal/threat"
	"socsim/pkg/models"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("socsim.yml"); err == nil {
		return "socsim.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "socsim.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadConfig falls back to built-in defaults when no config file exists.
func loadConfig(configArg string) (*config.Config, string) {
	configPath := findConfigFile(configArg)
	var cfg *config.Config
	if configPath == "" {
		cfg = config.Default()
		configPath = "(defaults)"
	} else {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	l := cfg.Socsim.Logging
	if err := logger.Init(l.Enabled, l.Level, l.File, l.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, configPath
}

func seededRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed+1))
}

func newGenerator(cfg *config.Config) *simulator.Generator {
	m := cfg.Socsim.Simulator.Malware
	opts := []simulator.Option{
		simulator.WithMalwarePolicy(simulator.MalwareSeverityPolicy{MediumAt: m.MediumAt, HighAt: m.HighAt, CriticalAt: m.CriticalAt}),
	}
	if cfg.Socsim.Stream.Seed != 0 {
		opts = append(opts, simulator.WithSeed(cfg.Socsim.Stream.Seed))
	}
	return simulator.NewGenerator(opts...)
}

func buildEngine(cfg *config.Config) rules.Engine {
	rc := cfg.Socsim.Rules
	if !rc.Enabled {
		return &rules.NoopEngine{}
	}
	if strings.TrimSpace(rc.Path) == "" {
		logger.Warnf("Rules enabled but rules.path is empty; rule tagging disabled")
		return &rules.NoopEngine{}
	}
	engine, stats, err := rules.NewSigmaEngine(rc.Path)
	if err != nil {
		logger.Errorf("Failed to load Sigma rules from %s: %v", rc.Path, err)
		log.Fatalf("Failed to load Sigma rules: %v", err)
	}
	logger.Infof("Sigma rules loaded: %s", stats)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; rule tagging is effectively disabled")
	}
	return engine
}

func buildStore(cfg *config.Config) store.Store {
	sc := cfg.Socsim.Store
	switch sc.Mode {
	case "redis":
		st, err := store.NewRedisStore(store.RedisConfig{
			Addr:         sc.Redis.Addr,
			Password:     sc.Redis.Password,
			DB:           sc.Redis.DB,
			KeyPrefix:    sc.Redis.KeyPrefix,
			MaxIncidents: sc.Redis.MaxIncidents,
			TTL:          sc.Redis.TTL,
		})
		if err != nil {
			logger.Errorf("Failed to create Redis store: %v", err)
			log.Fatalf("Failed to create Redis store: %v", err)
		}
		logger.Infof("Store mode: redis (%s)", sc.Redis.Addr)
		return st
	default:
		st, err := store.NewMemoryStore(sc.Capacity)
		if err != nil {
			log.Fatalf("Failed to create memory store: %v", err)
		}
		logger.Infof("Store mode: memory (capacity %d)", sc.Capacity)
		return st
	}
}

func buildIncidentWriter(cfg *config.Config) pipeline.IncidentWriter {
	oc := cfg.Socsim.Output
	var (
		w   pipeline.IncidentWriter
		err error
	)
	switch oc.Mode {
	case "none":
		logger.Infof("Output mode: none")
		return nil
	case "file":
		w, err = incidentjson.NewWriter(incidentjson.Config{Path: oc.File.Path, Append: oc.File.Append})
		logger.Infof("Output mode: file (%s)", oc.File.Path)
	case "http":
		w, err = incidenthttp.NewWriter(incidenthttp.Config{URL: oc.HTTP.URL, Timeout: oc.HTTP.Timeout, Headers: oc.HTTP.Headers})
		logger.Infof("Output mode: http (%s)", oc.HTTP.URL)
	case "clickhouse":
		w, err = incidentclickhouse.NewWriter(incidentclickhouse.Config{
			URL:      oc.ClickHouse.URL,
			Database: oc.ClickHouse.Database,
			Table:    oc.ClickHouse.Table,
			Username: oc.ClickHouse.Username,
			Password: oc.ClickHouse.Password,
			Timeout:  oc.ClickHouse.Timeout,
			Headers:  oc.ClickHouse.Headers,
		})
		logger.Infof("Output mode: clickhouse (%s/%s.%s)", oc.ClickHouse.URL, oc.ClickHouse.Database, oc.ClickHouse.Table)
	case "redis":
		w, err = incidentredis.NewWriter(incidentredis.Config{
			Addr:     oc.Redis.Addr,
			Password: oc.Redis.Password,
			DB:       oc.Redis.DB,
			Key:      oc.Redis.Key,
			MaxLen:   oc.Redis.MaxLen,
		})
		logger.Infof("Output mode: redis (%s %s)", oc.Redis.Addr, oc.Redis.Key)
	case "kafka":
		w, err = incidentkafka.NewWriter(incidentkafka.Config{
			Brokers:      oc.Kafka.Brokers,
			Topic:        oc.Kafka.Topic,
			BatchTimeout: oc.Kafka.BatchTimeout,
			WriteTimeout: oc.Kafka.WriteTimeout,
		})
		logger.Infof("Output mode: kafka (%s topic %s)", strings.Join(oc.Kafka.Brokers, ","), oc.Kafka.Topic)
	case "nats":
		w, err = incidentnats.NewWriter(incidentnats.Config{URL: oc.NATS.URL, Subject: oc.NATS.Subject, FlushTimeout: oc.NATS.FlushTimeout})
		logger.Infof("Output mode: nats (%s subject %s)", oc.NATS.URL, oc.NATS.Subject)
	default:
		log.Fatalf("Unknown output mode: %s", oc.Mode)
	}
	if err != nil {
		logger.Errorf("Failed to create %s incident writer: %v", oc.Mode, err)
		log.Fatalf("Failed to create %s incident writer: %v", oc.Mode, err)
	}
	return w
}

func buildAlerts(cfg *config.Config) (*alerts.Scorer, pipeline.AlertWriter) {
	ac := cfg.Socsim.Alerts
	if !ac.Enabled {
		return nil, nil
	}
	scorer := alerts.NewScorer(alerts.Config{
		Window:    ac.Window,
		Threshold: ac.Threshold,
		MaxRows:   ac.MaxRows,
		Cooldown:  ac.Cooldown,
	})
	switch ac.Output.Mode {
	case "file":
		w, err := alertjson.NewWriter(ac.Output.File.Path)
		if err != nil {
			logger.Errorf("Failed to create alert file writer: %v", err)
			log.Fatalf("Failed to create alert file writer: %v", err)
		}
		logger.Infof("Alert output mode: file (%s)", ac.Output.File.Path)
		return scorer, w
	case "http":
		w, err := alerthttp.NewWriter(alerthttp.Config{
			URL:     ac.Output.HTTP.URL,
			Timeout: ac.Output.HTTP.Timeout,
			Headers: ac.Output.HTTP.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create alert HTTP writer: %v", err)
			log.Fatalf("Failed to create alert HTTP writer: %v", err)
		}
		logger.Infof("Alert output mode: http (%s)", ac.Output.HTTP.URL)
		return scorer, w
	default:
		log.Fatalf("Unknown alert output mode: %s", ac.Output.Mode)
	}
	return nil, nil
}

// consoleListener logs every enriched incident.
func consoleListener(row *models.EnrichedIncident) {
	inc := row.Incident
	logger.Infof("%s %s [%s] score=%d categories=%s",
		inc.IncidentID,
		inc.AttackType,
		inc.Severity,
		row.Threat.Score,
		strings.Join(row.Classification.Categories, ", "),
	)
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func runServe(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}
	cfg, configPath := loadConfig(configArg)
	s := cfg.Socsim

	logger.Infof("socsim starting")
	logger.Infof("Config loaded from: %s", configPath)

	m := metrics.New()
	gen := newGenerator(cfg)
	ctrl := pattern.NewController(seededRand(s.Stream.Seed), nil)
	ctrl.SetPattern(s.Stream.Pattern)

	st := buildStore(cfg)
	scorer, alertWriter := buildAlerts(cfg)
	dispatcher := pipeline.NewDispatcher(pipeline.Config{
		Workers:       s.Pipeline.Workers,
		QueueSize:     s.Pipeline.QueueSize,
		BatchSize:     s.Pipeline.BatchSize,
		FlushInterval: s.Pipeline.FlushInterval,
		SinkName:      s.Output.Mode,
	}, pipeline.NewEnricher(buildEngine(cfg), m), st, buildIncidentWriter(cfg), scorer, alertWriter, m)
	dispatcher.AddListener(consoleListener)

	hub := feed.NewHub(feed.Config{
		SendBuffer:   s.Feed.SendBuffer,
		PingInterval: s.Feed.PingInterval,
		PongTimeout:  s.Feed.PongTimeout,
		WriteTimeout: s.Feed.WriteTimeout,
	}, m)

	sched := stream.New(gen, ctrl, nil, m, hub, dispatcher)
	sched.OnStateChange(m.SetStreamRunning)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dispatcher.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Dispatcher error: %v", err)
		}
	}()

	if s.HTTP.Enabled {
		srv := api.NewServer(sched, st, report.NewGenerator(nil), api.Options{
			Feed:     hub,
			Metrics:  m.Handler(),
			Patterns: pattern.Names(),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, s.HTTP.Addr); err != nil {
				logger.Errorf("HTTP server error: %v", err)
			}
		}()
	}

	if s.Stream.AutoStart {
		sched.Start()
		logger.Infof("Attack stream started: %s", ctrl.Describe())
	}

	waitForSignal()

	logger.Infof("Shutting down")
	sched.Stop()
	cancel()
	hub.Close()
	wg.Wait()

	if err := dispatcher.Close(); err != nil {
		logger.Errorf("Error closing dispatcher: %v", err)
	}

	stats := sched.Stats()
	logger.Infof("socsim stopped: %d events generated, %.2f/min", stats.TotalEventsGenerated, stats.AverageEventsPerMinute)
	logger.Sync()
}

func runConsume(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}
	cfg, configPath := loadConfig(configArg)
	s := cfg.Socsim
	logger.Infof("socsim consume starting (config %s)", configPath)

	consumer := inputredis.NewConsumer(inputredis.Config{
		Addr:         s.Input.Redis.Addr,
		Password:     s.Input.Redis.Password,
		DB:           s.Input.Redis.DB,
		Key:          s.Input.Redis.Key,
		BlockTimeout: s.Input.Redis.BlockTimeout,
	})

	scorer, alertWriter := buildAlerts(cfg)
	pipe := pipeline.NewQueuePipeline(consumer, pipeline.NewEnricher(buildEngine(cfg), nil), &stdoutWriter{enc: json.NewEncoder(os.Stdout)}, scorer, alertWriter, pipeline.Config{
		Workers:       s.Pipeline.Workers,
		BatchSize:     s.Pipeline.BatchSize,
		FlushInterval: s.Pipeline.FlushInterval,
		SinkName:      "stdout",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := pipe.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Pipeline error: %v", err)
		}
	}()

	waitForSignal()
	logger.Infof("Shutting down")
	cancel()
	<-done

	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}
	logger.Sync()
}

// stdoutWriter prints enriched incidents as JSON lines.
type stdoutWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *stdoutWriter) WriteIncidents(rows []*models.EnrichedIncident) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range rows {
		if err := w.enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func (w *stdoutWriter) Close() error { return nil }

func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	seed := fs.Uint64("seed", 0, "Generator seed (0 = random)")
	attackType := fs.String("type", "", "Attack type to simulate (DDoS, Phishing, Malware, SQLInjection, XSS)")
	format := fs.String("format", report.FormatMarkdown, "Output format: markdown or json")
	input := fs.String("input", "", "Read the incident from a JSON file instead of simulating one")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var inc *models.Incident
	if *input != "" {
		raw, err := os.ReadFile(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read incident: %v\n", err)
			return 1
		}
		inc = &models.Incident{}
		if err := json.Unmarshal(raw, inc); err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse incident: %v\n", err)
			return 1
		}
	} else {
		var opts []simulator.Option
		if *seed != 0 {
			opts = append(opts, simulator.WithSeed(*seed))
		}
		gen := simulator.NewGenerator(opts...)
		if *attackType == "" {
			inc = gen.GenerateRandomAttack()
		} else {
			var err error
			inc, err = gen.Generate(models.AttackType(*attackType))
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return 2
			}
		}
	}

	rep, err := report.NewGenerator(nil).Build(inc, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build report: %v\n", err)
		return 1
	}
	body, _, err := report.Render(rep, *format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	fmt.Println(body)
	return 0
}

func runSimulate(args []string) int {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	n := fs.Int("n", 1000, "Number of incidents to generate")
	seed := fs.Uint64("seed", 0, "Generator seed (0 = random)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *n <= 0 {
		fmt.Fprintln(os.Stderr, "-n must be positive")
		return 2
	}

	var opts []simulator.Option
	if *seed != 0 {
		opts = append(opts, simulator.WithSeed(*seed))
	}
	gen := simulator.NewGenerator(opts...)

	byType := map[models.AttackType]int{}
	bySeverity := map[models.Severity]int{}
	scoreSum := 0
	for i := 0; i < *n; i++ {
		inc := gen.GenerateRandomAttack()
		byType[inc.AttackType]++
		bySeverity[inc.Severity]++
		scoreSum += threat.Score(inc).Score
	}

	fmt.Printf("generated=%d mean_threat_score=%.2f\n", *n, float64(scoreSum)/float64(*n))
	fmt.Println("attack types:")
	for _, t := range models.AttackTypes() {
		fmt.Printf("  %-14s %6d  %5.1f%%\n", t, byType[t], 100*float64(byType[t])/float64(*n))
	}

	severities := make([]models.Severity, 0, len(bySeverity))
	for sev := range bySeverity {
		severities = append(severities, sev)
	}
	sort.Slice(severities, func(i, j int) bool { return severities[i].Rank() < severities[j].Rank() })
	fmt.Println("severities:")
	for _, sev := range severities {
		fmt.Printf("  %-14s %6d  %5.1f%%\n", sev, bySeverity[sev], 100*float64(bySeverity[sev])/float64(*n))
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: socsim <command> [args]

commands:
  serve [config]      run the attack stream, pipeline and HTTP API (default)
  consume [config]    enrich incidents queued in Redis and print JSON lines
  report [flags]      print an incident report (-seed, -type, -format, -input)
  simulate [flags]    print attack type and severity distribution (-n, -seed)`)
}

func main() {
	if len(os.Args) < 2 {
		runServe(nil)
		return
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "consume":
		runConsume(os.Args[2:])
	case "report":
		os.Exit(runReport(os.Args[2:]))
	case "simulate":
		os.Exit(runSimulate(os.Args[2:]))
	case "help", "-h", "--help":
		usage()
	default:
		if strings.HasSuffix(os.Args[1], ".yml") || strings.HasSuffix(os.Args[1], ".yaml") {
			runServe(os.Args[1:])
			return
		}
		usage()
		os.Exit(2)
	}
}
