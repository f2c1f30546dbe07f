// Command chronicle runs the permanode indexer: it wires config, logging, the
// node (or replay) source, the document store and the analytics fan-out
// together and drives the sync controller, following the teacher's
// cmd/main.go shape (flag-parsed subcommands, config file, zap logger, health
// server, graceful shutdown on signal).
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iotaledger/chronicle/internal/config"
	"github.com/iotaledger/chronicle/internal/health"
	"github.com/iotaledger/chronicle/internal/logging"
	"github.com/iotaledger/chronicle/pkg/analytics"
	"github.com/iotaledger/chronicle/pkg/analytics/arrowsink"
	"github.com/iotaledger/chronicle/pkg/analytics/promsink"
	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source/inx"
	"github.com/iotaledger/chronicle/pkg/source/replay"
	"github.com/iotaledger/chronicle/pkg/store/mongostore"
	"github.com/iotaledger/chronicle/pkg/sync"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: chronicle <run|generate-jwt|fill-analytics|clear-database|build-indexes> [flags]")
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "run":
		err = runCommand(args)
	case "generate-jwt":
		err = generateJWTCommand(args)
	case "fill-analytics":
		err = fillAnalyticsCommand(args)
	case "clear-database":
		err = clearDatabaseCommand(args)
	case "build-indexes":
		err = buildIndexesCommand(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfigAndLogger(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newFanout builds the analytics fan-out for cfg's enabled analytics and sink
// target. It returns the fan-out, the sink's HTTP metrics handler (nil unless
// the sink exposes one, e.g. arrow export has no pull endpoint), and a
// closer to flush/release the sink on shutdown.
func newFanout(cfg *config.Config, logger *zap.Logger) (fanout *analytics.Fanout, metricsHandler health.MetricsHandler, closer func() error) {
	var sink analytics.Sink
	closer = func() error { return nil }

	if cfg.Analytics.SinkTarget == "arrow" {
		arrow := arrowsink.New()
		sink = arrow
		closer = func() error { arrow.Close(); return nil }
	} else {
		prom := promsink.New()
		sink = prom
		metricsHandler = prom
	}

	var enabled []analytics.Analytics
	for _, a := range analytics.Registered() {
		if cfg.AnalyticsEnabled(a.Name()) {
			enabled = append(enabled, a)
		}
	}
	return analytics.New(logger, sink, enabled...), metricsHandler, closer
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "chronicle.yaml", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfigAndLogger(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := mongostore.Connect(ctx, cfg.Store.MongoURI, cfg.Store.Database, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close(context.Background()) //nolint:errcheck

	if err := st.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	src, err := inx.Dial(ctx, cfg.Source.Endpoint, logger)
	if err != nil {
		return fmt.Errorf("dial source: %w", err)
	}
	defer src.Close() //nolint:errcheck

	fanout, metricsHandler, closeSink := newFanout(cfg, logger)
	defer closeSink() //nolint:errcheck

	counters := &health.Counters{}
	healthServer := health.New(cfg.Service.HealthPort, counters, metricsHandler)
	healthServer.Start()
	defer healthServer.Stop() //nolint:errcheck

	var startOverride *ledger.SlotIndex
	if cfg.Sync.StartMilestoneOverride != 0 {
		slot := ledger.SlotIndex(cfg.Sync.StartMilestoneOverride)
		startOverride = &slot
	}

	opts := []sync.Option{sync.WithBatchSize(cfg.Store.BatchSize)}
	if startOverride != nil {
		opts = append(opts, sync.WithStartMilestoneOverride(*startOverride))
	}

	controller := sync.New(logger, src, st, st, st, st, st, st, fanout, opts...)

	logger.Info("chronicle starting", zap.String("service", cfg.Service.Name))
	if err := controller.Run(ctx); err != nil {
		logger.Error("sync controller stopped with error", zap.Error(err))
		return err
	}
	return nil
}

// generateJWTCommand mints a three-part header.payload.signature HS256 JWT for
// node-extension access, in the teacher's CLI-stub idiom (spec.md §6 names it
// as an external-collaborator surface only; the signing primitive itself has
// no pack precedent, so it is built directly on crypto/hmac rather than
// imitating a library the corpus never uses — see DESIGN.md).
func generateJWTCommand(args []string) error {
	fs := flag.NewFlagSet("generate-jwt", flag.ExitOnError)
	secret := fs.String("secret", "", "HMAC signing secret")
	subject := fs.String("subject", "chronicle", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token time-to-live")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return fmt.Errorf("generate-jwt: -secret is required")
	}

	header := struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}{Alg: "HS256", Typ: "JWT"}
	claims := struct {
		Subject string `json:"sub"`
		Expires int64  `json:"exp"`
	}{Subject: *subject, Expires: time.Now().Add(*ttl).Unix()}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	encodedHeader := base64.RawURLEncoding.EncodeToString(headerJSON)
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	signingInput := encodedHeader + "." + encodedPayload

	mac := hmac.New(sha256.New, []byte(*secret))
	mac.Write([]byte(signingInput))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	fmt.Printf("%s.%s\n", signingInput, signature)
	return nil
}

// fillAnalyticsCommand replays persisted history through the analytics
// fan-out (spec.md §6's "fill-analytics { start, end, num_tasks, analytics[] }"
// surface; num_tasks/analytics filtering is left to the enabled-analytics
// config section, since pkg/analytics.Fanout already dispatches only to those).
// -start defaults to the persisted cold-bootstrap starting slot rather than 0,
// since replay.Source's slot stream stops at the first slot with no persisted
// commitment and the database's true earliest commitment is rarely slot 0.
func fillAnalyticsCommand(args []string) error {
	fs := flag.NewFlagSet("fill-analytics", flag.ExitOnError)
	configPath := fs.String("config", "chronicle.yaml", "path to the YAML config file")
	start := fs.Uint("start", 0, "first slot to replay (defaults to the persisted starting slot)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	startSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "start" {
			startSet = true
		}
	})

	cfg, logger, err := loadConfigAndLogger(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, err := mongostore.Connect(context.Background(), cfg.Store.MongoURI, cfg.Store.Database, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close(context.Background()) //nolint:errcheck

	replayStart := ledger.SlotIndex(*start)
	if !startSet {
		persisted, err := st.GetStartingIndex(context.Background())
		if err != nil {
			return fmt.Errorf("fill-analytics: read persisted starting slot: %w", err)
		}
		if persisted != nil {
			replayStart = *persisted
		}
	}

	fanout, _, closeSink := newFanout(cfg, logger)
	defer closeSink() //nolint:errcheck

	replaySource := replay.New(st, st, st)
	controller := sync.New(logger, replaySource, st, st, st, st, st, st, fanout, sync.WithReplayFromStart(replayStart))

	logger.Info("fill-analytics: replaying persisted history through the analytics fan-out",
		zap.Uint32("start_slot", uint32(replayStart)))
	if err := controller.Run(context.Background()); err != nil {
		return fmt.Errorf("fill-analytics: replay failed: %w", err)
	}
	return nil
}

func clearDatabaseCommand(args []string) error {
	fs := flag.NewFlagSet("clear-database", flag.ExitOnError)
	configPath := fs.String("config", "chronicle.yaml", "path to the YAML config file")
	confirm := fs.Bool("yes", false, "confirm the destructive drop")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*confirm {
		return fmt.Errorf("clear-database: pass -yes to confirm dropping every Chronicle collection")
	}

	cfg, logger, err := loadConfigAndLogger(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, err := mongostore.Connect(context.Background(), cfg.Store.MongoURI, cfg.Store.Database, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close(context.Background()) //nolint:errcheck

	logger.Warn("clear-database: dropping all collections", zap.String("database", cfg.Store.Database))
	return st.Drop(context.Background())
}

func buildIndexesCommand(args []string) error {
	fs := flag.NewFlagSet("build-indexes", flag.ExitOnError)
	configPath := fs.String("config", "chronicle.yaml", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfigAndLogger(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, err := mongostore.Connect(context.Background(), cfg.Store.MongoURI, cfg.Store.Database, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close(context.Background()) //nolint:errcheck

	logger.Info("build-indexes: ensuring index set")
	return st.EnsureIndexes(context.Background())
}
