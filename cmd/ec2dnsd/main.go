// Command ec2dnsd is a reference host integration for the ec2dns
// resolution engine: it loads a TOML config, builds a concrete
// CloudProvider, starts the engine, and exposes its stats registry over
// HTTP. It is not part of the library's contract (spec.md section 1); a
// real production host is typically a BIND DLZ module or similar that
// embeds the engine instead of running it as a standalone process.
//
// Grounded on cmd/routedns/main.go's cobra entrypoint and graceful
// shutdown shape, trimmed down from its config-graph instantiation (no
// resolver/group/router DAG here -- this host configures one engine).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel"

	"github.com/tc-dc/ec2dns"
	ec2provider "github.com/tc-dc/ec2dns/provider/aws"
	gceprovider "github.com/tc-dc/ec2dns/provider/gce"
)

type options struct {
	logLevel int
	statsAddr string
}

func main() {
	var opt options
	cmd := &cobra.Command{
		Use:   "ec2dnsd <config.toml> <zoneName> <vpcCidr> <accountName>",
		Short: "Authoritative DNS back-end over cloud compute inventory",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opt, args[0], args[1], args[2], args[3])
		},
		SilenceUsage: true,
	}
	cmd.Flags().IntVarP(&opt.logLevel, "log-level", "l", int(slog.LevelInfo), "slog level")
	cmd.Flags().StringVar(&opt.statsAddr, "stats-addr", ":8080", "address to expose the stats endpoint on")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opt options, configPath, zoneName, vpcCidr, accountName string) error {
	ec2dns.Log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(opt.logLevel),
	}))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)

	fcfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	watcher, err := watchConfig(configPath)
	if err != nil {
		ec2dns.Log.Warn("failed to watch config file for changes", "error", err)
	} else {
		defer watcher.Close()
	}

	zones, err := ec2dns.InitFromCidr(vpcCidr)
	if err != nil {
		return fmt.Errorf("ec2dnsd: %w", err)
	}

	engineCfg := fcfg.toEngineConfig()
	engineCfg.ZoneName = zoneName
	engineCfg.AccountName = accountName

	ctx := context.Background()
	stats := ec2dns.NewRegistry()

	var provider ec2dns.CloudProvider
	switch fcfg.Provider {
	case "aws", "":
		provider, err = ec2provider.New(ctx, ec2provider.Options{
			Region:         fcfg.Region,
			AccessKey:      fcfg.AwsAccessKey,
			SecretKey:      fcfg.AwsSecretKey,
			ProfileName:    fcfg.ProfileName,
			AsgDNSTag:      fcfg.AsgDnsTag,
			RequestTimeout: time.Duration(fcfg.RequestTimeoutMs) * time.Millisecond,
			BatchSize:      int32(fcfg.RequestBatchSize),
		}, stats)
	case "gce":
		provider, err = gceprovider.New(ctx, gceprovider.Options{
			ProjectID:       fcfg.ProfileName,
			CredentialsFile: fcfg.CredentialsFile,
			AsgDNSTag:       fcfg.AsgDnsTag,
			RequestTimeout:  time.Duration(fcfg.RequestTimeoutMs) * time.Millisecond,
		}, stats)
	default:
		return fmt.Errorf("ec2dnsd: unsupported provider %q", fcfg.Provider)
	}
	if err != nil {
		return fmt.Errorf("ec2dnsd: building provider: %w", err)
	}

	engine := ec2dns.New(engineCfg, provider, zones, stats)
	defer engine.Close()

	if _, err := newShim(engine, zoneName, vpcCidr, accountName); err != nil {
		return err
	}

	stopStats := serveStats(opt.statsAddr, engine.Stats())
	defer stopStats(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	ec2dns.Log.Info("stopping")
	return nil
}

// serveStats exposes Registry.GetAll() as a Prometheus collector, per
// SPEC_FULL.md's domain-stack wiring table ("cmd/ec2dnsd adapts the
// engine's Registry.GetAll() snapshot into a prometheus.Collector"). The
// engine package itself stays metrics-library-agnostic.
func serveStats(addr string, stats *ec2dns.Registry) func(context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(&statsCollector{stats: stats})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promHandlerFor(reg))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ec2dns.Log.Error("stats server failed", "error", err)
		}
	}()
	return srv.Shutdown
}
