// Package telemetry sets up log rotation and OpenTelemetry tracing for the
// service
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// ServiceName identifies this service in traces
const ServiceName = "voice-assistant"

func rotatingFile(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // 10 MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger sends the standard logger to stdout and a rotating file under
// LOG_DIR (default "logs"). The returned closer flushes the file
func InitLogger(cfg *utils.Config) (io.Closer, error) {
	logDir := cfg.GetWithDefault("LOG_DIR", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	file := rotatingFile(logDir, cfg.GetWithDefault("LOG_FILE", ServiceName+".log"))
	log.SetOutput(io.MultiWriter(os.Stdout, file))

	return file, nil
}

// InitTracing installs a tracer provider that exports spans to a rotating
// file under LOG_DIR. With TRACING_ENABLED unset the global no-op provider
// stays in place. The returned function flushes and shuts the exporter down
func InitTracing(ctx context.Context, cfg *utils.Config) (func(), error) {
	if !cfg.GetBoolWithDefault("TRACING_ENABLED", false) {
		return func() {}, nil
	}

	logDir := cfg.GetWithDefault("LOG_DIR", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	traceFile := rotatingFile(logDir, ServiceName+"_traces.log")

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceFile),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("deployment.environment", cfg.GetWithDefault("ENVIRONMENT", "development")),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("[TELEMETRY]: failed to shutdown tracer provider: %v", err)
		}
		if err := traceFile.Close(); err != nil {
			log.Printf("[TELEMETRY]: failed to close trace file: %v", err)
		}
	}

	return cleanup, nil
}

// Tracer returns the service tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}
