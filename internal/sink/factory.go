package sink

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Config selects and configures a sink driver.
type Config struct {
	Driver   string
	Dir      string
	SQLite   string
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// Open builds the configured sink. Relative SQLite paths are placed under
// Dir.
func Open(ctx context.Context, cfg Config, mode Mode, logger *zap.Logger) (Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sink")

	var (
		s   Sink
		err error
	)
	switch cfg.Driver {
	case DriverCSV, "":
		logger.Info("opening csv sink", zap.String("dir", cfg.Dir), zap.Stringer("mode", mode))
		s, err = asSink(NewCSVSink(cfg.Dir, mode))
	case DriverSQLite:
		path := cfg.SQLite
		if path == "" {
			path = "moviegraph.db"
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Dir, path)
		}
		logger.Info("opening sqlite sink", zap.String("path", path), zap.Stringer("mode", mode))
		s, err = asSink(NewSQLiteSink(ctx, path, mode))
	case DriverPostgres:
		logger.Info("opening postgres sink", zap.Stringer("mode", mode))
		s, err = asSink(NewPostgresSink(ctx, cfg.Postgres, mode))
	case DriverKafka:
		if mode == ModeFresh {
			logger.Warn("kafka topics are not truncated on a fresh crawl")
		}
		logger.Info("opening kafka sink", zap.Strings("brokers", cfg.Kafka.Brokers))
		s, err = asSink(NewKafkaSink(cfg.Kafka))
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s sink: %w", cfg.Driver, err)
	}
	return s, nil
}

// asSink drops typed nil pointers so a failed constructor yields a nil
// interface.
func asSink[T Sink](s T, err error) (Sink, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
