package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM query tracing.
type DBTracingConfig struct {
	Enabled          bool
	LogFullSQL       bool // include full SQL statements in spans (dev only)
	SlowQueryThresh  time.Duration
	DBSystem         string
	WithoutVariables bool // strip bind variables from recorded SQL
}

// DefaultDBTracingConfig returns the production defaults: tracing off,
// variables stripped, 200ms slow-query threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin layers slow-query detection on top of otelgorm spans.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs the otelgorm plugin plus timing callbacks on db.
// A no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerTimingCallbacks brackets every GORM operation so query duration
// can be measured in the after hook.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	type registrar interface {
		Register(name string, fn func(*gorm.DB)) error
	}
	hooks := []struct {
		name string
		at   registrar
		fn   func(*gorm.DB)
	}{
		{"db_timing:before_create", db.Callback().Create().Before("gorm:create"), p.markQueryStart},
		{"db_timing:before_query", db.Callback().Query().Before("gorm:query"), p.markQueryStart},
		{"db_timing:before_update", db.Callback().Update().Before("gorm:update"), p.markQueryStart},
		{"db_timing:before_delete", db.Callback().Delete().Before("gorm:delete"), p.markQueryStart},
		{"db_timing:before_row", db.Callback().Row().Before("gorm:row"), p.markQueryStart},
		{"db_timing:before_raw", db.Callback().Raw().Before("gorm:raw"), p.markQueryStart},
		{"db_timing:after_create", db.Callback().Create().After("gorm:create"), p.annotateSpan},
		{"db_timing:after_query", db.Callback().Query().After("gorm:query"), p.annotateSpan},
		{"db_timing:after_update", db.Callback().Update().After("gorm:update"), p.annotateSpan},
		{"db_timing:after_delete", db.Callback().Delete().After("gorm:delete"), p.annotateSpan},
		{"db_timing:after_row", db.Callback().Row().After("gorm:row"), p.annotateSpan},
		{"db_timing:after_raw", db.Callback().Raw().After("gorm:raw"), p.annotateSpan},
	}
	for _, h := range hooks {
		if err := h.at.Register(h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBTracingPlugin) markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan records row counts, the table name and any error on the
// active span, and flags queries slower than the configured threshold.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// a missing record is an expected outcome, not a query failure
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

type dbContextKey string

const queryStartTimeKey dbContextKey = "db_timing_query_start"
