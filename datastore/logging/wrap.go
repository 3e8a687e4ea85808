/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package logging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"pkt.systems/pslog"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/internal/loggingutil"
	"github.com/suparena/tablestore/sas"
	"github.com/suparena/tablestore/storagemodels"
)

const tracerName = "github.com/suparena/tablestore/datastore"

type table struct {
	inner  datastore.Table
	logger pslog.Logger
	tracer trace.Tracer
	sys    string
}

// Wrap decorates inner with trace/debug logging and OpenTelemetry spans.
func Wrap(inner datastore.Table, logger pslog.Logger, sys string) datastore.Table {
	if inner == nil {
		return nil
	}
	return &table{
		inner:  inner,
		logger: loggingutil.EnsureLogger(logger),
		tracer: otel.Tracer(tracerName),
		sys:    sys,
	}
}

func (t *table) start(ctx context.Context, op string) (context.Context, trace.Span, pslog.Logger, time.Time, func(error)) {
	begin := time.Now()
	ctx, span := t.tracer.Start(ctx, "tablestore.table."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("tablestore.operation", op),
		attribute.String("tablestore.table", t.inner.Name()),
		attribute.String("tablestore.sys", t.sys),
	)

	logger := t.logger
	if ctxLogger, ok := loggingutil.ContextLogger(ctx); ok {
		logger = ctxLogger
	}
	logger = logger.With("table", t.inner.Name())
	ctx = pslog.ContextWithLogger(ctx, logger)

	return ctx, span, logger, begin, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "table_error")
			logger.Debug("table."+op+".error", "error", err, "elapsed", time.Since(begin))
			return
		}
		span.SetStatus(codes.Ok, "")
		logger.Debug("table."+op+".success", "elapsed", time.Since(begin))
	}
}

func keyAttrs(span trace.Span, key entity.Key) {
	span.SetAttributes(
		attribute.String("tablestore.partition_key", key.PartitionKey),
		attribute.String("tablestore.row_key", key.RowKey),
	)
}

func (t *table) Name() string { return t.inner.Name() }

func (t *table) Upsert(ctx context.Context, e *entity.Entity, mode datastore.UpdateMode) (*entity.Entity, error) {
	ctx, span, logger, _, finish := t.start(ctx, "upsert_"+mode.String())
	defer span.End()
	keyAttrs(span, e.Key())
	logger.Trace("table.upsert.begin", "key", e.Key().String(), "mode", mode.String(), "properties", e.Len())

	out, err := t.inner.Upsert(ctx, e, mode)
	finish(err)
	return out, err
}

func (t *table) Insert(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	ctx, span, logger, _, finish := t.start(ctx, "insert")
	defer span.End()
	keyAttrs(span, e.Key())
	logger.Trace("table.insert.begin", "key", e.Key().String(), "properties", e.Len())

	out, err := t.inner.Insert(ctx, e)
	finish(err)
	return out, err
}

func (t *table) Update(ctx context.Context, e *entity.Entity, mode datastore.UpdateMode, etag string) (*entity.Entity, error) {
	ctx, span, logger, _, finish := t.start(ctx, "update_"+mode.String())
	defer span.End()
	keyAttrs(span, e.Key())
	span.SetAttributes(attribute.Bool("tablestore.conditional", etag != "" && etag != datastore.AnyETag))
	logger.Trace("table.update.begin", "key", e.Key().String(), "mode", mode.String(), "etag", etag)

	out, err := t.inner.Update(ctx, e, mode, etag)
	finish(err)
	return out, err
}

func (t *table) Get(ctx context.Context, key entity.Key) (*entity.Entity, error) {
	ctx, span, logger, _, finish := t.start(ctx, "get")
	defer span.End()
	keyAttrs(span, key)
	logger.Trace("table.get.begin", "key", key.String())

	out, err := t.inner.Get(ctx, key)
	finish(err)
	return out, err
}

func (t *table) Delete(ctx context.Context, key entity.Key, etag string) error {
	ctx, span, logger, _, finish := t.start(ctx, "delete")
	defer span.End()
	keyAttrs(span, key)
	logger.Trace("table.delete.begin", "key", key.String(), "etag", etag)

	err := t.inner.Delete(ctx, key, etag)
	finish(err)
	return err
}

func (t *table) Query(ctx context.Context, params *storagemodels.QueryParams) ([]*entity.Entity, error) {
	ctx, span, logger, _, finish := t.start(ctx, "query")
	defer span.End()
	filter := ""
	if params != nil {
		filter = params.Filter
	}
	span.SetAttributes(attribute.String("tablestore.filter", filter))
	logger.Trace("table.query.begin", "filter", filter)

	out, err := t.inner.Query(ctx, params)
	if err == nil {
		span.SetAttributes(attribute.Int("tablestore.result_count", len(out)))
	}
	finish(err)
	return out, err
}

// Stream is traced as a single span covering the whole listing.
func (t *table) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*entity.Entity] {
	ctx, span, logger, _, finish := t.start(ctx, "stream")
	logger.Trace("table.stream.begin")

	in := t.inner.Stream(ctx, params, opts...)
	out := make(chan storagemodels.StreamResult[*entity.Entity], cap(in))
	go func() {
		defer close(out)
		defer span.End()
		var count int64
		var lastErr error
		for res := range in {
			if res.Error != nil {
				lastErr = res.Error
			} else {
				count++
			}
			select {
			case out <- res:
			case <-ctx.Done():
				finish(ctx.Err())
				return
			}
		}
		span.SetAttributes(attribute.Int64("tablestore.result_count", count))
		finish(lastErr)
	}()
	return out
}

func (t *table) GetAccessPolicies(ctx context.Context) ([]sas.Policy, error) {
	ctx, span, logger, _, finish := t.start(ctx, "get_access_policy")
	defer span.End()
	logger.Trace("table.get_access_policy.begin")

	out, err := t.inner.GetAccessPolicies(ctx)
	finish(err)
	return out, err
}

func (t *table) SetAccessPolicies(ctx context.Context, policies []sas.Policy) error {
	ctx, span, logger, _, finish := t.start(ctx, "set_access_policy")
	defer span.End()
	span.SetAttributes(attribute.Int("tablestore.policy_count", len(policies)))
	logger.Trace("table.set_access_policy.begin", "policies", len(policies))

	err := t.inner.SetAccessPolicies(ctx, policies)
	finish(err)
	return err
}
