/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/suparena/tablestore/entity"
	tserrors "github.com/suparena/tablestore/errors"
)

// Probe operations, in the order they run.
const (
	ProbeAdd    = "add"
	ProbeRead   = "read"
	ProbeDelete = "delete"
)

// Outcome classifies the result of one probed operation.
type Outcome int

const (
	Allowed Outcome = iota
	Denied
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	}
	return "failed"
}

// ProbeResult is the outcome of one operation.
type ProbeResult struct {
	Operation string
	Outcome   Outcome
	Err       error
}

// ProbeReport lists what a credential may do on a table.
type ProbeReport struct {
	Table   string
	Results []ProbeResult
}

// Outcome returns the outcome of op. Operations that did not run are Failed.
func (r ProbeReport) Outcome(op string) Outcome {
	for _, res := range r.Results {
		if res.Operation == op {
			return res.Outcome
		}
	}
	return Failed
}

// Allowed reports whether op succeeded.
func (r ProbeReport) Allowed(op string) bool {
	return r.Outcome(op) == Allowed
}

// String renders "add=allowed read=denied delete=allowed".
func (r ProbeReport) String() string {
	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		parts = append(parts, fmt.Sprintf("%s=%s", res.Operation, res.Outcome))
	}
	return strings.Join(parts, " ")
}

// missingEntity reports a lookup failure that proves the operation was authorized:
// the service checks the credential before it looks for the entity.
func missingEntity(op string, err error) bool {
	switch op {
	case ProbeRead:
		return tserrors.IsNotFound(err)
	case ProbeDelete:
		return tserrors.IsPreconditionFailed(err)
	}
	return false
}

// Probe merges rec into t, reads it back and deletes it, recording each outcome.
// AuthorizationDenied is an expected result, not a failure: every step runs whatever the
// previous one returned, except when ctx ends.
func Probe(ctx context.Context, t *Table, rec entity.Record) ProbeReport {
	report := ProbeReport{Table: t.Name()}
	record := func(op string, err error) {
		res := ProbeResult{Operation: op, Err: err}
		switch {
		case err == nil, missingEntity(op, err):
			res.Outcome = Allowed
		case tserrors.IsAuthorizationDenied(err):
			res.Outcome = Denied
		default:
			res.Outcome = Failed
		}
		t.logger.Debug("probe", "operation", op, "outcome", res.Outcome.String(), "error", err)
		report.Results = append(report.Results, res)
	}

	steps := []struct {
		op  string
		run func() error
	}{
		{ProbeAdd, func() error {
			_, err := t.UpsertMerge(ctx, rec)
			return err
		}},
		{ProbeRead, func() error {
			key := rec.Key()
			_, err := t.GetByKey(ctx, key.PartitionKey, key.RowKey)
			return err
		}},
		{ProbeDelete, func() error {
			return t.Delete(ctx, entity.New(rec.Key().PartitionKey, rec.Key().RowKey))
		}},
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			record(step.op, ctx.Err())
			continue
		}
		record(step.op, step.run())
	}
	return report
}
