/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/errors"
)

// The mock understands conjunctions of comparisons such as
// "PartitionKey eq 'Smith' and Age ge 30".
var (
	andPattern    = regexp.MustCompile(`(?i)\s+and\s+`)
	clausePattern = regexp.MustCompile(`^\s*(\w+)\s+(eq|ne|gt|ge|lt|le)\s+(.+?)\s*$`)
)

type clause struct {
	property string
	op       string
	value    any
}

func compileFilter(filter string) (func(*entity.Entity) bool, error) {
	if strings.TrimSpace(filter) == "" {
		return func(*entity.Entity) bool { return true }, nil
	}
	var clauses []clause
	for _, part := range andPattern.Split(filter, -1) {
		m := clausePattern.FindStringSubmatch(part)
		if m == nil {
			return nil, errors.NewValidationError("filter", fmt.Sprintf("unsupported expression %q", part))
		}
		v, err := parseLiteral(m[3])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause{property: m[1], op: strings.ToLower(m[2]), value: v})
	}
	return func(e *entity.Entity) bool {
		for _, c := range clauses {
			if !c.matches(e) {
				return false
			}
		}
		return true
	}, nil
}

func parseLiteral(raw string) (any, error) {
	switch {
	case len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'':
		return strings.ReplaceAll(raw[1:len(raw)-1], "''", "'"), nil
	case raw == "true" || raw == "false":
		return raw == "true", nil
	}
	if i, err := strconv.ParseInt(strings.TrimSuffix(raw, "L"), 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	return nil, errors.NewValidationError("filter", fmt.Sprintf("unsupported literal %s", raw))
}

func (c clause) matches(e *entity.Entity) bool {
	var have any
	switch c.property {
	case entity.PartitionKeyProperty:
		have = e.PartitionKey()
	case entity.RowKeyProperty:
		have = e.RowKey()
	default:
		v, ok := e.Get(c.property)
		if !ok {
			return false
		}
		have = v
	}
	cmp, ok := compare(have, c.value)
	if !ok {
		return c.op == "ne"
	}
	switch c.op {
	case "eq":
		return cmp == 0
	case "ne":
		return cmp != 0
	case "gt":
		return cmp > 0
	case "ge":
		return cmp >= 0
	case "lt":
		return cmp < 0
	case "le":
		return cmp <= 0
	}
	return false
}

// compare orders two values of compatible kinds.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch tv := v.(type) {
	case int32:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case float64:
		return tv, true
	case int:
		return float64(tv), true
	}
	return 0, false
}
