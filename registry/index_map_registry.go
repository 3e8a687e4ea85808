/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/errors"
)

// Index map fields. Templates reference entity properties as {Name}.
const (
	PartitionKeyField = entity.PartitionKeyProperty
	RowKeyField       = entity.RowKeyProperty
)

var (
	indexMapRegistry = make(map[reflect.Type]map[string]string)
	mu               sync.RWMutex
)

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// RegisterIndexMap associates a Go type T with key templates, e.g.
//
//	registry.RegisterIndexMap[Customer](map[string]string{
//	    "PartitionKey": "{LastName}",
//	    "RowKey":       "{FirstName}",
//	})
func RegisterIndexMap[T any](idxMap map[string]string) {
	var zero T
	t := reflect.TypeOf(zero)

	copied := make(map[string]string, len(idxMap))
	for k, v := range idxMap {
		copied[k] = v
	}

	mu.Lock()
	defer mu.Unlock()
	indexMapRegistry[t] = copied
}

// GetIndexMap retrieves the index map for type T, if any.
func GetIndexMap[T any]() (map[string]string, bool) {
	var zero T
	t := reflect.TypeOf(zero)

	mu.RLock()
	defer mu.RUnlock()
	m, ok := indexMapRegistry[t]
	return m, ok
}

// ExpandKey fills the PartitionKey and RowKey templates of idxMap from props.
// A macro naming a missing or empty property is an error.
func ExpandKey(idxMap map[string]string, props map[string]any) (entity.Key, error) {
	pk, err := expand(idxMap, PartitionKeyField, props)
	if err != nil {
		return entity.Key{}, err
	}
	rk, err := expand(idxMap, RowKeyField, props)
	if err != nil {
		return entity.Key{}, err
	}
	key := entity.Key{PartitionKey: pk, RowKey: rk}
	return key, key.Validate()
}

func expand(idxMap map[string]string, field string, props map[string]any) (string, error) {
	template, ok := idxMap[field]
	if !ok {
		return "", errors.NewValidationError(field, "index map has no template")
	}
	var missing string
	out := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		name := strings.Trim(macro, "{}")
		s := render(props[name])
		if s == "" && missing == "" {
			missing = name
		}
		return s
	})
	if missing != "" {
		return "", errors.NewValidationError(field, fmt.Sprintf("template %q needs property %s", template, missing))
	}
	return out, nil
}

func render(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case time.Time:
		return tv.UTC().Format(time.RFC3339)
	case []byte:
		return ""
	}
	return fmt.Sprint(v)
}
