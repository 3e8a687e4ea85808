/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory table service for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/sas"
)

// Service is an in-memory datastore.Service. It keeps merge/replace semantics, ETags,
// strict deletes and stored access policies, and enforces SAS permissions and expiry.
// Signatures are trusted: a token is accepted if it carries one.
type Service struct {
	mu       sync.Mutex
	tables   map[string]*tableState
	seq      uint64
	now      func() time.Time
	failures map[string]error
	down     error
	endpoint string
	hint     string
}

type tableState struct {
	name     string
	rows     map[entity.Key]*entity.Entity
	policies []sas.Policy
}

// New creates an empty mock service.
func New() *Service {
	return &Service{
		tables:   make(map[string]*tableState),
		now:      time.Now,
		failures: make(map[string]error),
		endpoint: "memory://tables",
	}
}

// WithClock sets the time source used for timestamps and SAS expiry checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithFailure makes every call of op return err, e.g. WithFailure("upsert", ...).
// Operation names: create_table, delete_table, upsert, insert, update, get, delete,
// query, get_access_policy, set_access_policy.
func (s *Service) WithFailure(op string, err error) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
	} else {
		s.failures[op] = err
	}
	return s
}

// WithUnavailable makes table creation fail as if the endpoint could not be reached.
func (s *Service) WithUnavailable(endpoint, hint string, cause error) *Service {
	s.endpoint = endpoint
	s.hint = hint
	s.down = cause
	if s.down == nil {
		s.down = fmt.Errorf("dial tcp %s: connection refused", endpoint)
	}
	return s
}

// EnsureTable creates the table when missing.
func (s *Service) EnsureTable(ctx context.Context, name string) (bool, error) {
	if err := datastore.ValidateTableName(name); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return false, errors.NewServiceUnavailableError(s.endpoint, s.hint, s.down)
	}
	if err := s.failures["create_table"]; err != nil {
		return false, err
	}
	id := strings.ToLower(name)
	if _, ok := s.tables[id]; ok {
		return false, nil
	}
	s.tables[id] = &tableState{name: name, rows: make(map[entity.Key]*entity.Entity)}
	return true, nil
}

// DeleteTable drops the table with its entities and policies.
func (s *Service) DeleteTable(ctx context.Context, name string) error {
	if err := datastore.ValidateTableName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["delete_table"]; err != nil {
		return err
	}
	id := strings.ToLower(name)
	if _, ok := s.tables[id]; !ok {
		return errors.NewNotFoundError("table", name)
	}
	delete(s.tables, id)
	return nil
}

// Table returns an account-authorized handle.
func (s *Service) Table(name string) (datastore.Table, error) {
	if err := datastore.ValidateTableName(name); err != nil {
		return nil, err
	}
	return &Table{svc: s, name: name}, nil
}

// SASTable returns a handle authorized only by token.
func (s *Service) SASTable(token sas.Token) (datastore.Table, error) {
	if token.TableName == "" || token.SourcePolicy == nil {
		return nil, errors.NewValidationError("sasURL", "token does not name a table and policy")
	}
	tok := token
	return &Table{svc: s, name: token.TableName, token: &tok}, nil
}

// Entities returns a sorted snapshot of a table's entities, for assertions.
func (s *Service) Entities(name string) []*entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tables[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return st.sorted()
}

// Tables lists the names of existing tables.
func (s *Service) Tables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for _, st := range s.tables {
		names = append(names, st.name)
	}
	sort.Strings(names)
	return names
}

func (st *tableState) sorted() []*entity.Entity {
	out := make([]*entity.Entity, 0, len(st.rows))
	for _, e := range st.rows {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartitionKey() != out[j].PartitionKey() {
			return out[i].PartitionKey() < out[j].PartitionKey()
		}
		return out[i].RowKey() < out[j].RowKey()
	})
	return out
}

// nextETag must be called with s.mu held.
func (s *Service) nextETag(at time.Time) string {
	s.seq++
	return fmt.Sprintf(`W/"datetime'%s'-%d"`, at.UTC().Format(time.RFC3339Nano), s.seq)
}
var _ datastore.Service = (*Service)(nil)
var _ datastore.Table = (*Table)(nil)
