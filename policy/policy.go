/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/loggingutil"
	"github.com/suparena/tablestore/retry"
	"github.com/suparena/tablestore/sas"
	"pkt.systems/pslog"
)

// Service limits on stored access policies.
const (
	MaxPolicies      = 5
	MaxPolicyNameLen = 64
)

// DefaultPropagationWindow is how long a policy change may take to become effective.
const DefaultPropagationWindow = 30 * time.Second

// AccessPolicy is a named stored access policy saved on a table.
type AccessPolicy = sas.Policy

// ACL reads and writes the complete set of stored access policies of one table.
// The service has no per-policy endpoint; every write replaces the whole set.
type ACL interface {
	GetAccessPolicies(ctx context.Context) ([]AccessPolicy, error)
	SetAccessPolicies(ctx context.Context, policies []AccessPolicy) error
}

// Manager edits stored access policies. Set and Delete are read-modify-write cycles
// without locking: concurrent writers race and the last write wins.
type Manager struct {
	acl    ACL
	table  string
	logger pslog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger pslog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTableName labels log entries and errors with the table name.
func WithTableName(name string) Option {
	return func(m *Manager) {
		m.table = name
	}
}

// NewManager returns a Manager operating on acl.
func NewManager(acl ACL, opts ...Option) *Manager {
	m := &Manager{acl: acl}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = loggingutil.WithSubsystem(m.logger, "tablestore.policy")
	return m
}

// List returns the table's policies ordered by name.
func (m *Manager) List(ctx context.Context) ([]AccessPolicy, error) {
	policies, err := m.acl.GetAccessPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list access policies: %w", err)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })
	return policies, nil
}

// Get returns the named policy or a NotFound error.
func (m *Manager) Get(ctx context.Context, name string) (AccessPolicy, error) {
	if err := validateName(name); err != nil {
		return AccessPolicy{}, err
	}
	policies, err := m.List(ctx)
	if err != nil {
		return AccessPolicy{}, err
	}
	if i := indexOf(policies, name); i >= 0 {
		return policies[i], nil
	}
	return AccessPolicy{}, tserrors.NewNotFoundError("access policy", name)
}

// Set creates or overwrites the policy with p.Name, leaving the others untouched.
func (m *Manager) Set(ctx context.Context, p AccessPolicy) error {
	if err := Validate(p); err != nil {
		return err
	}
	policies, err := m.List(ctx)
	if err != nil {
		return err
	}
	if i := indexOf(policies, p.Name); i >= 0 {
		policies[i] = p
	} else {
		if len(policies) >= MaxPolicies {
			return tserrors.NewValidationError("policies", fmt.Sprintf("a table holds at most %d access policies", MaxPolicies))
		}
		policies = append(policies, p)
	}
	if err := m.acl.SetAccessPolicies(ctx, policies); err != nil {
		return fmt.Errorf("failed to save access policy %s: %w", p.Name, err)
	}
	m.logger.Info("access policy saved",
		"table", m.table,
		"policy", p.Name,
		"permissions", p.Permissions.String(),
		"expiry", p.Expiry,
	)
	return nil
}

// Delete removes the named policy. Tokens referencing it stop working once the change
// propagates.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	policies, err := m.List(ctx)
	if err != nil {
		return err
	}
	i := indexOf(policies, name)
	if i < 0 {
		return tserrors.NewNotFoundError("access policy", name)
	}
	policies = append(policies[:i], policies[i+1:]...)
	if err := m.acl.SetAccessPolicies(ctx, policies); err != nil {
		return fmt.Errorf("failed to delete access policy %s: %w", name, err)
	}
	m.logger.Info("access policy deleted", "table", m.table, "policy", name)
	return nil
}

// Clear removes every policy from the table.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.acl.SetAccessPolicies(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear access policies: %w", err)
	}
	m.logger.Info("access policies cleared", "table", m.table)
	return nil
}

// Validate checks a policy against the service limits.
func Validate(p AccessPolicy) error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	return p.Validate()
}

func validateName(name string) error {
	switch {
	case name == "":
		return tserrors.NewValidationError("name", "policy name is required")
	case len(name) > MaxPolicyNameLen:
		return tserrors.NewValidationError("name", fmt.Sprintf("policy name must be at most %d characters", MaxPolicyNameLen))
	}
	return nil
}

func indexOf(policies []AccessPolicy, name string) int {
	for i := range policies {
		if policies[i].Name == name {
			return i
		}
	}
	return -1
}

// PropagationOptions bounds AwaitPropagation.
type PropagationOptions struct {
	Window       time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Logger       pslog.Logger
}

// AwaitPropagation polls probe until it stops failing with AuthorizationDenied.
// Any other error ends the wait immediately. When the window elapses the last
// denial is returned.
func AwaitPropagation(ctx context.Context, probe func(context.Context) error, opts PropagationOptions) error {
	if opts.Window <= 0 {
		opts.Window = DefaultPropagationWindow
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	return retry.Do(ctx, "await_policy_propagation", retry.Config{
		BaseDelay:  opts.InitialDelay,
		MaxDelay:   opts.MaxDelay,
		Multiplier: 2.0,
		MaxElapsed: opts.Window,
		RetryIf:    tserrors.IsAuthorizationDenied,
		Logger:     opts.Logger,
	}, probe)
}
