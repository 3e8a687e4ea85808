/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package aztable

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/suparena/tablestore/account"
	"github.com/suparena/tablestore/datastore"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/loggingutil"
	"github.com/suparena/tablestore/sas"
	"pkt.systems/pslog"
)

// Service implements datastore.Service on top of the aztables SDK.
type Service struct {
	client    *aztables.ServiceClient
	acct      *account.Account
	transport policy.Transporter
	logger    pslog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTransport replaces the HTTP transport, e.g. for tests or proxies.
func WithTransport(t policy.Transporter) Option {
	return func(s *Service) {
		s.transport = t
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger pslog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService builds a shared key client for acct. No request is sent.
func NewService(acct *account.Account, opts ...Option) (*Service, error) {
	if acct == nil {
		return nil, tserrors.NewConfigurationError("account", "is required", nil)
	}
	s := &Service{acct: acct}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = loggingutil.WithSubsystem(s.logger, "tablestore.aztable")

	cred, err := acct.Credential()
	if err != nil {
		return nil, err
	}
	client, err := aztables.NewServiceClientWithSharedKey(acct.ServiceURL(), cred, clientOptions(s.transport))
	if err != nil {
		return nil, tserrors.NewConfigurationError("TableEndpoint", "cannot create table service client", err)
	}
	s.client = client
	return s, nil
}

// EnsureTable creates name if needed. An existing table is success.
func (s *Service) EnsureTable(ctx context.Context, name string) (bool, error) {
	if err := datastore.ValidateTableName(name); err != nil {
		return false, err
	}
	_, err := s.client.CreateTable(ctx, name, nil)
	switch {
	case err == nil:
		s.logger.Debug("table created", "table", name)
		return true, nil
	case isTableExists(err):
		s.logger.Debug("table already exists", "table", name)
		return false, nil
	}
	return false, mapUnavailable("create_table", name, s.acct.ServiceURL(), s.acct.Emulator, err)
}

// DeleteTable removes name and all of its entities.
func (s *Service) DeleteTable(ctx context.Context, name string) error {
	if err := datastore.ValidateTableName(name); err != nil {
		return err
	}
	if _, err := s.client.DeleteTable(ctx, name, nil); err != nil {
		return mapError("delete_table", name, err)
	}
	s.logger.Debug("table deleted", "table", name)
	return nil
}

// Table returns a shared key handle for name.
func (s *Service) Table(name string) (datastore.Table, error) {
	if err := datastore.ValidateTableName(name); err != nil {
		return nil, err
	}
	return newTable(name, s.client.NewClient(name)), nil
}

// SASTable returns a handle authorized only by token.
func (s *Service) SASTable(token sas.Token) (datastore.Table, error) {
	return NewSASTable(token, s.transport)
}

// NewSASTable builds a table handle from a SAS URI. The handle never holds an account key.
func NewSASTable(token sas.Token, transport policy.Transporter) (datastore.Table, error) {
	if token.URI == "" {
		return nil, tserrors.NewValidationError("sasURL", "is required")
	}
	client, err := aztables.NewClientWithNoCredential(token.URI, clientOptions(transport))
	if err != nil {
		return nil, tserrors.NewValidationError("sasURL", fmt.Sprintf("cannot create table client: %v", err))
	}
	return newTable(token.TableName, client), nil
}

var (
	_ datastore.Service = (*Service)(nil)
	_ datastore.Table   = (*table)(nil)
)
