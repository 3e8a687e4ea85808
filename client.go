/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"pkt.systems/pslog"

	"github.com/suparena/tablestore/account"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/aztable"
	"github.com/suparena/tablestore/datastore/logging"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/loggingutil"
	"github.com/suparena/tablestore/sas"
)

// DefaultSASValidity is the lifetime of ad-hoc SAS tokens minted without an explicit expiry.
const DefaultSASValidity = 24 * time.Hour

// Client opens tables of one storage account with the account key.
type Client struct {
	acct        *account.Account
	cred        *aztables.SharedKeyCredential
	service     datastore.Service
	logger      pslog.Logger
	tracing     bool
	sasValidity time.Duration
}

type options struct {
	logger      pslog.Logger
	transport   policy.Transporter
	service     datastore.Service
	tracing     bool
	sasValidity time.Duration
}

// Option configures a Client or a SAS-only table.
type Option func(*options)

// WithLogger sets the logger. Without one the client is silent.
func WithLogger(logger pslog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport replaces the HTTP transport of the Azure backend.
func WithTransport(t policy.Transporter) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithService injects the table backend, e.g. datastore/mock in tests.
func WithService(svc datastore.Service) Option {
	return func(o *options) {
		o.service = svc
	}
}

// WithTracing wraps every table handle with debug logging and OpenTelemetry spans.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

// WithSASValidity sets the default lifetime of ad-hoc SAS tokens.
func WithSASValidity(d time.Duration) Option {
	return func(o *options) {
		o.sasValidity = d
	}
}

func applyOptions(opts []Option) options {
	o := options{sasValidity: DefaultSASValidity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sasValidity <= 0 {
		o.sasValidity = DefaultSASValidity
	}
	return o
}

// NewClient resolves a connection descriptor and builds a client. No request is sent.
func NewClient(descriptor string, opts ...Option) (*Client, error) {
	acct, err := account.Parse(descriptor)
	if err != nil {
		return nil, err
	}
	return NewClientFromAccount(acct, opts...)
}

// NewClientFromAccount builds a client for an already resolved account.
func NewClientFromAccount(acct *account.Account, opts ...Option) (*Client, error) {
	if acct == nil {
		return nil, tserrors.NewConfigurationError("account", "is required", nil)
	}
	o := applyOptions(opts)
	logger := loggingutil.WithSubsystem(o.logger, "tablestore.client")

	cred, err := acct.Credential()
	if err != nil {
		return nil, err
	}

	svc := o.service
	if svc == nil {
		svc, err = aztable.NewService(acct, aztable.WithTransport(o.transport), aztable.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("client ready", "account", acct.String())
	return &Client{
		acct:        acct,
		cred:        cred,
		service:     svc,
		logger:      logger,
		tracing:     o.tracing,
		sasValidity: o.sasValidity,
	}, nil
}

// Account returns the account the client is bound to.
func (c *Client) Account() *account.Account {
	return c.acct
}

// EnsureTable creates the table when it does not exist and returns its handle.
// Table.Created reports whether this call created it.
func (c *Client) EnsureTable(ctx context.Context, name string) (*Table, error) {
	created, err := c.service.EnsureTable(ctx, name)
	if err != nil {
		c.logger.Warn("ensure table failed", "table", name, "error", err)
		return nil, err
	}
	if created {
		c.logger.Info("created table", "table", name)
	} else {
		c.logger.Debug("table already exists", "table", name)
	}
	t, err := c.Table(name)
	if err != nil {
		return nil, err
	}
	t.created = created
	return t, nil
}

// Table returns a handle for name without contacting the service.
func (c *Client) Table(name string) (*Table, error) {
	backend, err := c.service.Table(name)
	if err != nil {
		return nil, err
	}
	return &Table{
		name:    name,
		backend: c.decorate(backend),
		logger:  c.logger.With("table", name),
		signer: &signer{
			cred:     c.cred,
			tableURL: c.acct.TableURL(name),
			validity: c.sasValidity,
		},
	}, nil
}

// DeleteTable removes the table and all of its entities.
func (c *Client) DeleteTable(ctx context.Context, name string) error {
	if err := c.service.DeleteTable(ctx, name); err != nil {
		return err
	}
	c.logger.Info("deleted table", "table", name)
	return nil
}

// FromSASURL opens a table authorized only by the SAS in uri, through the client's backend.
func (c *Client) FromSASURL(uri string) (*Table, error) {
	return openSAS(c.service, uri, c.logger, c.tracing)
}

// OpenSAS opens a table from a SAS URI without any account credential.
func OpenSAS(uri string, opts ...Option) (*Table, error) {
	o := applyOptions(opts)
	logger := loggingutil.WithSubsystem(o.logger, "tablestore.client")
	svc := o.service
	if svc == nil {
		svc = sasOnlyService{transport: o.transport}
	}
	return openSAS(svc, uri, logger, o.tracing)
}

func openSAS(svc datastore.Service, uri string, logger pslog.Logger, tracing bool) (*Table, error) {
	token, err := sas.Parse(uri)
	if err != nil {
		return nil, err
	}
	backend, err := svc.SASTable(token)
	if err != nil {
		return nil, err
	}
	logger = logger.With("table", token.TableName, "sas", true)
	if tracing {
		backend = logging.Wrap(backend, logger, "tablestore.sas")
	}
	logger.Debug("opened table with SAS", "uri", sas.Redact(uri))
	return &Table{
		name:    token.TableName,
		backend: backend,
		logger:  logger,
		token:   &token,
	}, nil
}

func (c *Client) decorate(backend datastore.Table) datastore.Table {
	if !c.tracing {
		return backend
	}
	return logging.Wrap(backend, c.logger, "tablestore.table")
}

// sasOnlyService serves SAS handles when no account is known.
type sasOnlyService struct {
	transport policy.Transporter
}

func (s sasOnlyService) EnsureTable(context.Context, string) (bool, error) {
	return false, errNoAccount
}

func (s sasOnlyService) DeleteTable(context.Context, string) error {
	return errNoAccount
}

func (s sasOnlyService) Table(string) (datastore.Table, error) {
	return nil, errNoAccount
}

func (s sasOnlyService) SASTable(token sas.Token) (datastore.Table, error) {
	return aztable.NewSASTable(token, s.transport)
}

var errNoAccount = tserrors.NewValidationError("account", "operation requires account credentials")
