/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package account

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	tserrors "github.com/suparena/tablestore/errors"
)

// Emulator account material. The key is the published development storage key.
const (
	EmulatorMarker      = "UseDevelopmentStorage=true"
	EmulatorAccountName = "devstoreaccount1"
	EmulatorAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
	emulatorTablePort   = "10002"
	defaultEndpointHost = "core.windows.net"
)

// Connection descriptor keys.
const (
	keyAccountName     = "accountname"
	keyAccountKey      = "accountkey"
	keyProtocol        = "defaultendpointsprotocol"
	keyEndpointSuffix  = "endpointsuffix"
	keyTableEndpoint   = "tableendpoint"
	keyUseDevStorage   = "usedevelopmentstorage"
	keyDevStorageProxy = "developmentstorageproxyuri"
)

// Account is a validated storage account reference. It is immutable after Parse.
type Account struct {
	Name           string
	Key            string
	Protocol       string
	EndpointSuffix string
	TableEndpoint  string
	Emulator       bool
}

// Parse resolves a connection descriptor into an Account.
// Every failure is a ConfigurationError.
func Parse(descriptor string) (*Account, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, tserrors.NewConfigurationError("", "connection descriptor is empty", nil)
	}

	fields := make(map[string]string)
	for _, segment := range strings.Split(descriptor, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, value, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, tserrors.NewConfigurationError("", fmt.Sprintf("segment %q is not of the form Key=Value", redact(segment)), nil)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, tserrors.NewConfigurationError("", "segment with empty key", nil)
		}
		if _, dup := fields[name]; dup {
			return nil, tserrors.NewConfigurationError(name, "specified more than once", nil)
		}
		fields[name] = strings.TrimSpace(value)
	}

	if v, ok := fields[keyUseDevStorage]; ok {
		if !strings.EqualFold(v, "true") {
			return nil, tserrors.NewConfigurationError("UseDevelopmentStorage", "only the value true is supported", nil)
		}
		return emulator(fields[keyDevStorageProxy])
	}

	acct := &Account{
		Name:           fields[keyAccountName],
		Key:            fields[keyAccountKey],
		Protocol:       strings.ToLower(fields[keyProtocol]),
		EndpointSuffix: fields[keyEndpointSuffix],
		TableEndpoint:  strings.TrimRight(fields[keyTableEndpoint], "/"),
	}
	if acct.Protocol == "" {
		acct.Protocol = "https"
	}
	if acct.EndpointSuffix == "" {
		acct.EndpointSuffix = defaultEndpointHost
	}
	if err := acct.Validate(); err != nil {
		return nil, err
	}
	return acct, nil
}

func emulator(proxy string) (*Account, error) {
	host := "http://127.0.0.1"
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil || u.Scheme == "" || u.Hostname() == "" {
			return nil, tserrors.NewConfigurationError("DevelopmentStorageProxyUri", "must be an absolute URL", err)
		}
		host = u.Scheme + "://" + u.Hostname()
	}
	return &Account{
		Name:          EmulatorAccountName,
		Key:           EmulatorAccountKey,
		Protocol:      "http",
		TableEndpoint: fmt.Sprintf("%s:%s/%s", host, emulatorTablePort, EmulatorAccountName),
		Emulator:      true,
	}, nil
}

// Validate checks required fields and formats.
func (a *Account) Validate() error {
	if a.Name == "" {
		return tserrors.NewConfigurationError("AccountName", "is required", nil)
	}
	if a.Key == "" {
		return tserrors.NewConfigurationError("AccountKey", "is required", nil)
	}
	if _, err := base64.StdEncoding.DecodeString(a.Key); err != nil {
		return tserrors.NewConfigurationError("AccountKey", "is not valid base64", err)
	}
	if a.Protocol != "http" && a.Protocol != "https" {
		return tserrors.NewConfigurationError("DefaultEndpointsProtocol", fmt.Sprintf("unsupported protocol %q", a.Protocol), nil)
	}
	if a.TableEndpoint != "" {
		u, err := url.Parse(a.TableEndpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return tserrors.NewConfigurationError("TableEndpoint", "must be an absolute URL", err)
		}
	}
	return nil
}

// ServiceURL returns the table service endpoint without a trailing slash.
func (a *Account) ServiceURL() string {
	if a.TableEndpoint != "" {
		return a.TableEndpoint
	}
	return fmt.Sprintf("%s://%s.table.%s", a.Protocol, a.Name, a.EndpointSuffix)
}

// TableURL returns the resource URL of a table, the base of a SAS URI.
func (a *Account) TableURL(table string) string {
	return a.ServiceURL() + "/" + url.PathEscape(table)
}

// Credential builds the shared key credential used for requests and SAS signing.
func (a *Account) Credential() (*aztables.SharedKeyCredential, error) {
	cred, err := aztables.NewSharedKeyCredential(a.Name, a.Key)
	if err != nil {
		return nil, tserrors.NewConfigurationError("AccountKey", "cannot build shared key credential", err)
	}
	return cred, nil
}

// String describes the account without revealing the key.
func (a *Account) String() string {
	if a.Emulator {
		return fmt.Sprintf("emulator(%s)", a.ServiceURL())
	}
	return fmt.Sprintf("account(%s, %s)", a.Name, a.ServiceURL())
}

func redact(segment string) string {
	if len(segment) > 12 {
		return segment[:12] + "..."
	}
	return segment
}
