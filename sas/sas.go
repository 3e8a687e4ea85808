/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sas

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	tserrors "github.com/suparena/tablestore/errors"
)

// Query parameter names of a table SAS.
const (
	ParamVersion     = "sv"
	ParamTableName   = "tn"
	ParamPermissions = "sp"
	ParamStart       = "st"
	ParamExpiry      = "se"
	ParamIdentifier  = "si"
	ParamSignature   = "sig"
	ParamProtocol    = "spr"
	ParamIPRange     = "sip"
)

const timeFormat = "2006-01-02T15:04:05Z"

// Policy is a set of access constraints. The same shape describes the parameters of an
// ad-hoc SAS and a stored access policy saved on a table; Name is only used for the latter.
type Policy struct {
	Name        string
	Start       time.Time
	Expiry      time.Time
	Permissions Permissions
}

// Expired reports whether the policy's expiry is at or before now.
func (p Policy) Expired(now time.Time) bool {
	return !p.Expiry.IsZero() && !now.Before(p.Expiry)
}

// Active reports whether now falls within [Start, Expiry).
func (p Policy) Active(now time.Time) bool {
	if !p.Start.IsZero() && now.Before(p.Start) {
		return false
	}
	return !p.Expired(now)
}

// Validate checks that the policy carries a usable window and permission set.
func (p Policy) Validate() error {
	if p.Expiry.IsZero() {
		return tserrors.NewValidationError("expiry", "is required")
	}
	if !p.Start.IsZero() && !p.Expiry.After(p.Start) {
		return tserrors.NewValidationError("expiry", "must be after start")
	}
	if p.Permissions == 0 {
		return tserrors.NewValidationError("permissions", "at least one permission is required")
	}
	if p.Permissions&^All != 0 {
		return tserrors.NewValidationError("permissions", "unknown permission bits")
	}
	return nil
}

// Request selects how a SAS is constrained. Exactly one of AdHoc and StoredPolicy
// must be set: ad-hoc constraints are embedded in the signed token, a stored policy is
// referenced by name and resolved by the service on every request.
type Request struct {
	AdHoc        *Policy
	StoredPolicy string

	// Optional restrictions that apply in either mode.
	HTTPSOnly         bool
	IPRange           string
	StartPartitionKey string
	StartRowKey       string
	EndPartitionKey   string
	EndRowKey         string
}

// Validate enforces the mode exclusivity and the ad-hoc policy constraints.
func (r Request) Validate() error {
	switch {
	case r.AdHoc != nil && r.StoredPolicy != "":
		return tserrors.NewValidationError("storedPolicy", "cannot be combined with ad-hoc policy parameters")
	case r.AdHoc == nil && r.StoredPolicy == "":
		return tserrors.NewValidationError("", "either an ad-hoc policy or a stored policy name is required")
	case r.AdHoc != nil:
		if err := r.AdHoc.Validate(); err != nil {
			return err
		}
	}
	if r.IPRange != "" {
		if _, err := parseIPRange(r.IPRange); err != nil {
			return err
		}
	}
	return nil
}

// Target identifies the table the SAS is issued for.
type Target struct {
	TableURL  string
	TableName string
}

// Token is a generated or parsed SAS.
type Token struct {
	URI        string
	QueryToken string
	TableName  string
	// SourcePolicy holds the ad-hoc constraints, or only the Name of the stored policy.
	SourcePolicy *Policy
}

// StoredPolicyBacked reports whether the token references a stored access policy.
func (t Token) StoredPolicyBacked() bool {
	return t.SourcePolicy != nil && t.SourcePolicy.Name != ""
}

// Generate signs a SAS for target with the account credential. Requests are validated
// before signing so misuse never reaches the service.
func Generate(target Target, cred *aztables.SharedKeyCredential, req Request) (Token, error) {
	if err := req.Validate(); err != nil {
		return Token{}, err
	}
	if target.TableName == "" || target.TableURL == "" {
		return Token{}, tserrors.NewValidationError("target", "table name and URL are required")
	}
	if cred == nil {
		return Token{}, tserrors.NewValidationError("credential", "a shared key credential is required to sign a SAS")
	}

	values := aztables.SASSignatureValues{
		Protocol:          aztables.SASProtocolHTTPSandHTTP,
		TableName:         target.TableName,
		StartPartitionKey: req.StartPartitionKey,
		StartRowKey:       req.StartRowKey,
		EndPartitionKey:   req.EndPartitionKey,
		EndRowKey:         req.EndRowKey,
	}
	if req.HTTPSOnly {
		values.Protocol = aztables.SASProtocolHTTPS
	}
	if req.IPRange != "" {
		ipRange, _ := parseIPRange(req.IPRange)
		values.IPRange = ipRange
	}

	var source *Policy
	if req.AdHoc != nil {
		adHoc := *req.AdHoc
		adHoc.Name = ""
		values.StartTime = adHoc.Start.UTC()
		values.ExpiryTime = adHoc.Expiry.UTC()
		values.Permissions = adHoc.Permissions.String()
		source = &adHoc
	} else {
		values.Identifier = req.StoredPolicy
		source = &Policy{Name: req.StoredPolicy}
	}

	query, err := values.Sign(cred)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign SAS for table %s: %w", target.TableName, err)
	}
	query = strings.TrimPrefix(query, "?")
	return Token{
		URI:          strings.TrimRight(target.TableURL, "/") + "?" + query,
		QueryToken:   "?" + query,
		TableName:    target.TableName,
		SourcePolicy: source,
	}, nil
}

// Parse decodes a SAS URI. The signature is not verified; that is the service's job.
func Parse(rawURL string) (Token, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Token{}, tserrors.NewValidationError("sasURL", "must be an absolute URL")
	}
	q := u.Query()
	if q.Get(ParamSignature) == "" {
		return Token{}, tserrors.NewValidationError("sasURL", "has no signature")
	}

	table := tableFromURL(u.Path, q.Get(ParamTableName))
	if table == "" || table == "." || table == "/" {
		return Token{}, tserrors.NewValidationError("sasURL", "does not name a table")
	}

	policy := &Policy{Name: q.Get(ParamIdentifier)}
	if v := q.Get(ParamPermissions); v != "" {
		if policy.Permissions, err = ParsePermissions(v); err != nil {
			return Token{}, err
		}
	}
	if v := q.Get(ParamExpiry); v != "" {
		if policy.Expiry, err = parseTime(v); err != nil {
			return Token{}, tserrors.NewValidationError(ParamExpiry, err.Error())
		}
	}
	if v := q.Get(ParamStart); v != "" {
		if policy.Start, err = parseTime(v); err != nil {
			return Token{}, tserrors.NewValidationError(ParamStart, err.Error())
		}
	}
	if policy.Name == "" && (policy.Expiry.IsZero() || policy.Permissions == 0) {
		return Token{}, tserrors.NewValidationError("sasURL", "carries neither a stored policy nor expiry and permissions")
	}

	return Token{
		URI:          u.String(),
		QueryToken:   "?" + u.RawQuery,
		TableName:    table,
		SourcePolicy: policy,
	}, nil
}

// tableFromURL prefers the last path segment, which keeps the table's case. The signed
// "tn" parameter is lowercase and only used when the path names no table or another
// resource, as with emulator account paths.
func tableFromURL(urlPath, signed string) string {
	segment := path.Base(strings.TrimRight(urlPath, "/"))
	if segment == "." || segment == "/" {
		segment = ""
	}
	if signed == "" || strings.EqualFold(segment, signed) {
		return segment
	}
	return signed
}

// Redact returns the URI with the signature masked, for logs.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid SAS URL>"
	}
	q := u.Query()
	if q.Get(ParamSignature) != "" {
		q.Set(ParamSignature, "REDACTED")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range []string{timeFormat, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

func parseIPRange(v string) (aztables.IPRange, error) {
	start, end, _ := strings.Cut(v, "-")
	r := aztables.IPRange{Start: net.ParseIP(strings.TrimSpace(start))}
	if r.Start == nil {
		return aztables.IPRange{}, tserrors.NewValidationError("ipRange", fmt.Sprintf("invalid address %q", start))
	}
	if end != "" {
		r.End = net.ParseIP(strings.TrimSpace(end))
		if r.End == nil {
			return aztables.IPRange{}, tserrors.NewValidationError("ipRange", fmt.Sprintf("invalid address %q", end))
		}
	}
	return r, nil
}
