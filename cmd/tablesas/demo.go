/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/datastore/testmodels"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/policy"
	"github.com/suparena/tablestore/sas"
)

const demoPolicyName = "customer-policy"

func newDemoCommand(a *app) *cobra.Command {
	var (
		tableName string
		cleanup   bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the customer sample: entity operations, a stored policy and both SAS modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tableName == "" {
				tableName = "Customers" + strings.ReplaceAll(uuid.NewString(), "-", "")[:5]
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			return a.runDemo(ctx, cmd.OutOrStdout(), tableName, cleanup)
		},
	}
	cmd.Flags().StringVar(&tableName, "table", "", "table to use (default Customers plus a random suffix)")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "delete the table when done")
	return cmd
}

func (a *app) runDemo(ctx context.Context, out io.Writer, tableName string, cleanup bool) error {
	client, err := a.client("cli.demo")
	if err != nil {
		return err
	}

	tbl, err := client.EnsureTable(ctx, tableName)
	if err != nil {
		return err
	}
	if tbl.Created() {
		fmt.Fprintf(out, "Created table %s\n", tableName)
	} else {
		fmt.Fprintf(out, "Table %s already exists\n", tableName)
	}

	customers := tablestore.Typed[testmodels.Customer](tbl, tablestore.WithEntityType(testmodels.CustomerEntityType))
	customer := testmodels.Customer{
		ID:          "1",
		Name:        "Aamir Akhtar",
		Email:       "aamir@contoso.com",
		PhoneNumber: "425-555-0101",
	}
	if _, err := customers.UpsertMerge(ctx, customer); err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	fmt.Fprintf(out, "Merged %s: %s %s\n", customer.Name, customer.Email, customer.PhoneNumber)

	if _, err := customers.UpsertMerge(ctx, testmodels.Customer{ID: "1", Name: "Aamir Akhtar", PhoneNumber: "425-555-0105"}); err != nil {
		return fmt.Errorf("update phone number: %w", err)
	}
	stored, err := customers.Get(ctx, "Aamir Akhtar", "1")
	if err != nil {
		return fmt.Errorf("read customer back: %w", err)
	}
	fmt.Fprintf(out, "Read back %s: %s %s\n", stored.Name, stored.Email, stored.PhoneNumber)

	expiry := time.Now().UTC().Add(tablestore.DefaultSASValidity)
	if err := tbl.Policies().Set(ctx, policy.AccessPolicy{Name: demoPolicyName, Expiry: expiry, Permissions: sas.All}); err != nil {
		return fmt.Errorf("create stored policy: %w", err)
	}
	fmt.Fprintf(out, "Stored policy %s grants %s, expires %s\n", demoPolicyName, sas.All, humanize.Time(expiry))

	adHoc, err := tbl.AdHocSAS(sas.All)
	if err != nil {
		return err
	}
	if err := a.demoProbe(ctx, out, client, "ad-hoc", adHoc, testmodels.Customer{ID: "2", Name: "Johnson Mary", Email: "mary@contoso.com", PhoneNumber: "425-555-0104"}); err != nil {
		return err
	}

	fromPolicy, err := tbl.StoredPolicySAS(demoPolicyName)
	if err != nil {
		return err
	}
	if err := a.demoProbe(ctx, out, client, "stored policy", fromPolicy, testmodels.Customer{ID: "3", Name: "Wilson Joe", Email: "joe@contoso.com", PhoneNumber: "425-555-0106"}); err != nil {
		return err
	}

	if cleanup {
		if err := client.DeleteTable(ctx, tableName); err != nil {
			return fmt.Errorf("delete table: %w", err)
		}
		fmt.Fprintf(out, "Deleted table %s\n", tableName)
	}
	return nil
}

func (a *app) demoProbe(ctx context.Context, out io.Writer, client *tablestore.Client, mode string, tok sas.Token, customer testmodels.Customer) error {
	fmt.Fprintf(out, "SAS for table (%s): %s\n", mode, sas.Redact(tok.URI))
	scoped, err := client.FromSASURL(tok.URI)
	if err != nil {
		return err
	}

	if tok.StoredPolicyBacked() {
		// A new stored policy can take a while to reach every front end.
		err := policy.AwaitPropagation(ctx, func(ctx context.Context) error {
			_, err := scoped.GetByKey(ctx, customer.Name, customer.ID)
			if tserrors.IsNotFound(err) {
				return nil
			}
			return err
		}, policy.PropagationOptions{Logger: a.logger})
		if err != nil {
			return fmt.Errorf("stored policy did not take effect: %w", err)
		}
	}

	rec, err := tablestore.Typed[testmodels.Customer](scoped).ToEntity(customer)
	if err != nil {
		return err
	}
	report := tablestore.Probe(ctx, scoped, rec)
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, report tablestore.ProbeReport) {
	for _, res := range report.Results {
		if res.Err != nil && res.Outcome != tablestore.Allowed {
			fmt.Fprintf(out, "  %-6s %s (%v)\n", res.Operation, res.Outcome, res.Err)
			continue
		}
		fmt.Fprintf(out, "  %-6s %s\n", res.Operation, res.Outcome)
	}
}
