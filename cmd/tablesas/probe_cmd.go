/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/entity"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/sas"
)

func newProbeCommand(a *app) *cobra.Command {
	var (
		sasURL       string
		partitionKey string
		rowKey       string
		strict       bool
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check which entity operations a SAS allows",
		Long: `Merge a probe entity through the SAS, read it back and delete it.

Denied operations are reported, not treated as failures. With --strict the command
fails when any operation could not run for another reason.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sasURL == "" {
				return tserrors.NewValidationError("sas-url", "--sas-url is required")
			}
			token, err := sas.Parse(sasURL)
			if err != nil {
				return err
			}
			tbl, err := tablestore.OpenSAS(sasURL, a.options("cli.probe")...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Table %s via %s\n", token.TableName, sas.Redact(sasURL))
			if token.StoredPolicyBacked() {
				fmt.Fprintf(out, "Stored policy %s\n", token.SourcePolicy.Name)
			} else {
				fmt.Fprintf(out, "Ad-hoc grants %s until %s\n", token.SourcePolicy.Permissions, token.SourcePolicy.Expiry.Format("2006-01-02 15:04:05Z07:00"))
			}

			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			rec := entity.New(partitionKey, rowKey).With("Probe", true)
			report := tablestore.Probe(ctx, tbl, rec)
			printReport(out, report)

			if strict {
				for _, res := range report.Results {
					if res.Outcome == tablestore.Failed {
						return fmt.Errorf("%s failed: %w", res.Operation, res.Err)
					}
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&sasURL, "sas-url", "", "SAS URI of the table")
	flags.StringVar(&partitionKey, "pk", "tablesas-probe", "partition key of the probe entity")
	flags.StringVar(&rowKey, "rk", "probe", "row key of the probe entity")
	flags.BoolVar(&strict, "strict", false, "fail when an operation errors for a reason other than authorization")
	return cmd
}
