/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/sas"
)

func newSASCommand(a *app) *cobra.Command {
	var (
		policyName  string
		permissions string
		expiry      string
		start       string
		httpsOnly   bool
		ipRange     string
	)
	cmd := &cobra.Command{
		Use:   "sas",
		Short: "Print a SAS URI for a table",
		Long: `Print a SAS URI for a table.

With --policy the token references a stored access policy and carries no constraints
of its own. Otherwise an ad-hoc token is signed from --permissions and --expiry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := a.table(cmd, "cli.sas")
			if err != nil {
				return err
			}

			req := sas.Request{HTTPSOnly: httpsOnly, IPRange: ipRange}
			adHoc := cmd.Flags().Changed("permissions") || cmd.Flags().Changed("expiry") || start != ""
			if policyName != "" && adHoc {
				return tserrors.NewValidationError("policy", "--policy cannot be combined with --permissions, --expiry or --start")
			}
			if policyName != "" {
				req.StoredPolicy = policyName
			} else {
				now := time.Now().UTC()
				p := &sas.Policy{}
				if p.Permissions, err = sas.ParsePermissions(permissions); err != nil {
					return err
				}
				if p.Expiry, err = parseExpiry(expiry, now); err != nil {
					return err
				}
				if start != "" {
					if p.Start, err = time.Parse(time.RFC3339, start); err != nil {
						return tserrors.NewValidationError("start", err.Error())
					}
				}
				req.AdHoc = p
			}

			tok, err := tbl.GenerateSAS(req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tok.URI)
			if req.AdHoc != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "grants %s, expires %s\n", req.AdHoc.Permissions, humanize.Time(req.AdHoc.Expiry))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String("table", "", "table name")
	flags.StringVar(&policyName, "policy", "", "stored access policy to reference")
	flags.StringVar(&permissions, "permissions", "raud", "ad-hoc permissions (letters raud or names)")
	flags.StringVar(&expiry, "expiry", "24h", "ad-hoc expiry as a duration from now or an RFC3339 time")
	flags.StringVar(&start, "start", "", "ad-hoc start time (RFC3339)")
	flags.BoolVar(&httpsOnly, "https-only", false, "restrict the token to HTTPS")
	flags.StringVar(&ipRange, "ip", "", "restrict the token to an address or range (a.b.c.d or a.b.c.d-e.f.g.h)")
	return cmd
}
