/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/policy"
	"github.com/suparena/tablestore/sas"
)

// policyDocument is the YAML file read by "policy apply".
//
//	policies:
//	  - name: customer-policy
//	    permissions: raud
//	    expiry: 24h
type policyDocument struct {
	Policies []policyEntry `yaml:"policies"`
}

type policyEntry struct {
	Name        string `yaml:"name"`
	Permissions string `yaml:"permissions"`
	Start       string `yaml:"start,omitempty"`
	Expiry      string `yaml:"expiry"`
}

func (e policyEntry) resolve(now time.Time) (policy.AccessPolicy, error) {
	p := policy.AccessPolicy{Name: e.Name}
	var err error
	if p.Permissions, err = sas.ParsePermissions(e.Permissions); err != nil {
		return p, err
	}
	if e.Expiry == "" {
		return p, tserrors.NewValidationError("expiry", fmt.Sprintf("policy %s has no expiry", e.Name))
	}
	if p.Expiry, err = parseExpiry(e.Expiry, now); err != nil {
		return p, err
	}
	if e.Start != "" {
		if p.Start, err = time.Parse(time.RFC3339, e.Start); err != nil {
			return p, tserrors.NewValidationError("start", err.Error())
		}
	}
	return p, policy.Validate(p)
}

func readPolicyDocument(r io.Reader) (policyDocument, error) {
	var doc policyDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return doc, tserrors.NewValidationError("file", fmt.Sprintf("invalid policy document: %v", err))
	}
	if len(doc.Policies) == 0 {
		return doc, tserrors.NewValidationError("policies", "document lists no policies")
	}
	return doc, nil
}

func newPolicyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage the stored access policies of a table",
	}
	cmd.PersistentFlags().String("table", "", "table name")
	cmd.AddCommand(newPolicyListCommand(a), newPolicyApplyCommand(a), newPolicyDeleteCommand(a))
	return cmd
}

func newPolicyListCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored access policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := a.table(cmd, "cli.policy")
			if err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			policies, err := tbl.Policies().List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output == "yaml" {
				doc := policyDocument{Policies: make([]policyEntry, 0, len(policies))}
				for _, p := range policies {
					entry := policyEntry{Name: p.Name, Permissions: p.Permissions.String(), Expiry: p.Expiry.Format(time.RFC3339)}
					if !p.Start.IsZero() {
						entry.Start = p.Start.Format(time.RFC3339)
					}
					doc.Policies = append(doc.Policies, entry)
				}
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(doc)
			}
			if len(policies) == 0 {
				fmt.Fprintln(out, "no stored access policies")
				return nil
			}
			now := time.Now()
			for _, p := range policies {
				state := "active"
				switch {
				case p.Expired(now):
					state = "expired"
				case !p.Active(now):
					state = "pending"
				}
				fmt.Fprintf(out, "%-20s %-5s %-8s expires %s\n", p.Name, p.Permissions, state, humanize.Time(p.Expiry))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	return cmd
}

func newPolicyApplyCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or overwrite stored access policies from a YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return tserrors.NewValidationError("file", "-f is required")
			}
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open policy document: %w", err)
				}
				defer f.Close()
				r = f
			}
			doc, err := readPolicyDocument(r)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			resolved := make([]policy.AccessPolicy, 0, len(doc.Policies))
			for _, entry := range doc.Policies {
				p, err := entry.resolve(now)
				if err != nil {
					return err
				}
				resolved = append(resolved, p)
			}

			tbl, err := a.table(cmd, "cli.policy")
			if err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			manager := tbl.Policies()
			for _, p := range resolved {
				if err := manager.Set(ctx, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s (%s, expires %s)\n", p.Name, p.Permissions, humanize.Time(p.Expiry))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "policy document, - for stdin")
	return cmd
}

func newPolicyDeleteCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [NAME]",
		Short: "Delete a stored access policy, revoking every SAS that references it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return tserrors.NewValidationError("name", "give exactly one of NAME or --all")
			}
			tbl, err := a.table(cmd, "cli.policy")
			if err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			if all {
				if err := tbl.Policies().Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted all stored access policies")
				return nil
			}
			if err := tbl.Policies().Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every stored access policy")
	return cmd
}
