package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/airtable/internal/cli/ui"
	"github.com/conduit-lang/airtable/pkg/airtable"
	"github.com/conduit-lang/airtable/pkg/record"
)

// errNoRecord is returned when the API answers without a record object
var errNoRecord = errors.New("the API returned no record")

func newListCommand(a *app) *cobra.Command {
	var (
		opts    airtable.ListOptions
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List the records of a table",
		Long: `List the records of a table in the order the API returns them.

A list fetched within --ttl is served from the cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			repo := airtable.For(client, a.rowType(args[0]))
			var rows []*row
			err = a.spin(cmd, "Fetching "+args[0], func() error {
				rows, err = repo.List(cmd.Context(), opts)
				return err
			})
			if err != nil {
				return err
			}
			return a.printRows(cmd, rows, columns)
		},
	}

	cmd.Flags().StringVar(&opts.View, "view", "", "Only return records visible in this view")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of records")
	cmd.Flags().StringVar(&opts.Offset, "offset", "", "Pagination offset from a previous response")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Fields to show as columns (default: all)")

	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			repo := airtable.For(client, a.rowType(args[0]))
			var rec *row
			err = a.spin(cmd, "Fetching "+args[1], func() error {
				rec, err = repo.Get(cmd.Context(), args[1])
				return err
			})
			if err != nil {
				return err
			}
			if rec == nil {
				return errNoRecord
			}
			return a.printRow(cmd, rec)
		},
	}
}

func newLinksCommand(a *app) *cobra.Command {
	var columns []string

	cmd := &cobra.Command{
		Use:   "links <table> <id> <field> <linked-table>",
		Short: "Show the records a link field points to",
		Long: `Fetch a record, then fetch every record its link field names from
<linked-table>. Results keep the order of the link field. If any linked
record cannot be fetched the command fails without partial output.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, id, field, linkedTable := args[0], args[1], args[2], args[3]

			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			rec, err := airtable.For(client, a.rowType(table)).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rec == nil {
				return errNoRecord
			}

			rel := record.NewRelationship[*row](field)
			rel.Attach(rec.FieldValues())

			type resolved struct {
				rows []*row
				err  error
			}
			done := make(chan resolved, 1)
			linked := airtable.For(client, a.rowType(linkedTable))
			linked.ResolveAsync(cmd.Context(), rel, func(rows []*row, err error) {
				done <- resolved{rows: rows, err: err}
			})
			res := <-done
			if res.err != nil {
				return res.err
			}
			return a.printRows(cmd, res.rows, columns)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Fields to show as columns (default: all)")
	return cmd
}

func newCreateCommand(a *app) *cobra.Command {
	var (
		pairs []string
		data  string
	)

	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Create a record",
		Example: `  airtable create People --field Name=Alice --field Age=30
  airtable create People --data '{"Name":"Alice","Tags":["a","b"]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(pairs, data)
			if err != nil {
				return err
			}

			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			rec, err := airtable.For(client, a.rowType(args[0])).Create(cmd.Context(), fields)
			if err != nil {
				return err
			}
			if rec == nil {
				return errNoRecord
			}
			return a.printRow(cmd, rec)
		},
	}

	addFieldFlags(cmd, &pairs, &data)
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var (
		pairs []string
		data  string
	)

	cmd := &cobra.Command{
		Use:   "update <table> <id>",
		Short: "Replace the fields of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(pairs, data)
			if err != nil {
				return err
			}

			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			rec, err := airtable.For(client, a.rowType(args[0])).Update(cmd.Context(), args[1], fields)
			if err != nil {
				return err
			}
			if rec == nil {
				return errNoRecord
			}
			return a.printRow(cmd, rec)
		},
	}

	addFieldFlags(cmd, &pairs, &data)
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete a record",
		Long: `Delete a record. Cached copies of it are left to expire on their
own.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ack, err := airtable.For(client, a.rowType(args[0])).Delete(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd, ack)
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Deleted "+args[1], a.colorDisabled())
			return nil
		},
	}
}

func addFieldFlags(cmd *cobra.Command, pairs *[]string, data *string) {
	cmd.Flags().StringArrayVarP(pairs, "field", "f", nil, "Field as name=value; JSON values are decoded")
	cmd.Flags().StringVar(data, "data", "", "All fields as a JSON object")
}

// parseFields merges --data with --field pairs, pairs taking precedence
func parseFields(pairs []string, data string) (map[string]any, error) {
	fields := map[string]any{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return nil, fmt.Errorf("--data must be a JSON object: %w", err)
		}
	}

	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, expected name=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[name] = value
	}

	if len(fields) == 0 {
		return nil, errors.New("no fields given, use --field or --data")
	}
	return fields, nil
}

func (a *app) spin(cmd *cobra.Command, message string, fn func() error) error {
	return ui.WithSpinner(cmd.ErrOrStderr(), message, !a.jsonOut && !a.colorDisabled(), fn)
}

func (a *app) printRows(cmd *cobra.Command, rows []*row, columns []string) error {
	payloads := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		payloads = append(payloads, r.Payload())
	}
	if a.jsonOut {
		return printJSON(cmd, payloads)
	}
	ui.RenderRecords(cmd.OutOrStdout(), payloads, columns, a.colorDisabled())
	return nil
}

func (a *app) printRow(cmd *cobra.Command, r *row) error {
	if a.jsonOut {
		return printJSON(cmd, r.Payload())
	}
	ui.RenderRecord(cmd.OutOrStdout(), r.Payload(), a.colorDisabled())
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
