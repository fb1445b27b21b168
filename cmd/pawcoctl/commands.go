package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pawco/internal/core"
	"pawco/internal/export"
	"pawco/internal/report"
	"pawco/internal/services"
	"pawco/internal/storage"
)

type app struct {
	ledger *services.LedgerService
	dbPath string
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pawcoctl",
		Short:        "Administer the pawco ledger database",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newEmployeesCmd(a))
	rootCmd.AddCommand(newRecordsCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newMigrateCmd(a))
	return rootCmd
}

func newEmployeesCmd(a *app) *cobra.Command {
	employeesCmd := &cobra.Command{
		Use:   "employees",
		Short: "Manage the employee roster",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List roster employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := a.ledger.Employees(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(roster) == 0 {
				fmt.Fprintln(out, "No employees registered")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, e := range roster {
				fmt.Fprintf(tw, "%d\t%s\n", e.ID, e.Name)
			}
			return tw.Flush()
		},
	}

	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add an employee to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emp, err := a.ledger.AddEmployee(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (id %d)\n", emp.Name, emp.ID)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove an employee from the roster; their records are kept",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			roster, err := a.ledger.Employees(cmd.Context())
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			ids := make([]string, 0, len(roster))
			for _, e := range roster {
				ids = append(ids, strconv.FormatInt(e.ID, 10)+"\t"+e.Name)
			}
			return ids, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid employee id %q", args[0])
			}
			if err := a.ledger.DeleteEmployee(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed employee %d\n", id)
			return nil
		},
	}

	employeesCmd.AddCommand(listCmd, addCmd, deleteCmd)
	return employeesCmd
}

func newRecordsCmd(a *app) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect daily records",
	}

	var date, employee string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records, optionally for one date or employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := core.RecordFilter{Employee: employee}
			if date != "" {
				d, err := core.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				filter.Day = d
			}

			records, err := a.ledger.Records(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No records")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tEMPLOYEE\tGROSS\tEXPENSE\tNET\tCUSTOMERS")
			for _, rec := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					rec.ID, rec.Date, rec.Employee,
					rec.Gross().Format(), rec.Expense.Format(), rec.Net().Format(),
					humanize.Comma(int64(rec.Customers)))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			ov := report.Overall(records)
			fmt.Fprintf(out, "\n%s records, gross %s, net %s\n",
				humanize.Comma(int64(len(records))), ov.Gross().Format(), ov.Net().Format())
			return nil
		},
	}
	listCmd.Flags().StringVar(&date, "date", "", "only records of this date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&employee, "employee", "", "only records attributed to this name")

	recordsCmd.AddCommand(listCmd)
	return recordsCmd
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every record to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.ledger.Records(cmd.Context(), core.RecordFilter{})
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.Write(f, records); err != nil {
				_ = f.Close()
				return fmt.Errorf("write workbook: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s records to %s\n", humanize.Comma(int64(len(records))), out)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&out, "out", "pawco-records.xlsx", "destination file")
	return exportCmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(a.dbPath); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(a.dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}
