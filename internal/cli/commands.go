package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"saasreports/internal/clock"
	"saasreports/internal/config"
	"saasreports/internal/core"
	"saasreports/internal/export"
	apphttp "saasreports/internal/http"
	"saasreports/internal/log"
	"saasreports/internal/tenant"
)

// rootState carries what PersistentPreRunE opens for the subcommands.
type rootState struct {
	configPath string
	tenantFlag string
	seedDemo   bool
	jsonOut    bool

	cfg   *config.Config
	clock clock.Clock
	app   *App
	scope tenant.Scope
}

// NewRootCommand builds the reportctl command tree. A nil cfg is loaded
// from the environment (and --config); a nil clk uses the system clock.
func NewRootCommand(cfg *config.Config, clk clock.Clock) *cobra.Command {
	if clk == nil {
		clk = clock.System()
	}
	st := &rootState{cfg: cfg, clock: clk}

	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Query dashboards and invoice reports from the command line",
		Long: `reportctl runs the reporting services directly against the configured
data backend, without going through the HTTP server.

Configuration comes from the environment (DATA_BACKEND, SQLITE_DB_PATH, ...)
or from a TOML file passed with --config.`,
		SilenceUsage:       true,
		PersistentPreRunE:  st.open,
		PersistentPostRunE: st.close,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.configPath, "config", "", "TOML configuration file")
	flags.StringVar(&st.tenantFlag, "tenant", "", "tenant id (default: host)")
	flags.BoolVar(&st.seedDemo, "seed-demo", false, "load the demo dataset into the selected tenant first")
	flags.BoolVar(&st.jsonOut, "json", false, "print JSON instead of a table")

	root.AddCommand(
		newStatsCommand(st),
		newInvoicesCommand(st),
		newExportCommand(st),
		newRevenueCommand(st),
	)
	return root
}

func (st *rootState) open(cmd *cobra.Command, _ []string) error {
	scope, err := tenant.Parse(st.tenantFlag)
	if err != nil {
		return err
	}
	st.scope = scope

	cfg := st.cfg
	if cfg == nil {
		if cfg, err = LoadConfig(st.configPath); err != nil {
			return err
		}
	}
	local := *cfg
	if st.seedDemo {
		local.SeedDemoData = true
		local.MirrorTenants = []string{scope.Key()}
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(local.LogLevel),
		Format:    local.LogFormat,
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})

	st.app, err = NewApp(cmd.Context(), &local, logger, AppOptions{Clock: st.clock})
	return err
}

func (st *rootState) close(*cobra.Command, []string) error {
	if st.app == nil {
		return nil
	}
	return st.app.Close()
}

func newStatsCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := st.app.Dashboard.GetStats(cmd.Context(), st.scope, st.clock.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.jsonOut {
				return writeJSON(out, snap)
			}

			currency := st.app.Config.ReportCurrency
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Total customers\t%d\n", snap.TotalCustomers)
			fmt.Fprintf(tw, "Active projects\t%d\n", snap.ActiveProjects)
			fmt.Fprintf(tw, "Pending tasks\t%d\n", snap.PendingTasks)
			fmt.Fprintf(tw, "Outstanding invoices\t%s\n", core.FormatCurrency(snap.OutstandingInvoices, currency))
			fmt.Fprintf(tw, "Revenue this month\t%s\n", core.FormatCurrency(snap.MonthRevenue, currency))
			fmt.Fprintln(tw)
			for _, b := range snap.RevenueByMonth {
				fmt.Fprintf(tw, "%s\t%s\n", b.Period, core.FormatN2(b.Amount))
			}
			return tw.Flush()
		},
	}
}

// filterFlags are shared by invoices and export.
type filterFlags struct {
	from, to, customer, status, sort string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first issue date (yyyy-MM-dd)")
	cmd.Flags().StringVar(&f.to, "to", "", "last issue date (yyyy-MM-dd)")
	cmd.Flags().StringVar(&f.customer, "customer", "", "customer id")
	cmd.Flags().StringVar(&f.status, "status", "", "invoice status, number or name")
	cmd.Flags().StringVar(&f.sort, "sort", "", "issueDate, issueDateAsc, amount, amountAsc, invoiceNo, customer or status")
}

func (f *filterFlags) filter(st *rootState) (core.InvoiceReportFilter, error) {
	q := url.Values{}
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set(apphttp.ParamFromDate, f.from)
	set(apphttp.ParamToDate, f.to)
	set(apphttp.ParamCustomerID, f.customer)
	set(apphttp.ParamStatus, f.status)
	set(apphttp.ParamSort, f.sort)
	return apphttp.ParseReportFilter(q, st.clock.Now().Location())
}

func newInvoicesCommand(st *rootState) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Print the invoice report",
		Example: `  reportctl invoices --from 2024-01-01 --to 2024-03-31 --status Paid
  reportctl invoices --sort amount --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := ff.filter(st)
			if err != nil {
				return err
			}
			report, err := st.app.Reports.BuildReport(cmd.Context(), st.scope, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.jsonOut {
				return writeJSON(out, report)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INVOICE\tCUSTOMER\tPROJECT\tAMOUNT\tSTATUS\tDATE")
			for _, r := range report.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.InvoiceNo, r.CustomerName, r.ProjectName, core.FormatN2(r.Amount), r.Status, r.Date.Format(core.DateLayout))
			}
			s := report.Summary
			fmt.Fprintf(tw, "\nTotal revenue\t%s\n", core.FormatCurrency(s.TotalRevenue, st.app.Config.ReportCurrency))
			fmt.Fprintf(tw, "Invoices\t%d (paid %d, pending %d, overdue %d)\n",
				s.TotalInvoices, s.PaidInvoices, s.PendingInvoices, s.OverdueInvoices)
			return tw.Flush()
		},
	}
	ff.register(cmd)
	return cmd
}

func newExportCommand(st *rootState) *cobra.Command {
	var (
		ff     filterFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the invoice report to an xlsx or pdf file",
		Example: `  reportctl export --format pdf --out invoices.pdf
  reportctl export --format xlsx --status Overdue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			filter, err := ff.filter(st)
			if err != nil {
				return err
			}
			fd, file, err := st.app.Exports.ExportFile(cmd.Context(), st.scope, filter, f)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = fd.FileName
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			if err := os.WriteFile(path, file.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Wrote %s (%d rows, %d bytes)\n", path, fd.Rows, fd.SizeBytes)
			if fd.RenderedRows < fd.Rows {
				fmt.Fprintf(w, "Only the first %d rows were rendered; narrow the filter for a complete file.\n", fd.RenderedRows)
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(export.FormatXLSX), "xlsx or pdf")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: generated file name)")
	return cmd
}

func newRevenueCommand(st *rootState) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Print payments grouped by month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if from != "" {
				q.Set(apphttp.ParamFrom, from)
			}
			if to != "" {
				q.Set(apphttp.ParamTo, to)
			}
			start, end, err := apphttp.ParseRevenueRange(q, st.clock.Now())
			if err != nil {
				return err
			}
			report, err := st.app.Reports.RevenueReport(cmd.Context(), st.scope, start, end)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.jsonOut {
				return writeJSON(out, report)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MONTH\tAMOUNT")
			for _, b := range report.Buckets {
				fmt.Fprintf(tw, "%s\t%s\n", b.Period, core.FormatN2(b.Amount))
			}
			fmt.Fprintf(tw, "Total\t%s\n", core.FormatCurrency(report.TotalRevenue, st.app.Config.ReportCurrency))
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start (yyyy-MM-dd or RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "range end (yyyy-MM-dd or RFC 3339)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
