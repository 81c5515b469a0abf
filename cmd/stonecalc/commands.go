package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/todmy/stoneweight/internal/export"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/internal/receipt"
	"github.com/todmy/stoneweight/internal/workspace"
	"github.com/todmy/stoneweight/pkg/models"
)

type appFunc func() *app

// parseLines reads stone lines written as stoneID:quantity
func parseLines(raw []string) ([]models.StoneQuantity, error) {
	lines := make([]models.StoneQuantity, 0, len(raw))
	for _, s := range raw {
		id, qty, ok := strings.Cut(s, ":")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid stone line %q, want id:quantity", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q: %w", s, err)
		}
		lines = append(lines, models.StoneQuantity{StoneID: strings.TrimSpace(id), Quantity: n})
	}
	return lines, nil
}

// report prints how a registry write ended
func report(w io.Writer, what string, err *workspace.SyncError) {
	if err == nil {
		fmt.Fprintf(w, "%s saved\n", what)
		return
	}
	if err.Auth {
		fmt.Fprintf(w, "%s not saved: %v\n", what, err.Err)
		return
	}
	fmt.Fprintf(w, "%s saved locally only (%v)\n", what, err.Err)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func loginCmd(get appFunc) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err := a.saveToken(cmd.Context(), resp.Token); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", resp.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func syncCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the local cache from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			errs := a.ws.Sync(cmd.Context())
			for _, err := range errs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s not refreshed: %v\n", err.Entity, err.Err)
			}
			snap := a.ws.Export()
			fmt.Fprintf(cmd.OutOrStdout(), "%d stones, %d models, %d stone sets\n", len(snap.Stones), len(snap.Models), len(snap.StoneSets))
			return nil
		},
	}
}

func stonesCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "stones", Short: "Manage stones"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached stones",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tPER GRAM")
			for _, s := range get().ws.Stones().List() {
				fmt.Fprintf(tw, "%s\t%s\t%g\n", s.ID, s.Name, s.CountPerGram)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME COUNT_PER_GRAM",
		Short: "Add a stone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			factor, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid count per gram: %w", err)
			}
			res, err := get().ws.Stones().Create(cmd.Context(), models.Stone{Name: args[0], CountPerGram: factor})
			if err != nil {
				return err
			}
			report(cmd.OutOrStdout(), "stone "+res.Value.ID, res.Err)
			return nil
		},
	})

	var name string
	var factor float64
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change a stone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch workspace.StonePatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("per-gram") {
				patch.CountPerGram = &factor
			}
			res, err := get().ws.Stones().Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			report(cmd.OutOrStdout(), "stone "+args[0], res.Err)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().Float64Var(&factor, "per-gram", 0, "new count per gram")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm ID",
		Short: "Delete a stone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := get().ws.Stones().Delete(cmd.Context(), args[0])
			report(cmd.OutOrStdout(), "stone "+args[0], res.Err)
			return nil
		},
	})

	return cmd
}

func modelsCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "models", Short: "Manage models"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached models",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tSTOCK CODE\tCATEGORY\tLINES")
			for _, m := range get().ws.Models().List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", m.ID, m.Name, m.StockCode, m.Category, len(m.Stones))
			}
			return tw.Flush()
		},
	})

	var stockCode, category string
	var stones []string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseLines(stones)
			if err != nil {
				return err
			}
			res, err := get().ws.Models().Create(cmd.Context(), models.Model{
				Name:      args[0],
				StockCode: stockCode,
				Category:  category,
				Stones:    lines,
			})
			if err != nil {
				return err
			}
			report(cmd.OutOrStdout(), "model "+res.Value.ID, res.Err)
			return nil
		},
	}
	add.Flags().StringVar(&stockCode, "stock-code", "", "stock code")
	add.Flags().StringVar(&category, "category", "", "category")
	add.Flags().StringArrayVar(&stones, "stone", nil, "stone line as id:quantity (repeatable)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "apply-set MODEL_ID SET_ID",
		Short: "Add the lines of a stone set to a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := get().ws.Models().ApplySet(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			report(cmd.OutOrStdout(), "model "+args[0], res.Err)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm ID",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := get().ws.Models().Delete(cmd.Context(), args[0])
			report(cmd.OutOrStdout(), "model "+args[0], res.Err)
			return nil
		},
	})

	return cmd
}

func setsCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "sets", Short: "Manage stone sets"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached stone sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tLINES")
			for _, s := range get().ws.StoneSets().List() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.Name, len(s.Stones))
			}
			return tw.Flush()
		},
	})

	var description string
	var stones []string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a stone set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseLines(stones)
			if err != nil {
				return err
			}
			res, err := get().ws.StoneSets().Create(cmd.Context(), models.StoneSet{
				Name:        args[0],
				Description: description,
				Stones:      lines,
			})
			if err != nil {
				return err
			}
			report(cmd.OutOrStdout(), "stone set "+res.Value.ID, res.Err)
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "description")
	add.Flags().StringArrayVar(&stones, "stone", nil, "stone line as id:quantity (repeatable)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm ID",
		Short: "Delete a stone set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := get().ws.StoneSets().Delete(cmd.Context(), args[0])
			report(cmd.OutOrStdout(), "stone set "+args[0], res.Err)
			return nil
		},
	})

	return cmd
}

func calcCmd(get appFunc) *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "calc MODEL_ID COUNT",
		Short: "Calculate the stone weight of a production run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count: %w", err)
			}

			a := get()
			result := a.ws.Calculate(args[0], count)
			if result == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no result: unknown model or count is not positive")
				return nil
			}

			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "STONE\tQUANTITY\tWEIGHT (g)")
			for _, d := range result.StoneDetails {
				fmt.Fprintf(tw, "%s\t%d\t%.3f\n", d.StoneName, d.Quantity, d.TotalWeight)
			}
			fmt.Fprintf(tw, "TOTAL\t%d x %s\t%.2f\n", result.ProductionCount, result.ModelName, result.TotalWeight)
			if err := tw.Flush(); err != nil {
				return err
			}

			if commit {
				item, _ := a.ws.Commit(cmd.Context(), result)
				fmt.Fprintf(cmd.OutOrStdout(), "added to history as %s\n", item.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "add the result to the history")
	return cmd
}

func historyCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the calculation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tMODEL\tCOUNT\tWEIGHT (g)\tTIME")
			for _, item := range get().ws.History() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\n",
					item.ID, item.ModelName, item.ProductionCount, item.TotalWeight,
					item.Timestamp.Local().Format("02.01.2006 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Total weight and count over the history",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := get().ws.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "total count: %d\ntotal weight: %.2f g\n", s.TotalCount, s.TotalWeight)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm ID",
		Short: "Remove one history item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			get().ws.RemoveHistory(cmd.Context(), args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every history item",
		RunE: func(cmd *cobra.Command, args []string) error {
			get().ws.ClearHistory(cmd.Context())
			return nil
		},
	})

	return cmd
}

func printCmd(get appFunc) *cobra.Command {
	var out, settingsPath string
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Write a receipt PDF for the latest history item",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			item, ok := a.ws.LastHistory()
			if !ok {
				metrics.ObserveReceipt(metrics.ResultEmpty)
				return fmt.Errorf("history is empty")
			}

			if settingsPath == "" {
				settingsPath = a.cfg.ReceiptConfig
			}
			settings, err := receipt.LoadSettings(settingsPath)
			if err != nil {
				return err
			}

			if err := writeFile(out, func(f *os.File) error {
				return receipt.Render(f, receipt.TicketFromHistory(item), settings)
			}); err != nil {
				metrics.ObserveReceipt(metrics.ResultError)
				return err
			}
			metrics.ObserveReceipt(metrics.ResultSuccess)
			fmt.Fprintf(cmd.OutOrStdout(), "receipt for %s x %d (%.2f g) written to %s\n", item.ModelName, item.ProductionCount, item.TotalWeight, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "receipt.pdf", "output file")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "receipt settings YAML")
	return cmd
}

func exportCmd(get appFunc) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the local cache as JSON or XLSX (by file extension)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			snap := a.ws.Export()

			format := "json"
			write := func(f *os.File) error { return export.EncodeJSON(f, snap) }
			if strings.EqualFold(filepath.Ext(out), ".xlsx") {
				format = "xlsx"
				write = func(f *os.File) error { return export.WriteWorkbook(f, snap, a.ws.History()) }
			}

			if err := writeFile(out, write); err != nil {
				metrics.ObserveExport(format, metrics.ResultError)
				return err
			}
			metrics.ObserveExport(format, metrics.ResultSuccess)
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "stoneweight.json", "output file (.json or .xlsx)")
	return cmd
}

func importCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the local cache with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			get().ws.Import(cmd.Context(), snap)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d stones, %d models, %d stone sets\n", len(snap.Stones), len(snap.Models), len(snap.StoneSets))
			return nil
		},
	}
}

func pushCmd(get appFunc) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload the local cache (or a JSON export) to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			snap := a.ws.Export()
			if file != "" {
				var err error
				if snap, err = readSnapshot(file); err != nil {
					return err
				}
			}

			resp, err := a.client.Migrate(cmd.Context(), snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server upserted %d stones, %d models, %d stone sets\n", resp.Stones, resp.Models, resp.StoneSets)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON export to upload instead of the local cache")
	return cmd
}

func readSnapshot(path string) (models.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer f.Close()
	return export.DecodeJSON(f)
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

