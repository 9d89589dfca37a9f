package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/Fuchsoria/couponslots/internal/app"
	"github.com/Fuchsoria/couponslots/internal/layout"
	"github.com/spf13/cobra"
)

var entities = []string{app.EntityCoupons, app.EntityStores}

type importOptions struct {
	file  string
	apply bool
}

func newImportCmd(c *cli) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:       "import coupons|stores",
		Short:     "Preview or import a CSV/XLSX file (default is dry-run)",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: entities,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, c, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "CSV or XLSX file (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Insert the rows (default is dry-run)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, c *cli, entity string, opts importOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("cannot read %s, %w", opts.file, err)
	}

	a, closeApp, err := c.open(cmd.Context(), c.configFile)
	if err != nil {
		return err
	}
	defer closeApp()

	name := filepath.Base(opts.file)
	out := cmd.OutOrStdout()

	if opts.apply {
		var report app.ImportReport

		if entity == app.EntityCoupons {
			report, err = a.ImportCoupons(cmd.Context(), name, data)
		} else {
			report, err = a.ImportStores(cmd.Context(), name, data)
		}

		if err != nil {
			return err
		}

		fmt.Fprintf(out, "imported %d %s, dropped %d of %d rows\n", report.Inserted, entity, report.Dropped, report.Total)

		return nil
	}

	var preview interface{}

	if entity == app.EntityCoupons {
		preview, err = a.PreviewCoupons(cmd.Context(), name, data)
	} else {
		preview, err = a.PreviewStores(name, data)
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(out, "dry-run, nothing was written; pass --apply to insert")

	return printJSON(cmd, preview)
}

type assignOptions struct {
	context  string
	id       string
	position int
	clear    bool
	yes      bool
}

func newAssignCmd(c *cli) *cobra.Command {
	var opts assignOptions

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Pin a record to a layout slot, asking before replacing the holder",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.clear == cmd.Flags().Changed("position") {
				return errors.New("pass exactly one of --position or --clear")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeApp, err := c.open(cmd.Context(), c.configFile)
			if err != nil {
				return err
			}
			defer closeApp()

			var position *int
			if !opts.clear {
				position = layout.Ptr(opts.position)
			}

			var confirm layout.Confirmer = layout.NewPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
			if opts.yes {
				confirm = layout.Confirmed(true)
			}

			res, err := a.AssignSlot(cmd.Context(), opts.context, opts.id, position, confirm)
			if err != nil {
				return err
			}

			if res.Evicted != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %q from slot %d\n", res.Evicted.Label, res.Evicted.Position)
			}

			if res.Position == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s from %s\n", opts.id, res.Context)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "assigned %s to %s slot %d\n", opts.id, res.Context, *res.Position)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "Layout context (banners, popular-coupons, latest-coupons, trending-stores)")
	cmd.Flags().StringVar(&opts.id, "id", "", "Record id")
	cmd.Flags().IntVar(&opts.position, "position", 0, "Slot position")
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "Remove the record from its slot")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Replace the current holder without asking")
	_ = cmd.MarkFlagRequired("context")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newFlagCmd(c *cli) *cobra.Command {
	var (
		contextKey string
		id         string
		off        bool
	)

	cmd := &cobra.Command{
		Use:   "flag",
		Short: "Turn the gating flag of a record on, or off with --off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeApp, err := c.open(cmd.Context(), c.configFile)
			if err != nil {
				return err
			}
			defer closeApp()

			return a.SetSlotFlag(cmd.Context(), contextKey, id, !off)
		},
	}

	cmd.Flags().StringVar(&contextKey, "context", "", "Layout context")
	cmd.Flags().StringVar(&id, "id", "", "Record id")
	cmd.Flags().BoolVar(&off, "off", false, "Clear the flag and the slot")
	_ = cmd.MarkFlagRequired("context")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newBoardCmd(c *cli) *cobra.Command {
	var contextKey string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print who holds each slot of a layout context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeApp, err := c.open(cmd.Context(), c.configFile)
			if err != nil {
				return err
			}
			defer closeApp()

			lc, err := a.SlotContext(contextKey)
			if err != nil {
				return err
			}

			board, err := a.SlotBoard(cmd.Context(), lc.Key)
			if err != nil {
				return err
			}

			held := make(map[int]layout.Occupant, len(board))
			for _, o := range board {
				held[o.Position] = o
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tID\tLABEL")

			for pos := 1; pos <= lc.Slots; pos++ {
				o, ok := held[pos]
				if !ok {
					fmt.Fprintf(w, "%d\t-\t-\n", pos)

					continue
				}

				fmt.Fprintf(w, "%d\t%s\t%s\n", pos, o.ID, o.Label)
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&contextKey, "context", "", "Layout context")
	_ = cmd.MarkFlagRequired("context")

	return cmd
}

func newColumnsCmd() *cobra.Command {
	var template bool

	cmd := &cobra.Command{
		Use:       "columns coupons|stores",
		Short:     "Print the columns an upload may carry",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: entities,
		RunE: func(cmd *cobra.Command, args []string) error {
			if template {
				tpl, err := app.Template(args[0])
				if err != nil {
					return err
				}

				_, err = fmt.Fprint(cmd.OutOrStdout(), tpl)

				return err
			}

			cols, err := app.Columns(args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd, cols)
		},
	}

	cmd.Flags().BoolVar(&template, "template", false, "Print a CSV header row instead")

	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
