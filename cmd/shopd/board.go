package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ckshop/shopflow/internal/board"
	"github.com/ckshop/shopflow/internal/db"
	"github.com/ckshop/shopflow/internal/lifecycle"
	"github.com/ckshop/shopflow/internal/models"
)

func newBoardCmd() *cobra.Command {
	var (
		configPath string
		role       string
		workType   string
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Render the kanban board as a table",
		Long:  "Shows the column layout a role sees, with orders in their slot order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, configPath, strings.ToUpper(role), strings.ToUpper(workType))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shopflow.yaml", "path to Shopflow config file")
	cmd.Flags().StringVar(&role, "role", models.RoleForeman, "role whose column order to use")
	cmd.Flags().StringVar(&workType, "type", models.WorkTypeMechanic, "work type (MECHANIC or BODY)")
	return cmd
}

func runBoard(cmd *cobra.Command, configPath, role, workType string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	store := db.NewStore(gormDB)

	audience := board.AudienceFor(role, workType)
	columns, err := store.LoadColumnOrder(audience)
	if err != nil {
		return err
	}
	fallback := board.DefaultColumns(audience)
	if columns == nil {
		columns = fallback
	} else {
		columns = board.SanitizeColumns(columns, fallback)
	}

	orders, err := store.ListOrders()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tSLOT\tID\tMODEL\tCUSTOMER")
	for _, status := range board.VisibleColumns(columns, workType) {
		var column []*models.RepairOrder
		for i := range orders {
			o := &orders[i]
			if o.WorkType == workType && !o.InBay() && o.DisplayStatus() == status {
				column = append(column, o)
			}
		}
		label := lifecycle.Label(workType, status)
		if len(column) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", label)
			continue
		}
		slots := board.AssignSlots(column, board.Capacity(len(column)))
		for i, o := range slots {
			if o == nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
				label, i, o.ID, truncate(o.Model, 30), truncate(o.CustomerName, 24))
		}
	}
	w.Flush()
	return nil
}
