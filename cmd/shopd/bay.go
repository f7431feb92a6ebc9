package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ckshop/shopflow/internal/db"
	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/occupancy"
	"github.com/ckshop/shopflow/internal/timeutil"
)

func newBayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bay",
		Short: "Bay occupancy commands",
	}

	cmd.AddCommand(newBayListCmd())
	return cmd
}

func newBayListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every bay and its current occupant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBayList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shopflow.yaml", "path to Shopflow config file")
	return cmd
}

func runBayList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	store := db.NewStore(gormDB)
	bays, _, err := store.ListBays()
	if err != nil {
		return err
	}
	orders, err := store.ListOrders()
	if err != nil {
		return err
	}

	ptrs := make([]*models.RepairOrder, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	snaps := occupancy.Project(bays, ptrs, time.Now())

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BAY\tTYPE\tOCCUPANT\tVEHICLE\tSESSION\tTOTAL")
	for _, s := range snaps {
		if s.Order == nil {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\n", s.Bay.Name, s.Bay.WorkType)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Bay.Name, s.Bay.WorkType, s.Order.ID, truncate(s.Order.Model, 30),
			timeutil.FormatDuration(s.SessionElapsed.Milliseconds()),
			timeutil.FormatDuration(s.LifetimeTotal.Milliseconds()))
	}
	w.Flush()
	return nil
}
