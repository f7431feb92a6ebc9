package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ckshop/shopflow/internal/db"
	"github.com/ckshop/shopflow/internal/lifecycle"
	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/timeutil"
)

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Repair order inspection commands",
	}

	cmd.AddCommand(newOrderListCmd())
	cmd.AddCommand(newOrderShowCmd())
	return cmd
}

func newOrderListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		workType   string
		archived   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repair orders",
		Long:  "Lists repair orders with optional filters. Output is formatted as a table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderList(cmd, configPath, status, workType, archived)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shopflow.yaml", "path to Shopflow config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by display status")
	cmd.Flags().StringVar(&workType, "type", "", "filter by work type (MECHANIC or BODY)")
	cmd.Flags().BoolVar(&archived, "archived", false, "include settled orders")
	return cmd
}

func runOrderList(cmd *cobra.Command, configPath string, status, workType string, archived bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	orders, err := db.NewStore(gormDB).ListOrders()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tCUSTOMER\tSTATUS\tTYPE\tBAY\tURGENT")
	rows := 0
	for i := range orders {
		o := &orders[i]
		display := o.DisplayStatus()
		if display == models.StatusArchived && !archived {
			continue
		}
		if status != "" && display != strings.ToUpper(status) {
			continue
		}
		if workType != "" && o.WorkType != strings.ToUpper(workType) {
			continue
		}
		bay := "-"
		if o.BayID != nil {
			bay = fmt.Sprintf("%d", *o.BayID)
		}
		urgent := ""
		if o.Urgent {
			urgent = "!"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, truncate(o.Model, 30), truncate(o.CustomerName, 24),
			lifecycle.Label(o.WorkType, display), o.WorkType, bay, urgent)
		rows++
	}
	w.Flush()
	if rows == 0 {
		fmt.Fprintln(out, "No orders found.")
	}
	return nil
}

func newOrderShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show one repair order with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shopflow.yaml", "path to Shopflow config file")
	return cmd
}

func runOrderShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	orders, err := db.NewStore(gormDB).ListOrders()
	if err != nil {
		return err
	}
	var o *models.RepairOrder
	for i := range orders {
		if orders[i].ID == id {
			o = &orders[i]
			break
		}
	}
	if o == nil {
		return fmt.Errorf("order %s not found", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order:    %s (%s)\n", o.ID, o.WorkType)
	fmt.Fprintf(out, "Status:   %s\n", lifecycle.Label(o.WorkType, o.DisplayStatus()))
	fmt.Fprintf(out, "Vehicle:  %s\n", orDash(o.Model))
	fmt.Fprintf(out, "VIN:      %s\n", orDash(o.VIN))
	fmt.Fprintf(out, "Customer: %s  %s\n", orDash(o.CustomerName), orDash(o.Phone))
	if o.Mileage != nil {
		fmt.Fprintf(out, "Mileage:  %d km\n", *o.Mileage)
	}
	if o.BayID != nil {
		fmt.Fprintf(out, "Bay:      %d (total %s)\n", *o.BayID, timeutil.FormatDuration(o.TotalTimeInBay))
	} else if o.TotalTimeInBay > 0 {
		fmt.Fprintf(out, "Bay time: %s\n", timeutil.FormatDuration(o.TotalTimeInBay))
	}
	if o.Settled() {
		method := "-"
		if o.PaymentMethod != nil {
			method = *o.PaymentMethod
		}
		amount := 0.0
		if o.PaymentAmount != nil {
			amount = *o.PaymentAmount
		}
		fmt.Fprintf(out, "Settled:  %s ($%.2f) on %s\n", method, amount, o.SettledAt.Format("2006-01-02"))
	}
	if o.Info != "" {
		fmt.Fprintf(out, "Info:     %s\n", o.Info)
	}

	if len(o.Logs) > 0 {
		fmt.Fprintln(out, "\nTimeline:")
		for _, e := range o.Logs {
			fmt.Fprintf(out, "  %s  %-10s %s\n",
				e.CreatedAt.Format(time.DateTime), e.User, e.Text)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
