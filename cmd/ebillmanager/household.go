package main

import (
	"fmt"

	"github.com/bher20/ebillmanager/internal/household"
	"github.com/spf13/cobra"
)

var householdReq household.RegisterRequest

var householdCmd = &cobra.Command{
	Use:     "household",
	Aliases: []string{"households"},
	Short:   "Register and list households",
}

var householdAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a household",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		a.warnEphemeral(cmd)

		h, err := a.households.Register(cmd.Context(), householdReq)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (service number %s, id %s)\n", h.Name, h.ServiceNumber, h.ID)
		return nil
	},
}

var householdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered households",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.households.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No households registered.")
			return nil
		}
		fmt.Fprintf(out, "%-10s  %-24s  %-10s  %-12s  %s\n", "Service", "Name", "Phone", "Connection", "ID")
		for _, h := range list {
			fmt.Fprintf(out, "%-10s  %-24s  %-10s  %-12s  %s\n", h.ServiceNumber, h.Name, h.Phone, h.ConnectionType, h.ID)
		}
		return nil
	},
}

func init() {
	f := householdAddCmd.Flags()
	f.StringVar(&householdReq.Name, "name", "", "Consumer name (letters and spaces)")
	f.StringVar(&householdReq.Phone, "phone", "", "10 digit phone number")
	f.StringVar(&householdReq.ServiceNumber, "service-number", "", "Numeric service number (generated when empty)")
	f.StringVar(&householdReq.Email, "email", "", "Email for overdue reminders")
	f.StringVar(&householdReq.Address, "address", "", "Postal address")
	f.StringVar(&householdReq.HouseNumber, "house-number", "", "House number")
	f.StringVar(&householdReq.ConnectionType, "connection-type", "Household", "Connection type")
	_ = householdAddCmd.MarkFlagRequired("name")
	_ = householdAddCmd.MarkFlagRequired("phone")

	householdCmd.AddCommand(householdAddCmd, householdListCmd)
	rootCmd.AddCommand(householdCmd)
}
