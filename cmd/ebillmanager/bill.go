package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/bher20/ebillmanager/internal/render"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/spf13/cobra"
)

var (
	flagBillHouseholdID   string
	flagBillServiceNumber string
	flagBillHouseNumber   string
	flagBillUnits         string
	flagBillFine          string
	flagBillSuggestFine   bool
	flagBillNote          string
	flagBillPDF           string
	flagBillStatus        string
	flagBillLimit         int
)

var billCmd = &cobra.Command{
	Use:     "bill",
	Aliases: []string{"bills"},
	Short:   "Create, pay and inspect bills",
}

var billCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a bill for a household",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		a.warnEphemeral(cmd)

		var ref billing.HouseholdRef
		switch {
		case flagBillHouseholdID != "":
			ref = billing.ByID(flagBillHouseholdID)
		case flagBillServiceNumber != "":
			ref = billing.ByServiceNumber(flagBillServiceNumber)
		default:
			return errors.New("one of --household-id or --service-number is required")
		}

		fine := flagBillFine
		if fine == "" && flagBillSuggestFine {
			suggested, err := a.engine.SuggestedFine(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fine = suggested.String()
		}

		bill, err := a.engine.CreateBill(cmd.Context(), billing.CreateBillRequest{
			Household: ref,
			Units:     flagBillUnits,
			Fine:      fine,
			Note:      flagBillNote,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Card(bill))
		return nil
	},
}

var billPayCmd = &cobra.Command{
	Use:   "pay <bill-id>",
	Short: "Mark an unpaid bill as paid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.engine.MarkPaid(cmd.Context(), args[0]) {
			fmt.Fprintf(cmd.OutOrStdout(), "Bill %s marked paid\n", args[0])
			return nil
		}
		return fmt.Errorf("bill %s was not updated (unknown or already paid)", args[0])
	},
}

var billShowCmd = &cobra.Command{
	Use:   "show <bill-id>",
	Short: "Show a bill, optionally writing it as a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		bill, err := a.store.GetBill(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if bill == nil {
			return &billing.NotFoundError{Kind: "bill", Key: args[0]}
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Card(bill))

		if flagBillPDF == "" {
			return nil
		}
		f, err := os.Create(flagBillPDF)
		if err != nil {
			return err
		}
		if err := render.WritePDF(f, bill); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", flagBillPDF)
		return nil
	},
}

var billListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bills, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		status := storage.BillStatus(flagBillStatus)
		if status != "" && status != storage.StatusPaid && status != storage.StatusUnpaid {
			return fmt.Errorf("status must be %s or %s", storage.StatusPaid, storage.StatusUnpaid)
		}
		bills, err := a.store.ListBills(cmd.Context(), storage.BillFilter{
			HouseholdID:   flagBillHouseholdID,
			ServiceNumber: flagBillServiceNumber,
			HouseNumber:   flagBillHouseNumber,
			Status:        status,
			Limit:         flagBillLimit,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), render.BillTable(bills))
		return nil
	},
}

func init() {
	cf := billCreateCmd.Flags()
	cf.StringVar(&flagBillHouseholdID, "household-id", "", "Household id")
	cf.StringVar(&flagBillServiceNumber, "service-number", "", "Household service number")
	cf.StringVar(&flagBillUnits, "units", "", "Units consumed")
	cf.StringVar(&flagBillFine, "fine", "", "Fine to add (default 0)")
	cf.BoolVar(&flagBillSuggestFine, "suggest-fine", false, "Apply the late fine when the household has an overdue bill")
	cf.StringVar(&flagBillNote, "note", "", "Free-text note")
	_ = billCreateCmd.MarkFlagRequired("units")

	billShowCmd.Flags().StringVar(&flagBillPDF, "pdf", "", "Also write the bill to this PDF file")

	lf := billListCmd.Flags()
	lf.StringVar(&flagBillHouseholdID, "household-id", "", "Filter by household id")
	lf.StringVar(&flagBillServiceNumber, "service-number", "", "Filter by service number")
	lf.StringVar(&flagBillHouseNumber, "house-number", "", "Filter by house number")
	lf.StringVar(&flagBillStatus, "status", "", "Filter by status (Paid or Unpaid)")
	lf.IntVar(&flagBillLimit, "limit", 0, "Maximum number of bills")

	billCmd.AddCommand(billCreateCmd, billPayCmd, billShowCmd, billListCmd)
	rootCmd.AddCommand(billCmd)
}
