package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bher20/ebillmanager/internal/render"
	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var tariffCmd = &cobra.Command{
	Use:   "tariff",
	Short: "Inspect the slab tariff",
}

var tariffQuoteCmd = &cobra.Command{
	Use:   "quote <units>",
	Short: "Price a consumption figure without creating a bill",
	Args:  cobra.ExactArgs(1),
	RunE:  runTariffQuote,
}

var flagTariffOut string

var tariffImportCmd = &cobra.Command{
	Use:   "import <order.pdf|order.txt>",
	Short: "Extract a slab table from a published tariff order",
	Long: "Reads the slab lines and minimum charge out of a tariff order (PDF or plain text)\n" +
		"and prints them in the TOML layout tariff.file expects, or writes them with --out.",
	Args: cobra.ExactArgs(1),
	RunE: runTariffImport,
}

func init() {
	tariffImportCmd.Flags().StringVarP(&flagTariffOut, "out", "o", "", "Write the table to this TOML file instead of stdout")
	tariffCmd.AddCommand(tariffQuoteCmd, tariffImportCmd)
	rootCmd.AddCommand(tariffCmd)
}

func runTariffQuote(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	schedule := tariff.DefaultSchedule()
	if cfg.Tariff.File != "" {
		if schedule, err = tariff.LoadScheduleFile(cfg.Tariff.File); err != nil {
			return err
		}
	}
	calc, err := tariff.NewCalculator(schedule)
	if err != nil {
		return err
	}

	units, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("units must be a number: %q", args[0])
	}
	res, err := calc.Calculate(units)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, render.Breakdown(res.Breakdown, res.MinimumChargeApplied, res.Amount.StringFixed(2)))
	fmt.Fprintf(out, "Total: %s\n", res.Amount.StringFixed(2))
	return nil
}

func runTariffImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	var (
		schedule tariff.Schedule
		err      error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		schedule, err = tariff.LoadSchedulePDF(path)
	} else {
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			schedule, err = tariff.ParseScheduleText(string(data))
		}
	}
	if err != nil {
		return err
	}

	if flagTariffOut == "" {
		return tariff.EncodeSchedule(cmd.OutOrStdout(), schedule)
	}
	if err := tariff.WriteScheduleFile(flagTariffOut, schedule); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d slabs to %s\n", len(schedule.Slabs), flagTariffOut)
	return nil
}
