package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/intake/internal/billing"
)

var (
	priceUsers   int
	prorateFrom  int
	prorateTo    int
	prorateDays  int
	prorateEnd   string
	prorateCycle int
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show the monthly price for a number of users",
	Run: func(cmd *cobra.Command, args []string) {
		calc := billingCalculator()
		p := calc.Price(priceUsers)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(w, "USERS\tUNIT\tDISCOUNT\tTOTAL")
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d%%\t%s\n", p.Users,
			calc.FormatCurrency(p.UnitPrice), p.DiscountPercentage, calc.FormatCurrency(p.TotalPrice))
		_ = w.Flush()
	},
}

var prorateCmd = &cobra.Command{
	Use:   "prorate",
	Short: "Show the mid-cycle charge or refund for a seat change",
	Run: func(cmd *cobra.Command, args []string) {
		calc := billingCalculator()

		days := prorateDays
		if prorateEnd != "" {
			end, err := time.Parse(time.DateOnly, prorateEnd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid --period-end: %v\n", err)
				os.Exit(1)
			}
			days = billing.DaysRemaining(end, time.Now())
		}

		p := calc.Prorate(prorateFrom, prorateTo, days, prorateCycle)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(w, "CURRENT\tNEW\tDAYS\tDUE NOW\tREFUND")
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
			calc.FormatCurrency(p.CurrentPrice), calc.FormatCurrency(p.NewPrice),
			p.DaysRemaining, p.CycleDays,
			calc.FormatCurrency(p.ImmediateCharge), calc.FormatCurrency(p.RefundAmount))
		_ = w.Flush()
	},
}

// billingCalculator uses the configured pricing without touching the network.
func billingCalculator() billing.Calculator {
	cfg := loadConfig()
	return billing.Calculator{
		BasePrice: cfg.Billing.BasePrice,
		Currency:  cfg.Billing.Currency,
		CycleDays: cfg.Billing.CycleDays,
	}
}

func init() {
	priceCmd.Flags().IntVar(&priceUsers, "users", 1, "number of users")

	prorateCmd.Flags().IntVar(&prorateFrom, "from", 1, "current number of users")
	prorateCmd.Flags().IntVar(&prorateTo, "to", 1, "new number of users")
	prorateCmd.Flags().IntVar(&prorateDays, "days-remaining", 0, "days left in the billing cycle")
	prorateCmd.Flags().StringVar(&prorateEnd, "period-end", "", "cycle end date (YYYY-MM-DD), overrides --days-remaining")
	prorateCmd.Flags().IntVar(&prorateCycle, "cycle-days", 0, "cycle length in days (default from config)")

	rootCmd.AddCommand(priceCmd, prorateCmd)
}
