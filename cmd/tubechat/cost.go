package tubechat

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/tubechat/pkg/ledger"
)

var costCmd = &cobra.Command{
	Use:   "cost [total|today|yesterday|week|month]",
	Short: "Report accumulated API costs",
	Long: `Report costs from the local ledger. With no argument a full report is
printed; with a window shorthand only that window's total is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			printCostReport(a.ledger)
			return nil
		}

		switch strings.ToLower(args[0]) {
		case "total", "all":
			fmt.Printf("Total cost since project began: $%.6f USD\n", a.ledger.TotalCost())
		case "today":
			fmt.Printf("Today's cost: $%.6f USD\n", a.ledger.TodayCost())
		case "yesterday":
			fmt.Printf("Yesterday's cost: $%.6f USD\n", a.ledger.YesterdayCost())
		case "week", "this week":
			fmt.Printf("This week's cost: $%.6f USD\n", a.ledger.ThisWeekCost())
		case "month", "this month":
			fmt.Printf("This month's cost: $%.6f USD\n", a.ledger.ThisMonthCost())
		default:
			return fmt.Errorf("unknown cost window %q (supported: total, today, yesterday, week, month)", args[0])
		}
		return nil
	},
}

func printCostReport(led *ledger.Store) {
	sum := led.Summary()

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("COST SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Cost: $%.6f USD\n", sum.TotalCost)
	fmt.Printf("Total Transactions: %d\n\n", sum.TotalTransactions)

	if len(sum.ByKind) > 0 {
		fmt.Println("By Transaction Type:")
		for kind, ks := range sum.ByKind {
			fmt.Printf("  %s: %d transactions, $%.6f USD\n", kind, ks.Count, ks.TotalCost)
		}
		fmt.Println()
	}

	fmt.Printf("Today: $%.6f USD\n", led.TodayCost())
	fmt.Printf("Yesterday: $%.6f USD\n", led.YesterdayCost())
	fmt.Printf("This Week: $%.6f USD\n", led.ThisWeekCost())
	fmt.Printf("This Month: $%.6f USD\n", led.ThisMonthCost())
	fmt.Println(strings.Repeat("=", 60))
}
