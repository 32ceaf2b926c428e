package tubechat

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/tubechat/pkg/history"
)

var (
	historyLimit  int
	exportFormat  string
	forceClearing bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		printRecent(a.history, historyLimit)
		return nil
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search history by substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}

		matches := a.history.Search(args[0])
		if len(matches) == 0 {
			fmt.Println("No matching conversations.")
			return nil
		}
		printInteractions(matches)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export history to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		if err := a.history.Export(args[0], exportFormat); err != nil {
			return err
		}
		fmt.Printf("Exported %d conversations to %s\n", a.history.Count(), args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all conversation history",
	Long:  `Delete every recorded conversation. This operation cannot be undone!`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !forceClearing {
			fmt.Print("Delete all conversation history? This cannot be undone! (y/N): ")
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() {
				return fmt.Errorf("failed to read input")
			}
			input := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if input != "y" && input != "yes" {
				fmt.Println("Clear cancelled.")
				return nil
			}
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		if err := a.history.Clear(); err != nil {
			return err
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func printRecent(h *history.Store, n int) {
	recent := h.Recent(n)
	if len(recent) == 0 {
		fmt.Println("No conversations found.")
		return
	}
	printInteractions(recent)
}

func printInteractions(items []history.Interaction) {
	for i, c := range items {
		fmt.Printf("\n[%d] %s\n", i+1, c.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("Model: %s\n", c.Model)
		fmt.Printf("Cost: $%.6f\n", c.CostUSD)
		fmt.Printf("Tokens: %d\n", c.Tokens.Total)
		fmt.Printf("Prompt: %s\n", preview(c.Prompt, 100))
		fmt.Printf("Response: %s\n", preview(c.Response, 200))
		fmt.Println(strings.Repeat("-", 60))
	}
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 5, "number of recent conversations to show")
	historyExportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format (json or txt)")
	historyClearCmd.Flags().BoolVar(&forceClearing, "force", false, "skip the confirmation prompt")

	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
}
