package history

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/tubechat/pkg/utils"
)

// Export writes the full history to outputPath in the given format,
// either "json" (the persisted shape) or "txt" (a readable dump).
func (s *Store) Export(outputPath, format string) error {
	switch format {
	case "json":
		return utils.WriteJSONFile(outputPath, &s.data)
	case "txt":
		var b strings.Builder
		for _, c := range s.data.Conversations {
			b.WriteString(strings.Repeat("=", 60) + "\n")
			fmt.Fprintf(&b, "Timestamp: %s\n", c.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(&b, "Model: %s\n", c.Model)
			fmt.Fprintf(&b, "Cost: $%.6f\n", c.CostUSD)
			fmt.Fprintf(&b, "\nPrompt:\n%s\n", c.Prompt)
			fmt.Fprintf(&b, "\nResponse:\n%s\n", c.Response)
			b.WriteString(strings.Repeat("=", 60) + "\n\n")
		}
		return utils.AtomicWriteFile(outputPath, []byte(b.String()), 0644)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}
