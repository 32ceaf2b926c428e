package tubechat

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/tubechat/pkg/config"
	"github.com/liliang-cn/tubechat/pkg/log"
)

var (
	cfgFile string
	dataDir string
	verbose bool
	cfg     *config.Config
	version = "dev"

	channelURL  string
	numVideos   int
	prompts     []string
	modelName   string
	collection  string
	skipScrape  bool
)

var RootCmd = &cobra.Command{
	Use:   "tubechat",
	Short: "Chat with a YouTube channel's transcripts",
	Long: `tubechat scrapes recent video transcripts from a YouTube channel,
indexes them into a retrieval store, and answers questions grounded in
them. Every indexing and query operation is priced and recorded to a
local ledger.

Without --prompt it drops into an interactive chat; with one or more
--prompt flags it runs them in order and exits.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if modelName != "" {
			cfg.Chat.Model = modelName
		}
		if collection != "" {
			cfg.Chat.Collection = collection
		}

		log.SetDebug(verbose)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func Execute() error {
	return RootCmd.Execute()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
	RootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tubechat version %s\n", version)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path (default: ./tubechat.toml or ~/.tubechat/tubechat.toml)")
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: ./data)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging output")

	RootCmd.Flags().StringVar(&channelURL, "channel", "", "YouTube channel URL (e.g. https://youtube.com/@channelname)")
	RootCmd.Flags().IntVar(&numVideos, "num-videos", 5, "number of videos to retrieve, newest first")
	RootCmd.Flags().StringArrayVar(&prompts, "prompt", nil, "prompt to ask (repeatable; enables batch mode)")
	RootCmd.Flags().StringVar(&modelName, "model", "", "generation model to use")
	RootCmd.Flags().StringVar(&collection, "collection", "", "collection name backing the retrieval store")
	RootCmd.Flags().BoolVar(&skipScrape, "skip-scrape", false, "skip scraping and reuse existing transcripts")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(costCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(storeCmd)
}
