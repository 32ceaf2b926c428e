package tubechat

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/tubechat/pkg/domain"
	"github.com/liliang-cn/tubechat/pkg/registry"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect or remove retrieval store bindings",
}

var storeInfoCmd = &cobra.Command{
	Use:   "info [collection]",
	Short: "Show the persisted binding for a collection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bindings live in the local config file; no backend needed.
		reg, err := registry.New(cfg.StoreConfigPath(), nil)
		if err != nil {
			return err
		}

		name := cfg.Chat.Collection
		if len(args) == 1 {
			name = args[0]
		}

		binding, ok := reg.Info(name)
		if !ok {
			fmt.Printf("No store bound for collection %q.\n", name)
			return nil
		}
		fmt.Printf("Collection: %s\n", name)
		fmt.Printf("Display Name: %s\n", binding.DisplayName)
		fmt.Printf("Store ID: %s\n", binding.StoreID)
		fmt.Printf("Created: %s\n", binding.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var storeForgetCmd = &cobra.Command{
	Use:   "forget [collection]",
	Short: "Delete the backend store and forget the binding",
	Long: `Delete the retrieval store on the backend (best effort) and remove the
local binding. The next chat run will index into a fresh store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}

		name := cfg.Chat.Collection
		if len(args) == 1 {
			name = args[0]
		}

		if err := a.registry.Forget(cmd.Context(), name); err != nil {
			return err
		}
		fmt.Printf("Forgot store for collection %q.\n", name)
		return nil
	},
}

var storeFilesCmd = &cobra.Command{
	Use:   "files [collection]",
	Short: "List the documents indexed in a collection's store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}

		name := cfg.Chat.Collection
		if len(args) == 1 {
			name = args[0]
		}

		files, err := a.storeFiles(cmd.Context(), name)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("Store is empty.")
			return nil
		}
		for _, f := range files {
			fmt.Println(f)
		}
		fmt.Printf("%d documents.\n", len(files))
		return nil
	},
}

// storeFiles lists the documents in the store bound to collection.
func (a *app) storeFiles(ctx context.Context, collection string) ([]string, error) {
	binding, ok := a.registry.Info(collection)
	if !ok {
		return nil, fmt.Errorf("%w: no binding for collection %q",
			domain.ErrStoreNotFound, collection)
	}
	return a.backend.ListDocuments(ctx, binding.StoreID)
}

func init() {
	storeCmd.AddCommand(storeInfoCmd)
	storeCmd.AddCommand(storeForgetCmd)
	storeCmd.AddCommand(storeFilesCmd)
}
