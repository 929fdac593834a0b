package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pennywise/internal/model"
)

var resistCmd = &cobra.Command{
	Use:   "resist [ITEM_ID]",
	Short: "Record a resisted impulse",
	Long:  "Record that you resisted an impulse purchase. With an item id, the wishlist item is removed as well.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResist,
}

func init() {
	rootCmd.AddCommand(resistCmd)
}

func runResist(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 1 {
		item, err := eng.MarkWishlistItem(cmd.Context(), args[0], model.WishlistRemoved)
		if err != nil {
			return err
		}
		fmt.Printf("  %q removed from the wishlist.\n", item.Name)
	}

	eng.IncrementImpulsesAvoided()
	fmt.Printf("  Nice. %d impulses resisted so far.\n", eng.Snapshot().ImpulsesAvoided)
	return nil
}
