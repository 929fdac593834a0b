package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pennywise/internal/cli"
	"pennywise/internal/metrics"
	"pennywise/internal/model"
)

var flagWishImage string

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Manage the purchase cooldown list",
	RunE:  runWishlistList,
}

var wishlistAddCmd = &cobra.Command{
	Use:   "add NAME PRICE",
	Short: "Park a tempting purchase on a cooldown",
	Args:  cobra.ExactArgs(2),
	RunE:  runWishlistAdd,
}

var wishlistBuyCmd = &cobra.Command{
	Use:   "buy ITEM_ID",
	Short: "Mark a wishlist item as purchased",
	Args:  cobra.ExactArgs(1),
	RunE:  runWishlistBuy,
}

func init() {
	wishlistAddCmd.Flags().StringVar(&flagWishImage, "image", "", "Optional image URL")
	wishlistCmd.AddCommand(wishlistAddCmd, wishlistBuyCmd)
	rootCmd.AddCommand(wishlistCmd)
}

func runWishlistList(cmd *cobra.Command, _ []string) error {
	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	snap := eng.Snapshot()
	active := make([]model.WishlistItem, 0, len(snap.Wishlist))
	for _, item := range snap.Wishlist {
		if item.Status == model.WishlistWaiting || item.Status == model.WishlistReady {
			active = append(active, item)
		}
	}

	if len(active) == 0 {
		fmt.Println("  Wishlist is empty. Park temptations with `pennywise wishlist add`.")
		return nil
	}

	now := time.Now()
	t := cli.Table{
		Title:   "Wishlist",
		Headers: []string{"Item", "Price", "Cooldown", "ID"},
	}
	for _, item := range active {
		t.Rows = append(t.Rows, []string{
			item.Name,
			cli.FormatMoney(item.Price),
			cli.FormatCooldown(metrics.CooldownRemaining(item, now)),
			item.ID,
		})
	}
	fmt.Println(cli.RenderTable(t))
	return nil
}

func runWishlistAdd(cmd *cobra.Command, args []string) error {
	price, err := strconv.ParseFloat(strings.TrimPrefix(args[1], "$"), 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", args[1])
	}

	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	item, err := eng.AddWishlistItem(cmd.Context(), args[0], price, flagWishImage)
	if err != nil {
		return err
	}

	fmt.Printf("  %q parked for %d days. Still want it then? It'll be waiting.\n",
		item.Name, item.CooldownDays)
	return nil
}

func runWishlistBuy(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	item, err := eng.MarkWishlistItem(cmd.Context(), args[0], model.WishlistPurchased)
	if err != nil {
		return err
	}

	fmt.Printf("  %q marked purchased. Log the spend with `pennywise log %.2f -c shopping`.\n",
		item.Name, item.Price)
	return nil
}
