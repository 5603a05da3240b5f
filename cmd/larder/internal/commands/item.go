package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dukerupert/larder/internal/store"
)

type ItemCmd struct {
	Add  ItemAddCmd  `cmd:"" help:"Add items to the catalog"`
	List ItemListCmd `cmd:"" help:"List the catalog"`
}

type ItemAddCmd struct {
	Names []string `arg:"" help:"Item names"`
	DB    dbFlags  `embed:""`
}

// Run adds each name after normalization. Names already in the catalog are
// reported and skipped.
func (c *ItemAddCmd) Run(ctx context.Context) error {
	db, err := c.DB.open()
	if err != nil {
		return err
	}
	defer db.Close()

	items := store.NewItemStore(db)
	for _, raw := range c.Names {
		name, err := store.NormalizeItemName(raw)
		if err != nil {
			return fmt.Errorf("item %q: %w", raw, err)
		}
		item, err := items.Create(ctx, name)
		if errors.Is(err, store.ErrDuplicate) {
			fmt.Printf("%s already exists\n", name)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\n", item.ID, item.Name)
	}
	return nil
}

type ItemListCmd struct {
	DB dbFlags `embed:""`
}

func (c *ItemListCmd) Run(ctx context.Context) error {
	db, err := c.DB.open()
	if err != nil {
		return err
	}
	defer db.Close()

	items, err := store.NewItemStore(db).List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\n", item.ID, item.Name)
	}
	return tw.Flush()
}
