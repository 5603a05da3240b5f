package commands

import (
	"context"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type RecipeCmd struct {
	Add RecipeAddCmd `cmd:"" help:"Add a recipe"`
}

type RecipeAddCmd struct {
	Title       string  `arg:"" help:"Recipe title"`
	Description string  `help:"Recipe description"`
	Items       []int64 `name:"item" help:"Ingredient item id, in order (repeatable)"`
	DB          dbFlags `embed:""`
}

func (c *RecipeAddCmd) Run(ctx context.Context) error {
	db, err := c.DB.open()
	if err != nil {
		return err
	}
	defer db.Close()

	ingredients := make([]model.RecipeIngredient, 0, len(c.Items))
	for _, id := range c.Items {
		ingredients = append(ingredients, model.RecipeIngredient{ItemID: id})
	}
	recipe, err := store.NewRecipeStore(db).Create(ctx, c.Title, c.Description, nil, ingredients)
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%s\n", recipe.ID, recipe.Title)
	return nil
}
