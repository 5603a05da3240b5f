package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type TokenCmd struct {
	User  string     `arg:"" help:"User id or email"`
	DB    dbFlags    `embed:""`
	Token tokenFlags `embed:""`
}

func (c *TokenCmd) Run(ctx context.Context) error {
	db, err := c.DB.open()
	if err != nil {
		return err
	}
	defer db.Close()

	users := store.NewUserStore(db)
	var u *model.User
	if id, perr := strconv.ParseInt(c.User, 10, 64); perr == nil {
		u, err = users.GetByID(ctx, id)
	} else {
		u, err = users.GetByEmail(ctx, c.User)
	}
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %q not found", c.User)
	}

	token, err := c.Token.tokens().Issue(u.ID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
