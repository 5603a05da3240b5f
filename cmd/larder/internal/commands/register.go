package commands

import (
	"context"
	"fmt"

	"github.com/dukerupert/larder/internal/household"
	"github.com/dukerupert/larder/internal/store"
	"github.com/dukerupert/larder/internal/websocket"
)

type RegisterCmd struct {
	Username      string     `arg:"" help:"Unique username"`
	Email         string     `arg:"" help:"Unique email address"`
	FirstName     string     `help:"First name"`
	LastName      string     `help:"Last name"`
	HouseholdName string     `name:"household" help:"Name of the new household (default: My Household)"`
	DB            dbFlags    `embed:""`
	Token         tokenFlags `embed:""`
}

// Run creates the user and prints a session token for it.
func (c *RegisterCmd) Run(ctx context.Context) error {
	db, err := c.DB.open()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := quietLogger()
	manager := household.NewManager(store.NewHouseholdStore(db), websocket.NewHub(logger), logger)
	u, err := manager.Register(ctx, store.RegisterParams{
		Username:      c.Username,
		Email:         c.Email,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		HouseholdName: c.HouseholdName,
	})
	if err != nil {
		return err
	}

	token, err := c.Token.tokens().Issue(u.ID)
	if err != nil {
		return err
	}
	fmt.Printf("user %d (%s) in household %d\n", u.ID, u.Username, u.HouseholdID)
	fmt.Println(token)
	return nil
}
