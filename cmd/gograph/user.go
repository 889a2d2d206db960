package main

import (
	"github.com/spf13/cobra"

	"github.com/gograph/gograph/bolt"
	"github.com/gograph/gograph/jwt"
	"github.com/gograph/gograph/users"
)

var revoke bool

func init() {
	UserCommand.AddCommand(&UserListCommand)
	UserCommand.AddCommand(&UserPromoteCommand)

	UserPromoteCommand.Flags().BoolVar(&revoke, "revoke", false, "revoke admin rights instead of granting them")

	RootCmd.AddCommand(&UserCommand)
}

var UserCommand = cobra.Command{
	Use:   "user",
	Short: "Administrate the registered users",
	Long:  "Administrate the registered users",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var UserListCommand = cobra.Command{
	Use:   "list",
	Short: "List all the registered users",
	Long:  "List all the registered users",
	Run: func(cmd *cobra.Command, args []string) {
		service, f := userService()
		defer f()

		us, err := service.List()
		if err != nil {
			logger.Fatal("error listing users:", err)
		}

		for _, u := range us {
			admin := ""
			if u.IsAdmin {
				admin = " (admin)"
			}
			logger.Printf("%s - %s%s", u.ID, u.Name, admin)
		}
	},
}

var UserPromoteCommand = cobra.Command{
	Use:   "promote",
	Short: "Grant or revoke admin rights",
	Long:  "Grant or revoke admin rights",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logger.Fatal("promote wants 1 argument: the id of the user")
		}

		service, f := userService()
		defer f()

		user, err := service.Promote(args[0], !revoke)
		if err != nil {
			logger.Fatal("error promoting user:", err)
		}

		logger.Printf("%s admin: %t", user.ID, user.IsAdmin)
	},
}

func userService() (*users.Service, func()) {
	cfg := loadConfiguration()
	key := loadSigningKey(cfg)

	driver := &bolt.Driver{}
	if err := driver.Open(cfg.Bolt.Store); err != nil {
		logger.Fatal("could not open store:", err)
	}

	service := users.NewService(
		&bolt.UserStore{Driver: driver},
		&bolt.ResetStore{Driver: driver},
		jwt.NewEncodeDecoder(key),
		users.LogNotifier{Logger: logger},
		logger,
		cfg.App.BaseURL,
	)

	return service, func() { driver.Close() }
}
