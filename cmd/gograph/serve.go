package main

import (
	"github.com/spf13/cobra"

	"github.com/gograph/gograph/bleve"
	"github.com/gograph/gograph/bolt"
	"github.com/gograph/gograph/graphs"
	"github.com/gograph/gograph/groups"
	"github.com/gograph/gograph/http"
	"github.com/gograph/gograph/jwt"
	"github.com/gograph/gograph/log"
	"github.com/gograph/gograph/users"
)

func init() {
	RootCmd.AddCommand(&ServeCommand)
}

var ServeCommand = cobra.Command{
	Use:   "serve",
	Short: "Start the http server",
	Long:  "Start the http server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfiguration()
		key := loadSigningKey(cfg)

		driver := &bolt.Driver{}
		if err := driver.Open(cfg.Bolt.Store); err != nil {
			logger.Fatal("could not open store:", err)
		}
		defer driver.Close()

		tagIndex, err := bleve.Open(cfg.Bleve.Store)
		if err != nil {
			logger.Fatal("could not open tag index:", err)
		}
		defer tagIndex.Close()

		userStore := &bolt.UserStore{Driver: driver}
		resetStore := &bolt.ResetStore{Driver: driver}
		groupStore := &bolt.GroupStore{Driver: driver}
		graphStore := &bolt.GraphStore{Driver: driver}
		layoutStore := &bolt.LayoutStore{Driver: driver}
		grantStore := &bolt.GrantStore{Driver: driver}
		layoutGrantStore := &bolt.LayoutGrantStore{Driver: driver}

		userService := users.NewService(
			userStore,
			resetStore,
			jwt.NewEncodeDecoder(key),
			notifier(cfg, logger),
			logger,
			cfg.App.BaseURL,
		)
		groupService := groups.NewService(groupStore, userStore, cfg.App.PageSize)
		graphService := graphs.NewService(
			graphStore,
			layoutStore,
			grantStore,
			layoutGrantStore,
			graphs.NewResolver(&bolt.Source{Driver: driver}),
			groupService,
			tagIndex,
			logger,
			cfg.App.PageSize,
		)

		auth := users.NewAuthenticator(userService)

		srv := http.NewServer(env, logger)
		users.RegisterHTTPRoutes(srv, userService, key)
		groups.RegisterHTTPRoutes(srv, groupService, auth, key)
		graphs.RegisterHTTPRoutes(srv, graphService, auth, key)

		if err := srv.Start(cfg.HTTP.Addr); err != nil {
			logger.Fatal("server stopped:", err)
		}
	},
}

func notifier(cfg Configuration, logger log.Logger) users.Notifier {
	if cfg.SMTP.Host == "" {
		return users.LogNotifier{Logger: logger}
	}
	return users.NewSMTPNotifier(cfg.SMTP.From, cfg.SMTP.Password, cfg.SMTP.Host, cfg.SMTP.Addr)
}
