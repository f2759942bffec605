package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"linkedout/crud"
	"linkedout/database"
	"linkedout/http"
	"linkedout/notify"
	"linkedout/storage"
)

// main is the app's entry point.
func main() {
	// Check if the flag "-prod" has been provided. It means that we're running in production.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// Load configuration from a .config.json file if present, otherwise use the
	// default dev setup. In production the file is required.
	config := LoadConfig(*productionBool)
	ctx := context.Background()

	// Open a database connection and execute migrations.
	db := database.NewDB(config.Database.ConnectionInfo())
	err := database.Open(db, !config.IsProd())
	must(err)
	defer database.Close(db)

	// Connect the search cache. Searches fall through to the database if the
	// cache is down, so a failed ping is only a warning.
	var cache *redis.Client
	if config.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, search caching disabled", "addr", config.Redis.Addr, "err", err)
			cache = nil
		}
	}

	// Connect the engagement event broker. Events are best-effort, so the app
	// runs without one.
	var events *notify.Publisher
	if config.AMQP.URL != "" {
		events, err = notify.Dial(ctx, config.AMQP.URL)
		if err != nil {
			slog.Warn("rabbitmq unreachable, engagement events disabled", "err", err)
			events = nil
		} else {
			defer events.Close()
		}
	}

	// Set up blob storage for post and profile images.
	blobs, err := storage.NewBlobStoreFromConfig(ctx, config.Storage)
	must(err)

	// Start the crud services.
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithUser(),
		crud.WithPost(events),
		crud.WithFollow(events),
		crud.WithSearch(cache),
	)
	must(err)

	// Create an oauth config object for the external identity provider.
	oauthConfig := &oauth2.Config{
		ClientID:     config.OAuth.ClientID,
		ClientSecret: config.OAuth.ClientSecret,
		RedirectURL:  config.OAuth.RedirectURL,
		Scopes:       []string{"profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  config.OAuth.AuthURL,
			TokenURL: config.OAuth.TokenURL,
		},
	}

	// Set up a webserver.
	server := http.NewServer(
		config.IsProd(),
		config.SessionKey,
		config.CSRFKey,
		oauthConfig,
		config.OAuth.UserInfoURL,
		services,
		blobs,
	)

	// Serve the app.
	must(server.Run(config.Port))
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
