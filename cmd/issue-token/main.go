// Command issue-token mints or revokes room tokens for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/api/seed"
	"github.com/ericfitz/drawroom/auth"
	"github.com/ericfitz/drawroom/internal/config"
	"github.com/ericfitz/drawroom/internal/db"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to configuration file")
		userID     = flag.String("user", "", "User id to put in the token")
		roomID     = flag.String("room", "", "Room id to put in the token")
		access     = flag.String("access", "", "Optional role hint (user, moderator, admin)")
		revoke     = flag.String("revoke", "", "Revoke this token instead of issuing one (requires redis)")
		seedDemo   = flag.Bool("seed-demo", false, "Create a demo room in the configured database and print a token per member")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if *revoke != "" {
		if err := revokeToken(cfg, *revoke); err != nil {
			fmt.Fprintf(os.Stderr, "Error revoking token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("revoked")
		return
	}

	tokens := auth.NewService(auth.Config{
		Secret:     cfg.Auth.JWT.Secret,
		Issuer:     cfg.Auth.JWT.Issuer,
		Expiration: cfg.GetJWTDuration(),
	}, nil)

	if *seedDemo {
		if err := seedDemoRoom(cfg, tokens); err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding demo room: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *userID == "" || *roomID == "" {
		fmt.Fprintln(os.Stderr, "-user and -room are required")
		flag.Usage()
		os.Exit(2)
	}

	token, err := tokens.IssueToken(*userID, *roomID, *access)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error issuing token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func revokeToken(cfg *config.Config, token string) error {
	if !cfg.RedisEnabled() {
		return fmt.Errorf("redis is not configured")
	}
	redisDB, err := db.NewRedisDB(db.RedisConfig{
		Host:     cfg.Database.Redis.Host,
		Port:     cfg.Database.Redis.Port,
		Password: cfg.Database.Redis.Password,
		DB:       cfg.Database.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = redisDB.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return auth.NewTokenRevocationList(redisDB.GetClient(), cfg.GetJWTDuration()).RevokeToken(ctx, token)
}

func seedDemoRoom(cfg *config.Config, tokens *auth.Service) error {
	d := cfg.Database
	database, err := db.NewGormDB(db.GormConfig{
		Type:              db.DatabaseType(d.Type),
		PostgresHost:      d.Postgres.Host,
		PostgresPort:      d.Postgres.Port,
		PostgresUser:      d.Postgres.User,
		PostgresPassword:  d.Postgres.Password,
		PostgresDatabase:  d.Postgres.Database,
		PostgresSSLMode:   d.Postgres.SSLMode,
		MySQLHost:         d.MySQL.Host,
		MySQLPort:         d.MySQL.Port,
		MySQLUser:         d.MySQL.User,
		MySQLPassword:     d.MySQL.Password,
		MySQLDatabase:     d.MySQL.Database,
		SQLServerHost:     d.SQLServer.Host,
		SQLServerPort:     d.SQLServer.Port,
		SQLServerUser:     d.SQLServer.User,
		SQLServerPassword: d.SQLServer.Password,
		SQLServerDatabase: d.SQLServer.Database,
		SQLitePath:        d.SQLite.Path,
	})
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := database.AutoMigrate(models.AllModels()...); err != nil {
		return err
	}

	demo, err := seed.SeedDemoRoom(database.DB(), "demo", "Demo Room", "demo-owner", []seed.DemoMember{
		{Username: "demo-moderator", Role: models.RoleModerator},
		{Username: "demo-artist", Role: models.RoleMember},
	})
	if err != nil {
		return err
	}

	fmt.Printf("room %s (%s)\n", demo.Room.Name, demo.Room.ID)
	for _, name := range []string{"demo-owner", "demo-moderator", "demo-artist"} {
		user := demo.Users[name]
		token, err := tokens.IssueToken(user.ID, demo.Room.ID, "")
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", name, token)
	}
	return nil
}
