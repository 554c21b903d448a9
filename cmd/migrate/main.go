package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/migrations"
	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()

	var db config.DatabaseConfig
	if err := configparser.LoadAndParseYaml(*configPath, &db); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := postgres.New(ctx, db)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := migrations.Apply(ctx, client.Pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	log.Printf("migrations applied to %s@%s:%s/%s", db.User, db.Host, db.Port, db.Database)
}
