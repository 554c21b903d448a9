// Command devtoken issues caller tokens for local testing against a dev secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	roleFlag   = flag.String("role", "PASSENGER", "PASSENGER, DRIVER or ADMIN")
	userFlag   = flag.String("user", "", "caller uuid, random when empty")
	ttlFlag    = flag.Duration("ttl", time.Hour, "token lifetime")
)

func main() {
	flag.Parse()

	var cfg config.Auth
	if err := configparser.LoadAndParseYaml(*configPath, &cfg); err != nil {
		log.Fatal(err)
	}

	caller := models.Caller{ID: uuid.New(), Role: types.UserRole(strings.ToUpper(*roleFlag))}
	if *userFlag != "" {
		id, err := uuid.Parse(*userFlag)
		if err != nil {
			log.Fatalf("invalid user id: %v", err)
		}
		caller.ID = id
	}

	token, err := auth.NewTokenService(cfg.JWTSecret).Issue(caller, *ttlFlag)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user_id=%s role=%s\n", caller.ID, caller.Role)
	fmt.Println(token)
}
