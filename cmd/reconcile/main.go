package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/database"
	"github.com/echonow/echonow_server/internal/repository"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Dry run mode, only report what would change")
	clearPremium = flag.Bool("clear-premium", true, "Clear stored premium flags that have expired")
	backfillRole = flag.Bool("backfill-roles", true, "Set role=user on rows without a role")
)

func main() {
	flag.Parse()

	log.Println("Starting user reconciliation...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.NewDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	userRepo := repository.NewUserRepository(db)
	now := time.Now()

	// 1. 过期会员
	if *clearPremium {
		if *dryRun {
			users, err := userRepo.ListExpiredPremium(now)
			if err != nil {
				log.Fatalf("Failed to list expired premium users: %v", err)
			}
			for _, u := range users {
				log.Printf("  [DRY-RUN] Would clear premium: %s (expired %s)", u.Email, u.PremiumExpiresAt.Format(time.RFC3339))
			}
			log.Printf("Expired premium users: %d", len(users))
		} else {
			n, err := userRepo.ClearExpiredPremium(now)
			if err != nil {
				log.Fatalf("Failed to clear expired premium: %v", err)
			}
			log.Printf("Cleared expired premium users: %d", n)
		}
	}

	// 2. 缺失角色
	if *backfillRole {
		if *dryRun {
			n, err := userRepo.CountMissingRole()
			if err != nil {
				log.Fatalf("Failed to count users without role: %v", err)
			}
			log.Printf("  [DRY-RUN] Would backfill role for %d users", n)
		} else {
			n, err := userRepo.BackfillRoles()
			if err != nil {
				log.Fatalf("Failed to backfill roles: %v", err)
			}
			log.Printf("Backfilled roles: %d", n)
		}
	}

	if *dryRun {
		log.Println("This was a dry run. Use -dry-run=false to apply changes.")
	}
	log.Println("Reconciliation complete")
}
