package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"civic-realtime/internal/auth"
	"civic-realtime/internal/config"
	"civic-realtime/internal/database"
	"civic-realtime/internal/models"
	"civic-realtime/internal/repository"
	"civic-realtime/pkg/logger"

	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logr := logger.New(cfg.Log.Level, cfg.Log.Format)

	logr.Info("Starting database seeding...")

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db, logr); err != nil {
		logr.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	communities := repository.NewCommunityRepository(db)
	conversations := repository.NewConversationRepository(db)

	// Seed initial users
	logr.Info("Creating initial users...")
	seedUsers := []models.User{
		{Username: "admin", Email: "admin@civic.local", Role: models.RoleAdmin},
		{Username: "alice", Email: "alice@civic.local", Role: models.RoleUser},
		{Username: "bob", Email: "bob@civic.local", Role: models.RoleUser},
		{Username: "charlie", Email: "charlie@civic.local", Role: models.RoleUser},
	}
	users := make(map[string]models.User, len(seedUsers))
	for _, u := range seedUsers {
		if err := db.WithContext(ctx).Where(models.User{Email: u.Email}).FirstOrCreate(&u).Error; err != nil {
			logr.Error("Failed to seed user", "username", u.Username, "error", err)
			os.Exit(1)
		}
		users[u.Username] = u
		logr.Info("Seeded user", "username", u.Username, "id", u.ID)
	}

	// Seed one approved community owned by alice with bob as a member
	logr.Info("Creating initial community...")
	var community models.Community
	err = db.WithContext(ctx).Where("name = ?", "town-hall").First(&community).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		community = models.Community{
			Name:        "town-hall",
			Description: "Local announcements and open questions",
			OwnerID:     users["alice"].ID,
			Status:      models.CommunityApproved,
		}
		if err := communities.Create(ctx, &community); err != nil {
			logr.Error("Failed to create community", "error", err)
			os.Exit(1)
		}
		if err := communities.AddMember(ctx, community.ID, users["bob"].ID, models.MemberRoleMember); err != nil {
			logr.Warn("Could not add member", "error", err)
		}

		dm := models.Conversation{Type: models.ConversationDirect}
		if err := conversations.Create(ctx, &dm, []string{users["alice"].ID, users["bob"].ID}); err != nil {
			logr.Warn("Could not create direct conversation", "error", err)
		} else {
			logr.Info("Created direct conversation", "id", dm.ID)
		}
	case err != nil:
		logr.Error("Failed to look up community", "error", err)
		os.Exit(1)
	default:
		logr.Info("Community already exists", "id", community.ID)
	}

	// Print development tokens
	verifier := auth.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	fmt.Printf("community %s: %s\n", community.Name, community.ID)
	for _, u := range seedUsers {
		seeded := users[u.Username]
		token, err := verifier.Issue(auth.Identity{UserID: seeded.ID, Role: seeded.Role}, tokenTTL)
		if err != nil {
			logr.Error("Failed to issue token", "username", u.Username, "error", err)
			continue
		}
		fmt.Printf("%-8s %s\n", u.Username, token)
	}

	logr.Info("Database seeding completed successfully!")
}
