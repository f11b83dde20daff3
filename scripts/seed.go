//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/vibhor121/mastersunion/internal/auth"
	"github.com/vibhor121/mastersunion/internal/authz"
	"github.com/vibhor121/mastersunion/internal/database"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/leads"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/notifications"
	"github.com/vibhor121/mastersunion/internal/realtime"
	"github.com/vibhor121/mastersunion/internal/users"
	"github.com/vibhor121/mastersunion/pkg/config"
	"github.com/vibhor121/mastersunion/pkg/util"
	"gorm.io/gorm"
)

const seedPassword = "password123"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		email = "admin@crm.local"
	}
	if password == "" {
		password = "admin123!"
	}

	// Registration makes the first account in an empty database the admin.
	resp, err := authService.Register(ctx, auth.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Admin",
		LastName:  "User",
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}
	if resp.User.Role != models.RoleAdmin {
		log.Fatalf("database already has users; refusing to seed")
	}
	admin := actor(resp.User)

	userService := users.NewService(db, logger)
	manager := mustCreateUser(ctx, userService, admin, "manager@crm.local", "Maria", "Manager", models.RoleManager)
	reps := []*models.User{
		mustCreateUser(ctx, userService, admin, "sam@crm.local", "Sam", "Seller", models.RoleSalesExecutive),
		mustCreateUser(ctx, userService, admin, "riya@crm.local", "Riya", "Rao", models.RoleSalesExecutive),
	}

	leadService := newLeadService(db, logger)
	samples := []struct {
		first, last, company string
		status               models.LeadStatus
		priority             models.Priority
		value                float64
	}{
		{"Ada", "Lovelace", "Analytical Engines", models.LeadStatusNew, models.PriorityHigh, 12000},
		{"Grace", "Hopper", "Compilers Inc", models.LeadStatusContacted, models.PriorityMedium, 8000},
		{"Alan", "Turing", "Bletchley Labs", models.LeadStatusQualified, models.PriorityUrgent, 25000},
		{"Linus", "Torvalds", "Kernel Works", models.LeadStatusProposal, models.PriorityLow, 4000},
		{"Margaret", "Hamilton", "Apollo Systems", models.LeadStatusWon, models.PriorityHigh, 40000},
		{"Dennis", "Ritchie", "Bell Software", models.LeadStatusLost, models.PriorityMedium, 6000},
	}

	for i, s := range samples {
		owner := reps[i%len(reps)].ID
		lead, err := leadService.Create(ctx, leads.CreateInput{
			FirstName: s.first,
			LastName:  s.last,
			Email:     fmt.Sprintf("%s.%s@example.com", s.first, s.last),
			Company:   s.company,
			Source:    "seed",
			Status:    s.status,
			Priority:  s.priority,
			Value:     s.value,
			OwnerID:   &owner,
		}, actor(manager))
		if err != nil {
			log.Fatalf("failed to create lead %s %s: %v", s.first, s.last, err)
		}
		fmt.Printf("Lead created: %s (%s)\n", lead.FullName(), lead.Status)
	}

	fmt.Printf("Seed complete. Admin: %s, other users use password %q\n", email, seedPassword)
	fmt.Printf("Admin token: %s\n", resp.Token)
}

func actor(u *models.User) authz.Actor {
	return authz.Actor{ID: u.ID, Role: u.Role, Name: u.FullName(), Email: u.Email}
}

func mustCreateUser(ctx context.Context, svc *users.Service, admin authz.Actor, email, first, last string, role models.Role) *models.User {
	u, err := svc.Create(ctx, users.CreateInput{
		Email:     email,
		Password:  seedPassword,
		FirstName: first,
		LastName:  last,
		Role:      role,
	}, admin)
	if err != nil {
		log.Fatalf("failed to create %s: %v", email, err)
	}
	fmt.Printf("User created: %s (%s)\n", u.Email, u.Role)
	return u
}

func newLeadService(db *gorm.DB, logger *slog.Logger) *leads.Service {
	composer, err := mail.NewComposer()
	if err != nil {
		log.Fatalf("failed to load mail templates: %v", err)
	}
	notifier := notifications.NewNotifier(notifications.NewStore(db), realtime.Nop{}, logger)
	return leads.NewService(db, notifier, realtime.Nop{}, mail.NopQueue{}, composer, logger)
}
