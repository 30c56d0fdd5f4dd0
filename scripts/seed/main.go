package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/adsuite/backoffice/internal/app"
	"github.com/adsuite/backoffice/internal/clients"
	"github.com/adsuite/backoffice/internal/menu"
	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/platform/migration"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/shared"
	"github.com/adsuite/backoffice/internal/users"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	if err := migration.RunUp(cfg.PGDSN, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Seeding page catalog and role permissions...")
	rbacService := rbac.NewService(rbac.NewRepository(pool), rbac.WithLogger(logger))
	summary, err := rbacService.SeedDefaults(ctx)
	if err != nil {
		log.Fatalf("seed rbac: %v", err)
	}
	fmt.Printf("  pages created: %d, permissions created: %d\n", summary.PagesCreated, summary.PermissionsCreated)

	menuService := menu.NewService(menu.NewRepository(pool))
	usersService := users.NewService(users.NewRepository(pool), menuService, shared.NewAuditLogger(pool), logger)

	fmt.Println("→ Seeding bootstrap super admin...")
	password := cfg.BootstrapAdminPassword
	if password == "" {
		log.Fatalf("BOOTSTRAP_ADMIN_PASSWORD must be set")
	}
	created, err := usersService.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminUsername, password)
	if err != nil {
		log.Fatalf("seed super admin: %v", err)
	}
	if !created {
		fmt.Println("  super admin already present")
	}

	if os.Getenv("SEED_DEMO") == "1" {
		fmt.Println("→ Seeding demo accounts...")
		if err := seedDemo(ctx, usersService, clients.NewService(clients.NewRepository(pool), usersService), password); err != nil {
			log.Fatalf("seed demo: %v", err)
		}
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

// seedDemo creates one account per non-admin role plus the client they belong to.
func seedDemo(ctx context.Context, usersService *users.Service, clientService *clients.Service, password string) error {
	actor := shared.Principal{Username: "seed", Role: shared.RoleSuperAdmin}
	existing, err := usersService.ListUsers(ctx, users.ListFilter{Search: "demo."}, shared.PageRequest{Page: 1, PerPage: 1})
	if err != nil {
		return err
	}
	if existing.Pagination.Total > 0 {
		fmt.Println("  demo accounts already present")
		return nil
	}
	client, err := clientService.Create(ctx, actor, clients.Input{Name: "Demo Advertiser", Email: "ads@demo.local"})
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	accounts := []users.CreateUserInput{
		{Username: "demo.admin", Role: string(shared.RoleAdmin)},
		{Username: "demo.manager", Role: string(shared.RoleManager)},
		{Username: "demo.user", Role: string(shared.RoleUser)},
		{Username: "demo.client", Role: string(shared.RoleClient), ClientID: &client.ID},
	}
	for _, in := range accounts {
		in.Password = password
		in.FullName = in.Username
		if _, err := usersService.CreateUser(ctx, actor, in); err != nil && !errors.Is(err, shared.ErrConflict) {
			return fmt.Errorf("%s: %w", in.Username, err)
		}
	}
	return nil
}
