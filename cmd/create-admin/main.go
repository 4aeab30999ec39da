package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/repository"
	"github.com/noah-isme/council-portal-api/internal/service"
	"github.com/noah-isme/council-portal-api/pkg/config"
	"github.com/noah-isme/council-portal-api/pkg/database"
	"github.com/noah-isme/council-portal-api/pkg/logger"
)

func main() {
	email := flag.String("email", "", "admin email")
	name := flag.String("name", "Council Admin", "display name")
	role := flag.String("role", string(models.RoleAdmin), "ADMIN or SUPERADMIN")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if strings.TrimSpace(*email) == "" || password == "" {
		log.Fatal("usage: ADMIN_PASSWORD=... create-admin -email admin@example.org [-name ...] [-role ADMIN|SUPERADMIN]")
	}
	userRole := models.UserRole(strings.ToUpper(*role))
	if userRole != models.RoleAdmin && userRole != models.RoleSuperAdmin {
		log.Fatalf("unsupported role %q", *role)
	}
	if len(password) < 8 {
		log.Fatal("ADMIN_PASSWORD must be at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	hash, err := service.HashPassword(password)
	if err != nil {
		logr.Fatal("hash password", zap.Error(err))
	}

	user := &models.User{
		Email:        *email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(*name),
		Role:         userRole,
		Active:       true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repository.NewUserRepository(db).Upsert(ctx, user); err != nil {
		logr.Fatal("upsert admin", zap.Error(err))
	}
	logr.Info("admin account ready", zap.String("id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
}
