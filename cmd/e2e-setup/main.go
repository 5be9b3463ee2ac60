package main

import (
	"context"
	"log"

	"course-payments/internal/config"
	"course-payments/internal/domain/model"
	"course-payments/internal/infra/db/postgres"
	"course-payments/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Resets the database and seeds a predictable state for manual end-to-end
// testing against a Stripe test account.
func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/4] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	log.Println("[2/4] Ensuring schema and wiping existing data...")
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}
	_, err = pool.Exec(ctx, `
		TRUNCATE
			users, courses, features, checkout_sessions, payments,
			enrollments, feature_grants, certificates, audit_log
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("[3/4] Seeding accounts and catalog...")
	seedCatalog(ctx, pool)

	log.Println("[4/4] Done.")
	log.Println("--- E2E Environment Setup Complete ---")
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	users := postgres.NewUserRepo(pool)
	courses := postgres.NewCourseRepo(pool)
	features := postgres.NewFeatureRepo(pool)

	admin, _ := model.NewUser("", "admin@example.com", "Admin", model.RoleAdmin)
	admin.NotifyChatID = 111111111
	if err := users.Save(ctx, nil, admin); err != nil {
		log.Printf("failed to save admin: %v", err)
	}

	teacher, _ := model.NewUser("", "prof@example.com", "Professora Carla", model.RoleTeacher)
	if err := users.Save(ctx, nil, teacher); err != nil {
		log.Printf("failed to save teacher: %v", err)
	}

	buyer, _ := model.NewUser("", "ana@example.com", "Ana", model.RoleStudent)
	if err := users.Save(ctx, nil, buyer); err != nil {
		log.Printf("failed to save buyer: %v", err)
	}

	course, _ := model.NewCourse("", teacher.ID, "Go do Zero ao Deploy", 19900, "BRL")
	course.Published = true
	if err := courses.Save(ctx, nil, course); err != nil {
		log.Printf("failed to save course: %v", err)
	}

	draft, _ := model.NewCourse("", teacher.ID, "Curso em Rascunho", 9900, "BRL")
	if err := courses.Save(ctx, nil, draft); err != nil {
		log.Printf("failed to save draft course: %v", err)
	}

	feature, _ := model.NewFeature("", "custom-domain", "Domínio Personalizado", 4900, "BRL")
	if err := features.Save(ctx, nil, feature); err != nil {
		log.Printf("failed to save feature: %v", err)
	}

	log.Printf("seeded: buyer=%s course=%s feature=%s", buyer.ID, course.ID, feature.ID)
}
