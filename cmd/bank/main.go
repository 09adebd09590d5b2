package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Molayo2025/capstone-project/internal/auth"
	"github.com/Molayo2025/capstone-project/internal/config"
	"github.com/Molayo2025/capstone-project/internal/ledger"
	"github.com/Molayo2025/capstone-project/internal/logger"
	"github.com/Molayo2025/capstone-project/internal/model"
	"github.com/Molayo2025/capstone-project/internal/repo"
	"github.com/Molayo2025/capstone-project/internal/shell"
)

// The terminal session shell. It shares the same durable store as the HTTP
// server, so both surfaces can run concurrently against one ledger.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.Account{}, &model.Transaction{}, &model.OutboxEvent{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	repository := repo.NewRepository(gdb, rdb, nil, log)
	eng := ledger.NewEngine(repository, cfg.Ledger.LockWait, log)
	idp := auth.NewService(repository, log)

	sh := shell.New(idp, eng, os.Stdin, os.Stdout, log)
	if err := sh.Run(context.Background()); err != nil {
		log.Fatalf("shell: %v", err)
	}
}
