//cmd/seeder/main.go
package main

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/config"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/db"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
)

//go:embed seed/*.sql
var seeds embed.FS

// Order matters: lists reference marketers.
var seedFiles = []string{
	"seed/marketers.sql",
	"seed/activity_lists.sql",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		logger.Error("migrate database", "error", err.Error())
		os.Exit(1)
	}

	for _, file := range seedFiles {
		content, err := seeds.ReadFile(file)
		if err != nil {
			logger.Error("read seed file", "file", file, "error", err.Error())
			os.Exit(1)
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			logger.Error("execute seed file", "file", file, "error", err.Error())
			os.Exit(1)
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	fmt.Println("Database seeding completed successfully!")
}
