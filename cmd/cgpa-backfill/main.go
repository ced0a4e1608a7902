package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/logger"
)

// cgpa-backfill recomputes the stored CGPA for one student or for every
// student holding results. It repairs drift after a failed post-approval
// recomputation.
func main() {
	studentFlag := flag.String("student", "", "comma separated student ids; empty means every student with results")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	students := repository.NewStudentRepository(db)
	aggregation := service.NewAggregationService(db, repository.NewResultRepository(db), students, nil, service.NewMetricsService(), logr)

	ids := splitIDs(*studentFlag)
	if len(ids) == 0 {
		ids, err = students.ListIDsWithResults(ctx)
		if err != nil {
			logr.Fatal("failed to list students", zap.Error(err))
		}
	}
	if len(ids) == 0 {
		color.Yellow("No students with results.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Student", "CGPA", "Status"})

	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		cgpa, err := aggregation.RecomputeCGPA(ctx, id)
		if err != nil {
			failed++
			logr.Warn("recompute failed", zap.String("student_id", id), zap.Error(err))
			table.Append([]string{id, "-", color.RedString("failed: %v", err)})
			continue
		}
		table.Append([]string{id, fmt.Sprintf("%.2f", cgpa), color.GreenString("ok")})
	}

	color.Cyan("\n=== CGPA backfill ===")
	table.Render()
	if failed > 0 {
		color.Red("%d of %d students failed", failed, len(ids))
		os.Exit(1)
	}
	color.Green("%d students recomputed", len(ids))
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
