package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/smallbiznis/coursepulse/internal/analytics"
	"github.com/smallbiznis/coursepulse/internal/clock"
	"github.com/smallbiznis/coursepulse/internal/config"
	"github.com/smallbiznis/coursepulse/internal/currency"
	"github.com/smallbiznis/coursepulse/internal/migration"
	"github.com/smallbiznis/coursepulse/internal/observability"
	"github.com/smallbiznis/coursepulse/internal/ratelimit"
	"github.com/smallbiznis/coursepulse/internal/records"
	"github.com/smallbiznis/coursepulse/internal/seed"
	"github.com/smallbiznis/coursepulse/internal/server"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
	"github.com/smallbiznis/coursepulse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := runSeed(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "seed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app := fx.New(
		infrastructure(),

		// Analytics
		timewindow.Module,
		records.Module,
		currency.Module,
		analytics.Module,
		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		db.Module,
		migration.Module,
		clock.Module,
	)
}

func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	students := fs.Int("students", 60, "number of demo students")
	instructors := fs.Int("instructors", 2, "number of demo instructors")
	days := fs.Int("days", 400, "history length in days")
	randomSeed := fs.Int64("seed", 42, "random seed for reproducible data")
	reset := fs.Bool("reset", false, "delete existing analytics rows first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		conn *gorm.DB
		clk  clock.Clock
		log  *zap.Logger
	)
	app := fx.New(
		infrastructure(),
		fx.Populate(&conn, &clk, &log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(context.Background())
	}()

	opts := seed.DefaultOptions(clk.Now())
	opts.Students = *students
	opts.Instructors = *instructors
	opts.Days = *days
	opts.Seed = *randomSeed
	opts.Reset = *reset

	summary, err := seed.Run(ctx, conn, opts, log)
	if errors.Is(err, seed.ErrAlreadySeeded) {
		log.Info("database already holds courses, pass -reset to reseed")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d courses, %d enrollments, %d transactions\n", summary.Courses, summary.Enrollments, summary.Transactions)
	for _, id := range summary.InstructorIDs {
		fmt.Printf("instructor_id=%s\n", id)
	}
	return nil
}
