package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/classroomtools/conductledger/internal/repository"
	"github.com/classroomtools/conductledger/internal/service"
	"github.com/classroomtools/conductledger/internal/store"
	"github.com/classroomtools/conductledger/pkg/cache"
	"github.com/classroomtools/conductledger/pkg/config"
	"github.com/classroomtools/conductledger/pkg/database"
	"github.com/classroomtools/conductledger/pkg/logger"
)

const usage = `usage: conductctl <command> [args]

commands:
  fill-missing <week>        create default records for students without one
  lock <week>                close a week for edits
  unlock <week>              reopen a week
  clear-week <week>          delete every record of a week
  settle <student-id> <week> credit the coins earned for a student's week
  settle-semester <student-id>
  alerts <as-of-week>        print the class alert report
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
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

	st, err := openStore(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("store init failed", "backend", cfg.Store.Backend, "error", err)
	}

	conductRepo := repository.NewConductRepository(st)
	studentRepo := repository.NewStudentRepository(st)
	settingsRepo := repository.NewSettingsRepository(st)
	orderRepo := repository.NewOrderRepository(st)
	grantRepo := repository.NewCoinGrantRepository(st)

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Analytics.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("alert cache disabled, redis unreachable", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(client, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, true)
		}
	}

	ledger := service.NewLedgerService(conductRepo, studentRepo, settingsRepo, cacheSvc, metrics, logr)
	analytics := service.NewAnalyticsService(conductRepo, studentRepo, settingsRepo, cacheSvc, metrics, logr)
	economy := service.NewEconomyService(studentRepo, conductRepo, orderRepo, grantRepo, settingsRepo, nil, nil, metrics, logr)

	ctx := context.Background()
	if err := run(ctx, os.Args[1], os.Args[2:], ledger, analytics, economy); err != nil {
		logr.Sugar().Fatalw("command failed", "command", os.Args[1], "error", err)
	}
}

func run(ctx context.Context, command string, args []string, ledger *service.LedgerService, analytics *service.AnalyticsService, economy *service.EconomyService) error {
	switch command {
	case "fill-missing":
		week, err := weekArg(args, 0)
		if err != nil {
			return err
		}
		created, err := ledger.FillMissing(ctx, week)
		if err != nil {
			return err
		}
		fmt.Printf("created %d records for week %d\n", created, week)
		return nil
	case "lock":
		week, err := weekArg(args, 0)
		if err != nil {
			return err
		}
		return ledger.Lock(ctx, week)
	case "unlock":
		week, err := weekArg(args, 0)
		if err != nil {
			return err
		}
		return ledger.Unlock(ctx, week)
	case "clear-week":
		week, err := weekArg(args, 0)
		if err != nil {
			return err
		}
		return ledger.ClearWeek(ctx, week)
	case "settle":
		if len(args) < 2 {
			return fmt.Errorf("settle needs <student-id> <week>")
		}
		week, err := weekArg(args, 1)
		if err != nil {
			return err
		}
		grant, err := economy.SettleWeek(ctx, args[0], week)
		if err != nil {
			return err
		}
		fmt.Printf("credited %d coins to %s for week %d\n", grant.Amount, grant.StudentID, grant.Week)
		return nil
	case "settle-semester":
		if len(args) < 1 {
			return fmt.Errorf("settle-semester needs <student-id>")
		}
		grant, err := economy.SettleSemester(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("credited %d semester coins to %s\n", grant.Amount, grant.StudentID)
		return nil
	case "alerts":
		week, err := weekArg(args, 0)
		if err != nil {
			return err
		}
		report, _, err := analytics.ClassAlerts(ctx, week)
		if err != nil {
			return err
		}
		for _, entry := range report {
			if len(entry.Alerts) == 0 {
				continue
			}
			fmt.Printf("%s (%s):\n", entry.StudentName, entry.Rank)
			for _, alert := range entry.Alerts {
				fmt.Printf("  [%s] %s: %s\n", alert.Type, alert.Code, alert.Message)
			}
		}
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func weekArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing week argument")
	}
	week, err := strconv.Atoi(args[i])
	if err != nil || week <= 0 {
		return 0, fmt.Errorf("week must be a positive integer, got %q", args[i])
	}
	return week, nil
}

func openStore(cfg *config.Config, logr *zap.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return store.NewMemory(), nil
	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgres(db)
		if err := pg.Init(context.Background()); err != nil {
			return nil, err
		}
		return pg, nil
	case config.StoreBackendRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store.NewRedis(client, cfg.Store.Prefix), nil
	default:
		logr.Debug("using file store", zap.String("dir", cfg.Store.FileDir))
		return store.NewFile(cfg.Store.FileDir)
	}
}
