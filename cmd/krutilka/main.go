package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	"go.uber.org/zap"

	"krutilka/internal/accounts"
	"krutilka/internal/config"
	"krutilka/internal/export"
	"krutilka/internal/gsheets"
	"krutilka/internal/intervals"
	"krutilka/internal/matching"
	"krutilka/internal/repository"
	"krutilka/internal/scheduler"
	"krutilka/internal/strava"
	"krutilka/internal/telegram"
	"krutilka/internal/wattattack"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("часовой пояс не загружен", zap.String("tz", cfg.Timezone), zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal("подключение к БД", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("БД недоступна", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatal("миграции", zap.Error(err))
	}
	repos := repository.New(db)

	registry, err := accounts.Load(cfg.AccountsPath, logger)
	if err != nil {
		logger.Fatal("реестр аккаунтов", zap.Error(err))
	}
	if err := registry.Watch(); err != nil {
		logger.Warn("наблюдение за реестром не запущено", zap.Error(err))
	}

	clientBot, err := telegram.NewSender(cfg.ClientBotToken)
	if err != nil {
		logger.Fatal("клиентский бот", zap.Error(err))
	}
	adminBot, err := telegram.NewSender(cfg.AdminBotToken)
	if err != nil {
		logger.Fatal("админский бот", zap.Error(err))
	}

	watt := wattattack.NewClient(cfg.WattAttackURL, cfg.HTTPTimeout)
	stravaClient := strava.NewClient(cfg.StravaBrokerURL, cfg.HTTPTimeout)
	intervalsClient := intervals.NewClient(cfg.IntervalsURL, cfg.HTTPTimeout)

	reconciler := scheduler.NewReconciler(scheduler.ReconcilerDeps{
		Repos:     repos,
		Watt:      watt,
		Strava:    stravaClient,
		Intervals: intervalsClient,
		ClientBot: clientBot,
		AdminBot:  adminBot,
		AdminChat: cfg.AdminChatID,
		Registry:  registry,
		Matcher:   matching.NewMatcher(cfg.MatchGrace, loc),
		Archive:   scheduler.NewArchive(cfg.FitDir),
		Location:  loc,
		FitWait:   cfg.FitWait,
		Log:       logger,
	})

	assigner := scheduler.NewAutoAssigner(scheduler.AutoAssignerDeps{
		Repos:     repos,
		Watt:      watt,
		Registry:  registry,
		AdminBot:  adminBot,
		AdminChat: cfg.AdminChatID,
		Cache:     scheduler.NewNotifyCache(),
		Lead:      cfg.AssignLead,
		Window:    cfg.AssignWindow,
		Observe:   cfg.AssignObserve,
		Location:  loc,
		Log:       logger,
	})

	reminders := scheduler.NewReminders(repos, clientBot, cfg.ReminderBefore, loc, logger)
	leaderboard := scheduler.NewLeaderboardReporter(repos, adminBot, cfg.AdminChatID, loc, logger)
	exporter := export.NewExporter(repos)

	var publisher *gsheets.Publisher
	if cfg.ScheduleSpreadsheetID != "" {
		publisher, err = gsheets.NewPublisher(cfg.GoogleCredentialsPath, cfg.ScheduleSpreadsheetID)
		if err != nil {
			logger.Warn("зеркало в Google Sheets отключено", zap.Error(err))
		}
	}

	publishWeek := func(now time.Time) {
		week, err := repos.Schedule.GetOrCreateWeek(repository.MondayOf(now.In(loc)))
		if err != nil {
			logger.Error("неделя не получена", zap.Error(err))
			return
		}
		if created, err := repos.Schedule.CreateDefaultSlots(week.ID, false); err != nil {
			logger.Error("слоты недели не созданы", zap.Int("week", week.ID), zap.Error(err))
		} else if created > 0 {
			logger.Info("созданы слоты недели", zap.Int("week", week.ID), zap.Int("slots", created))
		}

		name, data, err := exporter.WeekWorkbookBytes(week.ID)
		if err != nil {
			logger.Error("экспорт недели", zap.Int("week", week.ID), zap.Error(err))
			return
		}
		caption := fmt.Sprintf("📅 Расписание с %s", week.WeekStartDate.Format("02.01.2006"))
		if err := adminBot.SendDocumentBytes(cfg.AdminChatID, name, data, caption); err != nil {
			logger.Error("расписание не отправлено", zap.Error(err))
		}

		if publisher != nil {
			_, grids, err := exporter.WeekGrids(week.ID)
			if err != nil {
				logger.Error("сетка недели", zap.Int("week", week.ID), zap.Error(err))
				return
			}
			if err := publisher.PublishWeek(grids); err != nil {
				logger.Error("зеркало в Google Sheets", zap.Error(err))
			}
		}
	}

	c := cron.New()
	c.AddFunc("@every 2m", reconciler.Run)
	c.AddFunc("@every 1m", assigner.Run)
	c.AddFunc("@every 5m", reminders.Run)
	c.AddFunc("@every 30m", func() { reconciler.Backfill(50) })
	c.AddFunc("@daily", func() {
		if synced, err := repos.Reservation.SyncUpcomingCapacity(); err != nil {
			logger.Error("синхронизация мест", zap.Error(err))
		} else if synced > 0 {
			logger.Info("досозданы места", zap.Int("reservations", synced))
		}
	})
	// Понедельник 07:00 — свежая неделя для тренеров
	c.AddFunc("0 0 7 * * 1", func() { publishWeek(time.Now()) })
	// Первое число, 10:00 — рейтинг за прошлый месяц
	c.AddFunc("0 0 10 1 * *", leaderboard.Run)
	c.Start()
	defer c.Stop()

	logger.Info("крутилка запущена",
		zap.String("tz", cfg.Timezone),
		zap.Int("accounts", len(registry.All())),
		zap.Bool("assign_observe", cfg.AssignObserve),
	)

	reconciler.Run()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("крутилка остановлена")
}
