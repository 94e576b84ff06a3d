package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"atelier/internal/api"
	"atelier/internal/config"
	"atelier/internal/customer"
	"atelier/internal/infrastructure/logger"
	"atelier/internal/infrastructure/migration"
	"atelier/internal/infrastructure/rabbitmq"
	"atelier/internal/infrastructure/redis"
	"atelier/internal/infrastructure/sqldb"
	"atelier/internal/notification"
	"atelier/internal/order"
	"atelier/internal/realtime"
	"atelier/internal/server"
	"atelier/internal/store"
	"atelier/internal/store/memstore"
	"atelier/internal/store/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	policy := store.RetryPolicy{
		MaxAttempts: cfg.Order.MaxRetryAttempts,
		BaseBackoff: cfg.Order.RetryBackoff,
		MaxBackoff:  2 * time.Second,
	}

	var gateway store.Gateway
	if cfg.Database.Driver == config.DriverMemory {
		zapLogger.Warn("using in-memory store, data is lost on restart")
		gateway = memstore.New(policy, zapLogger)
	} else {
		if cfg.Database.AutoMigrate {
			if err := migrate(cfg.Database, zapLogger); err != nil {
				zapLogger.Fatal("running migrations", zap.Error(err))
			}
		}

		db, err := sqldb.NewConnection(cfg.Database)
		if err != nil {
			zapLogger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()
		zapLogger.Info("database connected", zap.String("driver", cfg.Database.Driver))

		gateway = sqlstore.New(db, sqldb.Dialect(cfg.Database.Driver), policy, cfg.Order.TxTimeout, zapLogger)
	}

	var (
		publisher  realtime.Publisher = realtime.NewLogPublisher(zapLogger)
		subscriber realtime.Subscriber
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Fatal("connecting to redis", zap.Error(err))
		}
		defer client.Close()
		zapLogger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))

		publisher = realtime.NewRedisPublisher(client, cfg.Redis.ChannelPrefix, zapLogger)
		subscriber = realtime.NewRedisSubscriber(client, cfg.Redis.ChannelPrefix, zapLogger)
	} else {
		zapLogger.Info("redis disabled, realtime events are only logged")
	}

	var sender notification.Sender = notification.NewLogSender(zapLogger)
	if cfg.RabbitMQ.Enabled {
		conn, channel, err := rabbitmq.NewConnection(cfg.RabbitMQ)
		if err != nil {
			zapLogger.Fatal("connecting to rabbitmq", zap.Error(err))
		}
		defer conn.Close()

		amqpSender, err := notification.NewAMQPSender(channel, cfg.RabbitMQ.SMSQueue, zapLogger)
		if err != nil {
			zapLogger.Fatal("creating sms sender", zap.Error(err))
		}
		sender = amqpSender
		zapLogger.Info("rabbitmq connected", zap.String("queue", cfg.RabbitMQ.SMSQueue))
	} else {
		zapLogger.Info("rabbitmq disabled, sms messages are only logged")
	}

	validator := api.NewValidator()
	dispatcher := notification.NewDispatcher(sender, zapLogger)

	orderModule := order.NewModule(gateway, dispatcher, publisher, validator, cfg, zapLogger)
	customerCtrl := customer.NewModule(gateway, orderModule.Reconciler, orderModule.UseCase, validator, zapLogger)
	events := realtime.NewSSEHandler(subscriber, 0, zapLogger)

	router := server.NewRouter(customerCtrl, orderModule.Controller, events, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Reminder.Enabled {
		// Validate has already checked the timezone.
		loc, _ := time.LoadLocation(cfg.Reminder.Timezone)
		reminders := notification.NewReminderService(gateway, sender, loc, zapLogger)
		trigger := notification.NewReminderTrigger(reminders, cfg.Reminder.Hour, loc, cfg.Reminder.CheckInterval, zapLogger)
		go trigger.Run(ctx)
		zapLogger.Info("reminder job scheduled",
			zap.Int("hour", cfg.Reminder.Hour),
			zap.String("timezone", cfg.Reminder.Timezone),
		)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}

// migrate applies pending migrations on a dedicated connection; the migrator
// closes it when done.
func migrate(cfg config.DatabaseConfig, logger *zap.Logger) error {
	db, err := sqldb.NewConnection(cfg)
	if err != nil {
		return err
	}

	m, err := migration.New(db, cfg.Driver, logger)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	return m.Up()
}
