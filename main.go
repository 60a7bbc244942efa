package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freshdock/config"
	"freshdock/controllers"
	"freshdock/controllers/idgen"
	"freshdock/database"
	"freshdock/events"
	"freshdock/logger"
	"freshdock/middleware"
	"freshdock/migration"
	"freshdock/notify"
	"freshdock/routes"
	"freshdock/services"
	"freshdock/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	log := logger.New(config.LogLevel)
	defer log.Sync()

	if err := idgen.Init(int64(config.SnowflakeNode)); err != nil {
		log.Fatal("init id generator", zap.Error(err))
	}

	if err := database.EnsureDatabaseExists(config.DBName); err != nil {
		log.Warn("ensure database exists", zap.Error(err))
	}
	db, err := database.Open()
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	if err := migration.Migrate(db); err != nil {
		log.Fatal("auto migrate", zap.Error(err))
	}
	seed, err := database.ParseSeed(nil)
	if err != nil {
		log.Fatal("load seed", zap.Error(err))
	}
	if err := database.RunSeeders(db, seed, log); err != nil {
		log.Fatal("seed database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink events.Sink
	var kafkaSink *events.KafkaSink
	if len(config.KafkaBrokers) > 0 {
		kafkaSink = events.NewKafkaSink(events.NewKafkaWriter(config.KafkaBrokers, config.KafkaTopic), 0, log.Named("kafka"))
		kafkaSink.Start(ctx)
		sink = kafkaSink
		log.Info("forwarding dispatch events", zap.Strings("brokers", config.KafkaBrokers), zap.String("topic", config.KafkaTopic))
	}
	hub := events.NewHub(0, sink, log.Named("hub"))

	var mailer notify.Mailer = notify.NewLogMailer(log.Named("mail"))
	if config.MailEnabled() {
		mailer = notify.NewSMTPMailer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword, config.MailFrom)
	}
	notifier := notify.NewNotifier(mailer, config.NotifyWorkers, config.NotifyQueue, log.Named("notify"))
	notifier.Start(ctx)

	store, err := storage.NewLocal(config.UploadDir, config.UploadBaseURL)
	if err != nil {
		log.Fatal("open upload store", zap.Error(err))
	}

	policy, err := middleware.NewPolicy()
	if err != nil {
		log.Fatal("load access policy", zap.Error(err))
	}

	ttl := time.Duration(config.JWTExpiration) * time.Second
	receivers := services.NewReceiverCache(db, config.TokenCacheTTL)
	auth := services.NewAuthService(db, config.JWTSecret, ttl)
	dispatches := services.NewDispatchService(db, hub, log.Named("dispatch"))
	advice := services.NewAdviceService(db, hub, config.PublicBaseURL, log.Named("advice"))
	export := services.NewExportService(dispatches, db)
	intake := services.NewIntakeService(dispatches, receivers, notifier, config.PublicBaseURL, log.Named("intake"))
	links := services.NewIntakeLinkService(db, config.PublicBaseURL)
	businesses := services.NewBusinessService(db, receivers)
	connections := services.NewConnectionService(db)
	growers := services.NewProvisioningService(db, notifier, config.PublicBaseURL+"/login", log.Named("growers"))
	templates := services.NewTemplateService(db)

	app := fiber.New(fiber.Config{
		AppName:   "freshdock",
		BodyLimit: 16 * 1024 * 1024,
	})
	config.SetupCORS(app)

	routes.Setup(app, routes.Deps{
		Parser:    auth,
		Policy:    policy,
		Auth:      controllers.NewAuthController(auth),
		Dispatch:  controllers.NewDispatchController(dispatches, advice, export, store),
		Stream:    controllers.NewStreamController(dispatches, hub),
		Business:  controllers.NewBusinessController(businesses, connections, growers),
		Templates: controllers.NewTemplateController(templates),
		Intake:    controllers.NewIntakeController(intake, links, dispatches),
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown", zap.Error(err))
		}
	}()

	log.Info("server listening", zap.String("port", config.APP_PORT))
	if err := app.Listen(":" + config.APP_PORT); err != nil {
		log.Error("server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	notifier.Shutdown(shutdownCtx)
	if kafkaSink != nil {
		if err := kafkaSink.Shutdown(); err != nil {
			log.Warn("close event sink", zap.Error(err))
		}
	}
}
