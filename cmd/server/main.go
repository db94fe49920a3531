package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"restaurant-backend/internal/audit"
	"restaurant-backend/internal/auth"
	"restaurant-backend/internal/config"
	"restaurant-backend/internal/database"
	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/inventory"
	"restaurant-backend/internal/lock"
	"restaurant-backend/internal/logging"
	"restaurant-backend/internal/menu"
	"restaurant-backend/internal/models"
	"restaurant-backend/internal/notify"
	"restaurant-backend/internal/ordering"
	"restaurant-backend/internal/store"
	"restaurant-backend/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTelEndpoint)
	if err != nil {
		logger.WithError(err).Fatal("tracing setup failed")
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Fatal("database migration failed")
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "restaurant", logger)
		logger.WithField("address", cfg.RedisAddress).Info("using redis order locks")
	}

	var publisher notify.Publisher = notify.LogPublisher{Logger: logger}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := notify.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			logger.WithError(err).Fatal("rabbitmq connection failed")
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	rounding, err := domain.ParseRounding(cfg.ProducibleRounding)
	if err != nil {
		logger.WithError(err).Fatal("invalid rounding")
	}

	auditSvc := audit.NewService(db)
	ingredientStore := store.NewIngredientStore(db)
	dishStore := store.NewDishStore(db)
	orderStore := store.NewOrderStore(db)

	inventorySvc := inventory.NewService(ingredientStore, auditSvc, logger)
	menuSvc := menu.NewService(dishStore, auditSvc, logger, rounding)
	orderingSvc := ordering.NewService(orderStore, dishStore, locker, publisher, auditSvc, logger, ordering.Options{
		EnforceStock: cfg.EnforceStockOnConfirm,
		Rounding:     rounding,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logging.LogError(logger, "main", "ErrorHandler", c.Method()+" "+c.Path(), nil, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-manager", auth.RegisterManagerHandler(db))
	api.Post("/auth/login", auth.LoginHandler(cfg, db))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	managerOnly := auth.RequireRole(models.RoleManager)

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Post("/auth/users", managerOnly, auth.RegisterStaffHandler(db))

	// Ingredients
	protected.Get("/ingredients", inventory.ListIngredientsHandler(inventorySvc))
	protected.Post("/ingredients", managerOnly, inventory.CreateIngredientsHandler(inventorySvc))
	protected.Get("/ingredients/:id", inventory.GetIngredientHandler(inventorySvc))
	protected.Put("/ingredients/:id/prices", managerOnly, inventory.AddPricesHandler(inventorySvc))
	protected.Put("/ingredients/:id/stock-movements", managerOnly, inventory.AddStockMovementsHandler(inventorySvc))
	protected.Get("/ingredients/:id/availability", inventory.AvailabilityHandler(inventorySvc))

	// Dishes
	protected.Get("/dishes", menu.ListDishesHandler(menuSvc))
	protected.Post("/dishes", managerOnly, menu.CreateDishHandler(menuSvc))
	protected.Get("/dishes/:id", menu.GetDishHandler(menuSvc))
	protected.Put("/dishes/:id/ingredients", managerOnly, menu.UpdateDishIngredientsHandler(menuSvc))
	protected.Get("/dishes/:id/summary", menu.DishSummaryHandler(menuSvc))

	// Orders, open to every staff role
	protected.Post("/orders", ordering.CreateOrderHandler(orderingSvc))
	protected.Get("/orders/:reference", ordering.GetOrderHandler(orderingSvc))
	protected.Put("/orders/:reference/dishes", ordering.ReplaceDishesHandler(orderingSvc))
	protected.Post("/orders/:reference/confirm", ordering.ConfirmOrderHandler(orderingSvc))
	protected.Put("/orders/:reference/status", ordering.AdvanceOrderHandler(orderingSvc))
	protected.Put("/orders/:reference/dishes/:dishId", ordering.UpdateDishStatusHandler(orderingSvc))
	protected.Get("/dish-orders", ordering.LineTimestampsHandler(orderingSvc))

	// Reports
	protected.Get("/sales", managerOnly, ordering.SalesHandler(orderingSvc))
	protected.Get("/sales/export", managerOnly, ordering.ExportSalesHandler(orderingSvc))
	protected.Get("/audit-logs", managerOnly, audit.ListAuditLogsHandler(auditSvc))

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.WithError(err).Error("http shutdown failed")
		}
	}()

	logger.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.WithError(err).Error("server stopped")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.WithError(err).Warn("trace flush failed")
	}
}
