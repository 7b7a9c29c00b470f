package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/agrikart/api/configs"
	addressController "github.com/agrikart/api/controllers/addresses"
	advisorController "github.com/agrikart/api/controllers/advisor"
	orderController "github.com/agrikart/api/controllers/orders"
	paymentController "github.com/agrikart/api/controllers/payments"
	productController "github.com/agrikart/api/controllers/products"
	userController "github.com/agrikart/api/controllers/user"
	"github.com/agrikart/api/middlewares"
	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/routes"
	"github.com/agrikart/api/services/advisor"
	"github.com/agrikart/api/services/notify"
	"github.com/agrikart/api/services/orders"
	"github.com/agrikart/api/services/payments"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := configs.Load()
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	client, err := configs.ConnectDB(context.Background(), cfg.MongoURI)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	logger.Info("connected to MongoDB")

	db := client.Database(cfg.DBName)
	products := repository.NewMongoProducts(db)
	orderStore := repository.NewMongoOrders(db)
	addresses := repository.NewMongoAddresses(db)
	users := repository.NewMongoUsers(db)

	// The gateway is optional: without credentials online payment endpoints
	// report unavailable and refunds stay pending.
	var gateway payments.Gateway
	if rzp, err := payments.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret); err != nil {
		logger.Warn("payment gateway not configured")
	} else {
		gateway = rzp
	}

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	dispatcher := notify.NewDispatcher(mailer, cfg.NotifyQueueSize, logger)
	defer dispatcher.Close()

	orderService := orders.NewService(products, orderStore, users, gateway, dispatcher, logger)
	advisorClient := advisor.NewClient(cfg.AnthropicAPIKey)

	auth := middlewares.NewAuth(cfg.JWTSecret)
	app := fiber.New()

	routes.UserRoutes(app, userController.NewUserController(users, cfg.JWTSecret))
	routes.ProductRoutes(app, auth, productController.NewProductController(products))
	routes.AddressRoutes(app, auth, addressController.NewAddressController(addresses))
	routes.OrderRoutes(app, auth, orderController.NewOrderController(orderService))
	routes.PaymentRoutes(app, auth, paymentController.NewPaymentController(gateway, orderService))
	routes.AdvisorRoutes(app, auth, advisorController.NewAdvisorController(advisorClient))

	logger.Info("starting server", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
