// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"nyumbani-service/internal/config"
	"nyumbani-service/internal/db"
	mpesaHandler "nyumbani-service/internal/handlers/mpesa"
	"nyumbani-service/internal/middleware"
	"nyumbani-service/internal/repository/postgres"
	mpesaService "nyumbani-service/internal/service/mpesa"
	"nyumbani-service/internal/service/reconciler"
	"nyumbani-service/internal/service/servicecharge"
	"nyumbani-service/internal/service/sms"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] connected")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- Repositories -----
	txnRepo := postgres.NewMpesaTransactionRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	scInvoiceRepo := postgres.NewServiceChargeInvoiceRepository(pool)
	planRepo := postgres.NewBillingPlanRepository(pool)
	landlordRepo := postgres.NewLandlordRepository(pool)
	propertyRepo := postgres.NewPropertyRepository(pool)
	leaseRepo := postgres.NewLeaseRepository(pool)

	// ----- Services -----
	smsSender := sms.NewSender(
		s.cfg.SMS.BaseURL,
		s.cfg.SMS.APIKey,
		s.cfg.SMS.PartnerID,
		s.cfg.SMS.Shortcode,
		s.cfg.SMS.Timeout,
		logger,
	)
	generator := servicecharge.NewGenerator(paymentRepo, planRepo, propertyRepo, scInvoiceRepo, logger)
	reconcilerService := reconciler.NewReconciler(
		txnRepo,
		invoiceRepo,
		paymentRepo,
		scInvoiceRepo,
		planRepo,
		landlordRepo,
		leaseRepo,
		smsSender,
		generator,
		logger,
	)
	stkService := mpesaService.NewStkService(s.cfg.Daraja, txnRepo, mpesaService.NewRedisTokenCache(redisClient), logger)

	// ----- Handlers -----
	mpesaHandlerInst := mpesaHandler.NewMpesaHandler(reconcilerService, stkService, s.cfg.CallbackSecret, logger)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		MpesaHandler: mpesaHandlerInst,
	})

	// ----- Start HTTP -----
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
