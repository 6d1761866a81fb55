package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderapp/internal/config"
	"orderapp/internal/handler"
	"orderapp/internal/infra/db"
	"orderapp/internal/infra/memory"
	"orderapp/internal/infra/messaging"
	"orderapp/internal/infra/observability"
	infraRepo "orderapp/internal/infra/repository"
	"orderapp/internal/infra/token"
	"orderapp/internal/repository"
	"orderapp/internal/server"
	"orderapp/internal/usecase"
	auth "orderapp/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

// 永続化の組み合わせ（DB_DRIVERで切り替え）
type gateway struct {
	tx     repository.TransactionManager
	users  repository.UserRepository
	pinger repository.Pinger
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//OpenTelemetry（endpointがなければ何もしない）
	_, otelShutdown, err := observability.Setup(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}

	log, err := observability.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown otel", zap.Error(err))
		}
	}()

	//DB接続
	gw, err := openGateway(cfg, log)
	if err != nil {
		return err
	}

	//注文イベント（brokerがなければ流さない）
	var events usecase.EventPublisher = usecase.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := messaging.NewKafkaPublisher(cfg.Kafka, cfg.Otel.ServiceName, otel.GetTracerProvider(), log)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Error("failed to close kafka publisher", zap.Error(err))
			}
		}()
		events = pub
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	issuer := token.NewJWTIssuer(cfg.JWT)

	//Usecase生成
	productUC := usecase.NewProductUsecase(gw.tx, log)
	customerUC := usecase.NewCustomerUsecase(gw.tx, idGen, log)
	orderUC := usecase.NewOrderUsecase(gw.tx, idGen, clock, events, log)

	registerUC := auth.NewRegisterUserUsecase(gw.users, auth.NewBcryptPasswordHasher(12), idGen, clock)
	loginUC := auth.NewLoginUsecase(gw.users, auth.NewBcryptPasswordVerifier(), issuer, clock)
	anonymousUC := auth.NewAnonymousTokenUsecase(gw.users, issuer, clock)
	logoutUC := auth.NewLogoutUsecase(gw.users)

	if cfg.SeedDemoData {
		seeder := &db.Seeder{
			Products:  productUC,
			Customers: customerUC,
			Orders:    orderUC,
			Register:  registerUC,
			Log:       log.Named("seed"),
		}
		if err := seeder.Seed(ctx); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	//Handler生成
	e := server.New(log)
	server.RegisterRoutes(e, server.Handlers{
		Health:    handler.NewHealthHandler(gw.pinger, log),
		Auth:      handler.NewAuthHandler(registerUC, loginUC, anonymousUC, logoutUC),
		Products:  handler.NewProductHandler(productUC),
		Customers: handler.NewCustomerHandler(customerUC),
		Orders:    handler.NewOrderHandler(orderUC),
	}, issuer, gw.users)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	return server.Start(ctx, e, addr, log)
}

func openGateway(cfg config.Config, log *zap.Logger) (gateway, error) {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return gateway{tx: store, users: store.Users(), pinger: store}, nil
	}

	gormDB, err := db.Connect(cfg.DB, log)
	if err != nil {
		return gateway{}, fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return gateway{}, fmt.Errorf("migrate: %w", err)
	}

	tm := infraRepo.NewTxManagerGorm(gormDB)
	return gateway{
		tx:     tm,
		users:  infraRepo.NewUserGormRepository(gormDB),
		pinger: tm,
	}, nil
}
