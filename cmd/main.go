package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	approveAllocationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/approve_allocation"
	cancelAllocationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/cancel_allocation"
	cancelGroupHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/cancel_group"
	checkAvailabilityHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/check_availability"
	checkInAllocationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/check_in_allocation"
	getAllocationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_allocation"
	getProposalHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_proposal"
	getResourceAllocationsHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_resource_allocations"
	postponeAllocationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/postpone_allocation"
	proposeReassignmentHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/propose_reassignment"
	rejectAllocationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/reject_allocation"
	requestAllocationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/request_allocation"
	respondProposalHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/respond_proposal"
	withdrawWaitlistHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/withdraw_waitlist"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/config"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/outbox"
	allocationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/allocation"
	proposalRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/proposal"
	waitlistRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/waitlist"
	resourceServiceClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
	"github.com/m04kA/SMC-SchedulingService/internal/recurrence"
	allocationsService "github.com/m04kA/SMC-SchedulingService/internal/service/allocations"
	conflictsService "github.com/m04kA/SMC-SchedulingService/internal/service/conflicts"
	reassignmentService "github.com/m04kA/SMC-SchedulingService/internal/service/reassignment"
	waitlistService "github.com/m04kA/SMC-SchedulingService/internal/service/waitlist"
	checkAvailabilityUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/check_availability"
	requestAllocationUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/request_allocation"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/keyedmutex"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
	"github.com/m04kA/SMC-SchedulingService/pkg/metrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-SchedulingService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-SchedulingService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем клиента реестра ресурсов
	resourceClient := resourceServiceClient.NewClient(
		cfg.ResourceService.URL,
		time.Duration(cfg.ResourceService.Timeout)*time.Second,
		log,
	)
	log.Info("Resource registry client initialized (url=%s timeout=%ds)",
		cfg.ResourceService.URL, cfg.ResourceService.Timeout)

	// Интерфейс для transaction manager (используется в сервисах и usecases)
	type TxManager interface {
		Do(ctx context.Context, fn func(ctx context.Context) error) error
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// Инициализируем репозитории (с метриками или без)
	var (
		allocationRepository *allocationRepo.Repository
		waitlistRepository   *waitlistRepo.Repository
		proposalRepository   *proposalRepo.Repository
		outboxRepository     *outbox.Repository
		txMgr                TxManager
	)

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		allocationRepository = allocationRepo.NewRepository(wrappedDB)
		waitlistRepository = waitlistRepo.NewRepository(wrappedDB)
		proposalRepository = proposalRepo.NewRepository(wrappedDB)
		outboxRepository = outbox.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		allocationRepository = allocationRepo.NewRepository(db)
		waitlistRepository = waitlistRepo.NewRepository(db)
		proposalRepository = proposalRepo.NewRepository(db)
		outboxRepository = outbox.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Пер-ресурсная сериализация записывающих операций
	resourceLocks := keyedmutex.New()

	// Инициализируем сервисы
	conflictsSvc := conflictsService.NewService(allocationRepository, log)

	waitlistSvc := waitlistService.NewService(
		waitlistRepository,
		allocationRepository,
		conflictsSvc,
		resourceClient,
		outboxRepository,
		txMgr,
		log,
		time.Duration(cfg.Scheduler.WaitlistTTLHours)*time.Hour,
	)

	allocationsSvc := allocationsService.NewService(
		allocationRepository,
		conflictsSvc,
		waitlistSvc,
		resourceClient,
		outboxRepository,
		resourceLocks,
		txMgr,
		log,
	)

	reassignmentSvc := reassignmentService.NewService(
		proposalRepository,
		allocationRepository,
		conflictsSvc,
		waitlistSvc,
		resourceClient,
		outboxRepository,
		resourceLocks,
		txMgr,
		log,
		time.Duration(cfg.Scheduler.ProposalTTLHours)*time.Hour,
	)

	// Инициализируем use cases
	expander := recurrence.NewExpander(cfg.Scheduler.HorizonYears)

	requestAllocationUseCase := requestAllocationUC.NewUseCase(
		allocationRepository,
		conflictsSvc,
		waitlistSvc,
		expander,
		resourceClient,
		outboxRepository,
		resourceLocks,
		txMgr,
		log,
	)

	checkAvailabilityUseCase := checkAvailabilityUC.NewUseCase(
		allocationRepository,
		resourceClient,
		log,
	)

	// Инициализируем handlers
	requestAllocation := requestAllocationHandler.NewHandler(requestAllocationUseCase, log)
	checkAvailability := checkAvailabilityHandler.NewHandler(checkAvailabilityUseCase, log)
	getAllocation := getAllocationHandler.NewHandler(allocationsSvc, log)
	getResourceAllocations := getResourceAllocationsHandler.NewHandler(allocationsSvc, log)
	approveAllocation := approveAllocationHandler.NewHandler(allocationsSvc, log)
	rejectAllocation := rejectAllocationHandler.NewHandler(allocationsSvc, log)
	cancelAllocation := cancelAllocationHandler.NewHandler(allocationsSvc, log)
	postponeAllocation := postponeAllocationHandler.NewHandler(allocationsSvc, log)
	checkInAllocation := checkInAllocationHandler.NewHandler(allocationsSvc, log)
	cancelGroup := cancelGroupHandler.NewHandler(allocationsSvc, log)
	proposeReassignment := proposeReassignmentHandler.NewHandler(reassignmentSvc, log)
	respondProposal := respondProposalHandler.NewHandler(reassignmentSvc, log)
	getProposal := getProposalHandler.NewHandler(reassignmentSvc, log)
	withdrawWaitlist := withdrawWaitlistHandler.NewHandler(waitlistSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsCollector))
		log.Info("HTTP metrics middleware enabled")
	}

	// Metrics endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Советующая проверка доступности ресурса
	api.HandleFunc("/resources/{resourceId}/availability",
		checkAvailability.Handle).Methods(http.MethodGet)

	// История размещений ресурса
	api.HandleFunc("/resources/{resourceId}/allocations",
		getResourceAllocations.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Размещения ---
	// Запрос размещения (single или recurring)
	protected.HandleFunc("/allocations", requestAllocation.Handle).Methods(http.MethodPost)

	// Получение allocation по ID
	protected.HandleFunc("/allocations/{allocationId}", getAllocation.Handle).Methods(http.MethodGet)

	// Решения по PENDING_APPROVAL заявкам
	protected.HandleFunc("/allocations/{allocationId}/approve", approveAllocation.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/allocations/{allocationId}/reject", rejectAllocation.Handle).Methods(http.MethodPost)

	// Жизненный цикл allocation
	protected.HandleFunc("/allocations/{allocationId}/cancel", cancelAllocation.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/allocations/{allocationId}/postpone", postponeAllocation.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/allocations/{allocationId}/check-in", checkInAllocation.Handle).Methods(http.MethodPatch)

	// Отмена recurrence-группы целиком
	protected.HandleFunc("/allocations/groups/{groupId}", cancelGroup.Handle).Methods(http.MethodDelete)

	// --- Переназначения ---
	protected.HandleFunc("/allocations/{allocationId}/reassignment-proposals",
		proposeReassignment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/reassignment-proposals/{proposalId}", getProposal.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/reassignment-proposals/{proposalId}/respond",
		respondProposal.Handle).Methods(http.MethodPost)

	// --- Лист ожидания ---
	protected.HandleFunc("/waitlist/{entryId}", withdrawWaitlist.Handle).Methods(http.MethodDelete)

	// Периодические задачи: зачистки и отправка событий из outbox
	var dispatchMetrics outbox.MetricsCollector
	if cfg.Metrics.Enabled {
		dispatchMetrics = metricsCollector
	}
	dispatcher := outbox.NewDispatcher(outboxRepository, txMgr, outbox.NewLogPublisher(log), log, dispatchMetrics)

	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	defer stopSweeps()

	scheduler := cron.New()

	_, err = scheduler.AddFunc(cfg.Scheduler.SweepSpec, func() {
		runSweeps(sweepCtx, waitlistSvc, reassignmentSvc, allocationsSvc, metricsCollector, log)
	})
	if err != nil {
		log.Fatal("Failed to schedule sweeps (%s): %v", cfg.Scheduler.SweepSpec, err)
	}

	_, err = scheduler.AddFunc(cfg.Scheduler.DispatchSpec, func() {
		dispatcher.Run(sweepCtx)
	})
	if err != nil {
		log.Fatal("Failed to schedule outbox dispatch (%s): %v", cfg.Scheduler.DispatchSpec, err)
	}

	scheduler.Start()
	log.Info("Scheduler started (sweeps=%q, dispatch=%q)", cfg.Scheduler.SweepSpec, cfg.Scheduler.DispatchSpec)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем периодические задачи и ждем завершения текущих запусков
	stopSweeps()
	<-scheduler.Stop().Done()
	log.Info("Scheduler stopped")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// runSweeps прогоняет все зачистки одним заходом: истекшие записи листа
// ожидания, истекшие предложения и неявки без check-in
func runSweeps(
	ctx context.Context,
	waitlistSvc *waitlistService.Service,
	reassignmentSvc *reassignmentService.Service,
	allocationsSvc *allocationsService.Service,
	collector *metrics.Metrics,
	log *logger.Logger,
) {
	observe := func(sweep string, n int, err error) {
		status := "ok"
		if err != nil {
			status = "error"
			log.Error("Sweep %s failed after %d items: %v", sweep, n, err)
		} else if n > 0 {
			log.Info("Sweep %s processed %d items", sweep, n)
		}
		if collector != nil {
			collector.ObserveSweep(sweep, status)
		}
	}

	n, err := waitlistSvc.SweepExpired(ctx)
	observe("waitlist_expired", n, err)

	n, err = reassignmentSvc.SweepExpired(ctx)
	observe("proposals_expired", n, err)

	n, err = allocationsSvc.SweepNoCheckIn(ctx)
	observe("no_check_in", n, err)
}
