package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/civicquiz-api/internal/config"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
	"github.com/yourusername/civicquiz-api/internal/handler"
	pgRepo "github.com/yourusername/civicquiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/civicquiz-api/internal/repository/redis"
	"github.com/yourusername/civicquiz-api/internal/service"
	"github.com/yourusername/civicquiz-api/internal/service/roomengine"
	ws "github.com/yourusername/civicquiz-api/internal/websocket"
	"github.com/yourusername/civicquiz-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	questionRepo := pgRepo.NewQuestionRepo(db)
	resultRepo := pgRepo.NewResultRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализация WebSocket
	wsHub := ws.NewHub()
	go wsHub.Run()
	wsManager := ws.NewManager(wsHub)

	// Реестр режимов и движок NPC
	registry := gamemode.NewDefaultRegistry()
	npcEngine := roomengine.NewNpcEngine(cfg.Engine.NpcSeed)

	// Конфигурация движка комнат: файл переопределяет умолчания
	engineConfig := roomengine.DefaultConfig()
	if cfg.Engine.CountdownSeconds > 0 {
		engineConfig.CountdownSeconds = cfg.Engine.CountdownSeconds
	}
	if cfg.Engine.IdleTimeout > 0 {
		engineConfig.IdleTimeout = cfg.Engine.IdleTimeout
	}
	if cfg.Engine.JanitorInterval > 0 {
		engineConfig.JanitorInterval = cfg.Engine.JanitorInterval
	}

	// Инициализируем сервисы
	roomManager := service.NewRoomManager(questionRepo, resultRepo, cacheRepo, registry, npcEngine, wsManager, engineConfig)

	// Инициализируем обработчики
	roomHandler := handler.NewRoomHandler(roomManager)
	wsHandler := handler.NewWSHandler(wsManager, roomManager)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS (список синхронизирован с CheckOrigin в ws_handler.go)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8000", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Проверка живости для балансировщика
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  roomManager.RoomCount(),
		})
	})

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		api.GET("/modes", roomHandler.ListModes)
		api.GET("/topics", roomHandler.ListTopics)

		rooms := api.Group("/rooms")
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.POST("/join", roomHandler.JoinRoom)

			roomWithID := rooms.Group("/:id")
			{
				roomWithID.GET("/state", roomHandler.GetRoomState)
				roomWithID.GET("/results", roomHandler.GetRoomResults)
				roomWithID.POST("/start", roomHandler.StartRoom)
				roomWithID.POST("/ready", roomHandler.MarkReady)
				roomWithID.POST("/leave", roomHandler.LeaveRoom)
				roomWithID.POST("/answer", roomHandler.SubmitAnswer)
				roomWithID.POST("/hint", roomHandler.RequestHint)
				roomWithID.POST("/boost", roomHandler.UseBoost)
				roomWithID.POST("/npc", roomHandler.AddNpc)
			}
		}

		api.GET("/players/:id/history", roomHandler.GetPlayerHistory)
	}

	// WebSocket маршрут
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	// После получения сигнала SIGINT или SIGTERM корректно гасим сервис
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Сначала комнаты: игроки получают room_closed до обрыва соединений
	roomManager.Shutdown()
	wsHub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
