package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitsocial/internal/config"
	"fitsocial/internal/handlers/socialserver"
	appKafka "fitsocial/internal/kafka"
	kafkahandlers "fitsocial/internal/kafka/handlers"
	"fitsocial/internal/presence"
	appRedis "fitsocial/internal/redis"
	"fitsocial/internal/services"
	"fitsocial/internal/storage"

	redisDriver "github.com/redis/go-redis/v9"
)

// The social server owns the live websocket connections. It terminates the
// socket surface and consumes the notifications topic, replaying events from
// the REST server and other subsystems to whoever is online.
func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Social server config loaded.")

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Social server database connected.")

	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("Failed to migrate database tables: %v", err)
	}

	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	roomRepo := storage.NewGormRoomRepository(db)
	msgRepo := storage.NewGormMessageRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)

	router := presence.NewRouter()

	messageService := services.NewMessageService(msgRepo, roomRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	deliveryService := services.NewDeliveryService(messageService, notificationService, roomRepo, router)

	wsHandler := socialserver.NewWebSocketHandler(router, deliveryService, roomRepo, tokenBlacklist, cfg)

	socialConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer socialConsumer.Close()

	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	consumerLogic := kafkahandlers.NewSocialConsumerLogic(deliveryService)
	go func() {
		topics := []string{cfg.Kafka.NotificationsTopic}
		log.Printf("Kafka social consumer starting, topic: %s, group: %s", cfg.Kafka.NotificationsTopic, cfg.Kafka.ConsumerGroup)
		err := socialConsumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, consumerLogic.HandleSocialEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Kafka social consumer error: %v", err)
		}
		log.Println("Kafka social consumer goroutine stopped.")
	}()

	httpMux := http.NewServeMux()
	httpMux.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        httpMux,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Printf("Social server listening on %s, websocket path: %s", serverAddr, cfg.Server.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Social server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Social server shutting down...")

	cancelConsumers()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Social server forced shutdown: %v", err)
	}
	log.Println("Social server stopped.")
}
