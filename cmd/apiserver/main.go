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
	"fitsocial/internal/handlers/apiserver"
	appKafka "fitsocial/internal/kafka"
	"fitsocial/internal/middleware"
	appRedis "fitsocial/internal/redis"
	"fitsocial/internal/services"
	"fitsocial/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

// The API server owns the REST surface: the friend graph, conversation
// reads, and the notification feed. Anything that must reach a live
// connection is published to Kafka for the social server.
func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("API server config loaded.")

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("API server database connected.")

	// The social server also migrates; running it here too keeps either
	// process able to start first.
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Printf("Warning: database migration failed: %v", err)
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
	friendReqRepo := storage.NewGormFriendRequestRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)

	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer kfkProducer.Close()
	publisher := appKafka.NewSocialEventPublisher(kfkProducer, cfg.Kafka.NotificationsTopic)

	friendService := services.NewFriendService(db, friendReqRepo, friendshipRepo, roomRepo)
	messageService := services.NewMessageService(msgRepo, roomRepo)
	notificationService := services.NewNotificationService(notificationRepo)

	friendHandler := apiserver.NewFriendHandler(friendService, publisher)
	messageHandler := apiserver.NewMessageHandler(messageService)
	notificationHandler := apiserver.NewNotificationHandler(notificationService, publisher)

	r := mux.NewRouter()

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(func(next http.Handler) http.Handler {
		return middleware.AuthMiddleware(next, cfg.Auth, tokenBlacklist)
	})

	// Friend graph
	apiRouter.HandleFunc("/friends", friendHandler.ListFriendsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/friendships/{friendshipID:[0-9]+}/disable", friendHandler.DisableFriendshipHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/friendships/{friendshipID:[0-9]+}/restore", friendHandler.RestoreFriendshipHandler).Methods(http.MethodPost)

	friendRequestRouter := apiRouter.PathPrefix("/friend-requests").Subrouter()
	friendRequestRouter.HandleFunc("", friendHandler.SendFriendRequestHandler).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/pending", friendHandler.ListPendingRequestsHandler).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/reply", friendHandler.ReplyFriendRequestHandler).Methods(http.MethodPost)

	// Conversations
	apiRouter.HandleFunc("/conversations", messageHandler.ListConversationsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/conversations/{friendID:[0-9]+}/messages", messageHandler.GetMessagesHandler).Methods(http.MethodGet)

	// Notifications
	apiRouter.HandleFunc("/notifications", notificationHandler.ListNotificationsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notifications", notificationHandler.PushNotificationHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/notifications/{notificationID:[0-9]+}/seen", notificationHandler.MarkNotificationSeenHandler).Methods(http.MethodPost)

	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	corsHandler := handlers.CORS(corsOptions...)(r)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Printf("API server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API server forced shutdown: %v", err)
	}
	log.Println("API server stopped.")
}
