package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"docsync/backend/config"
	"docsync/backend/internal/auth"
	"docsync/backend/internal/cache"
	"docsync/backend/internal/collab"
	"docsync/backend/internal/docs"
	"docsync/backend/internal/store"
	"docsync/backend/internal/ws"
)

func initConfig() (*config.Config, error) {
	cfg := &config.Config{}
	v := viper.New()
	v.SetConfigName("docsyncConfig")
	v.SetConfigType("yaml")
	v.AddConfigPath("./backend/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	if cfg.Auth.JWTSecret != "" {
		auth.SetSecret(cfg.Auth.JWTSecret)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer rdb.Close()

	db, err := store.InitMySQL(cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("mysql connect failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("mysql handle failed: %v", err)
	}
	defer sqlDB.Close()

	kafkaCfg := sarama.NewConfig()
	// SyncProducer requires Return.Successes
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("kafka connect failed: %v", err)
	}
	defer producer.Close()

	dispatcher := collab.NewKafkaDispatcher(
		producer,
		cfg.Kafka.Topic,
		collab.NewSemaphoreControl(100),
		collab.KafkaDispatcherOptions{
			QueueSize:   10_000,
			Workers:     4,
			MaxRetry:    3,
			BaseBackoff: 50 * time.Millisecond,
			MaxBackoff:  1 * time.Second,
		},
	)
	defer dispatcher.Close()

	adapter := docs.NewClient(cfg.Docs.BaseURL, cfg.Docs.Token, &http.Client{Timeout: 15 * time.Second})
	snapshots := store.NewSnapshotStore(sqlDB)
	worker := collab.NewWorker(adapter, snapshots,
		time.Duration(cfg.Sync.WriteTimeoutMs)*time.Millisecond)
	// In-flight writes run to completion before the process exits.
	defer worker.Wait()

	hub := ws.NewHub()
	manager := ws.NewManager(hub, worker, ws.ManagerOptions{
		Events:        dispatcher,
		Presence:      cache.NewRedisPresence(rdb),
		Adapter:       adapter,
		HydrateOnJoin: cfg.Docs.HydrateOnJoin,
	})
	users := store.NewUserStore(sqlDB)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	authGroup := r.Group("/v1/auth")
	authGroup.POST("/login", func(c *gin.Context) { auth.Login(c, users) })
	authGroup.POST("/register", func(c *gin.Context) { auth.Register(c, users) })

	wsGroup := r.Group("/ws")
	wsGroup.Use(auth.Middleware())
	wsGroup.GET("", manager.WebSocketConnect)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	_ = r.Run(fmt.Sprintf(":%d", cfg.Running.Port))
}
