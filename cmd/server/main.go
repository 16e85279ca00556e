package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/SciData-Delivery/Delivery-Service/internal/api"
	"github.com/SciData-Delivery/Delivery-Service/internal/api/handlers"
	"github.com/SciData-Delivery/Delivery-Service/internal/authz"
	"github.com/SciData-Delivery/Delivery-Service/internal/configuration"
	"github.com/SciData-Delivery/Delivery-Service/internal/services"
	"github.com/SciData-Delivery/Delivery-Service/internal/storage"
	"github.com/SciData-Delivery/Delivery-Service/internal/token"
)

func main() {
	cfg := configuration.Load()

	store := &storage.PostgresStore{}
	if err := store.Connect(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	events, err := services.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Printf("Warning: NATS unavailable, lifecycle events disabled: %v", err)
		events = nil
	}

	issuer := token.NewIssuer(cfg.Token.Secret)
	guard := authz.NewGuard(store, issuer, cfg.Token.GrantTTL)
	projects := services.NewProjectService(store, cfg.Unit, events)

	setupGracefulShutdown(events)

	r := gin.Default()
	api.RegisterRoutes(r, handlers.New(store, guard, issuer, projects, cfg), issuer)

	log.Printf("Server starting on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupGracefulShutdown(events *services.EventPublisher) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down gracefully...")
		events.Close()
		os.Exit(0)
	}()
}
