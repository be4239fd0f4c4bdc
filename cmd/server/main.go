package main

import (
	"evolution-gateway/internal/api"
	"evolution-gateway/internal/automation"
	"evolution-gateway/internal/config"
	"evolution-gateway/internal/database"
	"evolution-gateway/internal/evolution"
	"evolution-gateway/internal/ingest"
	"evolution-gateway/internal/store"
	"evolution-gateway/internal/webhook"
	"evolution-gateway/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Open(cfg)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}

	contacts := store.NewContactStore(db)
	conversations := store.NewConversationStore(db)
	messages := store.NewMessageStore(db)
	rules := store.NewRuleStore(db)
	instances := store.NewInstanceStore(db)

	hub := ws.NewHub()
	go hub.Run()

	client := evolution.NewClient(cfg)
	engine := automation.NewEngine(rules, client)
	ingestor := ingest.NewIngestor(contacts, conversations, messages, engine, hub)

	webhookHandler := webhook.NewHandler(ingestor, instances, hub, cfg.WebhookTimeout)
	conversationHandler := api.NewConversationHandler(conversations, messages)
	contactHandler := api.NewContactHandler(contacts)
	automationHandler := api.NewAutomationHandler(db)
	dashboardHandler := api.NewDashboardHandler(db, client, ingestor, instances)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Webhook route: the provider posts every event here.
	r.POST("/webhook", webhookHandler.HandleEvent)

	// Dashboard websocket feed
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	// Dashboard API Routes
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/stats", dashboardHandler.GetStats)
		apiGroup.GET("/instances", dashboardHandler.GetInstances)
		apiGroup.POST("/send", dashboardHandler.SendMessage)

		apiGroup.GET("/contacts", contactHandler.GetContacts)

		apiGroup.GET("/conversations", conversationHandler.GetConversations)
		apiGroup.GET("/conversations/:id/messages", conversationHandler.GetMessages)
		apiGroup.POST("/conversations/:id/read", conversationHandler.MarkRead)

		apiGroup.GET("/automation/rules", automationHandler.GetRules)
		apiGroup.POST("/automation/rules", automationHandler.CreateRule)
		apiGroup.PUT("/automation/rules/:id", automationHandler.UpdateRule)
		apiGroup.DELETE("/automation/rules/:id", automationHandler.DeleteRule)
		apiGroup.POST("/automation/rules/:id/toggle", automationHandler.ToggleRule)
		apiGroup.GET("/automation/logs", automationHandler.GetLogs)
	}

	logrus.Infof("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("Failed to run server: %v", err)
	}
}
