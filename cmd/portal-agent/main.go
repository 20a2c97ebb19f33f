/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for PortalAgent server
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/cmd/portal-agent/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/portalmind/PortalAgent/internal/api"
	"github.com/portalmind/PortalAgent/internal/config"
	"github.com/portalmind/PortalAgent/internal/conversation"
	"github.com/portalmind/PortalAgent/internal/db"
	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
	"github.com/portalmind/PortalAgent/internal/nlp"
	"github.com/portalmind/PortalAgent/internal/portal"
	"github.com/portalmind/PortalAgent/internal/workflow"
)

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		showVersion      = flag.Bool("version", false, "Show version information")
		showVersionShort = flag.Bool("v", false, "Show version information (short)")
		configPath       = flag.String("c", "", "Path to configuration file")
		configPathLong   = flag.String("config", "", "Path to configuration file")
		showHelp         = flag.Bool("help", false, "Show help message")
		showHelpShort    = flag.Bool("h", false, "Show help message (short)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "PortalAgent Server - Natural language front end for self-service portals\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    Start server with default configuration\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml     Start server with custom config file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version          Show version information\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --help             Show this help message\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nConfiguration:\n")
		fmt.Fprintf(os.Stderr, "  Configuration can be provided via:\n")
		fmt.Fprintf(os.Stderr, "  - Command line flag: -c or --config\n")
		fmt.Fprintf(os.Stderr, "  - Environment variable: CONFIG_PATH\n")
		fmt.Fprintf(os.Stderr, "  - Environment variables (see config package for details)\n")
	}
	flag.Parse()

	/* Handle version flag */
	if *showVersion || *showVersionShort {
		fmt.Printf("portalagent version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
		fmt.Printf("Git commit: %s\n", gitCommit)
		os.Exit(0)
	}

	/* Handle help flag */
	if *showHelp || *showHelpShort {
		flag.Usage()
		os.Exit(0)
	}

	/* Load configuration */
	cfg := config.DefaultConfig()

	/* Determine config path - command line flag takes precedence over environment variable */
	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = *configPathLong
	}
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}

	if cfgPath != "" {
		var err error
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v, using defaults\n", err)
			cfg = config.DefaultConfig()
		}
	} else {
		/* Load from environment variables if no config file */
		config.LoadFromEnv(cfg)
	}

	/* Initialize logging */
	metrics.InitLogging(cfg.Logging.Level, cfg.Logging.Format)

	/* Connect to the workflow history database when enabled */
	var queries *db.Queries
	if cfg.Database.Enabled {
		database, err := db.NewDB(cfg.Database.ConnString(), db.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to connect to database: %v\n", err)
			fmt.Fprintf(os.Stderr, "Connection string: host=%s port=%d user=%s dbname=%s\n",
				cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Database)
			os.Exit(1)
		}
		defer database.Close()

		queries = db.NewQueries(database)
		if err := queries.EnsureSchema(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to prepare history schema: %v\n", err)
			os.Exit(1)
		}
	}

	/* Initialize the language model client */
	var generator llm.Generator
	if cfg.Model.BaseURL != "" {
		generator = llm.NewClient(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Model, time.Duration(cfg.Model.TimeoutSeconds)*time.Second)
	}

	/* Register the configured portals */
	portalRegistry, err := portal.NewRegistry(cfg.Portals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to register portals: %v\n", err)
		os.Exit(1)
	}
	portalClient := portal.NewClient()
	gateway := portal.NewHTTPGateway(portalRegistry, portalClient)

	healthMonitor := portal.NewHealthMonitor(portalRegistry, portalClient, cfg.PortalHealth.Interval)
	healthMonitor.Start()
	defer healthMonitor.Stop()

	/* Initialize classification and conversation management */
	classifier := nlp.NewClassifier(generator)
	store := conversation.NewStore(cfg.Conversation.MaxTurns)
	manager := conversation.NewManager(classifier, store, generator)

	sessionCleanup := conversation.NewCleanupService(store, cfg.Conversation.CleanupInterval, cfg.Conversation.SessionTTL)
	sessionCleanup.Start()
	defer sessionCleanup.Stop()

	/* Initialize the workflow engine */
	workflowRegistry := workflow.NewRegistry(cfg.Workflow.Retention)
	executor := workflow.NewPortalExecutor(gateway, generator)
	var history workflow.HistoryStore
	if queries != nil {
		history = queries
	}
	engine := workflow.NewEngine(executor, workflowRegistry, history)
	planner := workflow.NewPlanner(generator)

	/* Initialize API */
	handlers := api.NewHandlers(manager, classifier, planner, engine, workflowRegistry, gateway, generator, queries)

	/* Setup router */
	router := mux.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(api.CORSMiddleware)
	router.Use(api.LoggingMiddleware)
	if cfg.RateLimit.Enabled {
		router.Use(api.RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	/* API routes */
	handlers.RegisterRoutes(router)
	router.HandleFunc("/api/v1/ws", api.HandleWebSocket(manager)).Methods("GET")

	/* Health check */
	router.HandleFunc("/health", handlers.Health).Methods("GET")

	/* Metrics endpoint */
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	/* Start server */
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	/* Graceful shutdown */
	go func() {
		fmt.Printf("Server starting on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "FATAL: Server failed to start on %s: %v\n", addr, err)
			os.Exit(1)
		}
	}()

	/* Wait for interrupt signal */
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Printf("Server forced to shutdown: %v\n", err)
	}

	fmt.Println("Server exited")
}
