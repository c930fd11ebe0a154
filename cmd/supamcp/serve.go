package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	sbmcp "github.com/leeb003/supabase-mcp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

func versionString() string {
	return sbmcp.Version
}

func runServe() error {
	ctx := context.Background()

	// 1. Load ServerConfig
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if serverConfig.Server.Port <= 0 {
		panic("supamcp: server.port must be > 0")
	}

	// 2. Resolve connection string
	connString := os.Getenv("SUPAMCP_PG_CONNSTRING")
	if connString == "" {
		username := promptInput("Username: ")
		password := promptPassword("Password: ")
		connString = buildConnString(serverConfig.Connection, username, password)
	}

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging)

	if isTTY(os.Stderr.Fd()) {
		printBanner(os.Stderr, true)
	}

	// 4. Create the engine
	engine, err := sbmcp.New(ctx, connString, serverConfig.Config, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer engine.Close(ctx)

	// 5. Test database connection
	logger.Info().Msg("testing database connection")
	if err := engine.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Bool("read_only", engine.ReadOnly()).Msg("database connection test successful")

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("supamcp", sbmcp.Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	sbmcp.RegisterMCPTools(mcpServer, engine)

	// 7. Start the change listener when a NOTIFY channel is configured
	if serverConfig.Events.Channel != "" {
		go func() {
			if err := engine.StartChangeListener(ctx); err != nil {
				logger.Error().Err(err).Msg("change listener exited")
			}
		}()
	}

	// 8. Build the HTTP surface
	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("supamcp: health_check_path must be set when health_check_enabled is true")
		}
		r.Get(serverConfig.Server.HealthCheckPath, engine.HealthHandler())
	}
	if serverConfig.Server.EventsEnabled {
		prefix := serverConfig.Server.EventsPathPrefix
		if prefix == "" {
			prefix = "/events"
		}
		r.Mount(prefix, engine.EventsRouter())
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	r.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting supamcp server")
	return streamableServer.Start(addr)
}

func loadServerConfig() (*sbmcp.ServerConfig, error) {
	configPath := os.Getenv("SUPAMCP_CONFIG_PATH")
	if configPath == "" {
		configPath = ".supamcp/config.json"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config sbmcp.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

func buildConnString(conn sbmcp.ConnectionConfig, username, password string) string {
	parts := []string{}
	if conn.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", conn.Host))
	}
	if conn.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", conn.Port))
	}
	if conn.DBName != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", conn.DBName))
	}
	if username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", username))
	}
	if password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", password))
	}
	if conn.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", conn.SSLMode))
	}
	return strings.Join(parts, " ")
}

func setupLogger(config sbmcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}
