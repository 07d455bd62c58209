// Command boxpush serves box-pushing puzzle sessions.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket updates and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server, reusing a running API server or starting an internal one
//
// Flags control host/port, the level directory, debug logging, session expiry
// and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/boxpush/api"
	"github.com/wricardo/boxpush/game/config"
	"github.com/wricardo/boxpush/game/engine"
	"github.com/wricardo/boxpush/game/service"
	"github.com/wricardo/boxpush/game/session"
	"github.com/wricardo/boxpush/logging"
	"github.com/wricardo/boxpush/transport/mcp"
	"github.com/wricardo/boxpush/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "boxpush"
)

func main() {
	// A missing .env is fine; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "box-pushing puzzle server with REST, WebSocket and MCP access",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "level-dir",
				Value:   "levels",
				Usage:   "directory containing level files (.yaml, .yml, .json); empty uses built-in levels only",
				Sources: cli.EnvVars("LEVEL_DIR"),
			},
			&cli.StringFlag{
				Name:    "default-level",
				Usage:   "level used when a session is created without one",
				Sources: cli.EnvVars("DEFAULT_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "drain",
				Value:   "lifo",
				Usage:   "input queue drain order: lifo applies the newest input per tick, fifo the oldest",
				Sources: cli.EnvVars("DRAIN_ORDER"),
			},
			&cli.IntFlag{
				Name:    "hint-limit",
				Value:   200000,
				Usage:   "maximum positions the hint solver explores",
				Sources: cli.EnvVars("HINT_LIMIT"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   session.DefaultMaxAge,
				Usage:   "remove sessions not accessed for this long",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "expose the server through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-auth",
						Usage:   "ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "custom ngrok domain",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				},
				Action: runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "API server to proxy to; an internal one is started when it is unreachable",
						Sources: cli.EnvVars("API_URL"),
					},
				},
				Action: runStdioMCP,
			},
		},
	}
}

// app holds the wired services shared by both modes.
type app struct {
	logger   *zap.Logger
	sessions *session.Manager
	service  service.GameService
	hub      *websocket.Hub
	ttl      time.Duration
}

func newApp(cmd *cli.Command) (*app, error) {
	logger, err := logging.New(cmd.Bool("debug"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	levelDir := cmd.String("level-dir")
	if levelDir != "" {
		if err := os.MkdirAll(levelDir, 0o755); err != nil {
			return nil, fmt.Errorf("level directory: %w", err)
		}
	}

	levels, err := config.NewManager(levelDir, config.WithLogger(logger.Named("levels")))
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}
	if name := cmd.String("default-level"); name != "" {
		if err := levels.SetDefault(name); err != nil {
			return nil, fmt.Errorf("default level: %w", err)
		}
	}

	drain, err := parseDrainOrder(cmd.String("drain"))
	if err != nil {
		return nil, err
	}

	hub := websocket.NewHub(logger.Named("ws"))
	sessions := session.NewManager(
		session.WithLogger(logger.Named("sessions")),
		session.WithOnExpire(hub.CloseSession),
	)
	svc := service.NewGameService(sessions, levels,
		service.WithLogger(logger.Named("game")),
		service.WithDrainOrder(drain),
		service.WithHintLimit(int(cmd.Int("hint-limit"))),
	)

	return &app{
		logger:   logger,
		sessions: sessions,
		service:  svc,
		hub:      hub,
		ttl:      cmd.Duration("session-ttl"),
	}, nil
}

func parseDrainOrder(s string) (engine.DrainOrder, error) {
	switch strings.ToLower(s) {
	case "", "lifo":
		return engine.DrainLIFO, nil
	case "fifo":
		return engine.DrainFIFO, nil
	}
	return 0, fmt.Errorf("unknown drain order %q (want lifo or fifo)", s)
}

// background runs the hub and the session janitor until ctx is done.
func (a *app) background(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return a.hub.Run(ctx) })
	g.Go(func() error {
		return a.sessions.RunCleanup(ctx, session.DefaultCleanupInterval, a.ttl)
	})
}

// handler combines the REST API with the /mcp endpoint.
func (a *app) handler(mcpClient *mcp.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(a.service, a.hub, a.logger.Named("api")))
	mux.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return mux
}

// mcpHandler answers single JSON-RPC messages over plain HTTP POST.
func mcpHandler(s *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := s.HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no reply.
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// runServer starts the HTTP server and, when enabled, an ngrok tunnel serving
// the same handler.
func runServer(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := a.handler(mcp.NewClient("http://"+addr, Version))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	a.background(ctx, g)

	g.Go(func() error {
		a.logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("ws", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return serveNgrok(ctx, a.logger.Named("ngrok"), handler, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
		})
	}

	err = g.Wait()
	a.logger.Info("server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveNgrok exposes handler through a tunnel. A missing token only disables
// the tunnel.
func serveNgrok(ctx context.Context, logger *zap.Logger, handler http.Handler, authToken, domain string) error {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return nil
	}

	logger.Info("ngrok tunnel established",
		zap.String("url", tun.URL()),
		zap.String("mcp", tun.URL()+"/mcp"),
	)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ngrok server stopped", zap.Error(err))
	}
	return nil
}

// runStdioMCP serves MCP over stdio. It proxies to an existing API server when
// one answers at --api-url; otherwise it starts an internal API on a random
// loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	g, ctx := errgroup.WithContext(ctx)

	baseURL := strings.TrimRight(cmd.String("api-url"), "/")
	if !apiAvailable(ctx, baseURL) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()
		a.logger.Info("starting internal HTTP server", zap.String("addr", baseURL))

		a.background(ctx, g)

		internal := &http.Server{Handler: api.NewServer(a.service, a.hub, a.logger.Named("api"))}
		g.Go(func() error {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("internal HTTP server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return internal.Close()
		})
	} else {
		a.logger.Info("using external API server", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL, Version)
	stdio := server.NewStdioServer(mcpClient.GetMCPServer())
	stdio.SetErrorLogger(zap.NewStdLog(a.logger.Named("mcp")))

	g.Go(func() error {
		a.logger.Info("MCP stdio server ready", zap.String("api", baseURL))
		err := stdio.Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		// Stdin closed: the client went away.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
