package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/migsilva89/markmind/internal/api"
	"github.com/migsilva89/markmind/internal/bookmarks"
	"github.com/migsilva89/markmind/internal/config"
	"github.com/migsilva89/markmind/internal/provider"
	"github.com/migsilva89/markmind/internal/runner"
	"github.com/migsilva89/markmind/internal/session"
	"github.com/migsilva89/markmind/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the markmind daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running markmind daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show markmind system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "markmind.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "markmind version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	idleTimeout, err := cfg.Server.ParsedIdleTimeout()
	if err != nil {
		return err
	}

	// Refuse to start a second instance. The health endpoint is the
	// source of truth; a stale PID file alone does not count.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("markmind is already running (PID %d)", pid)
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		printWarning("markmind is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("daemon already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	svc := bookmarks.NewSQLiteService(store)
	sessions := session.NewStore(store)

	registry := provider.NewRegistry(
		provider.NewGemini(cfg.Models.Google),
		provider.NewOpenAI(cfg.Models.OpenAI),
		provider.NewAnthropic(cfg.Models.Anthropic),
		provider.NewOpenRouter(cfg.Models.OpenRouter),
	)

	events := api.NewBroadcaster()
	idle := runner.NewIdleMonitor(idleTimeout)
	organizeRunner := runner.New(sessions, registry, cfg, events, idle.Touch, cfg.Organize.MaxOutputTokens)

	handler := api.NewHandler(api.Deps{
		Sessions: sessions,
		Runner:   organizeRunner,
		Events:   events,
		Token:    apiToken,
		Touch:    idle.Touch,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP over stdio. Listen blocks on stdin so it runs outside the
	// errgroup and ends with the process.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Bookmarks: svc,
		Sessions:  sessions,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "markmind listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := idle.Wait(gctx)
		switch {
		case err == nil:
			slog.Info("idle timeout reached, shutting down", "timeout", idleTimeout)
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, "shutting down...")
		default:
			return err
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("markmind is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop markmind (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to markmind (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Daemon", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Daemon", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Daemon", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("AI service", "%s", cfg.Organize.Service)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	if running {
		apiClient, err := newAPIClient()
		if err != nil {
			return nil
		}
		statusResp, err := apiClient.get(ctx, "/organize/status")
		if err != nil {
			return nil
		}
		var sess *session.Session
		if err := decodeJSON(statusResp, &sess); err == nil {
			if sess == nil {
				printStatus("Session", "none")
			} else {
				printStatus("Session", "%s", sess.Status)
			}
		}
	}
	return nil
}
