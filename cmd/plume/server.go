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

	"github.com/dlashko/plume/internal/api"
	"github.com/dlashko/plume/internal/config"
	"github.com/dlashko/plume/internal/engine"
	"github.com/dlashko/plume/internal/pipeline"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/sample"
	"github.com/dlashko/plume/internal/storage"
	"github.com/dlashko/plume/internal/style"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the plume server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running plume server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plume system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "plume.pid")
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
	fmt.Fprintf(os.Stderr, "plume version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	apiToken, err := config.LoadOrCreateToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Check if a server is already running via the health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("plume is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("plume is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check local inference engine readiness. A missing engine is fine,
	// rewrites fall back to the heuristic pipeline. The rewriter probes
	// availability per request, so an engine that comes up later is picked
	// up without a restart.
	eng, err := engine.Detect(engine.DetectConfig{OllamaBaseURL: cfg.Ollama.BaseURL})
	if err != nil {
		return fmt.Errorf("detecting inference engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, cfg.Ollama.Model, os.Stderr); err != nil {
		if !errors.Is(err, engine.ErrUnavailable) {
			return err
		}
		printWarning("inference engine unavailable, rewrites use the heuristic pipeline")
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the rewrite pipeline.
	profiles := profile.NewManager(store)
	rewriter := pipeline.NewRewriter(profiles,
		pipeline.WithChatTimeout(cfg.Ollama.ChatTimeout()),
		pipeline.WithEngine(eng, cfg.Ollama.Model),
	)
	analyzer := style.NewAnalyzer()

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:    store,
		Profiles: profiles,
		Rewriter: rewriter,
		Analyzer: analyzer,
		Samples:  sample.NewLoader(),
		Token:    apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:    store,
		Profiles: profiles,
		Rewriter: rewriter,
		Analyzer: analyzer,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	// Run the HTTP server and the MCP stdio server under one group so a
	// failure in either tears down both.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "plume listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("MCP server started (stdio transport)")
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
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
		printError("plume is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop plume (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to plume (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	serverUp := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			serverUp = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running (rewrites use the heuristic pipeline)")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}
	printStatus("Model", "%s", cfg.Ollama.Model)

	if serverUp {
		showRecentActivity()
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func showRecentActivity() {
	client, err := newAPIClient()
	if err != nil {
		return
	}
	resp, err := client.get(context.Background(), "/activity?limit=5")
	if err != nil {
		return
	}
	var body struct {
		Activities []struct {
			Action       string  `json:"action"`
			Format       string  `json:"format"`
			Engine       string  `json:"engine"`
			ReductionPct float64 `json:"reduction_pct"`
			CreatedAt    string  `json:"created_at"`
		} `json:"activities"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return
	}
	if len(body.Activities) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, colorize(colorBold, "  Recent activity:"))
	for _, a := range body.Activities {
		line := fmt.Sprintf("    %s  %s", a.CreatedAt, a.Action)
		if a.Engine != "" {
			line += "  (" + a.Engine + ")"
		}
		if a.ReductionPct > 0 {
			line += fmt.Sprintf("  -%.0f%%", a.ReductionPct)
		}
		fmt.Fprintln(os.Stderr, line)
	}
}
