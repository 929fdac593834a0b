package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pennywise/internal/api"
	"pennywise/internal/cli"
	"pennywise/internal/config"
	"pennywise/internal/daemon"
	"pennywise/internal/engine"
	"pennywise/internal/store"
)

var (
	flagDaemonAddr    string
	flagDaemonPIDFile string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background budget monitor",
	Long:  "Keeps the snapshot refreshing and serves status, events, and an SSE stream on a local port.",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(config.CacheDir(config.DefaultConfig()), "pennywised.pid")

	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "Listen address (overrides config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", defaultPID, "PID file path")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Daemon.Addr
	if flagDaemonAddr != "" {
		addr = flagDaemonAddr
	}

	if err := ensureDaemonNotRunning(flagDaemonPIDFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonPIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := writePID(flagDaemonPIDFile, os.Getpid()); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagDaemonPIDFile) }()

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Token)

	var cache engine.Cache
	if !flagNoCache {
		mirror, err := store.Open(config.CachePath(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Cache unavailable: %v\n", err)
		} else {
			defer mirror.Close()
			cache = mirror
		}
	}

	svc := daemon.New(daemon.Config{
		Addr:         addr,
		EventsBuffer: cfg.Daemon.EventsBuffer,
	})

	opts := append(svc.Handlers(), engine.WithRefreshInterval(config.RefreshInterval(cfg)))
	eng := engine.New(client, cache, opts...)

	if !flagQuiet {
		fmt.Printf("  pennywise daemon listening on http://%s\n", addr)
		fmt.Printf("  Refreshing every %s from %s\n", config.RefreshInterval(cfg), cfg.API.BaseURL)
		fmt.Printf("  Stop with: pennywise daemon stop --pid-file %s\n", flagDaemonPIDFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx, eng); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagDaemonPIDFile)
	if err != nil {
		fmt.Println("  Daemon: not running (pid file not found)")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Daemon.Addr
	if flagDaemonAddr != "" {
		addr = flagDaemonAddr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	httpc := &http.Client{Timeout: 2 * time.Second}
	resp, err := httpc.Get("http://" + addr + "/v1/status")
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if st.LastRefreshAt.IsZero() {
		fmt.Println("  Last refresh: pending")
	} else {
		fmt.Printf("  Last refresh: %s\n", st.LastRefreshAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Refresh count: %d\n", st.RefreshCount)
	fmt.Printf("  Spent today: %s\n", cli.FormatMoney(st.Summary.TodaySpent))
	fmt.Printf("  Available: %s\n", cli.FormatMoney(st.Summary.AvailableToday))
	fmt.Printf("  Streak: %d days\n", st.Summary.StreakDays)
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagDaemonPIDFile)
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagDaemonPIDFile)
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

func ensureDaemonNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
