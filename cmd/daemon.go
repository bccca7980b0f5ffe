package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/daemon"
	"github.com/breathsave/breathsave/internal/pipeline"

	"github.com/spf13/cobra"
)

type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataDir   string    `json:"data_dir"`
}

var (
	flagDaemonAddr         string
	flagDaemonSchedule     string
	flagDaemonNoWatch      bool
	flagDaemonDebug        bool
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serve analytics over HTTP/SSE and reload on data changes",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonPredictCmd = &cobra.Command{
	Use:   "predict <cigarettes>...",
	Short: "Ask the running daemon for savings predictions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDaemonPredict,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(pipeline.CacheDir(), "breathsaved.pid")
	defaultLog := filepath.Join(pipeline.CacheDir(), "breathsaved.log")

	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonSchedule, "schedule", "", "Cron spec for periodic reloads (default from config)")
	daemonCmd.PersistentFlags().BoolVar(&flagDaemonNoWatch, "no-watch", false, "Do not reload when data files change")
	daemonCmd.PersistentFlags().BoolVar(&flagDaemonDebug, "debug", false, "Log at debug level")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", defaultPID, "PID file path")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", defaultLog, "Log file path for detached mode")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonPredictCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached()
	}

	return runDaemonForeground()
}

func startDaemonDetached() error {
	if err := pidFile(flagDaemonPIDFile).claim(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagDaemonPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", daemonAddr(loadConfig().Daemon.Addr))
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground() error {
	pf := pidFile(flagDaemonPIDFile)
	if err := pf.claim(); err != nil {
		return err
	}

	dcfg := daemonConfig(loadConfig())
	if err := pf.write(daemonRuntimeState{
		PID:       os.Getpid(),
		Addr:      dcfg.Addr,
		StartedAt: time.Now(),
		DataDir:   dcfg.DataDir,
	}); err != nil {
		return err
	}
	defer pf.remove()

	svc := daemon.New(dcfg)

	fmt.Fprintf(os.Stderr, "  breathsave daemon listening on http://%s\n", dcfg.Addr)
	if dcfg.Schedule != "" {
		fmt.Fprintf(os.Stderr, "  Reloading %s on schedule %q\n", dcfg.DataDir, dcfg.Schedule)
	}
	fmt.Fprintf(os.Stderr, "  Stop with: breathsave daemon stop --pid-file %s\n", flagDaemonPIDFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pid, err := pidFile(flagDaemonPIDFile).pid()
	if err != nil {
		fmt.Printf("  Daemon: not running (pid file not found)\n")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := runningAddr()

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	st, err := daemon.NewClient(addr).Status(context.Background())
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}

	fmt.Printf("  Data directory: %s\n", st.DataDir)
	if st.LastLoadAt.IsZero() {
		fmt.Printf("  Last load: pending\n")
	} else {
		fmt.Printf("  Last load: %s\n", st.LastLoadAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Load count: %d\n", st.LoadCount)
	if st.Schedule != "" {
		fmt.Printf("  Schedule: %s\n", st.Schedule)
	}
	fmt.Printf("  Watching: %v\n", st.Watching)
	fmt.Printf("  Users: %s\n", cli.FormatNumber(int64(st.Summary.Users)))
	fmt.Printf("  Total saved: %s\n", cli.FormatMoney(st.Summary.TotalSavings))
	fmt.Printf("  R²: %.3f\n", st.Summary.R2)
	fmt.Printf("  Events: %d (%d subscribers)\n", st.EventCount, st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runDaemonPredict(_ *cobra.Command, args []string) error {
	xs := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid cigarette count %q", a)
		}
		xs[i] = v
	}

	preds, err := daemon.NewClient(runningAddr()).Predictions(context.Background(), xs...)
	if err != nil {
		return err
	}

	t := cli.Table{Headers: []string{"Cigarettes", "Predicted", "Per cigarette", "Timeline"}}
	for _, p := range preds {
		t.Rows = append(t.Rows, []string{
			cli.FormatNumber(int64(p.CigsAvoided)),
			cli.FormatMoney(p.PredictedSave),
			cli.FormatMoney(p.PerCigarette),
			cli.FormatDays(p.TimelineDays),
		})
	}
	fmt.Print(cli.RenderTable(t))
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.pid()
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
			pf.remove()
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

func daemonAddr(fromConfig string) string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	return fromConfig
}

// daemonConfig builds the service config from the config file and flags.
func daemonConfig(cfg config.Config) daemon.Config {
	schedule := cfg.Daemon.RefreshSchedule
	if flagDaemonSchedule != "" {
		schedule = flagDaemonSchedule
	}

	level := slog.LevelInfo
	if flagDaemonDebug {
		level = slog.LevelDebug
	}

	return daemon.Config{
		DataDir:      cfg.General.DataDir,
		UseCache:     cfg.General.UseCache,
		Addr:         daemonAddr(cfg.Daemon.Addr),
		Schedule:     schedule,
		Watch:        cfg.Daemon.Watch && !flagDaemonNoWatch,
		EventsBuffer: flagDaemonEventsBuffer,
		Segmentation: segmentConfig(cfg),
		RangeMax:     cfg.Predictions.RangeMax,
		RangePoints:  cfg.Predictions.RangePoints,
		Logger:       slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})),
	}
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// pidFile is the daemon's pid file plus a JSON sidecar with runtime state.
type pidFile string

func (p pidFile) statePath() string { return string(p) + ".json" }

// claim fails if a live daemon owns p and clears stale files otherwise.
func (p pidFile) claim() error {
	pid, err := p.pid()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case processAlive(pid):
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	p.remove()
	return nil
}

func (p pidFile) pid() (int, error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(string(p))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", p)
	}
	return pid, nil
}

func (p pidFile) write(st daemonRuntimeState) error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(string(p), []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.statePath(), append(data, '\n'), 0o600)
}

func (p pidFile) state() (daemonRuntimeState, error) {
	var st daemonRuntimeState
	//nolint:gosec // daemon state path is configured by the local user
	data, err := os.ReadFile(p.statePath())
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func (p pidFile) remove() {
	_ = os.Remove(string(p))
	_ = os.Remove(p.statePath())
}

// runningAddr prefers --addr, then the running daemon's recorded address,
// then the config file.
func runningAddr() string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	if st, err := pidFile(flagDaemonPIDFile).state(); err == nil && st.Addr != "" {
		return st.Addr
	}
	return loadConfig().Daemon.Addr
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
