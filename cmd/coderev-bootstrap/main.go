package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/darioush/coderev-codespaces/internal/bootstrap"
	"github.com/darioush/coderev-codespaces/internal/constants"
	"github.com/darioush/coderev-codespaces/internal/logging"
	"github.com/darioush/coderev-codespaces/internal/statestore"
)

var version = "0.2.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coderev-bootstrap",
		Short: "Prepare a codespace and launch the coderev API server",
		Long: `Idempotently prepares the codespace for coderev and launches the API
server as a detached background process. Intended to run as a Codespaces
lifecycle hook; outside a codespace it exits cleanly without side effects.`,
		RunE: runBootstrap,
	}

	rootCmd.Flags().String("server-script", "", "Path to the API server script (defaults to $CODEREV_SERVER_SCRIPT, then the state directory)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newStatusCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	serverScript, err := cmd.Flags().GetString("server-script")
	if err != nil {
		return fmt.Errorf("invalid server-script flag: %w", err)
	}
	levelFlag, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("invalid log-level flag: %w", err)
	}
	level, err := logging.ParseLevel(levelFlag)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	// Outside a codespace nothing may be written, not even the state
	// directory, so the environment check has to come before the store and
	// the log file exist.
	if os.Getenv(constants.CodespacesEnvVar) != constants.CodespacesEnvValue {
		fmt.Println("Nothing to do.")
		return nil
	}

	store, err := statestore.NewDefault()
	if err != nil {
		return err
	}

	// Tee logs into the bootstrap log so best-effort failures are
	// debuggable after the lifecycle hook has come and gone.
	logFile, err := os.OpenFile(store.BootstrapLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open bootstrap log: %v\n", err)
	} else {
		defer logFile.Close()
		logging.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	orchestrator, err := bootstrap.New(bootstrap.Options{
		Store:        store,
		ServerScript: serverScript,
	})
	if err != nil {
		return err
	}

	results, err := orchestrator.Run(cmd.Context())
	for _, r := range results {
		logging.Debugf("%s", bootstrap.FormatResult(r))
	}
	if err != nil {
		return err
	}

	if bootstrap.Skipped(results) {
		fmt.Println("Nothing to do.")
		return nil
	}
	if pid, ok := bootstrap.LaunchedPID(store, results); ok {
		fmt.Printf("coderev server started (pid %d)\n", pid)
		fmt.Printf("  log: %s\n", store.ServerLogPath())
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bootstrap state",
		Long: `Shows the bootstrap state in KEY=VALUE format for easy parsing:
  RUNNING=true
  PID=4242
  REPO_DIR=/workspaces/myrepo`,
		RunE: runStatus,
	}

	cmd.Flags().String("server-script", "", "Path to the API server script")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	serverScript, err := cmd.Flags().GetString("server-script")
	if err != nil {
		return fmt.Errorf("invalid server-script flag: %w", err)
	}

	store, err := statestore.NewDefault()
	if err != nil {
		return err
	}
	if serverScript == "" {
		serverScript = os.Getenv(constants.ServerScriptEnvVar)
	}
	if serverScript == "" {
		serverScript = store.ServerScriptPath()
	}

	detector := bootstrap.NewDetector(store, serverScript, constants.WorkspacesParent)
	state := detector.Detect()

	fmt.Printf("STATE_DIR=%s\n", state.StateDir)
	fmt.Printf("RUNNING=%t\n", state.ServerRunning)
	if state.PIDRecorded {
		fmt.Printf("PID=%d\n", state.PID)
	}
	fmt.Printf("TOKEN_FILE_EXISTS=%t\n", state.TokenExists)
	fmt.Printf("SERVER_SCRIPT=%s\n", state.ServerScript)
	fmt.Printf("SERVER_SCRIPT_EXISTS=%t\n", state.ScriptExists)
	if state.RepoDir != "" {
		fmt.Printf("REPO_DIR=%s\n", state.RepoDir)
	}

	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("coderev-bootstrap version %s\n", version)
		},
	}
}
