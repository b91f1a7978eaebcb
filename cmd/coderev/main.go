package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/darioush/coderev-codespaces/internal/api"
	"github.com/darioush/coderev-codespaces/internal/auth"
	"github.com/darioush/coderev-codespaces/internal/codespace"
	"github.com/darioush/coderev-codespaces/internal/config"
	"github.com/darioush/coderev-codespaces/internal/credentials"
	"github.com/darioush/coderev-codespaces/internal/gitrepo"
	"github.com/darioush/coderev-codespaces/internal/terminal"
	"github.com/darioush/coderev-codespaces/internal/tunnel"
)

var version = "0.2.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "coderev",
		Short: "Ask Claude Code questions about any repo via GitHub Codespaces",
		Long:  "Ask Claude Code questions about code on any branch or PR by running it inside a GitHub Codespace, without checking anything out locally.",
	}

	rootCmd.AddCommand(
		newAskCmd(),
		newStatusCmd(),
		newStopCmd(),
		newCleanupCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [REPO [BRANCH]] QUESTION",
		Short: "Ask Claude a question about code in REPO on BRANCH",
		Long: `Asks Claude Code a question about a repository. REPO is "owner/name" and
BRANCH a ref on it. When run inside a git checkout with a GitHub origin,
both can be omitted and default to the current repository and branch.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: runAsk,
	}

	cmd.Flags().StringSliceP("files", "f", nil, "Files to focus on (repeatable)")
	cmd.Flags().StringP("diff", "d", "", "Git diff range (e.g. main..HEAD)")
	cmd.Flags().StringP("model", "m", "", "Claude model (e.g. sonnet, opus)")
	cmd.Flags().Int("max-turns", 10, "Max agent turns")
	cmd.Flags().Bool("stream", false, "Stream the response as it is produced")
	cmd.Flags().String("session", "", "Session id for conversation continuity (\"new\" generates one)")
	cmd.Flags().Bool("sync-creds", false, "Push local Claude OAuth credentials to the codespace")

	return cmd
}

// askArgs resolves the positional REPO/BRANCH/QUESTION forms, filling repo
// and branch from the local checkout when omitted.
func askArgs(args []string) (repo, branch, question string, err error) {
	resolver := gitrepo.NewResolver()

	switch len(args) {
	case 3:
		return args[0], args[1], args[2], nil
	case 2:
		repo = args[0]
		branch, err = resolver.Branch(".")
		if err != nil {
			return "", "", "", err
		}
		return repo, branch, args[1], nil
	default:
		repo, err = resolver.Repo(".")
		if err != nil {
			return "", "", "", err
		}
		branch, err = resolver.Branch(".")
		if err != nil {
			return "", "", "", err
		}
		return repo, branch, args[0], nil
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	files, _ := flags.GetStringSlice("files")
	diffRange, _ := flags.GetString("diff")
	model, _ := flags.GetString("model")
	maxTurns, _ := flags.GetInt("max-turns")
	stream, _ := flags.GetBool("stream")
	session, _ := flags.GetString("session")
	syncCreds, _ := flags.GetBool("sync-creds")

	repo, branch, question, err := askArgs(args)
	if err != nil {
		return err
	}
	if session == "new" {
		session = uuid.NewString()
		fmt.Fprintf(os.Stderr, "Session: %s\n", session)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	githubToken, err := auth.GitHubToken(ctx)
	if err != nil {
		return err
	}
	manager := codespace.NewManager(githubToken, codespace.Options{
		MachineType:        cfg.MachineType,
		IdleTimeoutMinutes: cfg.IdleTimeoutMinutes,
		BootTimeout:        cfg.BootTimeout,
		PollInterval:       cfg.PollInterval,
	})

	fmt.Fprintf(os.Stderr, "Finding codespace for %s@%s...\n", repo, branch)
	csName, err := manager.FindOrCreate(ctx, repo, branch, func(msg string) {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Codespace ready: %s\n", csName)

	tun := tunnel.New(csName, cfg.ServerPort)
	if err := tun.Open(ctx); err != nil {
		return err
	}
	baseURL, err := tun.PublicURL(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Waiting for coderev server...")
	client := api.NewClient(baseURL, "", cfg.AskTimeout)
	client.HealthTimeout = cfg.HealthTimeout
	client.HealthPollInterval = cfg.HealthPollInterval
	health, err := client.WaitUntilReady(ctx)
	if err != nil {
		return err
	}

	claimer, err := auth.NewClaimer()
	if err != nil {
		return err
	}
	authToken, err := claimer.Token(ctx, baseURL, csName)
	if err != nil {
		return err
	}
	client = client.WithToken(authToken)

	fmt.Fprintf(os.Stderr, "Server ready -- repo: %s, branch: %s, commit: %s\n",
		health.RepoDir, health.Branch, health.Commit)

	if syncCreds {
		source, err := credentials.New()
		if err != nil {
			return err
		}
		creds, err := source.Read()
		if err != nil {
			return err
		}
		if err := client.SetCredentials(ctx, creds); err != nil {
			return fmt.Errorf("failed to push credentials: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Pushed Claude credentials to codespace.")
	}

	request := api.AskRequest{
		Question:  question,
		Files:     files,
		DiffRange: diffRange,
		Model:     model,
		MaxTurns:  maxTurns,
		SessionID: session,
	}
	if stream {
		return askStream(ctx, client, request)
	}
	return askSync(ctx, client, request)
}

func askSync(ctx context.Context, client *api.Client, request api.AskRequest) error {
	fmt.Fprintln(os.Stderr, "Claude is thinking...")
	result, err := client.Ask(ctx, request)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(result.Answer)
	fmt.Println()

	meta := fmt.Sprintf("%.0fs", result.DurationSeconds)
	if result.Usage.CostUSD > 0 {
		meta += fmt.Sprintf(" | $%.4f", result.Usage.CostUSD)
	}
	if result.Usage.NumTurns > 0 {
		meta += fmt.Sprintf(" | %d turns", result.Usage.NumTurns)
	}
	fmt.Println(dimStyle.Render(meta))
	return nil
}

// streamEvent is the subset of Claude's stream-json events the CLI renders.
type streamEvent struct {
	Type    string `json:"type"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func askStream(ctx context.Context, client *api.Client, request api.AskRequest) error {
	err := client.AskStream(ctx, request, func(data string) error {
		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Non-JSON keepalives are fine to skip.
			return nil
		}
		if event.Type != "assistant" {
			return nil
		}
		for _, block := range event.Content {
			if block.Type == "text" {
				fmt.Print(block.Text)
			}
		}
		return nil
	})
	fmt.Println()
	return err
}

var (
	dimStyle    = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true)
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status REPO",
		Short: "List codespaces for REPO",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	repo := args[0]
	ctx := cmd.Context()

	manager, err := newManager(ctx)
	if err != nil {
		return err
	}

	codespaces, err := manager.ListForRepo(ctx, repo)
	if err != nil {
		return err
	}
	if len(codespaces) == 0 {
		fmt.Printf("No codespaces found for %s\n", repo)
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "BRANCH", "STATE", "MACHINE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, cs := range codespaces {
		t.Row(cs.Name, orUnknown(cs.GitStatus.Ref), orUnknown(cs.State), orUnknown(cs.Machine.DisplayName))
	}
	fmt.Println(t)
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop REPO [BRANCH]",
		Short: "Stop codespace(s) for REPO, optionally filtered by BRANCH",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runStop,
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	repo := args[0]
	branch := ""
	if len(args) == 2 {
		branch = args[1]
	}
	ctx := cmd.Context()

	manager, err := newManager(ctx)
	if err != nil {
		return err
	}

	codespaces, err := manager.ListForRepo(ctx, repo)
	if err != nil {
		return err
	}

	stopped := 0
	for _, cs := range codespaces {
		if branch != "" && cs.GitStatus.Ref != branch {
			continue
		}
		if cs.State != codespace.StateAvailable {
			continue
		}
		fmt.Printf("Stopping %s (%s)...\n", cs.Name, cs.GitStatus.Ref)
		if err := manager.Stop(ctx, cs.Name); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			continue
		}
		stopped++
	}

	fmt.Printf("Stopped %d codespace(s).\n", stopped)
	return nil
}

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Stop idle codespaces; with --delete, also remove stopped ones",
		RunE:  runCleanup,
	}

	cmd.Flags().Bool("delete", false, "Also delete stopped codespaces")

	return cmd
}

func runCleanup(cmd *cobra.Command, args []string) error {
	deleteStopped, err := cmd.Flags().GetBool("delete")
	if err != nil {
		return fmt.Errorf("invalid delete flag: %w", err)
	}
	ctx := cmd.Context()

	manager, err := newManager(ctx)
	if err != nil {
		return err
	}

	codespaces, err := manager.ListAll(ctx)
	if err != nil {
		return err
	}

	if deleteStopped {
		ok, err := terminal.Confirm("Delete all stopped codespaces?", false)
		if err != nil {
			return err
		}
		if !ok {
			deleteStopped = false
			fmt.Println("Skipping deletion.")
		}
	}

	stopped, deleted := 0, 0
	for _, cs := range codespaces {
		switch cs.State {
		case codespace.StateAvailable:
			fmt.Printf("Stopping %s...\n", cs.Name)
			if err := manager.Stop(ctx, cs.Name); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}
			stopped++
		case codespace.StateShutdown, codespace.StateShuttingDown:
			if !deleteStopped {
				continue
			}
			fmt.Printf("Deleting %s...\n", cs.Name)
			if err := manager.Delete(ctx, cs.Name); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}
			deleted++
		}
	}

	fmt.Printf("Stopped %d, deleted %d codespace(s).\n", stopped, deleted)
	return nil
}

// newManager builds a codespace manager from the resolved GitHub token and
// client config.
func newManager(ctx context.Context) (*codespace.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	githubToken, err := auth.GitHubToken(ctx)
	if err != nil {
		return nil, err
	}
	return codespace.NewManager(githubToken, codespace.Options{
		MachineType:        cfg.MachineType,
		IdleTimeoutMinutes: cfg.IdleTimeoutMinutes,
		BootTimeout:        cfg.BootTimeout,
		PollInterval:       cfg.PollInterval,
	}), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("coderev version %s\n", version)
		},
	}
}
