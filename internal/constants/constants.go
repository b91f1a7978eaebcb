package constants

import "os"

// Codespace environment constants
const (
	// CodespacesEnvVar is the environment variable GitHub sets inside a codespace.
	CodespacesEnvVar = "CODESPACES"

	// CodespacesEnvValue is the value CodespacesEnvVar must hold for the
	// bootstrap to proceed.
	CodespacesEnvValue = "true"

	// WorkspacesParent is the directory Codespaces clones repositories under.
	WorkspacesParent = "/workspaces"

	// ReservedWorkspaceName is the Codespaces-internal directory that must be
	// skipped during repository discovery.
	ReservedWorkspaceName = ".codespaces"
)

// Server constants
const (
	// ServerPort is the fixed port the coderev API server listens on.
	ServerPort = 8976

	// AuthTokenEnvVar carries the generated auth token to the server process.
	AuthTokenEnvVar = "AUTH_TOKEN"

	// RepoDirEnvVar carries the discovered repository path to the server process.
	RepoDirEnvVar = "REPO_DIR"

	// ServerScriptEnvVar optionally overrides the server script location.
	ServerScriptEnvVar = "CODEREV_SERVER_SCRIPT"
)

// State directory layout (under ~/.coderev)
const (
	// StateDirName is the per-user state directory for the bootstrap.
	StateDirName = ".coderev"

	// TokenFileName holds the generated auth token.
	TokenFileName = "auth-token"

	// PIDFileName holds the pid of the launched server.
	PIDFileName = "server.pid"

	// BootstrapLogFileName captures bootstrap step output.
	BootstrapLogFileName = "bootstrap.log"

	// ServerLogFileName captures the launched server's stdout and stderr.
	ServerLogFileName = "server.log"

	// ServerScriptName is the default server script filename inside the
	// state directory.
	ServerScriptName = "api_server.py"
)

// Installer constants
const (
	// ClaudeCLIName is the executable the dependency step looks for on PATH.
	ClaudeCLIName = "claude"

	// ClaudeInstallURL is the remote install script for the Claude CLI.
	ClaudeInstallURL = "https://claude.ai/install.sh"
)

// Client-side constants
const (
	// ClientCacheDirName is the per-codespace auth token cache directory,
	// relative to the user cache dir.
	ClientCacheDirName = "coderev"

	// ClientConfigDirName is the client config directory, relative to the
	// user config dir.
	ClientConfigDirName = "coderev"

	// ClientConfigFileName is the optional client config file.
	ClientConfigFileName = "config.yaml"
)

// File permissions
const (
	// DirPermissions is the default permission mode for state directories.
	DirPermissions os.FileMode = 0700

	// FilePermissions is the default permission mode for sensitive files.
	FilePermissions os.FileMode = 0600

	// ExecutablePermissions is the mode applied to the server script.
	ExecutablePermissions os.FileMode = 0755
)
