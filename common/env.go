// Package common provides shared constants used across the cookiebridge
// gateway, its hosts and the command-line interface.
package common

// Environment variable names for configuration.
const (
	// ScriptEnv is the environment variable for the host script path.
	ScriptEnv = "COOKIEBRIDGE_SCRIPT"

	// NamespaceEnv is the environment variable for the dotted path of the
	// cookies object inside the host script (e.g. "chrome.cookies").
	NamespaceEnv = "COOKIEBRIDGE_NAMESPACE"

	// NativeEnv is the environment variable to talk to the extension over
	// native messaging instead of a host script.
	NativeEnv = "COOKIEBRIDGE_NATIVE"

	// RelayEnv is the environment variable to reach the extension through
	// a running relay instead of stdin/stdout.
	RelayEnv = "COOKIEBRIDGE_RELAY"

	// SocketEnv is the environment variable for the relay socket path.
	SocketEnv = "COOKIEBRIDGE_SOCKET"

	// TimeoutEnv is the environment variable for the per-call timeout.
	TimeoutEnv = "COOKIEBRIDGE_TIMEOUT"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "COOKIEBRIDGE_DEBUG"

	// LogFileEnv is the environment variable for a file the log is
	// appended to, in addition to stderr with debug logging.
	LogFileEnv = "COOKIEBRIDGE_LOG_FILE"
)
