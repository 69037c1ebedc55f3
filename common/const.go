package common

import "time"

// DefaultNamespace is where extension scripts expose the cookies API
// in WebExtension-compatible browsers.
const DefaultNamespace = "browser.cookies"

// DefaultTimeout bounds a single host round trip started from the CLI.
const DefaultTimeout = 10 * time.Second

// Native messaging frame limits. Browsers refuse host messages over 1 MiB
// and send the host at most 64 MiB.
const (
	MaxOutgoingMessageSize = 1024 * 1024
	MaxIncomingMessageSize = 64 * 1024 * 1024
)

// DefaultSocketName is the relay socket created in the temp directory.
const DefaultSocketName = "cookiebridge.sock"

// Native messaging method names for the two cookie calls.
const (
	NativeMethodGet = "cookies.get"
	NativeMethodSet = "cookies.set"
)
