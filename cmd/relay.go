package cmd

import (
	"context"
	"net"
	"os"
	"strings"

	"github.com/urfave/cli"
	"github.com/warpdl/cookiebridge/cmd/common"
	"github.com/warpdl/cookiebridge/internal/nativehost"
)

var origin string

var relayFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "origin",
		Usage:       "extension the relay serves, for the log only",
		Destination: &origin,
	},
}

// browserOrigin reports whether args are those a browser launches a native
// host with: the caller origin for Chrome, or the manifest path and the
// extension id for Firefox.
func browserOrigin(args cli.Args) (string, bool) {
	first := args.First()
	switch {
	case strings.HasPrefix(first, "chrome-extension://"):
		return first, true
	case strings.HasSuffix(first, ".json"):
		if id := args.Get(1); id != "" {
			return id, true
		}
		return first, true
	}
	return "", false
}

// defaultAction runs the relay when a browser starts the binary and
// otherwise behaves like the default help action.
func defaultAction(ctx *cli.Context) error {
	if o, ok := browserOrigin(ctx.Args()); ok {
		return serveRelay(ctx, o)
	}
	if args := ctx.Args(); args.Present() {
		return cli.ShowCommandHelp(ctx, args.First())
	}
	return cli.ShowAppHelp(ctx)
}

func relay(ctx *cli.Context) error {
	return serveRelay(ctx, origin)
}

// serveRelay forwards native messages between the extension on
// stdin/stdout and local clients on the relay socket until the browser
// closes stdin. Nothing but native messages is written to stdout.
func serveRelay(ctx *cli.Context, from string) error {
	l, logFile, err := newLogger(ctx)
	if err != nil {
		return common.RuntimeErr("relay", "open_log", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	path := socketPath(ctx)
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return common.RuntimeErr("relay", "listen", err)
	}
	defer ln.Close()
	_ = os.Chmod(path, 0600)

	if from == "" {
		from = "unknown extension"
	}
	l.Info("relaying for %s on %s", from, path)
	err = nativehost.NewRelay(stdin, ctx.App.Writer, l).Serve(context.Background(), ln)
	return common.RuntimeErr("relay", "serve", err)
}
