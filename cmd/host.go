package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/warpdl/cookiebridge/common"
	"github.com/warpdl/cookiebridge/internal/jshost"
	"github.com/warpdl/cookiebridge/internal/nativehost"
	"github.com/warpdl/cookiebridge/pkg/cookieapi"
	"github.com/warpdl/cookiebridge/pkg/logger"
)

var errNoHost = errors.New("no cookie host: pass --script FILE, --relay or --native")

// Swapped in tests.
var (
	stdin     io.ReadCloser = os.Stdin
	fs        afero.Fs      = afero.NewOsFs()
	homeDir                 = os.UserHomeDir
	dialRelay               = func(path string) (net.Conn, error) { return net.Dial("unix", path) }
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "script",
		Usage:  "host script defining the cookies API for the embedded runtime",
		EnvVar: common.ScriptEnv,
	},
	cli.StringFlag{
		Name:   "namespace",
		Usage:  "dotted path of the cookies object inside the host script",
		Value:  common.DefaultNamespace,
		EnvVar: common.NamespaceEnv,
	},
	cli.BoolFlag{
		Name:   "relay",
		Usage:  "talk to the browser extension through the relay the browser started",
		EnvVar: common.RelayEnv,
	},
	cli.BoolFlag{
		Name:   "native",
		Usage:  "talk to the browser extension over native messaging on stdin/stdout",
		EnvVar: common.NativeEnv,
	},
	cli.StringFlag{
		Name:   "socket",
		Usage:  "relay socket path (default $TMPDIR/" + common.DefaultSocketName + ")",
		EnvVar: common.SocketEnv,
	},
	cli.DurationFlag{
		Name:   "timeout",
		Usage:  "maximum duration of a single cookie call",
		Value:  common.DefaultTimeout,
		EnvVar: common.TimeoutEnv,
	},
	cli.BoolFlag{
		Name:   "debug",
		Usage:  "log host traffic to stderr",
		EnvVar: common.DebugEnv,
	},
	cli.StringFlag{
		Name:   "log-file",
		Usage:  "append the log to this file (stderr belongs to the browser in native mode)",
		EnvVar: common.LogFileEnv,
	},
}

// session is an open gateway plus where the command should print.
type session struct {
	gw      *cookieapi.Gateway
	out     io.Writer
	l       logger.Logger
	logFile afero.File
	timeout time.Duration
	close   func() error
}

// newLogger builds the logger selected by --debug and --log-file. The
// returned file is nil without --log-file.
func newLogger(ctx *cli.Context) (logger.Logger, afero.File, error) {
	debug := ctx.GlobalBool("debug")
	var loggers []logger.Logger
	if debug {
		loggers = append(loggers, logger.NewStandardLogger(log.New(ctx.App.ErrWriter, "", log.LstdFlags), true))
	}
	var f afero.File
	if path := ctx.GlobalString("log-file"); path != "" {
		var err error
		f, err = fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		loggers = append(loggers, logger.NewStandardLogger(log.New(f, "", log.LstdFlags), debug))
	}
	switch len(loggers) {
	case 0:
		return logger.NewNopLogger(), nil, nil
	case 1:
		return loggers[0], f, nil
	}
	return logger.NewMultiLogger(loggers...), f, nil
}

// socketPath is the relay socket from --socket, or the default one in the
// temp directory.
func socketPath(ctx *cli.Context) string {
	if path := ctx.GlobalString("socket"); path != "" {
		return path
	}
	return filepath.Join(os.TempDir(), common.DefaultSocketName)
}

// openSession connects to the host chosen by the global flags.
func openSession(ctx *cli.Context) (*session, error) {
	l, logFile, err := newLogger(ctx)
	if err != nil {
		return nil, err
	}
	s := &session{
		out:     ctx.App.Writer,
		l:       l,
		logFile: logFile,
		timeout: ctx.GlobalDuration("timeout"),
	}
	if err := s.connect(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) connect(ctx *cli.Context) error {
	switch {
	case ctx.GlobalBool("relay"):
		conn, err := dialRelay(socketPath(ctx))
		if err != nil {
			return fmt.Errorf("connect to relay: %w", err)
		}
		b := nativehost.NewBridge(conn, conn, s.l)
		s.gw = cookieapi.NewGateway(b, s.l)
		s.close = b.Close
	case ctx.GlobalBool("native"):
		b := nativehost.NewBridge(stdin, ctx.App.Writer, s.l)
		s.gw = cookieapi.NewGateway(b, s.l)
		s.out = ctx.App.ErrWriter
		// a blocked read on the real stdin does not return on Close
		if stdin != os.Stdin {
			s.close = b.Close
		}
	case ctx.GlobalString("script") != "":
		script := ctx.GlobalString("script")
		rt, err := jshost.NewRuntime(s.l, jshost.Options{
			Namespace: ctx.GlobalString("namespace"),
			Fs:        fs,
			WorkDir:   filepath.Dir(script),
		})
		if err != nil {
			return err
		}
		s.close = rt.Close
		if err := rt.LoadFile(filepath.Base(script)); err != nil {
			return err
		}
		s.gw = cookieapi.NewGateway(rt, s.l)
	default:
		return errNoHost
	}
	return nil
}

// Close closes the host, then the log file.
func (s *session) Close() error {
	var err error
	if s.close != nil {
		err = s.close()
	}
	if s.logFile != nil {
		if cerr := s.logFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *session) Get(ctx context.Context, q cookieapi.CookieQuery) (*cookieapi.Cookie, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.gw.Get(ctx, q)
}

// Set bounds each call by the session timeout, so it also serves
// cookies.Push.
func (s *session) Set(ctx context.Context, w cookieapi.CookieWrite) (*cookieapi.Cookie, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.gw.Set(ctx, w)
}
