package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/warpdl/cookiebridge/cmd/common"
	"github.com/warpdl/cookiebridge/internal/nativehost"
)

var (
	manifestBrowser string
	extensionID     string
	hostPath        string
)

var manifestFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "browser, b",
		Usage:       "one of chrome, firefox, chromium, edge or brave (required)",
		Destination: &manifestBrowser,
	},
	cli.StringFlag{
		Name:        "extension-id",
		Usage:       "id of the extension allowed to launch the host (install only)",
		Destination: &extensionID,
	},
	cli.StringFlag{
		Name:        "host-path",
		Usage:       "absolute path of the host binary (this executable if not specified)",
		Destination: &hostPath,
	},
}

func manifestInstaller() (*nativehost.ManifestInstaller, nativehost.Browser, error) {
	browser, err := nativehost.ParseBrowser(manifestBrowser)
	if err != nil {
		return nil, "", err
	}
	home, err := homeDir()
	if err != nil {
		return nil, "", err
	}
	return &nativehost.ManifestInstaller{Fs: fs, HostPath: hostPath, HomeDir: home}, browser, nil
}

func installManifest(ctx *cli.Context) error {
	m, browser, err := manifestInstaller()
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	if m.HostPath == "" {
		if m.HostPath, err = os.Executable(); err != nil {
			return common.RuntimeErr("manifest", "host_path", err)
		}
	}
	path, err := m.Install(browser, extensionID)
	if err != nil {
		return common.RuntimeErr("manifest", "install", err)
	}
	fmt.Fprintf(ctx.App.Writer, "installed %s manifest for %s at %s\n", nativehost.HostName, browser, path)
	return nil
}

func uninstallManifest(ctx *cli.Context) error {
	m, browser, err := manifestInstaller()
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	path, err := m.Uninstall(browser)
	if err != nil {
		return common.RuntimeErr("manifest", "uninstall", err)
	}
	fmt.Fprintf(ctx.App.Writer, "removed %s manifest for %s at %s\n", nativehost.HostName, browser, path)
	return nil
}
