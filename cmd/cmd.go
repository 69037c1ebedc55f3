// Package cmd implements the cookiebridge command-line interface.
package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/cookiebridge/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// Execute runs the application with os.Args style args.
func Execute(args []string, bArgs BuildArgs) error {
	return newApp(bArgs, os.Stdout, os.Stderr).Run(args)
}

// newApp builds the application writing command output to stdout and
// diagnostics to stderr. With --native, stdout carries native messages and
// command output moves to stderr. Started by a browser, the app relays
// native messages and writes nothing else to stdout.
func newApp(bArgs BuildArgs, stdout, stderr io.Writer) *cli.App {
	app := &cli.App{
		Name:                  "cookiebridge",
		HelpName:              "cookiebridge",
		Usage:                 "Read and write browser cookies through the browser's cookies API.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "cookiebridge [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Writer:                stdout,
		ErrWriter:             stderr,
		Flags:                 globalFlags,
		Action:                defaultAction,
		Commands: []cli.Command{
			{
				Name:               "get",
				Aliases:            []string{"g"},
				Usage:              "look up a cookie by name",
				Description:        GetDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             getCookie,
				Flags:              getFlags,
			},
			{
				Name:               "set",
				Aliases:            []string{"s"},
				Usage:              "write a cookie",
				Description:        SetDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             setCookie,
				Flags:              setFlags,
			},
			{
				Name:               "import",
				Aliases:            []string{"i"},
				Usage:              "push cookies from a local browser store",
				Description:        ImportDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             importCookies,
				Flags:              importFlags,
			},
			{
				Name:               "manifest",
				Usage:              "install or remove the native messaging manifest",
				Description:        ManifestDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Subcommands: []cli.Command{
					{
						Name:         "install",
						Usage:        "write the manifest for a browser",
						OnUsageError: common.UsageErrorCallback,
						Action:       installManifest,
						Flags:        manifestFlags,
					},
					{
						Name:         "uninstall",
						Usage:        "remove the manifest of a browser",
						OnUsageError: common.UsageErrorCallback,
						Action:       uninstallManifest,
						Flags:        manifestFlags,
					},
				},
			},
			{
				Name:               "relay",
				Usage:              "relay native messages between the browser and local clients",
				Description:        RelayDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             relay,
				Flags:              relayFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of cookiebridge",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app
}
