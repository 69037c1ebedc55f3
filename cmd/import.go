package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/cookiebridge/cmd/common"
	"github.com/warpdl/cookiebridge/internal/cookies"
)

var (
	importFrom   string
	importDomain string
	importJobs   int
)

var importFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "from",
		Usage:       `cookie store to read, or "auto" to detect the browser's (required)`,
		Destination: &importFrom,
	},
	cli.StringFlag{
		Name:        "domain, d",
		Usage:       "domain whose cookies are imported, subdomains included (required)",
		Destination: &importDomain,
	},
	cli.IntFlag{
		Name:        "jobs, j",
		Usage:       "number of cookies set concurrently",
		Value:       cookies.DefaultPushJobs,
		Destination: &importJobs,
	},
}

func importCookies(ctx *cli.Context) error {
	if importFrom == "" || importDomain == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--from and --domain are required"))
	}

	s, err := openSession(ctx)
	if err != nil {
		return common.RuntimeErr("import", "open_host", err)
	}
	defer s.Close()

	im := cookies.NewImporter(fs, s.l)
	var (
		list   []cookies.Cookie
		source *cookies.Source
	)
	if importFrom == "auto" {
		list, source, err = im.DetectBrowserCookies(importDomain)
	} else {
		list, source, err = im.ImportCookies(importFrom, importDomain)
	}
	if err != nil {
		return common.RuntimeErr("import", "read_store", err)
	}
	if len(list) == 0 {
		fmt.Fprintf(s.out, "no cookies for %s in %s\n", importDomain, source.Path)
		return nil
	}

	p := mpb.New(mpb.WithOutput(ctx.App.ErrWriter))
	bar := common.InitImportBar(p, "Importing", len(list))
	res, err := cookies.Push(context.Background(), s, list, cookies.PushOptions{
		Jobs: importJobs,
		OnResult: func(cookies.Cookie, bool) {
			bar.Increment()
		},
	})
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if err != nil {
		return common.RuntimeErr("import", "push", err)
	}

	fmt.Fprintf(s.out, "imported %d cookies from %s (%s): %d stored, %d declined\n",
		len(list), source.Path, source.Browser, res.Stored, res.Declined)
	return nil
}
