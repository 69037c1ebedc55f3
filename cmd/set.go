package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli"
	"github.com/warpdl/cookiebridge/cmd/common"
	"github.com/warpdl/cookiebridge/pkg/cookieapi"
)

var errDeclined = errors.New("cookie was not stored")

var setFlags = append([]cli.Flag{
	cli.StringFlag{
		Name:        "url, u",
		Usage:       "url the cookie is set for (required)",
		Destination: &cookieURL,
	},
	cli.StringFlag{
		Name:        "name, n",
		Usage:       "name of the cookie",
		Destination: &cookieName,
	},
	cli.StringFlag{
		Name:  "value",
		Usage: "value of the cookie",
	},
	cli.StringFlag{
		Name:  "domain",
		Usage: "domain of the cookie (host-only if not specified)",
	},
	cli.StringFlag{
		Name:  "path",
		Usage: "path of the cookie",
	},
	cli.Uint64Flag{
		Name:  "expires",
		Usage: "expiration as seconds since the UNIX epoch (session cookie if not specified)",
	},
	cli.BoolTFlag{
		Name:  "http-only",
		Usage: "mark the cookie HttpOnly, pass --http-only=false to clear it",
	},
	cli.BoolTFlag{
		Name:  "secure",
		Usage: "mark the cookie Secure, pass --secure=false to clear it",
	},
	cli.StringFlag{
		Name:  "same-site",
		Usage: "one of no_restriction, lax, strict or unspecified",
	},
	cli.StringFlag{
		Name:        "store-id",
		Usage:       "cookie store to write to (browser default if not specified)",
		Destination: &storeID,
	},
}, partitionFlags...)

// cookieWrite builds the write from the flags. Attributes are only sent
// when their flag was given.
func cookieWrite(ctx *cli.Context) (cookieapi.CookieWrite, error) {
	w := cookieapi.CookieWrite{
		URL:          cookieURL,
		PartitionKey: partitionKey(ctx),
	}
	if ctx.IsSet("name") {
		w.Name = cookieapi.String(cookieName)
	}
	if ctx.IsSet("value") {
		w.Value = cookieapi.String(ctx.String("value"))
	}
	if ctx.IsSet("domain") {
		w.Domain = cookieapi.String(ctx.String("domain"))
	}
	if ctx.IsSet("path") {
		w.Path = cookieapi.String(ctx.String("path"))
	}
	if ctx.IsSet("expires") {
		w.ExpirationDate = cookieapi.Uint64(ctx.Uint64("expires"))
	}
	if ctx.IsSet("http-only") {
		w.HTTPOnly = cookieapi.Bool(ctx.BoolT("http-only"))
	}
	if ctx.IsSet("secure") {
		w.Secure = cookieapi.Bool(ctx.BoolT("secure"))
	}
	if ctx.IsSet("same-site") {
		ss, err := cookieapi.ParseSameSite(ctx.String("same-site"))
		if err != nil {
			return w, err
		}
		w.SameSite = cookieapi.SameSite(ss)
	}
	if ctx.IsSet("store-id") {
		w.StoreID = cookieapi.String(storeID)
	}
	return w, nil
}

func setCookie(ctx *cli.Context) error {
	if cookieURL == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--url is required"))
	}
	w, err := cookieWrite(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}

	s, err := openSession(ctx)
	if err != nil {
		return common.RuntimeErr("set", "open_host", err)
	}
	defer s.Close()

	c, err := s.Set(context.Background(), w)
	if err != nil {
		return common.RuntimeErr("set", "host_call", err)
	}
	if c == nil {
		fmt.Fprintln(s.out, "no cookie")
		return common.RuntimeErr("set", "host_call", errDeclined)
	}
	return common.RuntimeErr("set", "print", printCookie(s, c, "json"))
}
