package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli"
	"github.com/warpdl/cookiebridge/cmd/common"
	"github.com/warpdl/cookiebridge/internal/cookies"
	"github.com/warpdl/cookiebridge/pkg/cookieapi"
)

var (
	cookieURL  string
	cookieName string
	storeID    string
	getFormat  string
)

var partitionFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "partition-top-level-site",
		Usage: "address the cookie partitioned under the top-level site",
	},
	cli.BoolFlag{
		Name:  "partition-cross-site",
		Usage: "address the cookie partitioned with a cross-site ancestor",
	},
}

var getFlags = append([]cli.Flag{
	cli.StringFlag{
		Name:        "url, u",
		Usage:       "url the cookie is visible to (required)",
		Destination: &cookieURL,
	},
	cli.StringFlag{
		Name:        "name, n",
		Usage:       "name of the cookie (required)",
		Destination: &cookieName,
	},
	cli.StringFlag{
		Name:        "store-id",
		Usage:       "cookie store to look in (browser default if not specified)",
		Destination: &storeID,
	},
	cli.StringFlag{
		Name:        "format, f",
		Usage:       "output format: json, netscape, header or set-cookie",
		Value:       "json",
		Destination: &getFormat,
	},
}, partitionFlags...)

// partitionKey returns the key given by the partition flags, or nil when
// neither was passed.
func partitionKey(ctx *cli.Context) *cookieapi.CookiePartitionKey {
	if !ctx.IsSet("partition-top-level-site") && !ctx.IsSet("partition-cross-site") {
		return nil
	}
	pk := &cookieapi.CookiePartitionKey{}
	if ctx.IsSet("partition-top-level-site") {
		pk.TopLevelSite = cookieapi.Bool(ctx.Bool("partition-top-level-site"))
	}
	if ctx.IsSet("partition-cross-site") {
		pk.HasCrossSiteAncestor = cookieapi.Bool(ctx.Bool("partition-cross-site"))
	}
	return pk
}

func getCookie(ctx *cli.Context) error {
	if cookieURL == "" || cookieName == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--url and --name are required"))
	}
	switch getFormat {
	case "json", "netscape", "header", "set-cookie":
	default:
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("unknown format %q", getFormat))
	}
	q := cookieapi.CookieQuery{
		Name:         cookieName,
		URL:          cookieURL,
		PartitionKey: partitionKey(ctx),
	}
	if ctx.IsSet("store-id") {
		q.StoreID = cookieapi.String(storeID)
	}

	s, err := openSession(ctx)
	if err != nil {
		return common.RuntimeErr("get", "open_host", err)
	}
	defer s.Close()

	c, err := s.Get(context.Background(), q)
	if err != nil {
		return common.RuntimeErr("get", "host_call", err)
	}
	if c == nil {
		fmt.Fprintln(s.out, "no cookie")
		return nil
	}
	return common.RuntimeErr("get", "print", printCookie(s, c, getFormat))
}

func printCookie(s *session, c *cookieapi.Cookie, format string) error {
	switch format {
	case "netscape":
		return cookies.WriteNetscape(s.out, []cookieapi.Cookie{*c})
	case "header":
		_, err := fmt.Fprintln(s.out, cookies.BuildCookieHeader([]cookieapi.Cookie{*c}))
		return err
	case "set-cookie":
		_, err := fmt.Fprintln(s.out, c.HTTPCookie().String())
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(b))
	return err
}
