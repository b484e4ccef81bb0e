package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/sechat/sechat/cmd/common"
	"github.com/sechat/sechat/internal/cookies"
)

func cookiesInfo(ctx *cli.Context) error {
	path := ctx.Args().First()
	var browser string
	var err error
	if path == "" || path == "auto" {
		path, browser, err = cookies.AutoDetect()
		if err != nil {
			return common.PrintErrWithCmdHelp(ctx, errors.New("no cookie store found; pass a path"))
		}
	}

	host := ctx.String("host")
	imported, source, err := cookies.Import(afero.NewOsFs(), path, host, newLogger(ctx))
	if err != nil {
		common.PrintRuntimeErr(ctx, "cookies", "import", err)
		return nil
	}
	if browser == "" {
		browser = source.Browser
	}
	fmt.Printf("%s store: %d cookies for %s\n", browser, len(imported), host)
	for _, c := range imported {
		scope := c.Origin
		if c.Domain != "" {
			scope = "." + c.Domain
		}
		fmt.Printf("  %s  (%s%s)\n", c.Name, scope, c.Path)
	}
	return nil
}
