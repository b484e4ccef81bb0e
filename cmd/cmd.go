package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/sechat/sechat/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "sechat",
		HelpName:              "sechat",
		Usage:                 "A chat client for Stack Exchange chat rooms.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "sechat <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:               "login",
				Aliases:            []string{"l"},
				Usage:              "log in and store credentials",
				Action:             login,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        LoginDescription,
				Flags:              loginFlags,
			},
			{
				Name:               "logout",
				Usage:              "remove stored credentials",
				Action:             logout,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        LogoutDescription,
				Flags:              hostFlags,
			},
			{
				Name:                   "send",
				Aliases:                []string{"s"},
				Usage:                  "send a message to a room",
				Action:                 send,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            SendDescription,
				UseShortOptionHandling: true,
				Flags:                  sendFlags,
			},
			{
				Name:                   "bot",
				Aliases:                []string{"b"},
				Usage:                  "join a room and run the demo bot",
				Action:                 bot,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            BotDescription,
				UseShortOptionHandling: true,
				Flags:                  botFlags,
			},
			{
				Name:               "cookies",
				Usage:              "inspect a browser cookie store",
				Action:             cookiesInfo,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        CookiesDescription,
				Flags:              cookiesFlags,
			},
			{
				Name:   "version",
				Usage:  "print version information",
				Action: common.GetVersion,
			},
			{
				Name:   "help",
				Usage:  "show help for a command",
				Action: common.Help,
			},
		},
	}
	common.VersionCmdStr = fmt.Sprintf(
		"%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date,
		bArgs.Commit,
	)
	return app.Run(args)
}
