package cmd

import "github.com/urfave/cli"

var hostFlag = cli.StringFlag{
	Name:   "host, H",
	Usage:  "target site, e.g. stackoverflow.com",
	Value:  defaultHost,
	EnvVar: "SECHAT_HOST",
}

var emailFlag = cli.StringFlag{
	Name:   "email, e",
	Usage:  "identity provider email",
	EnvVar: envEmail,
}

var passwordFlag = cli.StringFlag{
	Name:   "password, p",
	Usage:  "identity provider password (prefer the env var or the keyring)",
	EnvVar: envPassword,
}

var roomFlag = cli.Int64Flag{
	Name:  "room, r",
	Usage: "room id to join",
}

var cookiesFlag = cli.StringFlag{
	Name:  "cookies, c",
	Usage: "browser cookie store to seed the session from ('auto' to detect)",
}

var verboseFlag = cli.BoolFlag{
	Name:  "verbose, V",
	Usage: "log transport and dispatcher activity",
}

var logFileFlag = cli.StringFlag{
	Name:   "log-file",
	Usage:  "append logs to `FILE`",
	EnvVar: "SECHAT_LOG_FILE",
}

var hostFlags = []cli.Flag{
	hostFlag,
}

var loginFlags = []cli.Flag{
	hostFlag,
	emailFlag,
	passwordFlag,
	verboseFlag,
	logFileFlag,
}

var sendFlags = []cli.Flag{
	hostFlag,
	emailFlag,
	passwordFlag,
	roomFlag,
	cookiesFlag,
	verboseFlag,
	logFileFlag,
}

var botFlags = []cli.Flag{
	hostFlag,
	emailFlag,
	passwordFlag,
	roomFlag,
	cookiesFlag,
	verboseFlag,
	logFileFlag,
}

var cookiesFlags = []cli.Flag{
	hostFlag,
	verboseFlag,
	logFileFlag,
}
