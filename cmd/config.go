package cmd

import "time"

const (
	DEF_TIMEOUT = time.Second * 30

	// Environment variables the CLI reads credentials from.
	envEmail    = "SECHAT_EMAIL"
	envPassword = "SECHAT_PASSWORD"

	defaultHost = "stackoverflow.com"
)

const DESCRIPTION = `
sechat logs in to a Stack Exchange site through its OpenID
provider, joins chat rooms over the push socket, and sends,
edits, and deletes messages from your terminal.
`

const (
	LoginDescription = `The login command performs a full login against the site
to verify your credentials, then stores them in the OS
keyring so later commands can reuse them.

Example:
        sechat login --host stackoverflow.com --email me@example.com

`
	LogoutDescription = `The logout command removes the credentials stored for a
host from the OS keyring.

Example:
        sechat logout --host stackoverflow.com

`
	SendDescription = `The send command logs in, posts one message to a room, and
exits.

Example:
        sechat send --room 11540 "hello from sechat"

`
	BotDescription = `The bot command joins a room and answers to !help, !ping
and !reply, and greets users entering or leaving the room.
It runs until interrupted.

Example:
        sechat bot --room 11540

`
	CookiesDescription = `The cookies command detects the format of a browser cookie
store and reports how many cookies it holds for a host.
Useful to check whether a browser session can seed a chat
session before passing --cookies to other commands.

Example:
        sechat cookies --host stackoverflow.com ~/.mozilla/firefox/abc.default/cookies.sqlite

`
)
