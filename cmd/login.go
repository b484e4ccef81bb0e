package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/sechat/sechat/cmd/common"
	"github.com/sechat/sechat/pkg/chatlib"
	"github.com/sechat/sechat/pkg/credstore"
)

func login(ctx *cli.Context) error {
	host := ctx.String("host")
	email := ctx.String("email")
	password := ctx.String("password")

	var err error
	if email == "" {
		email, err = prompt("Email: ")
		if err != nil {
			return common.PrintErrWithCmdHelp(ctx, err)
		}
	}
	if password == "" {
		password, err = prompt("Password: ")
		if err != nil {
			return common.PrintErrWithCmdHelp(ctx, err)
		}
	}

	cfg := chatlib.Config{
		Host:     host,
		Email:    email,
		Password: password,
		Timeout:  DEF_TIMEOUT,
		Logger:   newLogger(ctx),
	}
	client, err := chatlib.NewClient(cfg)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	defer client.Shutdown()

	if err := client.Login(context.Background()); err != nil {
		common.PrintRuntimeErr(ctx, "login", "authenticate", err)
		return nil
	}

	id := client.Identity()
	fmt.Printf("Logged in to %s as %s (user %s).\n", host, id.DisplayName, id.UserID)

	store := credstore.New(configDir())
	if err := store.Save(host, credstore.Credentials{Email: email, Password: password}); err != nil {
		common.PrintRuntimeErr(ctx, "login", "store-credentials", err)
		return nil
	}
	fmt.Println("Credentials stored.")
	return nil
}

func logout(ctx *cli.Context) error {
	host := ctx.String("host")
	if err := credstore.New(configDir()).Delete(host); err != nil {
		common.PrintRuntimeErr(ctx, "logout", "delete-credentials", err)
		return nil
	}
	fmt.Printf("Removed stored credentials for %s.\n", host)
	return nil
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
