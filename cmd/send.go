package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli"

	"github.com/sechat/sechat/cmd/common"
)

func send(ctx *cli.Context) error {
	text := strings.Join(ctx.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no message text given"))
	}
	roomID := ctx.Int64("room")
	if roomID == 0 {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no room id given"))
	}

	cctx := context.Background()
	client, err := newClient(ctx, cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "send", "login", err)
		return nil
	}
	defer client.Shutdown()

	room, err := client.Join(cctx, roomID)
	if err != nil {
		common.PrintRuntimeErr(ctx, "send", "join", err)
		return nil
	}
	if err := room.Send(cctx, text); err != nil {
		common.PrintRuntimeErr(ctx, "send", "send", err)
	}
	return nil
}
