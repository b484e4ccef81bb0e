package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/sechat/sechat/cmd/common"
	"github.com/sechat/sechat/pkg/chatlib"
)

func bot(ctx *cli.Context) error {
	roomID := ctx.Int64("room")
	if roomID == 0 {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no room id given"))
	}

	cctx := context.Background()
	client, err := newClient(ctx, cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "bot", "login", err)
		return nil
	}
	defer client.Shutdown()

	room, err := client.Join(cctx, roomID)
	if err != nil {
		common.PrintRuntimeErr(ctx, "bot", "join", err)
		return nil
	}
	fmt.Printf("Joined room %d as %s. Ctrl-C to leave.\n", roomID, client.Identity().DisplayName)

	room.On(chatlib.EventMessage, func(ev *chatlib.ChatEvent) {
		switch ev.Content {
		case "!help":
			_ = room.Send(cctx, "I'm a happy little chatbot :D")
		case "!ping":
			_ = room.Send(cctx, "@"+mention(ev.UserName)+" ping!")
		case "!reply":
			_ = ev.Reply(cctx, "replied!")
		}
	})
	room.On(chatlib.EventUserEntered, func(ev *chatlib.ChatEvent) {
		_ = room.Send(cctx, "@"+mention(ev.UserName)+" welcome!")
	})
	room.On(chatlib.EventUserLeft, func(ev *chatlib.ChatEvent) {
		_ = room.Send(cctx, ev.UserName+" left :'(")
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-room.Done():
		fmt.Println("Room socket closed.")
	}
	return nil
}

// mention strips spaces so the name works as an @-ping.
func mention(userName string) string {
	return strings.ReplaceAll(userName, " ", "")
}
