package http

import (
	"fmt"

	"github.com/dmety/Werewolf-Kill/internal/api/http/websocket"
	"github.com/dmety/Werewolf-Kill/internal/state"

	"github.com/kataras/iris/v12"
)

func RunServer(appState *state.AppState) {
	app := iris.Default()

	app.HandleDir(
		"/",
		iris.Dir(appState.Cfg.StaticDir),
		iris.DirOptions{
			IndexName: "index.html",
			SPA:       true,
			Compress:  true,
		},
	)

	api := app.Party("/api/v1")

	api.Post("/rooms/create", CreateRoom(appState))
	api.Get("/rooms/{room_id}/qr", RoomJoinQR(appState))

	api.Get("/ws/join", websocket.JoinGame(appState))

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	app.Listen(addr)
}
