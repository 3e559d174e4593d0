package http

import (
	"fmt"

	"github.com/dmety/Werewolf-Kill/internal/service/dto"
	"github.com/dmety/Werewolf-Kill/internal/state"

	"github.com/kataras/iris/v12"
	qrcode "github.com/skip2/go-qrcode"
)

func CreateRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.CreateRoomRequest

		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "请求参数无效",
			})
			return
		}

		resp, err := appState.RoomSvc.CreateRoom(req)
		if err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

// RoomJoinQR 生成加入链接的二维码，方便同桌玩家扫码入座
func RoomJoinQR(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		roomID := ctx.Params().Get("room_id")

		if !appState.RoomSvc.RoomExists(roomID) {
			ctx.StatusCode(iris.StatusNotFound)
			ctx.JSON(iris.Map{
				"error": "房间不存在",
			})
			return
		}

		base := appState.Cfg.PublicURL
		if base == "" {
			base = fmt.Sprintf("http://%s", ctx.Host())
		}

		joinURL := fmt.Sprintf("%s/?room=%s", base, roomID)

		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			ctx.StatusCode(iris.StatusInternalServerError)
			ctx.JSON(iris.Map{
				"error": "生成二维码失败",
			})
			return
		}

		ctx.ContentType("image/png")
		ctx.Write(png)
	}
}
