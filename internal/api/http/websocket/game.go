package websocket

import (
	"encoding/json"
	"time"

	"github.com/dmety/Werewolf-Kill/internal/service/game"
	"github.com/dmety/Werewolf-Kill/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// JoinGame 把一条 WebSocket 连接接入房间状态机
// 首帧必须是 JoinGame 请求；之后读协程把客户端消息投进状态机，
// 写协程把状态机的广播写回连接
func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		// 缓冲响应通道，避免状态机广播被单个慢客户端拖住
		respCh := make(chan game.ResponseWrapper, 64)

		clientIP := ctx.RemoteAddr()

		// 读取首帧，必须是 JoinGame
		_, msg, err := conn.ReadMessage()
		if err != nil {
			zap.L().Error(
				"读取首帧失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		var wrapper game.RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil {
			zap.L().Error(
				"解析首帧失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		if wrapper.ReqType != game.REQ_JOIN_GAME {
			zap.L().Error(
				"首帧不是JoinGame类型",
				zap.String("client_ip", clientIP),
				zap.String("request_type", wrapper.ReqType),
			)
			return
		}

		var joinReq game.JoinGameRequest

		if err := json.Unmarshal(wrapper.Data, &joinReq); err != nil {
			zap.L().Error(
				"解析JoinGame载荷失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		// 投递入座请求，拿到状态机的请求通道
		reqCh, err := appState.RoomSvc.JoinRoom(&joinReq, respCh)
		if err != nil {
			zap.L().Error(
				"加入房间失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)

			conn.WriteJSON(game.WrapErrResponse(err.Error()))

			return
		}

		// 等待 Welcome 响应确定自己的座位号
		seat := -1

		select {
		case welcomeResp, ok := <-respCh:
			if !ok {
				zap.L().Error("响应通道在握手期间被关闭", zap.String("client_ip", clientIP))
				return
			}

			if welcomeResp.RespType == game.RESP_WELCOME {
				if respData, ok := welcomeResp.Data.(game.WelcomeResponse); ok {
					seat = respData.Seat
				}
			}

			// 无论是 Welcome 还是错误响应都原样转发给客户端
			if err := conn.WriteJSON(welcomeResp); err != nil {
				zap.L().Error(
					"发送握手响应失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
				return
			}

		case <-time.After(3 * time.Second):
			zap.L().Error("等待加入响应超时", zap.String("client_ip", clientIP))
			return
		}

		if seat < 0 {
			zap.L().Warn(
				"入座被拒绝",
				zap.String("client_ip", clientIP),
				zap.String("joiner_name", joinReq.JoinerName),
			)
			return
		}

		zap.L().Info(
			"玩家成功加入房间",
			zap.String("client_ip", clientIP),
			zap.String("room_id", joinReq.RoomID),
			zap.Int("seat", seat),
		)

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		// 写入协程
		go func() {
			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-writeDoneCh:
					return

				case <-ticker.C:
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

				case resp, ok := <-respCh:
					// 通道被状态机关闭说明该座位的连接已被顶替或清理
					if !ok {
						zap.L().Info(
							"响应通道已关闭，退出写协程",
							zap.String("client_ip", clientIP),
						)
						return
					}

					if err := conn.WriteJSON(resp); err != nil {
						zap.L().Error(
							"发送消息失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}
				}
			}
		}()

		// 读取协程（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var wrapper game.RequestWrapper

			// 握手之后 respCh 归状态机所有，重连顶替时会被其关闭，
			// 读协程不能再向它写入；无效请求按静默拒绝处理
			if err := json.Unmarshal(msg, &wrapper); err != nil {
				zap.L().Error(
					"解析消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				continue
			}

			// 内部事件类型不接受客户端投递
			switch wrapper.ReqType {
			case game.REQ_JOIN_GAME, game.REQ_EXIT_GAME, game.REQ_TICK, game.REQ_STORY_READY:
				zap.L().Warn(
					"拒绝客户端投递内部请求类型",
					zap.String("client_ip", clientIP),
					zap.String("request_type", wrapper.ReqType),
				)
				continue
			}

			select {
			case reqCh <- wrapper:
			default:
				zap.L().Error(
					"发送请求到游戏状态机失败：请求通道已满",
					zap.String("client_ip", clientIP),
				)
			}
		}

		// 读循环退出表示连接断开，通知状态机清理该座位的连接
		zap.L().Info(
			"客户端连接断开，发送退出请求",
			zap.String("client_ip", clientIP),
			zap.Int("seat", seat),
		)

		exitReq := game.ExitGameRequest{
			Seat:   seat,
			RespCh: respCh,
		}

		exitWrapper := game.RequestWrapper{
			ReqType:    game.REQ_EXIT_GAME,
			NativeData: &exitReq,
		}

		select {
		case reqCh <- exitWrapper:
		default:
			zap.L().Warn(
				"发送退出请求失败：请求通道已满",
				zap.Int("seat", seat),
			)
		}

		// 等待退出确认或通道关闭，确保资源回收
		select {
		case resp, ok := <-respCh:
			if !ok || resp.RespType == game.RESP_EXIT_GAME {
				zap.L().Info(
					"玩家退出完成",
					zap.Int("seat", seat),
				)
			}
		case <-time.After(3 * time.Second):
			zap.L().Warn(
				"等待退出确认超时，强制退出",
				zap.Int("seat", seat),
			)
		}
	}
}
