package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_JOIN_GAME    = "JoinGame"
	REQ_EXIT_GAME    = "ExitGame"
	REQ_CONFIRM      = "Confirm"
	REQ_WOLF_KILL    = "WolfKill"
	REQ_SEER_CHECK   = "SeerCheck"
	REQ_WITCH_SAVE   = "WitchSave"
	REQ_WITCH_POISON = "WitchPoison"
	REQ_HUNTER_SHOOT = "HunterShoot"
	REQ_VOTE         = "Vote"
	REQ_CHAT         = "Chat"

	// 以下请求只在服务端内部产生，不接受客户端投递
	REQ_TICK        = "Tick"
	REQ_STORY_READY = "StoryReady"
)

// RequestWrapper 是进入状态机的统一信封
// 客户端消息带 JSON 载荷；服务端内部事件直接携带 NativeData
type RequestWrapper struct {
	ReqType    string          `json:"request_type"`
	Data       json.RawMessage `json:"data"`
	NativeData any             `json:"-"`
}

func unwrapRequest[T any](wrapper RequestWrapper, reqType string) *T {
	if wrapper.ReqType != reqType {
		return nil
	}

	if native, ok := wrapper.NativeData.(*T); ok {
		return native
	}

	var req T

	err := json.Unmarshal(wrapper.Data, &req)
	if err != nil {
		zap.L().Error(
			"解析请求载荷失败",
			zap.Error(err),
			zap.String("request_type", reqType),
		)
		return nil
	}

	return &req
}

func TryUnwrapJoinGameRequest(wrapper RequestWrapper) *JoinGameRequest {
	// Join 请求携带通道，只能由服务端构造
	if wrapper.ReqType != REQ_JOIN_GAME {
		return nil
	}

	req, ok := wrapper.NativeData.(*JoinGameRequest)
	if !ok {
		return nil
	}

	return req
}

func TryUnwrapExitGameRequest(wrapper RequestWrapper) *ExitGameRequest {
	if wrapper.ReqType != REQ_EXIT_GAME {
		return nil
	}

	req, ok := wrapper.NativeData.(*ExitGameRequest)
	if !ok {
		return nil
	}

	return req
}

func TryUnwrapConfirmRequest(wrapper RequestWrapper) *ConfirmRequest {
	return unwrapRequest[ConfirmRequest](wrapper, REQ_CONFIRM)
}

func TryUnwrapWolfKillRequest(wrapper RequestWrapper) *WolfKillRequest {
	return unwrapRequest[WolfKillRequest](wrapper, REQ_WOLF_KILL)
}

func TryUnwrapSeerCheckRequest(wrapper RequestWrapper) *SeerCheckRequest {
	return unwrapRequest[SeerCheckRequest](wrapper, REQ_SEER_CHECK)
}

func TryUnwrapWitchSaveRequest(wrapper RequestWrapper) *WitchSaveRequest {
	return unwrapRequest[WitchSaveRequest](wrapper, REQ_WITCH_SAVE)
}

func TryUnwrapWitchPoisonRequest(wrapper RequestWrapper) *WitchPoisonRequest {
	return unwrapRequest[WitchPoisonRequest](wrapper, REQ_WITCH_POISON)
}

func TryUnwrapHunterShootRequest(wrapper RequestWrapper) *HunterShootRequest {
	return unwrapRequest[HunterShootRequest](wrapper, REQ_HUNTER_SHOOT)
}

func TryUnwrapVoteRequest(wrapper RequestWrapper) *VoteRequest {
	return unwrapRequest[VoteRequest](wrapper, REQ_VOTE)
}

func TryUnwrapChatRequest(wrapper RequestWrapper) *ChatRequest {
	return unwrapRequest[ChatRequest](wrapper, REQ_CHAT)
}

func TryUnwrapTickRequest(wrapper RequestWrapper) *TickRequest {
	if wrapper.ReqType != REQ_TICK {
		return nil
	}

	req, ok := wrapper.NativeData.(*TickRequest)
	if !ok {
		return nil
	}

	return req
}

func TryUnwrapStoryReadyRequest(wrapper RequestWrapper) *StoryReadyRequest {
	if wrapper.ReqType != REQ_STORY_READY {
		return nil
	}

	req, ok := wrapper.NativeData.(*StoryReadyRequest)
	if !ok {
		return nil
	}

	return req
}

// 响应类型
const (
	RESP_ERROR = "Error"

	RESP_WELCOME   = "Welcome"
	RESP_STATE     = "StateUpdate"
	RESP_EXIT_GAME = "ExitGame"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
