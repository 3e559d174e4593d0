package game

type JoinGameRequest struct {
	RoomID     string               `json:"room_id"`
	JoinerName string               `json:"joiner_name"`
	RespCh     chan ResponseWrapper `json:"-"`
}

type ExitGameRequest struct {
	Seat   int                  `json:"seat"`
	RespCh chan ResponseWrapper `json:"-"`
}

// Confirm 由房主发出，用于显式推进阶段或提前确认当前限时步骤
type ConfirmRequest struct {
	Seat int `json:"seat"`
}

type WolfKillRequest struct {
	Seat       int `json:"seat"`
	TargetSeat int `json:"target_seat"`
}

type SeerCheckRequest struct {
	Seat       int `json:"seat"`
	TargetSeat int `json:"target_seat"`
}

type WitchSaveRequest struct {
	Seat int `json:"seat"`
}

type WitchPoisonRequest struct {
	Seat       int `json:"seat"`
	TargetSeat int `json:"target_seat"`
}

type HunterShootRequest struct {
	Seat       int `json:"seat"`
	TargetSeat int `json:"target_seat"`
}

type VoteRequest struct {
	VoterSeat  int `json:"voter_seat"`
	TargetSeat int `json:"target_seat"`
}

type ChatRequest struct {
	Seat    int    `json:"seat"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// Tick 由倒计时协程每秒投递一次，Epoch 不匹配的直接丢弃
type TickRequest struct {
	Epoch int `json:"epoch"`
}

// StoryReady 由叙事生成协程在外部调用返回后投递
type StoryReadyRequest struct {
	Text string `json:"text"`
}

type WelcomeResponse struct {
	RoomID string    `json:"room_id"`
	Seat   int       `json:"seat"`
	State  GameState `json:"state"`
}

type StateUpdateResponse struct {
	State GameState `json:"state"`
}

type ExitGameResponse struct {
	LeftSeat int    `json:"left_seat"`
	LeftName string `json:"left_name"`
}
