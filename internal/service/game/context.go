package game

import (
	"context"
	"time"

	"github.com/dmety/Werewolf-Kill/internal/service/narrator"

	"go.uber.org/zap"
)

// 叙事生成的最长等待时间，超时走本地兜底文案
const STORY_TIMEOUT = 15 * time.Second

type GameContext struct {
	RoomID string
	State  *GameState

	// 会话内座位号单调递增，离开的座位不会被复用
	NextSeat int

	Narrator narrator.Narrator

	// 倒计时 tick 和叙事完成事件都从这里回到事件循环，
	// 与玩家请求在同一个循环里串行处理
	TmoCh chan RequestWrapper

	countdownStop chan struct{}
}

func (gc *GameContext) GetHost() *Player {
	for _, p := range gc.State.Players {
		if p.IsHost {
			return p
		}
	}

	return nil
}

// BroadcastState 把完整快照推给所有在线玩家
// 客户端收到后整体替换本地视图，不做增量合并
func (gc *GameContext) BroadcastState() {
	snap := gc.State.Snapshot()
	resp := WrapResponse(RESP_STATE, StateUpdateResponse{State: snap})

	for _, p := range gc.State.Players {
		if p.RespCh == nil {
			continue
		}

		select {
		case p.RespCh <- resp:
		default:
			zap.L().Warn(
				"发送状态广播失败：玩家响应通道已满",
				zap.String("room_id", gc.RoomID),
				zap.Int("seat", p.Seat),
			)
		}
	}
}

func (gc *GameContext) UnicastResp(seat int, resp ResponseWrapper) {
	player := gc.State.PlayerBySeat(seat)
	if player == nil || player.RespCh == nil {
		zap.L().Warn(
			"无法找到玩家进行单播响应",
			zap.String("room_id", gc.RoomID),
			zap.Int("seat", seat),
		)
		return
	}

	select {
	case player.RespCh <- resp:
	default:
		zap.L().Warn(
			"发送单播响应失败：玩家响应通道已满",
			zap.String("room_id", gc.RoomID),
			zap.Int("seat", seat),
		)
	}
}

// StartCountdown 启动一个新的倒计时
// 每次启动都会使 Epoch 自增，旧倒计时残留的 tick 因代数不符被丢弃
func (gc *GameContext) StartCountdown(seconds int) {
	gc.StopCountdown()

	gc.State.Epoch++
	gc.State.Countdown = seconds

	stop := make(chan struct{})
	gc.countdownStop = stop

	epoch := gc.State.Epoch

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return

			case <-ticker.C:
				tick := RequestWrapper{
					ReqType:    REQ_TICK,
					NativeData: &TickRequest{Epoch: epoch},
				}

				select {
				case gc.TmoCh <- tick:
				default:
					zap.L().Warn(
						"投递倒计时事件失败：通道已满",
						zap.String("room_id", gc.RoomID),
					)
				}
			}
		}
	}()
}

func (gc *GameContext) StopCountdown() {
	if gc.countdownStop != nil {
		close(gc.countdownStop)
		gc.countdownStop = nil
	}

	gc.State.Countdown = 0
}

// ApplyTick 消费一个倒计时事件，返回是否到点
// 过期代数的 tick 不产生任何效果
func (gc *GameContext) ApplyTick(tick *TickRequest) (expired bool) {
	if tick.Epoch != gc.State.Epoch {
		zap.L().Debug(
			"丢弃过期的倒计时事件",
			zap.String("room_id", gc.RoomID),
			zap.Int("tick_epoch", tick.Epoch),
			zap.Int("state_epoch", gc.State.Epoch),
		)
		return false
	}

	if gc.State.Countdown <= 0 {
		return false
	}

	gc.State.Countdown--
	gc.BroadcastState()

	if gc.State.Countdown <= 0 {
		gc.StopCountdown()
		return true
	}

	return false
}

// FetchNightStory 异步请求夜晚叙事
// 外部调用失败或超时都退回确定性兜底文案，绝不阻塞结算
func (gc *GameContext) FetchNightStory() {
	gc.State.StoryLoading = true

	round := gc.State.Round
	dead := gc.deadNames(gc.State.LastNightDeadIDs)
	roster := gc.rosterNames()

	go func() {
		cctx, cancel := context.WithTimeout(context.Background(), STORY_TIMEOUT)
		defer cancel()

		text, err := gc.Narrator.NightStory(cctx, round, dead, roster)
		if err != nil {
			zap.L().Warn(
				"夜晚叙事生成失败，使用兜底文案",
				zap.String("room_id", gc.RoomID),
				zap.Error(err),
			)
			text = narrator.FallbackNightStory(round, dead)
		}

		gc.postStory(text)
	}()
}

// FetchDiscussionPrompt 异步请求白天讨论引导语
func (gc *GameContext) FetchDiscussionPrompt() {
	gc.State.StoryLoading = true

	alive := make([]string, 0, len(gc.State.Players))
	for _, p := range gc.State.AlivePlayers() {
		alive = append(alive, p.Name)
	}

	go func() {
		cctx, cancel := context.WithTimeout(context.Background(), STORY_TIMEOUT)
		defer cancel()

		text, err := gc.Narrator.DiscussionPrompt(cctx, alive)
		if err != nil {
			zap.L().Warn(
				"讨论引导语生成失败，使用兜底文案",
				zap.String("room_id", gc.RoomID),
				zap.Error(err),
			)
			text = narrator.FallbackDiscussionPrompt(alive)
		}

		gc.postStory(text)
	}()
}

func (gc *GameContext) postStory(text string) {
	req := RequestWrapper{
		ReqType:    REQ_STORY_READY,
		NativeData: &StoryReadyRequest{Text: text},
	}

	select {
	case gc.TmoCh <- req:
	default:
		zap.L().Warn(
			"投递叙事完成事件失败：通道已满",
			zap.String("room_id", gc.RoomID),
		)
	}
}

// ApplyStoryReady 把叙事结果写进状态并清除 loading 标记
func (gc *GameContext) ApplyStoryReady(req *StoryReadyRequest) {
	gc.State.StoryLoading = false
	gc.State.StoryLog = append(gc.State.StoryLog, req.Text)
	gc.State.CurrentStory = req.Text

	gc.BroadcastState()
}

func (gc *GameContext) deadNames(seats []int) []string {
	names := make([]string, 0, len(seats))
	for _, seat := range seats {
		if p := gc.State.PlayerBySeat(seat); p != nil {
			names = append(names, p.Name)
		}
	}

	return names
}

func (gc *GameContext) rosterNames() []string {
	names := make([]string, 0, len(gc.State.Players))
	for _, p := range gc.State.Players {
		names = append(names, p.Name)
	}

	return names
}
