package game

import (
	"sync/atomic"
	"time"

	"github.com/dmety/Werewolf-Kill/internal/service/narrator"

	"go.uber.org/zap"
)

// GameMachine 是房间的状态机，唯一可以修改 GameState 的地方
// 玩家请求、倒计时 tick 和叙事完成事件在同一个循环里逐个处理完毕，
// 任何两个事件都不会在同一份快照上竞争
type GameMachine struct {
	ctx     *GameContext
	handler StageHandler
	// 所有玩家的请求汇总到这个通道
	reqCh chan RequestWrapper
	// 结束通道，用于通知状态机退出事件循环
	doneCh chan struct{}

	finishedAt atomic.Int64
	createdAt  time.Time
}

func NewGameMachine(roomID string, cfg GameConfig, narr narrator.Narrator, doneCh chan struct{}) *GameMachine {
	ctx := &GameContext{
		RoomID:   roomID,
		State:    NewGameState(cfg),
		Narrator: narr,
		TmoCh:    make(chan RequestWrapper, 64),
	}

	gm := &GameMachine{
		ctx:       ctx,
		handler:   NewLobbyStageHandler(),
		reqCh:     make(chan RequestWrapper, 64),
		doneCh:    doneCh,
		createdAt: time.Now(),
	}

	gm.handler.SetOnSwitch(gm.makeOnSwitch())

	return gm
}

func (gm *GameMachine) makeOnSwitch() func(string) {
	return func(nextPhase string) {
		gm.ctx.State.Phase = nextPhase

		if nextPhase == PHASE_GAME_OVER {
			gm.finishedAt.Store(time.Now().Unix())
		}
	}
}

func (gm *GameMachine) GetReqCh() chan RequestWrapper {
	return gm.reqCh
}

func (gm *GameMachine) Start() {
	// 执行初始 handler 的 OnEnter
	gm.handler.OnEnter(gm.ctx)

	// 进入事件循环
	for {
		var req RequestWrapper

		select {
		case req = <-gm.reqCh:
			zap.L().Debug(
				"接收到客户端请求",
				zap.String("room_id", gm.ctx.RoomID),
				zap.String("request_type", req.ReqType),
			)
		case req = <-gm.ctx.TmoCh:
			zap.L().Debug(
				"接收到内部事件",
				zap.String("room_id", gm.ctx.RoomID),
				zap.String("request_type", req.ReqType),
			)
		case <-gm.doneCh:
			zap.L().Info(
				"收到退出信号，结束游戏状态机",
				zap.String("room_id", gm.ctx.RoomID),
			)

			gm.ctx.StopCountdown()

			return
		}

		// 处理请求；非法请求只记日志，不改状态也不回执
		err := gm.handler.OnHandle(gm.ctx, req)
		if err != nil {
			zap.L().Debug(
				"处理请求失败",
				zap.Error(err),
				zap.String("stage", gm.handler.Stage()),
				zap.String("request_type", req.ReqType),
			)
		}

		// 阶段发生变化时执行切换
		for gm.ctx.State.Phase != gm.handler.Stage() {
			gm.switchStage()
			gm.handler.OnEnter(gm.ctx)
		}
	}
}

func (gm *GameMachine) switchStage() {
	// 执行当前 handler 的 OnExit
	gm.handler.OnExit(gm.ctx)

	// 根据新阶段创建对应的 handler
	var newHandler StageHandler

	switch gm.ctx.State.Phase {
	case PHASE_LOBBY:
		newHandler = NewLobbyStageHandler()
	case PHASE_ROLE_REVEAL:
		newHandler = NewRoleRevealStageHandler()
	case PHASE_NIGHT:
		newHandler = NewNightStageHandler()
	case PHASE_DAY_TRANSITION:
		newHandler = NewDayTransitionStageHandler()
	case PHASE_DAY_DISCUSSION:
		newHandler = NewDayDiscussionStageHandler()
	case PHASE_VOTING:
		newHandler = NewVoteStageHandler()
	case PHASE_GAME_OVER:
		newHandler = NewGameOverStageHandler()
	default:
		zap.L().Error(
			"未知的游戏阶段",
			zap.String("room_id", gm.ctx.RoomID),
			zap.String("phase", gm.ctx.State.Phase),
		)

		gm.ctx.State.Phase = gm.handler.Stage()

		return
	}

	newHandler.SetOnSwitch(gm.makeOnSwitch())

	gm.handler = newHandler
}

// FinishedAt 返回游戏结束时刻，尚未结束时返回零值
// 供清理协程判断房间是否可以回收
func (gm *GameMachine) FinishedAt() time.Time {
	ts := gm.finishedAt.Load()
	if ts == 0 {
		return time.Time{}
	}

	return time.Unix(ts, 0)
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}
