package game

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// 游戏阶段的推进全部由房主侧驱动：
// 1. 大厅阶段（Lobby）：玩家入座，满员后自动发牌
// 2. 亮牌阶段（RoleReveal）：玩家查看底牌，房主确认后入夜
// 3. 夜晚阶段（Night）：狼人 → 预言家 → 女巫依次行动，随后结算；
//    非毒杀死亡的猎人会插入一个开枪步骤
// 4. 天亮过渡（DayTransition）：公布夜晚结果和叙事
// 5. 白天讨论（DayDiscussion）：自由发言
// 6. 投票阶段（Voting）：放逐得票最高者，平票流局
// 7. 结束阶段（GameOver）：宣布胜利方
type StageHandler interface {
	Stage() string

	OnEnter(ctx *GameContext)
	OnHandle(ctx *GameContext, req RequestWrapper) error
	OnExit(ctx *GameContext)

	SetOnSwitch(func(nextPhase string))
}

// 大厅阶段处理器
type lobbyStageHandler struct {
	onSwitch func(string)
}

func NewLobbyStageHandler() *lobbyStageHandler {
	return &lobbyStageHandler{}
}

func (lsh *lobbyStageHandler) Stage() string {
	return PHASE_LOBBY
}

func (lsh *lobbyStageHandler) OnEnter(ctx *GameContext) {
	ctx.State.Phase = PHASE_LOBBY
	ctx.State.NightStep = STEP_NONE
	ctx.State.CurrentStory = fmt.Sprintf(
		"等待玩家加入，%d 人满员后自动开始。",
		ctx.State.Config.Seats,
	)

	ctx.BroadcastState()
}

func (lsh *lobbyStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		onLobbyJoin(ctx, jreq)

		// 满员即发牌
		if len(ctx.State.Players) >= ctx.State.Config.Seats {
			lsh.onSwitch(PHASE_ROLE_REVEAL)
		}

		return nil
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return nil
	}

	if creq := TryUnwrapChatRequest(req); creq != nil {
		return onChat(ctx, creq)
	}

	return errors.New("大厅阶段不支持该请求类型")
}

func (lsh *lobbyStageHandler) OnExit(ctx *GameContext) {
}

func (lsh *lobbyStageHandler) SetOnSwitch(onSwitch func(string)) {
	lsh.onSwitch = onSwitch
}

// 亮牌阶段处理器
type roleRevealStageHandler struct {
	onSwitch func(string)
}

func NewRoleRevealStageHandler() *roleRevealStageHandler {
	return &roleRevealStageHandler{}
}

func (rsh *roleRevealStageHandler) Stage() string {
	return PHASE_ROLE_REVEAL
}

func (rsh *roleRevealStageHandler) OnEnter(ctx *GameContext) {
	roles := AssignRoles(ctx.State.Config, len(ctx.State.Players))

	for i, p := range ctx.State.Players {
		p.Role = roles[i]
	}

	ctx.State.CurrentStory = "身份已经分发，请查看你的底牌。房主确认后天黑。"

	zap.L().Info(
		"角色分配完成",
		zap.String("room_id", ctx.RoomID),
		zap.Int("players", len(ctx.State.Players)),
	)

	ctx.BroadcastState()
}

func (rsh *roleRevealStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		onMidGameJoin(ctx, jreq)
		return nil
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return nil
	}

	if creq := TryUnwrapChatRequest(req); creq != nil {
		return onChat(ctx, creq)
	}

	if creq := TryUnwrapConfirmRequest(req); creq != nil {
		if err := CanConfirm(ctx.State, creq.Seat); err != nil {
			return err
		}

		rsh.onSwitch(PHASE_NIGHT)

		return nil
	}

	return errors.New("亮牌阶段不支持该请求类型")
}

func (rsh *roleRevealStageHandler) OnExit(ctx *GameContext) {
}

func (rsh *roleRevealStageHandler) SetOnSwitch(onSwitch func(string)) {
	rsh.onSwitch = onSwitch
}

// 夜晚阶段处理器，内部依次推进狼人、预言家、女巫子步骤
type nightStageHandler struct {
	onSwitch func(string)
}

func NewNightStageHandler() *nightStageHandler {
	return &nightStageHandler{}
}

func (nsh *nightStageHandler) Stage() string {
	return PHASE_NIGHT
}

func (nsh *nightStageHandler) OnEnter(ctx *GameContext) {
	// 放逐触发的猎人补枪在夜晚阶段执行，但不开启新的一夜
	if ctx.State.PendingHunterID != nil && ctx.State.HunterOrigin == HUNTER_FROM_VOTE {
		ctx.State.NightStep = STEP_HUNTER
		ctx.State.CurrentStory = "猎人倒下了，他举起了猎枪……"
		ctx.StartCountdown(COUNTDOWN_SECONDS)
		ctx.BroadcastState()
		return
	}

	nsh.beginNight(ctx)
}

// beginNight 开启新的一夜：回合数自增，清空上一轮的行动目标
func (nsh *nightStageHandler) beginNight(ctx *GameContext) {
	st := ctx.State

	st.Round++
	st.WolvesTargetID = nil
	st.SeerCheckedID = nil
	st.SeerCheckedWolf = false
	st.WitchSaved = false
	st.WitchPoisonID = nil
	st.HunterTargetID = nil
	st.PendingHunterID = nil
	st.HunterOrigin = ""
	st.LastNightDeadIDs = make([]int, 0)
	st.Votes = make(map[int]int)

	st.NightStep = STEP_WEREWOLF
	st.CurrentStory = fmt.Sprintf("第 %d 夜，天黑请闭眼。狼人请睁眼，选择你们的猎物。", st.Round)

	ctx.StartCountdown(COUNTDOWN_SECONDS)
	ctx.BroadcastState()
}

func (nsh *nightStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		onMidGameJoin(ctx, jreq)
		return nil
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return nil
	}

	if sreq := TryUnwrapStoryReadyRequest(req); sreq != nil {
		ctx.ApplyStoryReady(sreq)
		return nil
	}

	if creq := TryUnwrapChatRequest(req); creq != nil {
		return onChat(ctx, creq)
	}

	if treq := TryUnwrapTickRequest(req); treq != nil {
		// 倒计时到点等价于房主确认，沿用最后记录的目标
		if ctx.ApplyTick(treq) {
			nsh.advanceStep(ctx)
		}

		return nil
	}

	if creq := TryUnwrapConfirmRequest(req); creq != nil {
		if err := CanConfirm(ctx.State, creq.Seat); err != nil {
			return err
		}

		nsh.advanceStep(ctx)

		return nil
	}

	if kreq := TryUnwrapWolfKillRequest(req); kreq != nil {
		if err := CanWolfKill(ctx.State, kreq.Seat, kreq.TargetSeat); err != nil {
			return err
		}

		// 多个狼人可以反复改选，以最后一次为准
		target := kreq.TargetSeat
		ctx.State.WolvesTargetID = &target
		ctx.BroadcastState()

		return nil
	}

	if sreq := TryUnwrapSeerCheckRequest(req); sreq != nil {
		if err := CanSeerCheck(ctx.State, sreq.Seat, sreq.TargetSeat); err != nil {
			return err
		}

		target := sreq.TargetSeat
		ctx.State.SeerCheckedID = &target
		ctx.State.SeerCheckedWolf = ctx.State.PlayerBySeat(target).Role == ROLE_WEREWOLF
		ctx.BroadcastState()

		return nil
	}

	if wreq := TryUnwrapWitchSaveRequest(req); wreq != nil {
		if err := CanWitchSave(ctx.State, wreq.Seat); err != nil {
			return err
		}

		ctx.State.WitchSaved = true
		ctx.State.WitchSaveUsed = true
		ctx.BroadcastState()

		return nil
	}

	if wreq := TryUnwrapWitchPoisonRequest(req); wreq != nil {
		if err := CanWitchPoison(ctx.State, wreq.Seat, wreq.TargetSeat); err != nil {
			return err
		}

		target := wreq.TargetSeat
		ctx.State.WitchPoisonID = &target
		ctx.State.WitchPoisonUsed = true
		ctx.BroadcastState()

		return nil
	}

	if hreq := TryUnwrapHunterShootRequest(req); hreq != nil {
		if err := CanHunterShoot(ctx.State, hreq.Seat, hreq.TargetSeat); err != nil {
			return err
		}

		target := hreq.TargetSeat
		victim := ctx.State.PlayerBySeat(target)
		ctx.State.HunterTargetID = &target

		ApplyDeaths(ctx.State, []int{target})

		// 夜晚的补枪死者并入当夜死亡名单
		if ctx.State.HunterOrigin == HUNTER_FROM_NIGHT {
			ctx.State.LastNightDeadIDs = append(ctx.State.LastNightDeadIDs, target)
		}

		ctx.State.CurrentStory = fmt.Sprintf("猎人扣动扳机，%s 应声倒地。", victim.Name)

		nsh.finishHunter(ctx)

		return nil
	}

	return errors.New("夜晚阶段不支持该请求类型")
}

// advanceStep 确认当前子步骤并推进到下一个
// 没有对应角色的步骤直接跳过，女巫之后立即结算当夜
func (nsh *nightStageHandler) advanceStep(ctx *GameContext) {
	st := ctx.State
	cfg := st.Config

	switch st.NightStep {
	case STEP_WEREWOLF:
		switch {
		case cfg.Count(ROLE_SEER) > 0:
			nsh.enterStep(ctx, STEP_SEER, "狼人请闭眼。预言家请睁眼，选择你要查验的人。")
		case cfg.Count(ROLE_WITCH) > 0:
			nsh.enterStep(ctx, STEP_WITCH, "狼人请闭眼。女巫请睁眼，你有一瓶解药和一瓶毒药。")
		default:
			nsh.resolveNight(ctx)
		}

	case STEP_SEER:
		if cfg.Count(ROLE_WITCH) > 0 {
			nsh.enterStep(ctx, STEP_WITCH, "预言家请闭眼。女巫请睁眼，你有一瓶解药和一瓶毒药。")
		} else {
			nsh.resolveNight(ctx)
		}

	case STEP_WITCH:
		nsh.resolveNight(ctx)

	case STEP_HUNTER:
		// 倒计时耗尽视为弃枪，不产生新的死亡
		nsh.finishHunter(ctx)

	default:
		zap.L().Warn(
			"夜晚推进时处于意外的子步骤",
			zap.String("room_id", ctx.RoomID),
			zap.String("night_step", st.NightStep),
		)
	}
}

func (nsh *nightStageHandler) enterStep(ctx *GameContext, step, story string) {
	ctx.State.NightStep = step
	ctx.State.CurrentStory = story
	ctx.StartCountdown(COUNTDOWN_SECONDS)
	ctx.BroadcastState()
}

// resolveNight 同步结算当夜死亡，随后异步请求叙事
func (nsh *nightStageHandler) resolveNight(ctx *GameContext) {
	st := ctx.State

	ctx.StopCountdown()

	result := ResolveNight(st)

	ApplyDeaths(st, result.DeadSeats)
	st.LastNightDeadIDs = append(st.LastNightDeadIDs, result.DeadSeats...)
	st.NightStep = STEP_NONE

	zap.L().Info(
		"夜晚结算完成",
		zap.String("room_id", ctx.RoomID),
		zap.Int("round", st.Round),
		zap.Ints("dead_seats", result.DeadSeats),
	)

	ctx.FetchNightStory()

	if result.HunterSeat >= 0 {
		seat := result.HunterSeat
		st.PendingHunterID = &seat
		st.HunterOrigin = HUNTER_FROM_NIGHT
		st.NightStep = STEP_HUNTER
		st.CurrentStory = "猎人倒下了，他举起了猎枪……"

		ctx.StartCountdown(COUNTDOWN_SECONDS)
		ctx.BroadcastState()

		return
	}

	nsh.onSwitch(PHASE_DAY_TRANSITION)
}

// finishHunter 收尾猎人步骤：夜晚来源的进入天亮过渡，
// 放逐来源的先判定胜负，未分出胜负则直接开启下一夜
func (nsh *nightStageHandler) finishHunter(ctx *GameContext) {
	st := ctx.State

	ctx.StopCountdown()

	origin := st.HunterOrigin
	st.PendingHunterID = nil
	st.HunterOrigin = ""
	st.NightStep = STEP_NONE

	if origin != HUNTER_FROM_VOTE {
		nsh.onSwitch(PHASE_DAY_TRANSITION)
		return
	}

	winner := EvaluateVictory(st)
	if winner != WINNER_NONE {
		st.Winner = winner
		nsh.onSwitch(PHASE_GAME_OVER)
		return
	}

	nsh.beginNight(ctx)
}

func (nsh *nightStageHandler) OnExit(ctx *GameContext) {
	ctx.StopCountdown()
}

func (nsh *nightStageHandler) SetOnSwitch(onSwitch func(string)) {
	nsh.onSwitch = onSwitch
}

// 天亮过渡阶段处理器
type dayTransitionStageHandler struct {
	onSwitch func(string)
}

func NewDayTransitionStageHandler() *dayTransitionStageHandler {
	return &dayTransitionStageHandler{}
}

func (dsh *dayTransitionStageHandler) Stage() string {
	return PHASE_DAY_TRANSITION
}

func (dsh *dayTransitionStageHandler) OnEnter(ctx *GameContext) {
	// 夜晚叙事可能仍在生成中，生成完成后会覆盖这里的占位文案
	if !ctx.State.StoryLoading {
		ctx.State.CurrentStory = "天亮了，请大家睁眼。"
	}

	ctx.BroadcastState()
}

func (dsh *dayTransitionStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		onMidGameJoin(ctx, jreq)
		return nil
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return nil
	}

	if sreq := TryUnwrapStoryReadyRequest(req); sreq != nil {
		ctx.ApplyStoryReady(sreq)
		return nil
	}

	if creq := TryUnwrapChatRequest(req); creq != nil {
		return onChat(ctx, creq)
	}

	if treq := TryUnwrapTickRequest(req); treq != nil {
		ctx.ApplyTick(treq)
		return nil
	}

	if creq := TryUnwrapConfirmRequest(req); creq != nil {
		if err := CanConfirm(ctx.State, creq.Seat); err != nil {
			return err
		}

		dsh.onSwitch(PHASE_DAY_DISCUSSION)

		return nil
	}

	return errors.New("天亮过渡阶段不支持该请求类型")
}

func (dsh *dayTransitionStageHandler) OnExit(ctx *GameContext) {
}

func (dsh *dayTransitionStageHandler) SetOnSwitch(onSwitch func(string)) {
	dsh.onSwitch = onSwitch
}

// 白天讨论阶段处理器
type dayDiscussionStageHandler struct {
	onSwitch func(string)
}

func NewDayDiscussionStageHandler() *dayDiscussionStageHandler {
	return &dayDiscussionStageHandler{}
}

func (dsh *dayDiscussionStageHandler) Stage() string {
	return PHASE_DAY_DISCUSSION
}

func (dsh *dayDiscussionStageHandler) OnEnter(ctx *GameContext) {
	ctx.State.CurrentStory = "进入讨论环节。"
	ctx.FetchDiscussionPrompt()
	ctx.BroadcastState()
}

func (dsh *dayDiscussionStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		onMidGameJoin(ctx, jreq)
		return nil
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return nil
	}

	if sreq := TryUnwrapStoryReadyRequest(req); sreq != nil {
		ctx.ApplyStoryReady(sreq)
		return nil
	}

	if creq := TryUnwrapChatRequest(req); creq != nil {
		return onChat(ctx, creq)
	}

	if creq := TryUnwrapConfirmRequest(req); creq != nil {
		if err := CanConfirm(ctx.State, creq.Seat); err != nil {
			return err
		}

		dsh.onSwitch(PHASE_VOTING)

		return nil
	}

	return errors.New("讨论阶段不支持该请求类型")
}

func (dsh *dayDiscussionStageHandler) OnExit(ctx *GameContext) {
}

func (dsh *dayDiscussionStageHandler) SetOnSwitch(onSwitch func(string)) {
	dsh.onSwitch = onSwitch
}

// 投票阶段处理器
type voteStageHandler struct {
	onSwitch func(string)

	// 结算完成后等一小段时间再切换，让所有人看清结果
	resolved  bool
	nextPhase string
}

func NewVoteStageHandler() *voteStageHandler {
	return &voteStageHandler{}
}

func (vsh *voteStageHandler) Stage() string {
	return PHASE_VOTING
}

func (vsh *voteStageHandler) OnEnter(ctx *GameContext) {
	ctx.State.Votes = make(map[int]int)
	ctx.State.CurrentStory = "请投出你认为是狼人的玩家。"

	ctx.BroadcastState()
}

func (vsh *voteStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		onMidGameJoin(ctx, jreq)
		return nil
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return nil
	}

	if sreq := TryUnwrapStoryReadyRequest(req); sreq != nil {
		ctx.ApplyStoryReady(sreq)
		return nil
	}

	if creq := TryUnwrapChatRequest(req); creq != nil {
		return onChat(ctx, creq)
	}

	if treq := TryUnwrapTickRequest(req); treq != nil {
		if ctx.ApplyTick(treq) && vsh.resolved {
			vsh.onSwitch(vsh.nextPhase)
		}

		return nil
	}

	if vreq := TryUnwrapVoteRequest(req); vreq != nil {
		if vsh.resolved {
			return errors.New("本轮投票已经结算")
		}

		if err := CanVote(ctx.State, vreq.VoterSeat, vreq.TargetSeat); err != nil {
			return err
		}

		// 同一人再次投票覆盖之前的选择
		ctx.State.Votes[vreq.VoterSeat] = vreq.TargetSeat
		ctx.BroadcastState()

		// 存活玩家全部投完即刻结算
		if len(ctx.State.Votes) >= ctx.State.CountAlive() {
			vsh.resolveVotes(ctx)
		}

		return nil
	}

	if creq := TryUnwrapConfirmRequest(req); creq != nil {
		if err := CanConfirm(ctx.State, creq.Seat); err != nil {
			return err
		}

		if vsh.resolved {
			// 房主可以跳过结果展示的停顿
			ctx.StopCountdown()
			vsh.onSwitch(vsh.nextPhase)
			return nil
		}

		vsh.resolveVotes(ctx)

		return nil
	}

	return errors.New("投票阶段不支持该请求类型")
}

func (vsh *voteStageHandler) resolveVotes(ctx *GameContext) {
	st := ctx.State

	exiledSeat, ok := TallyVotes(st.Votes)
	if !ok {
		story := "投票出现平局，今天没有人被放逐。"
		st.CurrentStory = story
		st.StoryLog = append(st.StoryLog, story)

		zap.L().Info(
			"投票流局",
			zap.String("room_id", ctx.RoomID),
			zap.Int("round", st.Round),
		)

		vsh.scheduleNext(ctx, PHASE_NIGHT)

		return
	}

	exiled := st.PlayerBySeat(exiledSeat)
	if exiled == nil || !exiled.IsAlive {
		zap.L().Warn(
			"放逐目标无效，按流局处理",
			zap.String("room_id", ctx.RoomID),
			zap.Int("seat", exiledSeat),
		)

		vsh.scheduleNext(ctx, PHASE_NIGHT)

		return
	}

	exiled.IsAlive = false
	exiled.CanSpeakDead = true

	story := fmt.Sprintf("%s 被村民放逐了。", exiled.Name)
	st.CurrentStory = story
	st.StoryLog = append(st.StoryLog, story)

	zap.L().Info(
		"放逐结算完成",
		zap.String("room_id", ctx.RoomID),
		zap.Int("exiled_seat", exiledSeat),
	)

	// 被放逐的猎人立即获得补枪机会，胜负判定等补枪结束后再做
	if exiled.Role == ROLE_HUNTER {
		st.PendingHunterID = &exiledSeat
		st.HunterOrigin = HUNTER_FROM_VOTE

		ctx.BroadcastState()
		vsh.onSwitch(PHASE_NIGHT)

		return
	}

	winner := EvaluateVictory(st)
	if winner != WINNER_NONE {
		st.Winner = winner
		vsh.scheduleNext(ctx, PHASE_GAME_OVER)

		return
	}

	vsh.scheduleNext(ctx, PHASE_NIGHT)
}

func (vsh *voteStageHandler) scheduleNext(ctx *GameContext, next string) {
	vsh.resolved = true
	vsh.nextPhase = next

	ctx.StartCountdown(RESULT_DELAY_SECONDS)
	ctx.BroadcastState()
}

func (vsh *voteStageHandler) OnExit(ctx *GameContext) {
	ctx.StopCountdown()
}

func (vsh *voteStageHandler) SetOnSwitch(onSwitch func(string)) {
	vsh.onSwitch = onSwitch
}

// 结束阶段处理器
type gameOverStageHandler struct {
	onSwitch func(string)
}

func NewGameOverStageHandler() *gameOverStageHandler {
	return &gameOverStageHandler{}
}

func (gsh *gameOverStageHandler) Stage() string {
	return PHASE_GAME_OVER
}

func (gsh *gameOverStageHandler) OnEnter(ctx *GameContext) {
	ctx.StopCountdown()

	st := ctx.State
	st.NightStep = STEP_NONE

	var story string
	if st.Winner == WINNER_WEREWOLF {
		story = "游戏结束，狼人屠城，狼人阵营获胜！"
	} else {
		story = "游戏结束，所有狼人被清除，好人阵营获胜！"
	}

	st.CurrentStory = story
	st.StoryLog = append(st.StoryLog, story)

	zap.L().Info(
		"游戏结束",
		zap.String("room_id", ctx.RoomID),
		zap.String("winner", st.Winner),
	)

	ctx.BroadcastState()
}

func (gsh *gameOverStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		onMidGameJoin(ctx, jreq)
		return nil
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return nil
	}

	if sreq := TryUnwrapStoryReadyRequest(req); sreq != nil {
		ctx.ApplyStoryReady(sreq)
		return nil
	}

	if creq := TryUnwrapChatRequest(req); creq != nil {
		return onChat(ctx, creq)
	}

	return errors.New("游戏已结束")
}

func (gsh *gameOverStageHandler) OnExit(ctx *GameContext) {
	// 强制停留在结束阶段，防止出现异常状态
	ctx.State.Phase = PHASE_GAME_OVER
}

func (gsh *gameOverStageHandler) SetOnSwitch(onSwitch func(string)) {
	gsh.onSwitch = onSwitch
}

// onLobbyJoin 处理大厅阶段的入座：重名视为断线重连，
// 否则分配一个新的座位号，首位入座者成为房主
func onLobbyJoin(ctx *GameContext, req *JoinGameRequest) {
	if existing := ctx.State.PlayerByName(req.JoinerName); existing != nil {
		reconnectPlayer(ctx, existing, req.RespCh)
		return
	}

	if len(ctx.State.Players) >= ctx.State.Config.Seats {
		sendToCh(req.RespCh, WrapErrResponse("房间已满"))
		return
	}

	player := &Player{
		Seat:    ctx.NextSeat,
		Name:    req.JoinerName,
		Role:    ROLE_UNSET,
		IsAlive: true,
		IsHost:  len(ctx.State.Players) == 0,
		RespCh:  req.RespCh,
	}

	ctx.NextSeat++
	ctx.State.Players = append(ctx.State.Players, player)

	zap.L().Info(
		"玩家入座",
		zap.String("room_id", ctx.RoomID),
		zap.Int("seat", player.Seat),
		zap.String("name", player.Name),
		zap.Bool("is_host", player.IsHost),
	)

	sendWelcome(ctx, player)
	ctx.BroadcastState()
}

// onMidGameJoin 在大厅之外的阶段只接受按名字重连
func onMidGameJoin(ctx *GameContext, req *JoinGameRequest) {
	existing := ctx.State.PlayerByName(req.JoinerName)
	if existing == nil {
		sendToCh(req.RespCh, WrapErrResponse("游戏已经开始，无法加入"))
		return
	}

	reconnectPlayer(ctx, existing, req.RespCh)
}

func reconnectPlayer(ctx *GameContext, player *Player, respCh chan ResponseWrapper) {
	// 关闭旧连接的响应通道，让旧的写协程退出
	if player.RespCh != nil {
		close(player.RespCh)
	}

	player.RespCh = respCh

	zap.L().Info(
		"玩家断线重连",
		zap.String("room_id", ctx.RoomID),
		zap.Int("seat", player.Seat),
		zap.String("name", player.Name),
	)

	sendWelcome(ctx, player)
	ctx.BroadcastState()
}

func sendWelcome(ctx *GameContext, player *Player) {
	resp := WrapResponse(
		RESP_WELCOME,
		WelcomeResponse{
			RoomID: ctx.RoomID,
			Seat:   player.Seat,
			State:  ctx.State.Snapshot(),
		},
	)

	ctx.UnicastResp(player.Seat, resp)
}

func onPlayerExit(ctx *GameContext, req *ExitGameRequest) {
	player := ctx.State.PlayerBySeat(req.Seat)
	if player == nil {
		zap.L().Warn(
			"退出请求指向不存在的座位",
			zap.String("room_id", ctx.RoomID),
			zap.Int("seat", req.Seat),
		)
		return
	}

	// 通道不匹配说明该连接已被重连顶替，旧通道在顶替时已经关闭，
	// 再向它发送会 panic，直接忽略这次退出
	if player.RespCh != req.RespCh {
		zap.L().Debug(
			"忽略被顶替连接的退出请求",
			zap.String("room_id", ctx.RoomID),
			zap.Int("seat", req.Seat),
		)
		return
	}

	exitResp := WrapResponse(
		RESP_EXIT_GAME,
		ExitGameResponse{
			LeftSeat: player.Seat,
			LeftName: player.Name,
		},
	)

	sendToCh(player.RespCh, exitResp)
	close(player.RespCh)
	player.RespCh = nil

	// 大厅阶段直接释放座位；开局之后座位保留，等待重连
	if ctx.State.Phase == PHASE_LOBBY {
		removeSeat(ctx, player.Seat)
	}

	zap.L().Info(
		"玩家离开",
		zap.String("room_id", ctx.RoomID),
		zap.Int("seat", player.Seat),
		zap.String("name", player.Name),
	)

	ctx.BroadcastState()
}

func removeSeat(ctx *GameContext, seat int) {
	players := ctx.State.Players
	wasHost := false

	for i, p := range players {
		if p.Seat == seat {
			wasHost = p.IsHost
			ctx.State.Players = append(players[:i], players[i+1:]...)
			break
		}
	}

	// 房主离开时由座位号最小的玩家接任
	if wasHost && len(ctx.State.Players) > 0 {
		next := ctx.State.Players[0]
		for _, p := range ctx.State.Players {
			if p.Seat < next.Seat {
				next = p
			}
		}

		next.IsHost = true
	}
}

func onChat(ctx *GameContext, req *ChatRequest) error {
	if err := CanChat(ctx.State, req.Seat, req.Channel); err != nil {
		return err
	}

	player := ctx.State.PlayerBySeat(req.Seat)

	name := player.Name
	if !player.IsAlive {
		// 遗言资格一次性消费
		name = player.Name + "（遗言）"
		player.CanSpeakDead = false
	}

	msg := ChatMessage{
		ID:      GenID(),
		Seat:    player.Seat,
		Name:    name,
		Text:    req.Text,
		Channel: req.Channel,
		SentAt:  time.Now().Unix(),
	}

	if req.Channel == CHANNEL_WEREWOLF {
		ctx.State.WerewolfChat = append(ctx.State.WerewolfChat, msg)
	} else {
		ctx.State.GeneralChat = append(ctx.State.GeneralChat, msg)
	}

	ctx.BroadcastState()

	return nil
}

func sendToCh(ch chan ResponseWrapper, resp ResponseWrapper) {
	if ch == nil {
		return
	}

	select {
	case ch <- resp:
	default:
		zap.L().Warn("发送响应失败：通道已满或关闭")
	}
}
