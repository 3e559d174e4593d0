package game

import (
	"testing"

	"github.com/dmety/Werewolf-Kill/internal/service/narrator"
)

// 标准六人局：两狼、两民、一预言家、一猎人，没有女巫
func newNightContext() (*GameContext, *nightStageHandler) {
	state := &GameState{
		Phase: PHASE_NIGHT,
		Config: GameConfig{
			Seats: 6,
			RoleCounts: map[string]int{
				ROLE_WEREWOLF: 2,
				ROLE_VILLAGER: 2,
				ROLE_SEER:     1,
				ROLE_HUNTER:   1,
			},
		},
		Players: []*Player{
			{Seat: 0, Name: "小明", Role: ROLE_WEREWOLF, IsAlive: true, IsHost: true},
			{Seat: 1, Name: "小红", Role: ROLE_WEREWOLF, IsAlive: true},
			{Seat: 2, Name: "小刚", Role: ROLE_VILLAGER, IsAlive: true},
			{Seat: 3, Name: "小丽", Role: ROLE_VILLAGER, IsAlive: true},
			{Seat: 4, Name: "小强", Role: ROLE_SEER, IsAlive: true},
			{Seat: 5, Name: "小芳", Role: ROLE_HUNTER, IsAlive: true},
		},
		Votes: make(map[int]int),
	}

	ctx := &GameContext{
		RoomID:   "test-room",
		State:    state,
		Narrator: narrator.FallbackNarrator{},
		TmoCh:    make(chan RequestWrapper, 64),
	}

	nsh := NewNightStageHandler()
	nsh.SetOnSwitch(func(next string) {
		state.Phase = next
	})

	return ctx, nsh
}

func hostConfirm(t *testing.T, ctx *GameContext, nsh *nightStageHandler) {
	t.Helper()

	req := RequestWrapper{
		ReqType: REQ_CONFIRM,
		Data:    mustMarshal(ConfirmRequest{Seat: 0}),
	}

	if err := nsh.OnHandle(ctx, req); err != nil {
		t.Fatalf("host confirm should succeed, got: %v", err)
	}
}

func TestNightStageHandler_WolfKillResolvesAtDawn(t *testing.T) {
	ctx, nsh := newNightContext()

	nsh.OnEnter(ctx)
	defer ctx.StopCountdown()

	if got := ctx.State.Round; got != 1 {
		t.Fatalf("first night should be round 1, got %d", got)
	}

	if got := ctx.State.NightStep; got != STEP_WEREWOLF {
		t.Fatalf("night should open with the wolf step, got %q", got)
	}

	killReq := RequestWrapper{
		ReqType: REQ_WOLF_KILL,
		Data:    mustMarshal(WolfKillRequest{Seat: 0, TargetSeat: 3}),
	}

	if err := nsh.OnHandle(ctx, killReq); err != nil {
		t.Fatalf("wolf kill should succeed, got: %v", err)
	}

	hostConfirm(t, ctx, nsh)

	if got := ctx.State.NightStep; got != STEP_SEER {
		t.Fatalf("confirm should advance to the seer step, got %q", got)
	}

	checkReq := RequestWrapper{
		ReqType: REQ_SEER_CHECK,
		Data:    mustMarshal(SeerCheckRequest{Seat: 4, TargetSeat: 0}),
	}

	if err := nsh.OnHandle(ctx, checkReq); err != nil {
		t.Fatalf("seer check should succeed, got: %v", err)
	}

	if !ctx.State.SeerCheckedWolf {
		t.Fatalf("checking a werewolf should report wolf")
	}

	// 没有女巫，预言家确认后直接结算
	hostConfirm(t, ctx, nsh)

	if ctx.State.PlayerBySeat(3).IsAlive {
		t.Fatalf("wolf target should be dead at dawn")
	}

	if got := ctx.State.LastNightDeadIDs; len(got) != 1 || got[0] != 3 {
		t.Fatalf("dead list should be exactly the wolf target, got %v", got)
	}

	if got := ctx.State.Phase; got != PHASE_DAY_TRANSITION {
		t.Fatalf("resolution should switch to day transition, got %q", got)
	}

	if got := ctx.State.NightStep; got != STEP_NONE {
		t.Fatalf("night step should be cleared after resolution, got %q", got)
	}
}

func TestNightStageHandler_ExpiryAdvancesWithoutTarget(t *testing.T) {
	ctx, nsh := newNightContext()

	nsh.OnEnter(ctx)
	defer ctx.StopCountdown()

	epoch := ctx.State.Epoch

	// 狼人始终没有选择目标，倒计时走完后等同于房主确认
	for i := 0; i < COUNTDOWN_SECONDS; i++ {
		tick := RequestWrapper{
			ReqType:    REQ_TICK,
			NativeData: &TickRequest{Epoch: epoch},
		}

		if err := nsh.OnHandle(ctx, tick); err != nil {
			t.Fatalf("tick should be handled, got: %v", err)
		}
	}

	if ctx.State.WolvesTargetID != nil {
		t.Fatalf("expiry without a kill should leave no wolf target")
	}

	if got := ctx.State.NightStep; got != STEP_SEER {
		t.Fatalf("expiry should advance to the seer step, got %q", got)
	}

	if got := ctx.State.Countdown; got != COUNTDOWN_SECONDS {
		t.Fatalf("new step should restart the countdown, got %d", got)
	}

	// 上一步残留的 tick 代数过期，不再推进
	staleTick := RequestWrapper{
		ReqType:    REQ_TICK,
		NativeData: &TickRequest{Epoch: epoch},
	}

	if err := nsh.OnHandle(ctx, staleTick); err != nil {
		t.Fatalf("stale tick should be swallowed, got: %v", err)
	}

	if got := ctx.State.Countdown; got != COUNTDOWN_SECONDS {
		t.Fatalf("stale tick must not touch the countdown, got %d", got)
	}
}

func TestNightStageHandler_WolfKilledHunterShoots(t *testing.T) {
	ctx, nsh := newNightContext()

	nsh.OnEnter(ctx)
	defer ctx.StopCountdown()

	killReq := RequestWrapper{
		ReqType: REQ_WOLF_KILL,
		Data:    mustMarshal(WolfKillRequest{Seat: 0, TargetSeat: 5}),
	}

	if err := nsh.OnHandle(ctx, killReq); err != nil {
		t.Fatalf("wolf kill should succeed, got: %v", err)
	}

	hostConfirm(t, ctx, nsh)
	hostConfirm(t, ctx, nsh)

	if got := ctx.State.NightStep; got != STEP_HUNTER {
		t.Fatalf("wolf-killed hunter should open the hunter step, got %q", got)
	}

	if got := ctx.State.PendingHunterID; got == nil || *got != 5 {
		t.Fatalf("seat 5 should be the pending hunter, got %v", got)
	}

	if got := ctx.State.HunterOrigin; got != HUNTER_FROM_NIGHT {
		t.Fatalf("hunter origin should be the night kill, got %q", got)
	}

	shootReq := RequestWrapper{
		ReqType: REQ_HUNTER_SHOOT,
		Data:    mustMarshal(HunterShootRequest{Seat: 5, TargetSeat: 1}),
	}

	if err := nsh.OnHandle(ctx, shootReq); err != nil {
		t.Fatalf("hunter shot should succeed, got: %v", err)
	}

	if ctx.State.PlayerBySeat(1).IsAlive {
		t.Fatalf("shot target should be dead")
	}

	// 夜晚来源的补枪死者并入当夜死亡名单
	want := map[int]bool{5: true, 1: true}
	for _, seat := range ctx.State.LastNightDeadIDs {
		delete(want, seat)
	}
	if len(want) != 0 {
		t.Fatalf("dead list should carry both victims, got %v", ctx.State.LastNightDeadIDs)
	}

	if got := ctx.State.Phase; got != PHASE_DAY_TRANSITION {
		t.Fatalf("hunter shot should lead into day transition, got %q", got)
	}

	if ctx.State.PendingHunterID != nil {
		t.Fatalf("pending hunter should be cleared after the shot")
	}
}

func TestNightStageHandler_WitchSaveKeepsTargetAlive(t *testing.T) {
	ctx, nsh := newNightContext()
	ctx.State.Config.RoleCounts = map[string]int{
		ROLE_WEREWOLF: 2,
		ROLE_VILLAGER: 1,
		ROLE_SEER:     1,
		ROLE_HUNTER:   1,
		ROLE_WITCH:    1,
	}
	ctx.State.PlayerBySeat(3).Role = ROLE_WITCH

	nsh.OnEnter(ctx)
	defer ctx.StopCountdown()

	killReq := RequestWrapper{
		ReqType: REQ_WOLF_KILL,
		Data:    mustMarshal(WolfKillRequest{Seat: 0, TargetSeat: 2}),
	}

	if err := nsh.OnHandle(ctx, killReq); err != nil {
		t.Fatalf("wolf kill should succeed, got: %v", err)
	}

	hostConfirm(t, ctx, nsh) // -> 预言家
	hostConfirm(t, ctx, nsh) // -> 女巫

	if got := ctx.State.NightStep; got != STEP_WITCH {
		t.Fatalf("expected the witch step, got %q", got)
	}

	saveReq := RequestWrapper{
		ReqType: REQ_WITCH_SAVE,
		Data:    mustMarshal(WitchSaveRequest{Seat: 3}),
	}

	if err := nsh.OnHandle(ctx, saveReq); err != nil {
		t.Fatalf("witch save should succeed, got: %v", err)
	}

	hostConfirm(t, ctx, nsh)

	if !ctx.State.PlayerBySeat(2).IsAlive {
		t.Fatalf("saved target should survive the night")
	}

	if got := len(ctx.State.LastNightDeadIDs); got != 0 {
		t.Fatalf("peaceful night should have no deaths, got %v", ctx.State.LastNightDeadIDs)
	}

	if !ctx.State.WitchSaveUsed {
		t.Fatalf("save should be consumed")
	}

	if got := ctx.State.Phase; got != PHASE_DAY_TRANSITION {
		t.Fatalf("night should end in day transition, got %q", got)
	}
}

func TestNightStageHandler_VoteOriginHunterResumesNight(t *testing.T) {
	ctx, nsh := newNightContext()

	// 八人局，放逐猎人后游戏仍需继续
	st := ctx.State
	st.Config.Seats = 8
	st.Config.RoleCounts = map[string]int{
		ROLE_WEREWOLF: 2,
		ROLE_VILLAGER: 4,
		ROLE_SEER:     1,
		ROLE_HUNTER:   1,
	}
	st.Players = append(st.Players,
		&Player{Seat: 6, Name: "小陈", Role: ROLE_VILLAGER, IsAlive: true},
		&Player{Seat: 7, Name: "小吴", Role: ROLE_VILLAGER, IsAlive: true},
	)
	st.PlayerBySeat(5).Role = ROLE_VILLAGER
	st.PlayerBySeat(7).Role = ROLE_HUNTER

	// 白天放逐了猎人
	st.Round = 2
	st.PlayerBySeat(7).IsAlive = false
	hunterSeat := 7
	st.PendingHunterID = &hunterSeat
	st.HunterOrigin = HUNTER_FROM_VOTE

	nsh.OnEnter(ctx)
	defer ctx.StopCountdown()

	// 补枪阶段不开启新的一夜
	if got := st.Round; got != 2 {
		t.Fatalf("pending hunter must not start a new round, got %d", got)
	}

	if got := st.NightStep; got != STEP_HUNTER {
		t.Fatalf("expected the hunter step, got %q", got)
	}

	shootReq := RequestWrapper{
		ReqType: REQ_HUNTER_SHOOT,
		Data:    mustMarshal(HunterShootRequest{Seat: 7, TargetSeat: 2}),
	}

	if err := nsh.OnHandle(ctx, shootReq); err != nil {
		t.Fatalf("hunter shot should succeed, got: %v", err)
	}

	if st.PlayerBySeat(2).IsAlive {
		t.Fatalf("shot target should be dead")
	}

	// 胜负未分，直接进入下一夜
	if got := st.Phase; got != PHASE_NIGHT {
		t.Fatalf("game should continue into the next night, got %q", got)
	}

	if got := st.Round; got != 3 {
		t.Fatalf("next night should bump the round, got %d", got)
	}

	if got := st.NightStep; got != STEP_WEREWOLF {
		t.Fatalf("next night should open with the wolf step, got %q", got)
	}

	if st.PendingHunterID != nil {
		t.Fatalf("pending hunter should be cleared")
	}
}
