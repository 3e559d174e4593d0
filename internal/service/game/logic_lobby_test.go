package game

import (
	"testing"

	"github.com/dmety/Werewolf-Kill/internal/service/narrator"
)

func newLobbyContext() (*GameContext, *lobbyStageHandler) {
	state := NewGameState(GameConfig{
		Seats: 6,
		RoleCounts: map[string]int{
			ROLE_WEREWOLF: 2,
			ROLE_VILLAGER: 2,
			ROLE_SEER:     1,
			ROLE_HUNTER:   1,
		},
	})
	state.Phase = PHASE_LOBBY

	ctx := &GameContext{
		RoomID:   "test-room",
		State:    state,
		Narrator: narrator.FallbackNarrator{},
		TmoCh:    make(chan RequestWrapper, 64),
	}

	lsh := NewLobbyStageHandler()
	lsh.SetOnSwitch(func(next string) {
		state.Phase = next
	})

	return ctx, lsh
}

func joinWrapper(name string, respCh chan ResponseWrapper) RequestWrapper {
	return RequestWrapper{
		ReqType: REQ_JOIN_GAME,
		NativeData: &JoinGameRequest{
			RoomID:     "test-room",
			JoinerName: name,
			RespCh:     respCh,
		},
	}
}

func TestLobbyStageHandler_FirstJoinerBecomesHost(t *testing.T) {
	ctx, lsh := newLobbyContext()

	ch1 := make(chan ResponseWrapper, 8)
	ch2 := make(chan ResponseWrapper, 8)

	if err := lsh.OnHandle(ctx, joinWrapper("小明", ch1)); err != nil {
		t.Fatalf("first join should succeed, got: %v", err)
	}

	if err := lsh.OnHandle(ctx, joinWrapper("小红", ch2)); err != nil {
		t.Fatalf("second join should succeed, got: %v", err)
	}

	host := ctx.State.PlayerBySeat(0)
	if host == nil || !host.IsHost {
		t.Fatalf("first joiner should hold seat 0 as host")
	}

	if second := ctx.State.PlayerBySeat(1); second == nil || second.IsHost {
		t.Fatalf("second joiner should hold seat 1 without the host flag")
	}
}

func TestLobbyStageHandler_SameNameReconnectKeepsSeat(t *testing.T) {
	ctx, lsh := newLobbyContext()

	ch1 := make(chan ResponseWrapper, 8)
	ch2 := make(chan ResponseWrapper, 8)

	if err := lsh.OnHandle(ctx, joinWrapper("小明", ch1)); err != nil {
		t.Fatalf("join should succeed, got: %v", err)
	}

	if err := lsh.OnHandle(ctx, joinWrapper("小明", ch2)); err != nil {
		t.Fatalf("reconnect should succeed, got: %v", err)
	}

	if got := len(ctx.State.Players); got != 1 {
		t.Fatalf("reconnect must not add a second seat, got %d players", got)
	}

	if player := ctx.State.PlayerBySeat(0); player.RespCh != ch2 {
		t.Fatalf("reconnect should replace the response channel")
	}
}

func TestLobbyStageHandler_ExitOfReplacedConnectionDoesNotPanic(t *testing.T) {
	ctx, lsh := newLobbyContext()

	ch1 := make(chan ResponseWrapper, 8)
	ch2 := make(chan ResponseWrapper, 8)

	if err := lsh.OnHandle(ctx, joinWrapper("小明", ch1)); err != nil {
		t.Fatalf("join should succeed, got: %v", err)
	}

	// 重连会关闭 ch1；随后旧连接断开时仍会投递携带 ch1 的退出请求
	if err := lsh.OnHandle(ctx, joinWrapper("小明", ch2)); err != nil {
		t.Fatalf("reconnect should succeed, got: %v", err)
	}

	exitReq := RequestWrapper{
		ReqType: REQ_EXIT_GAME,
		NativeData: &ExitGameRequest{
			Seat:   0,
			RespCh: ch1,
		},
	}

	if err := lsh.OnHandle(ctx, exitReq); err != nil {
		t.Fatalf("stale exit should be swallowed, got: %v", err)
	}

	player := ctx.State.PlayerBySeat(0)
	if player == nil {
		t.Fatalf("stale exit must not remove the seat")
	}

	if player.RespCh != ch2 {
		t.Fatalf("stale exit must not touch the live connection")
	}
}

func TestLobbyStageHandler_ExitFreesSeatAndPromotesHost(t *testing.T) {
	ctx, lsh := newLobbyContext()

	ch1 := make(chan ResponseWrapper, 8)
	ch2 := make(chan ResponseWrapper, 8)

	if err := lsh.OnHandle(ctx, joinWrapper("小明", ch1)); err != nil {
		t.Fatalf("join should succeed, got: %v", err)
	}

	if err := lsh.OnHandle(ctx, joinWrapper("小红", ch2)); err != nil {
		t.Fatalf("join should succeed, got: %v", err)
	}

	exitReq := RequestWrapper{
		ReqType: REQ_EXIT_GAME,
		NativeData: &ExitGameRequest{
			Seat:   0,
			RespCh: ch1,
		},
	}

	if err := lsh.OnHandle(ctx, exitReq); err != nil {
		t.Fatalf("exit should succeed, got: %v", err)
	}

	if ctx.State.PlayerBySeat(0) != nil {
		t.Fatalf("lobby exit should free the seat")
	}

	promoted := ctx.State.PlayerBySeat(1)
	if promoted == nil || !promoted.IsHost {
		t.Fatalf("remaining lowest seat should inherit the host flag")
	}
}
