package game

import (
	"errors"
	"fmt"
)

// 玩家角色
const (
	ROLE_UNSET    = "Unset"
	ROLE_WEREWOLF = "Werewolf"
	ROLE_VILLAGER = "Villager"
	ROLE_SEER     = "Seer"
	ROLE_HUNTER   = "Hunter"
	ROLE_WITCH    = "Witch"
)

// 游戏阶段
const (
	PHASE_SETUP          = "Setup"
	PHASE_LOBBY          = "Lobby"
	PHASE_ROLE_REVEAL    = "RoleReveal"
	PHASE_NIGHT          = "Night"
	PHASE_DAY_TRANSITION = "DayTransition"
	PHASE_DAY_DISCUSSION = "DayDiscussion"
	PHASE_VOTING         = "Voting"
	PHASE_GAME_OVER      = "GameOver"
)

// 夜晚子步骤，按严格顺序执行；没有对应角色的步骤会被跳过
// HunterAction 比较特殊：猎人非毒杀死亡时才会进入，
// 既可能出现在夜晚结算之后，也可能出现在投票放逐之后
const (
	STEP_NONE     = "None"
	STEP_WEREWOLF = "WerewolfAction"
	STEP_SEER     = "SeerAction"
	STEP_WITCH    = "WitchAction"
	STEP_HUNTER   = "HunterAction"
)

// 猎人待开枪状态的来源
const (
	HUNTER_FROM_NIGHT = "night"
	HUNTER_FROM_VOTE  = "vote"
)

// 胜利方
const (
	WINNER_NONE      = ""
	WINNER_WEREWOLF  = "Werewolves"
	WINNER_VILLAGERS = "Villagers"
)

// 聊天频道
const (
	CHANNEL_GENERAL  = "general"
	CHANNEL_WEREWOLF = "werewolf"
)

// 每个限时步骤的倒计时秒数
const COUNTDOWN_SECONDS = 20

// 结算展示后返回下一夜（或结束游戏）前的停顿秒数
const RESULT_DELAY_SECONDS = 5

type Player struct {
	Seat         int    `json:"seat"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsAlive      bool   `json:"is_alive"`
	CanSpeakDead bool   `json:"can_speak_dead"`
	IsHost       bool   `json:"is_host"`

	RespCh chan ResponseWrapper `json:"-"`
}

// GameConfig 在建房时确定，整局不可变
type GameConfig struct {
	Seats      int            `json:"seats"`
	RoleCounts map[string]int `json:"role_counts"`
}

func (gc GameConfig) Validate() error {
	if gc.Seats < 6 || gc.Seats > 10 {
		return errors.New("座位数必须在 6 到 10 之间")
	}

	sum := 0
	for role, count := range gc.RoleCounts {
		switch role {
		case ROLE_WEREWOLF, ROLE_VILLAGER, ROLE_SEER, ROLE_HUNTER, ROLE_WITCH:
		default:
			return fmt.Errorf("未知角色: %s", role)
		}

		if count < 0 {
			return fmt.Errorf("角色 %s 的数量不能为负", role)
		}

		sum += count
	}

	if sum != gc.Seats {
		return fmt.Errorf("角色数量之和 %d 与座位数 %d 不符", sum, gc.Seats)
	}

	if gc.RoleCounts[ROLE_WEREWOLF] <= 0 {
		return errors.New("狼人数量必须大于 0")
	}

	return nil
}

func (gc GameConfig) Count(role string) int {
	return gc.RoleCounts[role]
}

type ChatMessage struct {
	ID      string `json:"id"`
	Seat    int    `json:"seat"`
	Name    string `json:"name"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	SentAt  int64  `json:"sent_at"`
}

// GameState 是整局游戏的唯一事实快照
// 只有房间状态机协程能修改它，每次变更后整体广播给所有客户端
type GameState struct {
	Phase     string `json:"phase"`
	NightStep string `json:"night_step"`
	Round     int    `json:"round"`

	Config  GameConfig `json:"config"`
	Players []*Player  `json:"players"`

	// 当前回合的行动目标，夜晚开始时清空
	WolvesTargetID  *int `json:"wolves_target_id"`
	SeerCheckedID   *int `json:"seer_checked_id"`
	SeerCheckedWolf bool `json:"seer_checked_wolf"`
	WitchSaved      bool `json:"witch_saved"`
	WitchPoisonID   *int `json:"witch_poison_id"`
	HunterTargetID  *int `json:"hunter_target_id"`

	// 女巫药剂整局只能各用一次
	WitchSaveUsed   bool `json:"witch_save_used"`
	WitchPoisonUsed bool `json:"witch_poison_used"`

	// 待开枪的猎人座位及其死因来源
	PendingHunterID *int   `json:"pending_hunter_id"`
	HunterOrigin    string `json:"hunter_origin,omitempty"`

	Countdown int `json:"countdown"`
	// 倒计时代数，过期的 tick 事件据此被丢弃
	Epoch int `json:"epoch"`

	Votes map[int]int `json:"votes"`

	GeneralChat  []ChatMessage `json:"general_chat"`
	WerewolfChat []ChatMessage `json:"werewolf_chat"`

	LastNightDeadIDs []int `json:"last_night_dead_ids"`

	StoryLog     []string `json:"story_log"`
	CurrentStory string   `json:"current_story"`
	StoryLoading bool     `json:"story_loading"`

	Winner string `json:"winner"`
}

func NewGameState(cfg GameConfig) *GameState {
	return &GameState{
		Phase:            PHASE_SETUP,
		NightStep:        STEP_NONE,
		Config:           cfg,
		Players:          make([]*Player, 0, cfg.Seats),
		Votes:            make(map[int]int),
		GeneralChat:      make([]ChatMessage, 0),
		WerewolfChat:     make([]ChatMessage, 0),
		LastNightDeadIDs: make([]int, 0),
		StoryLog:         make([]string, 0),
	}
}

func (gs *GameState) PlayerBySeat(seat int) *Player {
	for _, p := range gs.Players {
		if p.Seat == seat {
			return p
		}
	}

	return nil
}

func (gs *GameState) PlayerByName(name string) *Player {
	for _, p := range gs.Players {
		if p.Name == name {
			return p
		}
	}

	return nil
}

func (gs *GameState) CountAlive() int {
	count := 0
	for _, p := range gs.Players {
		if p.IsAlive {
			count++
		}
	}

	return count
}

func (gs *GameState) CountAliveRole(role string) int {
	count := 0
	for _, p := range gs.Players {
		if p.IsAlive && p.Role == role {
			count++
		}
	}

	return count
}

func (gs *GameState) AlivePlayers() []*Player {
	alive := make([]*Player, 0, len(gs.Players))
	for _, p := range gs.Players {
		if p.IsAlive {
			alive = append(alive, p)
		}
	}

	return alive
}

// Snapshot 返回可以安全交给其他协程序列化的完整拷贝
func (gs *GameState) Snapshot() GameState {
	snap := *gs

	snap.Players = make([]*Player, 0, len(gs.Players))
	for _, p := range gs.Players {
		cp := *p
		cp.RespCh = nil
		snap.Players = append(snap.Players, &cp)
	}

	snap.Votes = make(map[int]int, len(gs.Votes))
	for voter, target := range gs.Votes {
		snap.Votes[voter] = target
	}

	snap.GeneralChat = append([]ChatMessage(nil), gs.GeneralChat...)
	snap.WerewolfChat = append([]ChatMessage(nil), gs.WerewolfChat...)
	snap.LastNightDeadIDs = append([]int(nil), gs.LastNightDeadIDs...)
	snap.StoryLog = append([]string(nil), gs.StoryLog...)

	snap.WolvesTargetID = copyIntPtr(gs.WolvesTargetID)
	snap.SeerCheckedID = copyIntPtr(gs.SeerCheckedID)
	snap.WitchPoisonID = copyIntPtr(gs.WitchPoisonID)
	snap.HunterTargetID = copyIntPtr(gs.HunterTargetID)
	snap.PendingHunterID = copyIntPtr(gs.PendingHunterID)

	return snap
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}

	v := *p
	return &v
}
