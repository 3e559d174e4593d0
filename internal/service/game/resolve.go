package game

import (
	"math/rand"
	"slices"
)

// NightResult 是夜晚结算的纯计算结果，尚未写回状态
type NightResult struct {
	DeadSeats []int
	// 需要进入 HunterAction 的猎人座位，-1 表示没有
	HunterSeat int
}

// ResolveNight 根据当前快照中积累的夜晚行动计算死亡名单
// 纯函数：不修改输入，同样的输入总是得到同样的结果
//
// 规则：
//  1. 狼人目标在女巫未救时死亡，女巫毒杀目标死亡
//  2. 同一座位被两种手段同时命中只死一次
//  3. 被毒杀的猎人不能开枪，仅狼刀死亡的猎人可以
func ResolveNight(gs *GameState) NightResult {
	dead := make([]int, 0, 2)

	if gs.WolvesTargetID != nil && !gs.WitchSaved {
		dead = append(dead, *gs.WolvesTargetID)
	}

	if gs.WitchPoisonID != nil && !slices.Contains(dead, *gs.WitchPoisonID) {
		dead = append(dead, *gs.WitchPoisonID)
	}

	result := NightResult{
		DeadSeats:  dead,
		HunterSeat: -1,
	}

	for _, seat := range dead {
		p := gs.PlayerBySeat(seat)
		if p == nil || !p.IsAlive || p.Role != ROLE_HUNTER {
			continue
		}

		if gs.WitchPoisonID != nil && *gs.WitchPoisonID == seat {
			continue
		}

		result.HunterSeat = seat
	}

	return result
}

// ApplyDeaths 将一批死亡写回状态
// 首夜死亡的玩家获得一次性的遗言资格
func ApplyDeaths(gs *GameState, deadSeats []int) {
	for _, seat := range deadSeats {
		p := gs.PlayerBySeat(seat)
		if p == nil || !p.IsAlive {
			continue
		}

		p.IsAlive = false

		if gs.Round == 1 {
			p.CanSpeakDead = true
		}
	}
}

// TallyVotes 统计本轮投票
// 唯一最高票者被放逐；平票或无人投票则没有放逐，ok 为 false
func TallyVotes(votes map[int]int) (exiledSeat int, ok bool) {
	voteCount := make(map[int]int)
	for _, target := range votes {
		voteCount[target]++
	}

	maxVotes := 0
	maxSeat := -1
	tied := false

	for target, count := range voteCount {
		switch {
		case count > maxVotes:
			maxVotes = count
			maxSeat = target
			tied = false
		case count == maxVotes:
			tied = true
		}
	}

	if maxSeat < 0 || tied {
		return -1, false
	}

	return maxSeat, true
}

// EvaluateVictory 在放逐结算后判定胜负
// 狼人全灭则好人胜；存活狼人数达到存活好人数则狼人胜（同数即刀光）
func EvaluateVictory(gs *GameState) string {
	wolves := gs.CountAliveRole(ROLE_WEREWOLF)
	others := gs.CountAlive() - wolves

	if wolves == 0 {
		return WINNER_VILLAGERS
	}

	if wolves >= others {
		return WINNER_WEREWOLF
	}

	return WINNER_NONE
}

// AssignRoles 按配置把角色多重集均匀洗牌后分配给 n 个座位
// 不会产生配置之外的角色；多重集不足时用村民补齐（正常配置下不会发生）
func AssignRoles(cfg GameConfig, n int) []string {
	roles := make([]string, 0, n)

	for _, role := range []string{ROLE_WEREWOLF, ROLE_VILLAGER, ROLE_SEER, ROLE_HUNTER, ROLE_WITCH} {
		for i := 0; i < cfg.Count(role); i++ {
			roles = append(roles, role)
		}
	}

	for len(roles) < n {
		roles = append(roles, ROLE_VILLAGER)
	}

	roles = roles[:n]

	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	return roles
}
