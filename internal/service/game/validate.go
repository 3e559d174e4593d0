package game

import "errors"

// 校验规则见各函数；统一的策略是"拒绝不崩溃"：
// 校验失败只返回错误，由状态机记录日志后丢弃，不改状态也不回执

func inNightStep(gs *GameState, step string) bool {
	return gs.Phase == PHASE_NIGHT && gs.NightStep == step
}

func aliveActor(gs *GameState, seat int) (*Player, error) {
	p := gs.PlayerBySeat(seat)
	if p == nil {
		return nil, errors.New("座位不存在")
	}

	if !p.IsAlive {
		return nil, errors.New("死亡玩家不能行动")
	}

	return p, nil
}

func aliveTarget(gs *GameState, seat int) error {
	p := gs.PlayerBySeat(seat)
	if p == nil {
		return errors.New("目标座位不存在")
	}

	if !p.IsAlive {
		return errors.New("目标已经死亡")
	}

	return nil
}

func CanWolfKill(gs *GameState, seat, target int) error {
	if !inNightStep(gs, STEP_WEREWOLF) {
		return errors.New("当前不是狼人行动时间")
	}

	if gs.Countdown <= 0 {
		return errors.New("本步骤已超时")
	}

	p, err := aliveActor(gs, seat)
	if err != nil {
		return err
	}

	if p.Role != ROLE_WEREWOLF {
		return errors.New("只有狼人可以选择击杀目标")
	}

	return aliveTarget(gs, target)
}

func CanSeerCheck(gs *GameState, seat, target int) error {
	if !inNightStep(gs, STEP_SEER) {
		return errors.New("当前不是预言家行动时间")
	}

	if gs.Countdown <= 0 {
		return errors.New("本步骤已超时")
	}

	p, err := aliveActor(gs, seat)
	if err != nil {
		return err
	}

	if p.Role != ROLE_SEER {
		return errors.New("只有预言家可以查验")
	}

	return aliveTarget(gs, target)
}

func CanWitchSave(gs *GameState, seat int) error {
	if !inNightStep(gs, STEP_WITCH) {
		return errors.New("当前不是女巫行动时间")
	}

	if gs.Countdown <= 0 {
		return errors.New("本步骤已超时")
	}

	p, err := aliveActor(gs, seat)
	if err != nil {
		return err
	}

	if p.Role != ROLE_WITCH {
		return errors.New("只有女巫可以用药")
	}

	if gs.WitchSaveUsed {
		return errors.New("解药已经用过了")
	}

	if gs.WolvesTargetID == nil {
		return errors.New("今晚没有需要救的人")
	}

	return nil
}

func CanWitchPoison(gs *GameState, seat, target int) error {
	if !inNightStep(gs, STEP_WITCH) {
		return errors.New("当前不是女巫行动时间")
	}

	if gs.Countdown <= 0 {
		return errors.New("本步骤已超时")
	}

	p, err := aliveActor(gs, seat)
	if err != nil {
		return err
	}

	if p.Role != ROLE_WITCH {
		return errors.New("只有女巫可以用药")
	}

	if gs.WitchPoisonUsed {
		return errors.New("毒药已经用过了")
	}

	return aliveTarget(gs, target)
}

// CanHunterShoot 是存活规则的例外：猎人开枪时本人已经死亡，
// 只认 PendingHunterID 标记
func CanHunterShoot(gs *GameState, seat, target int) error {
	if !inNightStep(gs, STEP_HUNTER) {
		return errors.New("当前不是猎人行动时间")
	}

	if gs.PendingHunterID == nil || *gs.PendingHunterID != seat {
		return errors.New("你没有开枪资格")
	}

	return aliveTarget(gs, target)
}

func CanVote(gs *GameState, voter, target int) error {
	if gs.Phase != PHASE_VOTING {
		return errors.New("当前不是投票时间")
	}

	if _, err := aliveActor(gs, voter); err != nil {
		return err
	}

	return aliveTarget(gs, target)
}

// CanConfirm 只允许房主推进阶段
func CanConfirm(gs *GameState, seat int) error {
	p := gs.PlayerBySeat(seat)
	if p == nil {
		return errors.New("座位不存在")
	}

	if !p.IsHost {
		return errors.New("只有房主可以推进游戏")
	}

	return nil
}

// CanChat 允许存活玩家发言；死亡玩家凭一次性遗言资格
// 在公共频道发言一次。狼人频道只对存活狼人开放
func CanChat(gs *GameState, seat int, channel string) error {
	p := gs.PlayerBySeat(seat)
	if p == nil {
		return errors.New("座位不存在")
	}

	switch channel {
	case CHANNEL_GENERAL:
		if !p.IsAlive && !p.CanSpeakDead {
			return errors.New("死亡玩家不能发言")
		}

		return nil

	case CHANNEL_WEREWOLF:
		if !p.IsAlive {
			return errors.New("死亡玩家不能发言")
		}

		if p.Role != ROLE_WEREWOLF {
			return errors.New("只有狼人可以使用狼人频道")
		}

		return nil

	default:
		return errors.New("未知的聊天频道")
	}
}
