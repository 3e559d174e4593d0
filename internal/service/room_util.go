package service

import (
	"time"

	"github.com/dmety/Werewolf-Kill/internal/service/game"
)

// 结束后保留一段时间供玩家复盘，之后回收
const finishedRoomGrace = 10 * time.Minute

// 无论是否结束，超过这个时长的房间一律回收
const maxRoomAge = 12 * time.Hour

func isRoomExpired(machine *game.GameMachine) bool {
	if machine == nil {
		return true
	}

	if finishedAt := machine.FinishedAt(); !finishedAt.IsZero() {
		return time.Since(finishedAt) > finishedRoomGrace
	}

	return time.Since(machine.CreatedAt()) > maxRoomAge
}
