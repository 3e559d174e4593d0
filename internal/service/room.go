package service

import (
	"errors"
	"sync"
	"time"

	"github.com/dmety/Werewolf-Kill/internal/service/dto"
	"github.com/dmety/Werewolf-Kill/internal/service/game"
	"github.com/dmety/Werewolf-Kill/internal/service/narrator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 一个房间对应一个状态机协程；RoomService 只负责登记和回收，
// 所有游戏内请求直接进入对应状态机的请求通道
type RoomService struct {
	state *roomServiceState

	narr narrator.Narrator
}

type roomServiceState struct {
	mu sync.RWMutex

	machines   map[string]*game.GameMachine
	doneChList map[string]chan struct{}

	cleanUpDone chan struct{}
}

func NewRoomService(narr narrator.Narrator) *RoomService {
	state := &roomServiceState{
		machines:    make(map[string]*game.GameMachine),
		doneChList:  make(map[string]chan struct{}),
		cleanUpDone: make(chan struct{}),
	}

	// 定期回收已结束和过期的房间
	go startCleanupLoop(state)

	return &RoomService{
		state: state,
		narr:  narr,
	}
}

func startCleanupLoop(state *roomServiceState) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-state.cleanUpDone:
			return

		case <-ticker.C:
			state.mu.Lock()

			for roomID, machine := range state.machines {
				if !isRoomExpired(machine) {
					continue
				}

				zap.S().Infof("房间 %s 已失效，开始清理", roomID)

				close(state.doneChList[roomID])
				delete(state.doneChList, roomID)
				delete(state.machines, roomID)
			}

			state.mu.Unlock()
		}
	}
}

func (rs *RoomService) Close() {
	close(rs.state.cleanUpDone)

	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	for roomID := range rs.state.machines {
		close(rs.state.doneChList[roomID])
		delete(rs.state.doneChList, roomID)
		delete(rs.state.machines, roomID)
	}
}

// CreateRoom 校验配置并启动房间状态机
// 配置不变量（角色数量之和等于座位数、狼人大于零）在这里拦截，
// 开局之后不可能再出现非法配置
func (rs *RoomService) CreateRoom(req dto.CreateRoomRequest) (dto.CreateRoomResponse, error) {
	if req.RoomName == "" {
		return dto.CreateRoomResponse{}, errors.New("房间名称不能为空")
	}

	cfg := game.GameConfig{
		Seats:      req.Seats,
		RoleCounts: req.RoleCounts,
	}

	if err := cfg.Validate(); err != nil {
		return dto.CreateRoomResponse{}, err
	}

	roomID := uuid.New().String()[:8]
	doneCh := make(chan struct{})

	machine := game.NewGameMachine(roomID, cfg, rs.narr, doneCh)

	rs.state.mu.Lock()
	rs.state.machines[roomID] = machine
	rs.state.doneChList[roomID] = doneCh
	rs.state.mu.Unlock()

	go machine.Start()

	zap.S().Infof("房间 %s（%s）创建成功，座位数 %d", roomID, req.RoomName, cfg.Seats)

	return dto.CreateRoomResponse{
		RoomID:   roomID,
		RoomName: req.RoomName,
		Seats:    cfg.Seats,
	}, nil
}

// JoinRoom 把入座请求投递给对应房间的状态机
// 返回状态机的请求通道，供连接层后续投递该玩家的所有请求
func (rs *RoomService) JoinRoom(req *game.JoinGameRequest, respCh chan game.ResponseWrapper) (chan game.RequestWrapper, error) {
	if req.RoomID == "" {
		return nil, errors.New("房间 ID 不能为空")
	}
	if req.JoinerName == "" {
		return nil, errors.New("玩家名称不能为空")
	}

	rs.state.mu.RLock()
	machine := rs.state.machines[req.RoomID]
	rs.state.mu.RUnlock()

	if machine == nil {
		return nil, errors.New("房间不存在")
	}

	req.RespCh = respCh

	wrapper := game.RequestWrapper{
		ReqType:    game.REQ_JOIN_GAME,
		NativeData: req,
	}

	reqCh := machine.GetReqCh()

	reqTimer := time.NewTimer(5 * time.Second)
	defer reqTimer.Stop()

	select {
	case reqCh <- wrapper:
		return reqCh, nil

	case <-reqTimer.C:
		zap.S().Warnf("房间 %s 无法及时处理加入请求，%s 发送失败", req.RoomID, req.JoinerName)
		return nil, errors.New("加入房间失败")
	}
}

// RoomExists 供 HTTP 层生成加入二维码前校验房间
func (rs *RoomService) RoomExists(roomID string) bool {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	return rs.state.machines[roomID] != nil
}
