// Package dto 定义 HTTP 建房接口的请求和响应
// 游戏内的消息信封在 game 包里，不经过这里
package dto

type CreateRoomRequest struct {
	RoomName   string         `json:"room_name"`
	Seats      int            `json:"seats"`
	RoleCounts map[string]int `json:"role_counts"`
}

type CreateRoomResponse struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	Seats    int    `json:"seats"`
}
