package domain

import "errors"

// Ошибки переходов состояния; сервисный слой переводит их в pkg/errors
var (
	ErrRoomClosed    = errors.New("chat room is closed")
	ErrRoomNotActive = errors.New("chat room is not active")
)
