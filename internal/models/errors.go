package models

import "errors"

var (
	// ErrInvalidToken - пустой или некорректный токен устройства.
	ErrInvalidToken = errors.New("device token cannot be empty")
	// ErrInvalidEnvironment - окружение отличается от Web/Mobile.
	ErrInvalidEnvironment = errors.New("environment must be 'Web' or 'Mobile'")
	// ErrReservedDataKey - ключ data-карты зарезервирован провайдером.
	ErrReservedDataKey = errors.New("reserved data key")
	// ErrEmptyTarget - цель уведомления не задана.
	ErrEmptyTarget = errors.New("notification target is empty")
)
