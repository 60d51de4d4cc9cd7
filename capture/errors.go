package capture

import "errors"

var (
	ErrTareTimeout            = errors.New("tare timed out before completion")
	ErrTareFailed             = errors.New("firmware reported tare failure")
	ErrTareEndedWithoutResult = errors.New("tare ended without a success message")
	ErrEmptySession           = errors.New("no monitoring samples captured")
)
