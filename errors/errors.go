package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrNotConnected     = fmt.Errorf("channel not connected")
	ErrUnknownFrame     = fmt.Errorf("unknown frame type")
	ErrEmptyMessage     = fmt.Errorf("message content is empty")
	ErrAlreadyRecording = fmt.Errorf("a recording is already in progress")
	ErrNotRecording     = fmt.Errorf("no recording in progress")
	ErrNoClip           = fmt.Errorf("no captured clip to send")
	ErrDeviceDenied     = fmt.Errorf("audio capture device unavailable")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrInvalidToken     = fmt.Errorf("invalid session token")
)
