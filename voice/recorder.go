//go:generate go run go.uber.org/mock/mockgen -source=recorder.go -destination=../mocks/mock_voice.go -package=mocks

// Package voice records bounded audio clips and encodes them for transport,
// and plays back inbound clips. It is the only component that can hold the
// audio hardware handle, and it holds it for one recording at a time.
package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"polyglot-chat/contract"
	"polyglot-chat/domain/chat"
	"polyglot-chat/errors"
)

// CaptureDevice acquires the audio input hardware. Acquisition can suspend
// (permission prompt) and can fail; failure is a user-input error, never a
// crash.
type CaptureDevice interface {
	Acquire(ctx context.Context) (CaptureHandle, error)
}

// CaptureHandle streams raw audio. Close releases the hardware and must be
// called on every exit path out of a recording.
type CaptureHandle interface {
	io.ReadCloser
}

// Player renders one clip. Playbacks are independent per message and may
// run concurrently with each other and with an active recording.
type Player interface {
	Play(ctx context.Context, clip Clip) error
}

type State int

const (
	StateIdle State = iota
	StateRecording
	StateCaptured
)

type Clip struct {
	Data     []byte
	Mime     string
	Duration time.Duration
}

const readChunkSize = 4 * 1024

// Recorder drives Idle -> Recording -> Captured -> (Sending | Discarded).
// The capture goroutine reads the device concurrently with the room loop,
// so unlike the loop-owned stores this type locks.
type Recorder struct {
	log         *slog.Logger
	device      CaptureDevice
	maxBytes    int
	maxDuration time.Duration

	mu        sync.Mutex
	state     State
	handle    CaptureHandle
	buf       []byte
	startedAt time.Time
	stoppedAt time.Time
	done      chan struct{}
}

func NewRecorder(log *slog.Logger, device CaptureDevice, maxBytes int, maxDuration time.Duration) *Recorder {
	return &Recorder{
		log:         log,
		device:      device,
		maxBytes:    maxBytes,
		maxDuration: maxDuration,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// StartRecording acquires the device and begins buffering. Acquisition
// failure transitions back to Idle and returns ErrDeviceDenied for the UI
// banner; it never panics.
func (r *Recorder) StartRecording(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return errors.ErrAlreadyRecording
	}
	r.state = StateRecording
	r.buf = nil
	r.mu.Unlock()

	handle, err := r.device.Acquire(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", errors.ErrDeviceDenied, err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.handle = handle
	r.startedAt = time.Now()
	r.done = done
	r.mu.Unlock()

	go r.capture(handle, done)
	return nil
}

// capture buffers device reads until the bound is hit, the device returns
// an error, or the handle is closed underneath it by StopRecording.
func (r *Recorder) capture(handle CaptureHandle, done chan struct{}) {
	defer close(done)
	chunk := make([]byte, readChunkSize)
	for {
		n, err := handle.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.buf = append(r.buf, chunk[:n]...)
			full := len(r.buf) >= r.maxBytes || time.Since(r.startedAt) >= r.maxDuration
			r.mu.Unlock()
			if full {
				r.log.Debug("Clip bound reached, capture stops buffering")
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				r.log.Debug("Capture read ended", "error", err)
			}
			return
		}
	}
}

// StopRecording finalizes the clip. The hardware handle is released on
// every path, including when the capture goroutine already died on error.
func (r *Recorder) StopRecording() (Clip, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return Clip{}, errors.ErrNotRecording
	}
	handle := r.handle
	done := r.done
	r.handle = nil
	r.done = nil
	r.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
	if done != nil {
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stoppedAt = time.Now()
	duration := r.stoppedAt.Sub(r.startedAt)
	if duration > r.maxDuration {
		duration = r.maxDuration
	}
	r.state = StateCaptured
	return Clip{
		Data:     append([]byte(nil), r.buf...),
		Mime:     sniffMime(r.buf),
		Duration: duration,
	}, nil
}

// Discard drops the pending clip, or aborts an active recording. Either
// way the recorder ends Idle with the hardware released.
func (r *Recorder) Discard() {
	r.mu.Lock()
	handle := r.handle
	done := r.done
	r.handle = nil
	r.done = nil
	r.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
	if done != nil {
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateIdle
	r.buf = nil
}

// Send encodes the captured clip and hands it to the channel. On success
// the recorder returns to Idle; a local send failure keeps the clip so the
// user can retry once reconnected.
func (r *Recorder) Send(sender contract.Sender, room chat.RoomID) error {
	r.mu.Lock()
	if r.state != StateCaptured || len(r.buf) == 0 {
		r.mu.Unlock()
		return errors.ErrNoClip
	}
	clip := Clip{
		Data:     append([]byte(nil), r.buf...),
		Mime:     sniffMime(r.buf),
		Duration: r.stoppedAt.Sub(r.startedAt),
	}
	r.mu.Unlock()

	err := sender.Send(chat.SendVoiceMessageCommand{
		Room:    room,
		LocalID: uuid.New(),
		Payload: Encode(clip),
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateIdle
	r.buf = nil
	return nil
}

// Encode turns a clip into its transport payload.
func Encode(clip Clip) chat.VoicePayload {
	return chat.VoicePayload{
		B64:        base64.StdEncoding.EncodeToString(clip.Data),
		Mime:       clip.Mime,
		DurationMs: clip.Duration.Milliseconds(),
	}
}

// Decode rebuilds a playable clip from a transport payload.
func Decode(payload chat.VoicePayload) (Clip, error) {
	data, err := base64.StdEncoding.DecodeString(payload.B64)
	if err != nil {
		return Clip{}, err
	}
	mime := payload.Mime
	if mime == "" {
		mime = sniffMime(data)
	}
	return Clip{
		Data:     data,
		Mime:     mime,
		Duration: time.Duration(payload.DurationMs) * time.Millisecond,
	}, nil
}

func sniffMime(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(data).String()
}
