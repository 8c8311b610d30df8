package voice_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"polyglot-chat/domain/chat"
	"polyglot-chat/errors"
	"polyglot-chat/mocks"
	"polyglot-chat/voice"
)

// blockingHandle streams a fixed payload then blocks until closed, like a
// live microphone that keeps the line open.
type blockingHandle struct {
	data   *bytes.Reader
	closed chan struct{}
}

func newBlockingHandle(data []byte) *blockingHandle {
	return &blockingHandle{data: bytes.NewReader(data), closed: make(chan struct{})}
}

func (h *blockingHandle) Read(p []byte) (int, error) {
	n, err := h.data.Read(p)
	if err == io.EOF && n == 0 {
		<-h.closed
		return 0, io.EOF
	}
	return n, nil
}

func (h *blockingHandle) Close() error {
	select {
	case <-h.closed:
	default:
		close(h.closed)
	}
	return nil
}

func newTestRecorder(t *testing.T, handle voice.CaptureHandle) *voice.Recorder {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	device := mocks.NewMockCaptureDevice(ctrl)
	device.EXPECT().Acquire(gomock.Any()).Return(handle, nil).AnyTimes()
	return voice.NewRecorder(slog.Default(), device, 1<<20, time.Minute)
}

func Test_Record_Stop_Produces_Clip(t *testing.T) {
	req := require.New(t)
	payload := []byte("RIFFxxxxWAVEfmt ")
	recorder := newTestRecorder(t, newBlockingHandle(payload))

	req.NoError(recorder.StartRecording(context.Background()))
	req.Equal(voice.StateRecording, recorder.State())

	// Let the capture goroutine drain the device.
	time.Sleep(50 * time.Millisecond)

	clip, err := recorder.StopRecording()
	req.NoError(err)
	req.Equal(payload, clip.Data)
	req.Equal(voice.StateCaptured, recorder.State())
	req.GreaterOrEqual(clip.Duration, time.Duration(0))
}

func Test_Start_Twice_Is_Rejected(t *testing.T) {
	req := require.New(t)
	recorder := newTestRecorder(t, newBlockingHandle([]byte("audio")))

	req.NoError(recorder.StartRecording(context.Background()))
	req.ErrorIs(recorder.StartRecording(context.Background()), errors.ErrAlreadyRecording)
	recorder.Discard()
}

func Test_Device_Denied_Returns_To_Idle(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	device := mocks.NewMockCaptureDevice(ctrl)
	device.EXPECT().Acquire(gomock.Any()).Return(nil, fmt.Errorf("permission denied")).Times(1)

	recorder := voice.NewRecorder(slog.Default(), device, 1<<20, time.Minute)

	err := recorder.StartRecording(context.Background())
	req.ErrorIs(err, errors.ErrDeviceDenied)
	req.Equal(voice.StateIdle, recorder.State())
}

func Test_Stop_Without_Recording(t *testing.T) {
	req := require.New(t)
	recorder := newTestRecorder(t, newBlockingHandle(nil))

	_, err := recorder.StopRecording()
	req.ErrorIs(err, errors.ErrNotRecording)
}

func Test_Capture_Stops_At_Byte_Bound(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	big := bytes.Repeat([]byte("a"), 64*1024)
	handle := newBlockingHandle(big)
	device := mocks.NewMockCaptureDevice(ctrl)
	device.EXPECT().Acquire(gomock.Any()).Return(handle, nil).Times(1)

	maxBytes := 8 * 1024
	recorder := voice.NewRecorder(slog.Default(), device, maxBytes, time.Minute)

	req.NoError(recorder.StartRecording(context.Background()))
	time.Sleep(50 * time.Millisecond)

	clip, err := recorder.StopRecording()
	req.NoError(err)
	req.LessOrEqual(len(clip.Data), maxBytes+voice.ReadChunkSize)
	req.GreaterOrEqual(len(clip.Data), maxBytes)
}

func Test_Record_Discard_Record_Again(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockCaptureDevice(ctrl)
	device.EXPECT().Acquire(gomock.Any()).
		DoAndReturn(func(context.Context) (voice.CaptureHandle, error) {
			return newBlockingHandle([]byte("take")), nil
		}).
		Times(2)

	recorder := voice.NewRecorder(slog.Default(), device, 1<<20, time.Minute)

	// First take is captured, reviewed and discarded.
	req.NoError(recorder.StartRecording(context.Background()))
	time.Sleep(30 * time.Millisecond)
	_, err := recorder.StopRecording()
	req.NoError(err)
	recorder.Discard()
	req.Equal(voice.StateIdle, recorder.State())

	// A fresh take starts from an empty buffer.
	req.NoError(recorder.StartRecording(context.Background()))
	time.Sleep(30 * time.Millisecond)
	clip, err := recorder.StopRecording()
	req.NoError(err)
	req.Equal([]byte("take"), clip.Data)
}

func Test_Send_Requires_A_Clip_And_Survives_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sender := mocks.NewMockSender(ctrl)
	recorder := newTestRecorder(t, newBlockingHandle([]byte("audio-bytes")))

	req.ErrorIs(recorder.Send(sender, "general"), errors.ErrNoClip)

	req.NoError(recorder.StartRecording(context.Background()))
	time.Sleep(30 * time.Millisecond)
	_, err := recorder.StopRecording()
	req.NoError(err)

	gomock.InOrder(
		sender.EXPECT().Send(gomock.Any()).Return(errors.ErrNotConnected),
		sender.EXPECT().Send(gomock.Any()).DoAndReturn(func(cmd chat.Command) error {
			voiceCmd, ok := cmd.(chat.SendVoiceMessageCommand)
			req.True(ok)
			req.Equal(chat.RoomID("general"), voiceCmd.Room)
			req.NotEmpty(voiceCmd.Payload.B64)
			return nil
		}),
	)

	// The clip survives the failed send for a retry.
	req.ErrorIs(recorder.Send(sender, "general"), errors.ErrNotConnected)
	req.Equal(voice.StateCaptured, recorder.State())

	req.NoError(recorder.Send(sender, "general"))
	req.Equal(voice.StateIdle, recorder.State())
}

func Test_Encode_Decode_Roundtrip(t *testing.T) {
	req := require.New(t)
	clip := voice.Clip{Data: []byte("opus-frames"), Mime: "audio/ogg", Duration: 1500 * time.Millisecond}

	payload := voice.Encode(clip)
	req.Equal("audio/ogg", payload.Mime)
	req.Equal(int64(1500), payload.DurationMs)

	decoded, err := voice.Decode(payload)
	req.NoError(err)
	req.Equal(clip, decoded)

	_, err = voice.Decode(chat.VoicePayload{B64: "not base64 !!"})
	req.Error(err)
}

func Test_Decode_Sniffs_Missing_Mime(t *testing.T) {
	req := require.New(t)

	decoded, err := voice.Decode(voice.Encode(voice.Clip{Data: []byte{0x00, 0x01, 0x02}}))
	req.NoError(err)
	req.NotEmpty(decoded.Mime)
}
