// Package audio provides file-backed implementations of the voice
// interfaces for the terminal client. Capture streams a prepared audio
// file as if it were a microphone; playback writes the clip to disk and
// hands the path to the user.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"polyglot-chat/errors"
	"polyglot-chat/voice"
)

// FileDevice reads clips from a fixed source file. An unreadable or
// missing file is reported as a denied device, the same failure mode a
// real microphone permission prompt would produce.
type FileDevice struct {
	Path string
}

func (d FileDevice) Acquire(_ context.Context) (voice.CaptureHandle, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrDeviceDenied, d.Path)
	}
	return f, nil
}

// DirPlayer materializes inbound clips in a spool directory so any system
// audio player can pick them up.
type DirPlayer struct {
	Dir string
	Log *slog.Logger
}

func (p DirPlayer) Play(_ context.Context, clip voice.Clip) error {
	ext := ".bin"
	if exts := mimetype.Lookup(clip.Mime); exts != nil && exts.Extension() != "" {
		ext = exts.Extension()
	}
	path := filepath.Join(p.Dir, uuid.NewString()+ext)
	if err := os.WriteFile(path, clip.Data, 0o644); err != nil {
		return err
	}
	p.Log.Info("Voice clip ready", "path", path, "duration", clip.Duration)
	return nil
}
