package internal

import (
	"fmt"
	"time"
)

type Config struct {
	ServerURL       string        `env:"SERVER_URL,required=true" validate:"required,url"`
	SessionSecret   string        `env:"SESSION_SECRET,required=true" validate:"required"`
	SessionToken    string        `env:"SESSION_TOKEN"`
	RoomID          string        `env:"ROOM_ID,required=true" validate:"required"`
	DisplayName     string        `env:"DISPLAY_NAME,required=true" validate:"required"`
	Language        string        `env:"LANGUAGE,default=en" validate:"required,len=2"`
	AutoTranslate   bool          `env:"AUTO_TRANSLATE,default=true"`
	LogLevel        string        `env:"LOG_LEVEL,required=true"`
	EventBufferSize int           `env:"EVENT_BUFFER_SIZE,default=256" validate:"gt=0"`

	TypingWindow     time.Duration `env:"TYPING_WINDOW,default=1s" validate:"gt=0"`
	ReconnectBackoff time.Duration `env:"RECONNECT_BACKOFF,default=2s" validate:"gt=0"`
	PingPeriod       time.Duration `env:"PING_PERIOD,default=30s" validate:"gt=0"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=5s" validate:"gt=0"`
	HeartbeatPeriod  time.Duration `env:"HEARTBEAT_PERIOD,default=1m" validate:"gt=0"`
	SinkTimeout      time.Duration `env:"SINK_TIMEOUT,default=5s" validate:"gt=0"`

	MaxClipBytes    int           `env:"MAX_CLIP_BYTES,default=1048576" validate:"gt=0"`
	MaxClipDuration time.Duration `env:"MAX_CLIP_DURATION,default=2m" validate:"gt=0"`
	MicSource       string        `env:"MIC_SOURCE,default=mic.wav"`
	ClipDir         string        `env:"CLIP_DIR,default=clips"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
