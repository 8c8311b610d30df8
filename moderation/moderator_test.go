package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"polyglot-chat/errors"
)

const replacementChar = '*'

// The dictionary avoids short words that collide with substrings of
// ordinary text (e.g. "he" inside "The").
func Test_Moderator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"noob", "troll", "flame"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "single word, spacing preserved",
			input:    "not that troll again",
			expected: "not that ***** again",
			words:    []string{"troll"},
		},
		{
			name:     "repeated word",
			input:    "noob noob",
			expected: "**** ****",
			words:    []string{"noob", "noob"},
		},
		{
			name:     "leet speak digits",
			input:    "what a n00b move",
			expected: "what a **** move",
			words:    []string{"noob"},
		},
		{
			name: "dotted letters and a zero",
			// t . r . 0 . l . l spans nine original runes
			input:    "ignore the t.r.0.l.l here",
			expected: "ignore the ********* here",
			words:    []string{"troll"},
		},
		{
			name:     "uppercase",
			input:    "TROLL incoming",
			expected: "***** incoming",
			words:    []string{"troll"},
		},
		{
			name:     "accented surroundings",
			input:    "après le flame d'hier",
			expected: "après le ***** d'hier",
			words:    []string{"flame"},
		},
		{
			name:     "trailing exclamation mark kept",
			input:    "such a noob!",
			expected: "such a ****!",
			words:    []string{"noob"},
		},
		{
			name:     "clean sentence untouched",
			input:    "bonjour tout le monde",
			expected: "bonjour tout le monde",
			words:    nil,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}

func Test_Moderator_NoiseEntriesSkipped(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Entries that normalize to nothing must not end up in the automaton.
	dictionary := []string{"...", "???", "", "troll"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	content, words := mod.Censor("pure troll move")
	req.Equal("pure ***** move", content)
	req.Equal([]string{"troll"}, words)

	content, words = mod.Censor("fine by me ???")
	req.Equal("fine by me ???", content)
	req.Nil(words)
}

func Test_Moderator_EmptyDictionary(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	_, err := NewModerator([]string{"...", ""}, replacementChar, log)
	req.ErrorIs(err, errors.ErrEmptyWords)

	_, err = NewModerator(nil, replacementChar, log)
	req.ErrorIs(err, errors.ErrEmptyWords)
}
