package projection

import (
	"sort"

	"polyglot-chat/domain/chat"
)

// ReactionView is the per-emoji aggregate the UI renders under a message.
type ReactionView struct {
	Emoji string
	Count int
	Mine  bool
}

// AggregateReactions derives emoji counts and local-user membership from a
// message's reaction map. Pure function, recomputed on every mutation.
func AggregateReactions(m chat.Message, localUser string) []ReactionView {
	views := make([]ReactionView, 0, len(m.Reactions))
	for emoji := range m.Reactions {
		views = append(views, ReactionView{
			Emoji: emoji,
			Count: m.Reactions.Count(emoji),
			Mine:  m.Reactions.Has(emoji, localUser),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Emoji < views[j].Emoji })
	return views
}
