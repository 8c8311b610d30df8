package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
	"polyglot-chat/observability"
	"polyglot-chat/repositories"
	"polyglot-chat/runtime"
	"polyglot-chat/search"
)

// terminalUI renders loop effects and turns stdin lines into client
// intents. Plain lines are sent as messages, slash commands drive
// everything else.
type terminalUI struct {
	log     *slog.Logger
	client  *runtime.RoomClient
	index   *search.Index
	history repositories.IHistoryRepository
	room    chat.RoomID
	stats   *observability.ClientStats
}

func newTerminalUI(log *slog.Logger, client *runtime.RoomClient, index *search.Index,
	history repositories.IHistoryRepository, room chat.RoomID, stats *observability.ClientStats) *terminalUI {
	return &terminalUI{
		log:     log,
		client:  client,
		index:   index,
		history: history,
		room:    room,
		stats:   stats,
	}
}

func (u *terminalUI) drainEffects(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case eff := <-u.client.Effects():
			switch e := eff.(type) {
			case event.PlaySound:
				// Terminal bell stands in for the sound asset.
				fmt.Print("\a")
			case event.ShowBanner:
				switch e.Level {
				case event.BannerError:
					color.New(color.FgRed).Println(e.Text)
				case event.BannerWarn:
					color.New(color.FgYellow).Println(e.Text)
				default:
					color.New(color.FgCyan).Println(e.Text)
				}
			}
		}
	}
}

func (u *terminalUI) handle(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		// Submit already ends the typing burst; a keystroke here would put
		// a spurious typing/stop-typing pair on the wire per sent line.
		u.client.Submit(line)
		return
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/who":
		u.printOccupants()
	case "/messages":
		u.printMessages()
	case "/pinned":
		for _, id := range u.client.Pinned() {
			fmt.Println(id)
		}
	case "/reply":
		if len(args) == 1 {
			u.client.Reply(chat.MessageID(args[0]))
			color.New(color.FgCyan).Println("Replying to: " + u.client.ReplyPreview(chat.MessageID(args[0])))
		}
	case "/edit":
		if len(args) == 1 {
			u.client.Edit(chat.MessageID(args[0]))
		}
	case "/cancel":
		u.client.CancelIntent()
	case "/react":
		if len(args) == 2 {
			u.client.React(chat.MessageID(args[0]), args[1])
		}
	case "/pin":
		if len(args) == 1 {
			u.client.Pin(chat.MessageID(args[0]))
		}
	case "/delete":
		if len(args) == 1 {
			u.client.Delete(chat.MessageID(args[0]))
		}
	case "/translate":
		if len(args) == 1 {
			id := chat.MessageID(args[0])
			if text, ok := u.client.Translation(id); ok {
				color.New(color.FgGreen).Println(text)
				return
			}
			u.client.Translate(id)
			color.New(color.FgCyan).Println("Translation requested...")
		}
	case "/auto":
		u.client.SetAutoTranslate(len(args) == 1 && args[0] == "on")
	case "/lang":
		if len(args) == 1 {
			u.client.SetPreferredLanguage(args[0])
		}
	case "/voice":
		u.handleVoice(ctx, args)
	case "/play":
		if len(args) == 1 {
			u.client.PlayVoice(ctx, chat.MessageID(args[0]))
		}
	case "/search":
		u.handleSearch(ctx, strings.TrimPrefix(line, "/search "))
	case "/history":
		u.printHistory()
	case "/stats":
		u.printStats()
	default:
		color.New(color.FgYellow).Println("Unknown command: " + cmd)
	}
}

func (u *terminalUI) handleVoice(ctx context.Context, args []string) {
	if len(args) != 1 {
		color.New(color.FgYellow).Println("Usage: /voice start|stop|send|discard")
		return
	}
	var err error
	switch args[0] {
	case "start":
		err = u.client.StartVoice(ctx)
	case "stop":
		_, err = u.client.StopVoice()
	case "send":
		err = u.client.SendVoice()
	case "discard":
		u.client.DiscardVoice()
	}
	if err != nil {
		color.New(color.FgRed).Println(err.Error())
	}
}

func (u *terminalUI) handleSearch(ctx context.Context, input string) {
	hits, err := u.index.Search(ctx, search.ParseQuery(input))
	if err != nil {
		color.New(color.FgRed).Println(err.Error())
		return
	}
	for _, hit := range hits {
		m, ok := u.client.Message(chat.MessageID(hit.ID))
		if !ok {
			fmt.Printf("%s (score %.2f)\n", hit.ID, hit.Score)
			continue
		}
		fmt.Printf("%s %s: %s\n", m.CreatedAt.Format("15:04"), m.AuthorID, m.Content)
	}
}

func (u *terminalUI) printOccupants() {
	table := newTable([]string{"User", "Name", "Language", "Level", "Online"})
	typing := map[string]bool{}
	for _, id := range u.client.Typing() {
		typing[id] = true
	}
	for _, o := range u.client.Occupants() {
		name := o.DisplayName
		if typing[o.UserID] {
			name += " (typing...)"
		}
		table.Append([]string{o.UserID, name, o.Language, fmt.Sprint(o.Level), fmt.Sprint(o.IsOnline)})
	}
	table.Render()
}

func (u *terminalUI) printMessages() {
	table := newTable([]string{"ID", "Time", "Author", "Content"})
	for _, m := range u.client.Messages() {
		content := m.Content
		if m.Kind == chat.KindVoice {
			content = "[voice message]"
			if m.Transcript != "" {
				content += " " + m.Transcript
			}
		}
		table.Append([]string{string(m.ID), m.CreatedAt.Format("15:04:05"), m.AuthorID, content})
	}
	table.Render()
}

func (u *terminalUI) printHistory() {
	messages, _, err := u.history.Recent(u.room, nil)
	if err != nil {
		color.New(color.FgRed).Println(err.Error())
		return
	}
	table := newTable([]string{"ID", "Time", "Author", "Content"})
	for _, m := range messages {
		table.Append([]string{string(m.ID), m.CreatedAt.Format("Jan 02 15:04"), m.AuthorID, m.Content})
	}
	table.Render()
}

func (u *terminalUI) printStats() {
	s := u.stats.GetLatest()
	table := newTable([]string{"Counter", "Value"})
	table.Append([]string{"messages in", fmt.Sprint(s.MessagesIn)})
	table.Append([]string{"messages out", fmt.Sprint(s.MessagesOut)})
	table.Append([]string{"reconnects", fmt.Sprint(s.Reconnects)})
	table.Append([]string{"dropped events", fmt.Sprint(s.DroppedEvents)})
	table.Append([]string{"translation hits", fmt.Sprint(s.TranslationHits)})
	table.Append([]string{"translation requests", fmt.Sprint(s.TranslationRequests)})
	table.Append([]string{"typing events", fmt.Sprint(s.TypingEvents)})
	table.Append([]string{"started at", s.StartedAt})
	table.Render()
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
