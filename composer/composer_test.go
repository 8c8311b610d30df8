package composer

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"polyglot-chat/domain/chat"
	"polyglot-chat/errors"
	"polyglot-chat/mocks"
	"polyglot-chat/moderation"
)

func newComposer(t *testing.T, moderator *moderation.Moderator) (*Composer, *mocks.MockSender) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	sender := mocks.NewMockSender(ctrl)
	session := chat.Session{UserID: "me", DisplayName: "Me", PreferredLanguage: "fr"}
	return NewComposer(slog.Default(), sender, moderator, session, "general"), sender
}

func Test_Submit_Plain_Message(t *testing.T) {
	req := require.New(t)
	composer, sender := newComposer(t, nil)

	sender.EXPECT().Send(gomock.Any()).DoAndReturn(func(cmd chat.Command) error {
		sendCmd, ok := cmd.(chat.SendMessageCommand)
		req.True(ok)
		req.Equal(chat.RoomID("general"), sendCmd.Room)
		req.Equal("bonjour", sendCmd.Content)
		req.Equal("fr", sendCmd.Language)
		req.Empty(sendCmd.ReplyTo)
		req.NotEmpty(sendCmd.LocalID)
		return nil
	}).Times(1)

	req.NoError(composer.Submit("  bonjour  "))
}

func Test_Submit_Empty_Is_Rejected_Locally(t *testing.T) {
	req := require.New(t)
	composer, _ := newComposer(t, nil)

	req.ErrorIs(composer.Submit("   "), errors.ErrEmptyMessage)
	req.ErrorIs(composer.Submit(""), errors.ErrEmptyMessage)
}

func Test_Submit_With_Reply_Intent(t *testing.T) {
	req := require.New(t)
	composer, sender := newComposer(t, nil)

	composer.StartReply("m7")
	target, ok := composer.ReplyTarget()
	req.True(ok)
	req.Equal(chat.MessageID("m7"), target)

	sender.EXPECT().Send(gomock.Any()).DoAndReturn(func(cmd chat.Command) error {
		sendCmd, ok := cmd.(chat.SendMessageCommand)
		req.True(ok)
		req.Equal(chat.MessageID("m7"), sendCmd.ReplyTo)
		return nil
	}).Times(1)

	req.NoError(composer.Submit("indeed"))

	// The intent is cleared after a successful send.
	_, ok = composer.ReplyTarget()
	req.False(ok)
}

func Test_Submit_With_Edit_Intent(t *testing.T) {
	req := require.New(t)
	composer, sender := newComposer(t, nil)

	composer.StartEdit("m3")

	sender.EXPECT().
		Send(chat.EditMessageCommand{Room: "general", ID: "m3", Content: "fixed typo"}).
		Return(nil).
		Times(1)

	req.NoError(composer.Submit("fixed typo"))
	_, ok := composer.EditTarget()
	req.False(ok)
}

func Test_Edit_And_Reply_Intents_Are_Exclusive(t *testing.T) {
	req := require.New(t)
	composer, _ := newComposer(t, nil)

	composer.StartReply("m1")
	composer.StartEdit("m2")

	_, replying := composer.ReplyTarget()
	req.False(replying)
	target, editing := composer.EditTarget()
	req.True(editing)
	req.Equal(chat.MessageID("m2"), target)

	composer.Reset()
	_, editing = composer.EditTarget()
	req.False(editing)
}

func Test_Intent_Survives_Failed_Send(t *testing.T) {
	req := require.New(t)
	composer, sender := newComposer(t, nil)

	composer.StartReply("m1")

	gomock.InOrder(
		sender.EXPECT().Send(gomock.Any()).Return(errors.ErrNotConnected),
		sender.EXPECT().Send(gomock.Any()).Return(nil),
	)

	req.ErrorIs(composer.Submit("retry me"), errors.ErrNotConnected)
	_, ok := composer.ReplyTarget()
	req.True(ok)

	req.NoError(composer.Submit("retry me"))
	_, ok = composer.ReplyTarget()
	req.False(ok)
}

func Test_Submit_Censors_Outbound_Content(t *testing.T) {
	req := require.New(t)
	moderator, err := moderation.NewModerator([]string{"noob"}, '*', slog.Default())
	req.NoError(err)
	composer, sender := newComposer(t, moderator)

	sender.EXPECT().Send(gomock.Any()).DoAndReturn(func(cmd chat.Command) error {
		sendCmd, ok := cmd.(chat.SendMessageCommand)
		req.True(ok)
		req.NotContains(sendCmd.Content, "noob")
		return nil
	}).Times(1)

	req.NoError(composer.Submit("what a noob move"))
}
