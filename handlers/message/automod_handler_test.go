package message

import (
	"context"
	"sync"
	"testing"
	"time"

	"discord-automod/automod"
	"discord-automod/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type fakeModerator struct {
	mu        sync.Mutex
	seen      []models.Message
	scanEdits bool
	panicOn   string
}

func (f *fakeModerator) Handle(_ context.Context, msg models.Message) automod.Decision {
	if msg.Text == f.panicOn {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, msg)
	return automod.Decision{}
}

func (f *fakeModerator) Snapshot() *automod.Snapshot {
	return &automod.Snapshot{Settings: models.ModerationConfig{ScanEdits: f.scanEdits}}
}

func (f *fakeModerator) messages() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.seen...)
}

func guildMessage(id, text string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   text,
		Author:    &discordgo.User{ID: "u1"},
		Timestamp: time.Unix(1_700_000_000, 0),
	}
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	muted := time.Unix(1_700_000_600, 0)
	m := guildMessage("m1", "hello")
	m.Author.Bot = true
	m.Member = &discordgo.Member{Roles: []string{"r1", "r2"}, CommunicationDisabledUntil: &muted}

	msg, ok := ToMessage(m)
	require.True(t, ok)
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, "g1", msg.GuildID)
	assert.Equal(t, "c1", msg.ChannelID)
	assert.Equal(t, "u1", msg.AuthorID)
	assert.True(t, msg.AuthorIsBot)
	assert.Equal(t, []string{"r1", "r2"}, msg.AuthorRoles)
	assert.Equal(t, "hello", msg.Text)
	assert.True(t, msg.CreatedAt.Equal(time.Unix(1_700_000_000, 0)))
	require.NotNil(t, msg.MutedUntil)
	assert.True(t, msg.IsMuted(time.Unix(1_700_000_000, 0)))

	edited := time.Unix(1_700_000_100, 0)
	m.EditedTimestamp = &edited
	msg, ok = ToMessage(m)
	require.True(t, ok)
	assert.True(t, msg.CreatedAt.Equal(edited))

	_, ok = ToMessage(&discordgo.Message{ID: "dm", Author: &discordgo.User{ID: "u1"}})
	assert.False(t, ok, "direct messages are skipped")

	_, ok = ToMessage(&discordgo.Message{ID: "x", GuildID: "g1"})
	assert.False(t, ok, "messages without an author are skipped")

	_, ok = ToMessage(nil)
	assert.False(t, ok)
}

func TestAutomodHandler_CreateAndClose(t *testing.T) {
	t.Parallel()

	mod := &fakeModerator{}
	h := NewAutomodHandler(mod, zap.NewNop())

	for _, id := range []string{"1", "2", "3"} {
		h.HandleCreate(nil, &discordgo.MessageCreate{Message: guildMessage(id, "text "+id)})
	}
	h.HandleCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "dm", Author: &discordgo.User{ID: "u1"}}})

	require.NoError(t, h.Close())
	assert.Len(t, mod.messages(), 3)

	h.HandleCreate(nil, &discordgo.MessageCreate{Message: guildMessage("4", "late")})
	assert.Len(t, mod.messages(), 3, "closed handler drops new messages")
}

func TestAutomodHandler_UpdateRequiresScanEdits(t *testing.T) {
	t.Parallel()

	off := &fakeModerator{}
	h := NewAutomodHandler(off, zap.NewNop())
	h.HandleUpdate(nil, &discordgo.MessageUpdate{Message: guildMessage("1", "edited")})
	require.NoError(t, h.Close())
	assert.Empty(t, off.messages())

	on := &fakeModerator{scanEdits: true}
	h = NewAutomodHandler(on, zap.NewNop())
	h.HandleUpdate(nil, &discordgo.MessageUpdate{Message: guildMessage("1", "edited")})
	require.NoError(t, h.Close())
	require.Len(t, on.messages(), 1)
	assert.Equal(t, "edited", on.messages()[0].Text)
}

func TestAutomodHandler_PanicIsContained(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	mod := &fakeModerator{panicOn: "explode"}
	h := NewAutomodHandler(mod, zap.New(core))

	h.HandleCreate(nil, &discordgo.MessageCreate{Message: guildMessage("1", "explode")})
	h.HandleCreate(nil, &discordgo.MessageCreate{Message: guildMessage("2", "fine")})
	require.NoError(t, h.Close())

	assert.Len(t, mod.messages(), 1)
	assert.Equal(t, 1, logs.FilterMessage("Automod pipeline panicked").Len())
}
