package message

import (
	"context"
	"sync"
	"time"

	"discord-automod/automod"
	"discord-automod/models"

	"github.com/bwmarrin/discordgo"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// DefaultMessageTimeout bounds the whole pipeline for one message,
// classifier call and sanction steps included.
const DefaultMessageTimeout = 30 * time.Second

// Moderator is the part of the automod engine the handler drives.
type Moderator interface {
	Handle(ctx context.Context, msg models.Message) automod.Decision
	Snapshot() *automod.Snapshot
}

// AutomodHandler feeds guild messages to the automod engine. Each message
// is processed on its own goroutine so the gateway loop never waits on the
// classifier.
type AutomodHandler struct {
	mod     Moderator
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     conc.WaitGroup
}

var _ MessageHandler = (*AutomodHandler)(nil)

func NewAutomodHandler(mod Moderator, logger *zap.Logger) *AutomodHandler {
	return &AutomodHandler{
		mod:     mod,
		logger:  logger.Named("messages"),
		timeout: DefaultMessageTimeout,
	}
}

// HandleCreate moderates a newly posted message.
func (h *AutomodHandler) HandleCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil {
		return
	}
	h.dispatch(m.Message)
}

// HandleUpdate moderates edited content when edit scanning is enabled.
func (h *AutomodHandler) HandleUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m == nil || !h.mod.Snapshot().Settings.ScanEdits {
		return
	}
	h.dispatch(m.Message)
}

func (h *AutomodHandler) dispatch(dm *discordgo.Message) {
	msg, ok := ToMessage(dm)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.wg.Go(func() { h.process(msg) })
}

func (h *AutomodHandler) process(msg models.Message) {
	var pc panics.Catcher
	pc.Try(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		h.mod.Handle(ctx, msg)
	})
	if r := pc.Recovered(); r != nil {
		h.logger.Error("Automod pipeline panicked",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.MessageID),
			zap.Error(r.AsError()))
	}
}

// Close stops accepting messages and waits for in-flight ones.
func (h *AutomodHandler) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

// ToMessage converts a gateway message. Direct messages and messages
// without an author are not moderated.
func ToMessage(m *discordgo.Message) (models.Message, bool) {
	if m == nil || m.GuildID == "" || m.Author == nil {
		return models.Message{}, false
	}

	msg := models.Message{
		MessageID:   m.ID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		AuthorIsBot: m.Author.Bot,
		Text:        m.Content,
		CreatedAt:   m.Timestamp,
	}
	if m.EditedTimestamp != nil {
		msg.CreatedAt = *m.EditedTimestamp
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if m.Member != nil {
		msg.AuthorRoles = append([]string(nil), m.Member.Roles...)
		msg.MutedUntil = m.Member.CommunicationDisabledUntil
	}
	return msg, true
}
