package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Billy-Davies-2/xpulse-cards/internal/command"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
)

// Bot connects the command dispatcher to a Discord gateway session
type Bot struct {
	session    *discordgo.Session
	dispatcher *command.Dispatcher
	renderer   *Renderer
	timeout    time.Duration
}

// New creates a bot for token. Call Open to connect.
func New(token string, dispatcher *command.Dispatcher, renderer *Renderer, timeout time.Duration) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session:    session,
		dispatcher: dispatcher,
		renderer:   renderer,
		timeout:    timeout,
	}
	session.AddHandler(b.messageCreate)
	return b, nil
}

// Open connects to the gateway
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	logger.Info("Discord bot connected", "prefix", b.dispatcher.Prefix())
	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	embed, ok := b.handle(m.Author.ID, m.Content)
	if !ok {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		logger.Warn("Failed to send embed", "error", err, "channel_id", m.ChannelID)
	}
}

// handle runs one message and returns the reply; ok is false for chatter
func (b *Bot) handle(userID, content string) (*discordgo.MessageEmbed, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	resp, err := b.dispatcher.Dispatch(ctx, userID, content)
	if errors.Is(err, command.ErrNotCommand) {
		return nil, false
	}
	if err != nil {
		logger.Debug("Command rejected", "user_id", userID, "error", err)
		return RenderError(err), true
	}
	return b.renderer.Render(resp), true
}
