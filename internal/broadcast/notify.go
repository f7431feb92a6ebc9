package broadcast

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

// ErrDenied reports a broadcast attempted by a role without the
// capability.
var ErrDenied = errors.New("broadcast: role lacks permission")

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier mirrors broadcasts into a Slack channel.
type SlackNotifier struct {
	client    slackClient
	channelID string
}

func NewSlackNotifier(botToken, channelID string) *SlackNotifier {
	return &SlackNotifier{client: slackapi.New(botToken), channelID: channelID}
}

func (n *SlackNotifier) Post(text string) error {
	_, _, err := n.client.PostMessage(n.channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// discordSession abstracts the discordgo methods we use.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier mirrors broadcasts into a Discord channel.
type DiscordNotifier struct {
	session   discordSession
	channelID string
}

func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

func (n *DiscordNotifier) Post(text string) error {
	if _, err := n.session.ChannelMessageSend(n.channelID, text); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}
