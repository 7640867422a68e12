package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use, enabling
// test mocks.
type discordSession interface {
	Open() error
	Close() error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink posts ratchet events to a Discord channel as embeds.
type DiscordSink struct {
	sess      discordSession
	channelID string

	mu     sync.Mutex // guards opened; Send runs from concurrent workers
	opened bool
}

// DiscordOpts holds parameters for creating a DiscordSink.
type DiscordOpts struct {
	Token     string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session discordSession
}

// NewDiscordSink creates a DiscordSink.
func NewDiscordSink(opts DiscordOpts) (*DiscordSink, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: discord channel is required")
	}
	sess := opts.Session
	if sess == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("notify: discord token is required")
		}
		real, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("notify: discord session: %w", err)
		}
		sess = real
	}
	return &DiscordSink{sess: sess, channelID: opts.ChannelID}, nil
}

// Name implements Sink.
func (d *DiscordSink) Name() string { return "discord" }

// Send posts the event embed, opening the gateway connection lazily on
// first use.
func (d *DiscordSink) Send(ctx context.Context, ev Event) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       ev.Title(),
		Description: ev.Detail,
		URL:         ev.PRURL,
		Color:       embedColor(ev.Color()),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "State", Value: string(ev.State), Inline: true},
		},
	}
	if ev.PRNumber != 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "PR", Value: fmt.Sprintf("#%d", ev.PRNumber), Inline: true,
		})
	}

	if _, err := d.sess.ChannelMessageSendEmbed(d.channelID, embed); err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}

// ensureOpen connects the gateway exactly once across concurrent senders.
func (d *DiscordSink) ensureOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return nil
	}
	if err := d.sess.Open(); err != nil {
		return fmt.Errorf("notify: discord open: %w", err)
	}
	d.opened = true
	return nil
}

// Close shuts down the gateway connection.
func (d *DiscordSink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nil
	}
	d.opened = false
	return d.sess.Close()
}

// embedColor converts a #rrggbb hint into the integer Discord expects.
func embedColor(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
