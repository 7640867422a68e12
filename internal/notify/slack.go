package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackSink posts ratchet events to a Slack channel.
type SlackSink struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a SlackSink.
type SlackOpts struct {
	Token     string
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlackSink creates a SlackSink.
func NewSlackSink(opts SlackOpts) (*SlackSink, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	client := opts.Client
	if client == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("notify: slack token is required")
		}
		client = slackapi.New(opts.Token)
	}
	return &SlackSink{client: client, channelID: opts.ChannelID}, nil
}

// Name implements Sink.
func (s *SlackSink) Name() string { return "slack" }

// Send posts the event as an attachment with a severity color bar.
func (s *SlackSink) Send(ctx context.Context, ev Event) error {
	attachment := slackapi.Attachment{
		Color: ev.Color(),
		Title: ev.Title(),
		Text:  ev.Detail,
	}
	if ev.PRURL != "" {
		attachment.TitleLink = ev.PRURL
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: "PR",
			Value: fmt.Sprintf("<%s|#%d>", ev.PRURL, ev.PRNumber),
			Short: true,
		})
	}
	attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
		Title: "State",
		Value: string(ev.State),
		Short: true,
	})

	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}
