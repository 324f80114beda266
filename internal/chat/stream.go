package chat

import (
	"context"
	"errors"
	"time"

	stream "github.com/GetStream/stream-chat-go/v5"
)

// StreamPlatform implements Platform on Stream Chat.
type StreamPlatform struct {
	client *stream.Client
}

// NewStreamPlatform creates a Stream Chat client from the API credentials.
func NewStreamPlatform(apiKey, apiSecret string) (*StreamPlatform, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("stream api key and secret are required")
	}
	client, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &StreamPlatform{client: client}, nil
}

func (p *StreamPlatform) UpsertUser(ctx context.Context, user User) error {
	_, err := p.client.UpsertUser(ctx, &stream.User{
		ID:    user.ID,
		Name:  user.Name,
		Image: user.Image,
	})
	return err
}

func (p *StreamPlatform) CreateChannel(ctx context.Context, channel Channel) error {
	extra := map[string]interface{}{"name": channel.Name}
	if channel.Image != "" {
		extra["image"] = channel.Image
	}
	_, err := p.client.CreateChannel(ctx, ChannelType, channel.ID, channel.CreatedBy, &stream.ChannelRequest{
		Members:   channel.Members,
		ExtraData: extra,
	})
	return err
}

func (p *StreamPlatform) AddMembers(ctx context.Context, channelID string, userIDs []string) error {
	_, err := p.client.Channel(ChannelType, channelID).AddMembers(ctx, userIDs)
	return err
}

// CreateToken signs a client token for userID. A zero expire yields a
// token without expiry.
func (p *StreamPlatform) CreateToken(userID string, expire time.Duration) (string, error) {
	var exp time.Time
	if expire > 0 {
		exp = time.Now().Add(expire)
	}
	return p.client.CreateToken(userID, exp)
}
