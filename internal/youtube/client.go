package youtube

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/lolovespi/reolink-livestream-youtube/internal/broadcast"
)

const (
	listPageSize       = 50
	defaultIngestTitle = "Camera Ingest"
)

// Client implements broadcast.Service against the YouTube Live API.
type Client struct {
	svc     *yt.Service
	privacy string
}

// Options configures client construction.
type Options struct {
	ClientSecrets string
	TokenFile     string
	// Privacy is the privacyStatus for broadcasts this client creates.
	Privacy string
	// IngestTitle names newly created ingest endpoints.
	IngestTitle string
}

var _ broadcast.Service = (*Client)(nil)

// New builds a client with a refreshing, file-persisting token source.
// Credential problems are reported with ErrCredentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	cfg, err := oauthConfig(opts.ClientSecrets)
	if err != nil {
		return nil, err
	}
	source, err := tokenSource(ctx, cfg, opts.TokenFile)
	if err != nil {
		return nil, err
	}
	svc, err := yt.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("build youtube service: %w", err)
	}
	privacy := opts.Privacy
	if privacy == "" {
		privacy = "public"
	}
	return &Client{svc: svc, privacy: privacy}, nil
}

// EnsureIngest returns id unchanged when provided; otherwise it creates a
// reusable RTMP ingest endpoint. The platform never exposes the stream key
// through this call; the key lives in the configured key file.
func (c *Client) EnsureIngest(ctx context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	stream := &yt.LiveStream{
		Snippet: &yt.LiveStreamSnippet{Title: defaultIngestTitle},
		Cdn: &yt.CdnSettings{
			FrameRate:     "30fps",
			Resolution:    "720p",
			IngestionType: "rtmp",
		},
	}
	resp, err := c.svc.LiveStreams.Insert([]string{"snippet", "cdn", "contentDetails"}, stream).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create ingest endpoint: %w", err)
	}
	return resp.Id, nil
}

func (c *Client) CreateBroadcast(ctx context.Context, title, startTime string) (string, error) {
	b := &yt.LiveBroadcast{
		Snippet: &yt.LiveBroadcastSnippet{
			Title:              title,
			ScheduledStartTime: startTime,
		},
		Status: &yt.LiveBroadcastStatus{
			PrivacyStatus:           c.privacy,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
		ContentDetails: &yt.LiveBroadcastContentDetails{
			EnableAutoStart: false,
			EnableAutoStop:  false,
		},
	}
	resp, err := c.svc.LiveBroadcasts.Insert([]string{"snippet", "status", "contentDetails"}, b).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create broadcast: %w", err)
	}
	return resp.Id, nil
}

func (c *Client) BindBroadcast(ctx context.Context, broadcastID, ingestID string) error {
	_, err := c.svc.LiveBroadcasts.Bind(broadcastID, []string{"id", "contentDetails"}).
		StreamId(ingestID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("bind broadcast %s to ingest %s: %w", broadcastID, ingestID, err)
	}
	return nil
}

func (c *Client) TransitionBroadcast(ctx context.Context, broadcastID string, target broadcast.Lifecycle) error {
	_, err := c.svc.LiveBroadcasts.Transition(string(target), broadcastID, []string{"status"}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("transition broadcast %s to %s: %w", broadcastID, target, err)
	}
	return nil
}

func (c *Client) IngestStatus(ctx context.Context, ingestID string) (broadcast.IngestStatus, broadcast.IngestHealth, error) {
	resp, err := c.svc.LiveStreams.List([]string{"status"}).Id(ingestID).Context(ctx).Do()
	if err != nil {
		return broadcast.IngestUnknown, broadcast.HealthUnknown, fmt.Errorf("ingest status: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Status == nil {
		return broadcast.IngestUnknown, broadcast.HealthUnknown, nil
	}
	status := resp.Items[0].Status
	health := ""
	if status.HealthStatus != nil {
		health = status.HealthStatus.Status
	}
	return broadcast.ParseIngestStatus(status.StreamStatus), broadcast.ParseIngestHealth(health), nil
}

func (c *Client) BroadcastLifecycle(ctx context.Context, broadcastID string) (broadcast.Lifecycle, error) {
	resp, err := c.svc.LiveBroadcasts.List([]string{"status"}).Id(broadcastID).Context(ctx).Do()
	if err != nil {
		return broadcast.LifecycleUnknown, fmt.Errorf("broadcast lifecycle: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Status == nil {
		return broadcast.LifecycleUnknown, nil
	}
	return broadcast.ParseLifecycle(resp.Items[0].Status.LifeCycleStatus), nil
}

// FindReusableBroadcast pages through the channel's broadcasts and returns
// the best candidate bound to ingestID, ranked live > testing > ready >
// created. Broadcasts in other lifecycles (complete, revoked) are skipped.
func (c *Client) FindReusableBroadcast(ctx context.Context, ingestID string) (*broadcast.Reusable, error) {
	var best *broadcast.Reusable
	bestRank := 0

	pageToken := ""
	for {
		call := c.svc.LiveBroadcasts.List([]string{"id", "contentDetails", "status"}).
			Mine(true).MaxResults(listPageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list broadcasts: %w", err)
		}
		for _, item := range resp.Items {
			if item.ContentDetails == nil || item.ContentDetails.BoundStreamId != ingestID {
				continue
			}
			if item.Status == nil {
				continue
			}
			lc := broadcast.ParseLifecycle(item.Status.LifeCycleStatus)
			rank := broadcast.ReuseRank(lc)
			if rank > bestRank {
				bestRank = rank
				best = &broadcast.Reusable{ID: item.Id, Lifecycle: lc}
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return best, nil
		}
	}
}

func (c *Client) IngestKey(ctx context.Context, ingestID string) (string, error) {
	resp, err := c.svc.LiveStreams.List([]string{"cdn"}).Id(ingestID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("ingest key: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Cdn == nil || resp.Items[0].Cdn.IngestionInfo == nil {
		return "", nil
	}
	return resp.Items[0].Cdn.IngestionInfo.StreamName, nil
}

func (c *Client) FindIngestByKey(ctx context.Context, key string) (string, error) {
	pageToken := ""
	for {
		call := c.svc.LiveStreams.List([]string{"id", "cdn"}).
			Mine(true).MaxResults(listPageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return "", fmt.Errorf("find ingest by key: %w", err)
		}
		for _, item := range resp.Items {
			if item.Cdn == nil || item.Cdn.IngestionInfo == nil {
				continue
			}
			if item.Cdn.IngestionInfo.StreamName == key {
				return item.Id, nil
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return "", nil
		}
	}
}

func (c *Client) UpdateBroadcastSchedule(ctx context.Context, broadcastID, title, startTime string) error {
	b := &yt.LiveBroadcast{
		Id: broadcastID,
		Snippet: &yt.LiveBroadcastSnippet{
			Title:              title,
			ScheduledStartTime: startTime,
		},
	}
	_, err := c.svc.LiveBroadcasts.Update([]string{"snippet"}, b).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update broadcast schedule: %w", err)
	}
	return nil
}
