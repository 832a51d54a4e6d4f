package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// VideoInfo is the metadata used to fill prompt template variables
type VideoInfo struct {
	ID       string
	Title    string
	Channel  string
	Duration time.Duration
}

// MetadataConfig selects how the Data API is authenticated.
// APIKey wins over the OAuth credentials/token pair.
type MetadataConfig struct {
	APIKey          string
	CredentialsFile string
	TokenFile       string
	Endpoint        string
}

// MetadataService looks up video metadata through the YouTube Data API v3
type MetadataService struct {
	service *ytapi.Service
}

// NewMetadataService creates a Data API client. It fails with NotConfigured
// when neither an API key nor an OAuth credentials file is set.
func NewMetadataService(ctx context.Context, cfg MetadataConfig) (*MetadataService, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		client, err := oauthClient(ctx, cfg.CredentialsFile, cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithHTTPClient(client))
	default:
		return nil, types.NewError(types.KindNotConfigured, "no YouTube API key or credentials", nil)
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	srv, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return &MetadataService{service: srv}, nil
}

// oauthClient builds an authorized client from a stored token. The token file
// must already exist; there is no interactive consent flow.
func oauthClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, ytapi.YoutubeReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, types.NewError(types.KindNotConfigured, "YouTube OAuth token missing", err)
	}
	return config.Client(ctx, tok), nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// Lookup fetches title, channel and duration for a video
func (m *MetadataService) Lookup(ctx context.Context, id string) (*VideoInfo, error) {
	if m == nil || m.service == nil {
		return nil, types.NewError(types.KindNotConfigured, "metadata lookup disabled", nil)
	}

	resp, err := m.service.Videos.List([]string{"snippet", "contentDetails"}).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list %s: %w", id, err)
	}
	if len(resp.Items) == 0 {
		return nil, types.NewError(types.KindVideoUnavailable, "video not found", nil)
	}

	item := resp.Items[0]
	info := &VideoInfo{ID: id}
	if item.Snippet != nil {
		info.Title = item.Snippet.Title
		info.Channel = item.Snippet.ChannelTitle
	}
	if item.ContentDetails != nil {
		info.Duration = ParseISODuration(item.ContentDetails.Duration)
	}
	return info, nil
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration parses the Data API's ISO 8601 durations (PT1H2M3S).
// Unparseable input yields zero.
func ParseISODuration(s string) time.Duration {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * u
	}
	return d
}
