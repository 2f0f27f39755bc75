package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	httpclient "ytscribe/http"
)

const channelPageBase = "https://www.youtube.com"

var (
	// channelIDRegex matches YouTube channel IDs (UC followed by 22 base64 chars).
	channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	handleRegex    = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,30}$`)
)

// ChannelRef is a parsed channel input. Exactly one field is set.
type ChannelRef struct {
	ID     string
	Handle string
	Custom string
	User   string
}

// Path returns the channel page path relative to youtube.com.
func (r ChannelRef) Path() string {
	switch {
	case r.ID != "":
		return "/channel/" + r.ID
	case r.Handle != "":
		return "/@" + r.Handle
	case r.Custom != "":
		return "/c/" + r.Custom
	default:
		return "/user/" + r.User
	}
}

func (r ChannelRef) String() string {
	if r.Handle != "" {
		return "@" + r.Handle
	}
	if r.ID != "" {
		return r.ID
	}
	return r.Path()
}

// ParseChannelInput accepts a channel ID, an @handle, or a youtube.com
// channel URL (/channel/UC..., /@handle, /c/name, /user/name, with an
// optional trailing tab such as /videos).
func ParseChannelInput(input string) (ChannelRef, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return ChannelRef{}, fmt.Errorf("%w: empty channel", ErrInvalidChannel)
	}

	if channelIDRegex.MatchString(s) {
		return ChannelRef{ID: s}, nil
	}
	if strings.HasPrefix(s, "@") {
		return parseHandle(s[1:], input)
	}

	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ChannelRef{}, fmt.Errorf("%w: %q", ErrInvalidChannel, input)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "youtube.com" {
		return ChannelRef{}, fmt.Errorf("%w: %q is not a youtube.com channel", ErrInvalidChannel, input)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
		return parseHandle(strings.TrimPrefix(parts[0], "@"), input)
	case len(parts) >= 2 && parts[0] == "channel":
		if channelIDRegex.MatchString(parts[1]) {
			return ChannelRef{ID: parts[1]}, nil
		}
	case len(parts) >= 2 && parts[0] == "c" && parts[1] != "":
		return ChannelRef{Custom: parts[1]}, nil
	case len(parts) >= 2 && parts[0] == "user" && parts[1] != "":
		return ChannelRef{User: parts[1]}, nil
	}
	return ChannelRef{}, fmt.Errorf("%w: cannot extract channel from %q", ErrInvalidChannel, input)
}

func parseHandle(handle, input string) (ChannelRef, error) {
	if unescaped, err := url.PathUnescape(handle); err == nil {
		handle = unescaped
	}
	if !handleRegex.MatchString(handle) {
		return ChannelRef{}, fmt.Errorf("%w: invalid handle in %q", ErrInvalidChannel, input)
	}
	return ChannelRef{Handle: handle}, nil
}

// PageResolver resolves channels by reading the public channel page.
// Channel IDs are returned without a request.
type PageResolver struct {
	http    *httpclient.Client
	baseURL string
	logger  *slog.Logger
}

// NewPageResolver creates a resolver that fetches pages through client.
func NewPageResolver(client *httpclient.Client, logger *slog.Logger) *PageResolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PageResolver{http: client, baseURL: channelPageBase, logger: logger}
}

// Resolve implements ChannelResolver.
func (p *PageResolver) Resolve(ctx context.Context, input string) (Channel, error) {
	ref, err := ParseChannelInput(input)
	if err != nil {
		return Channel{}, err
	}
	if ref.ID != "" {
		return Channel{ID: ref.ID}, nil
	}

	pageURL := p.baseURL + ref.Path()
	resp, err := p.http.Get(ctx, pageURL)
	if err != nil {
		if isNotFound(err) {
			return Channel{}, &ListerError{Source: "page", Channel: input, Err: ErrChannelNotFound}
		}
		return Channel{}, &ListerError{Source: "page", Channel: input, Err: fetchFailed(err)}
	}

	ch, err := parseChannelPage(resp.Body)
	if err != nil {
		return Channel{}, &ListerError{Source: "page", Channel: input, Err: err}
	}
	ch.Handle = ref.Handle
	p.logger.Debug("resolved channel",
		slog.String("input", input), slog.String("channel_id", ch.ID), slog.String("name", ch.Name))
	return ch, nil
}

// parseChannelPage extracts the channel ID and name from channel page HTML.
func parseChannelPage(body []byte) (Channel, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Channel{}, fmt.Errorf("parse channel page: %w", err)
	}

	var ch Channel
	candidates := []string{
		doc.Find(`meta[itemprop="identifier"]`).AttrOr("content", ""),
		doc.Find(`meta[itemprop="channelId"]`).AttrOr("content", ""),
		channelIDFromURL(doc.Find(`link[rel="canonical"]`).AttrOr("href", "")),
		channelIDFromURL(doc.Find(`meta[property="og:url"]`).AttrOr("content", "")),
	}
	for _, id := range candidates {
		if channelIDRegex.MatchString(id) {
			ch.ID = id
			break
		}
	}
	if ch.ID == "" {
		return Channel{}, ErrChannelNotFound
	}

	ch.Name = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if ch.Name == "" {
		ch.Name = strings.TrimSpace(doc.Find(`meta[itemprop="name"]`).AttrOr("content", ""))
	}
	return ch, nil
}

func channelIDFromURL(s string) string {
	_, rest, ok := strings.Cut(s, "/channel/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	id, _, _ = strings.Cut(id, "?")
	return id
}
