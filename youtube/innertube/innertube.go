// Package innertube lists channel uploads through YouTube's internal
// browse API, paging with continuation tokens. It needs no API key.
package innertube

import (
	"context"
	"fmt"
	"strings"

	ythttp "ytscribe/http"
)

const (
	// browseEndpoint is the Innertube API endpoint for browsing channel content.
	browseEndpoint = "https://www.youtube.com/youtubei/v1/browse"

	clientName    = "WEB"
	clientVersion = "2.20240101.00.00"

	// videosTabParams selects the Videos tab of a channel.
	videosTabParams = "EgZ2aWRlb3PyBgQKAjoA"
)

// Client sends browse requests through the shared HTTP client, which owns
// retries and rate limiting.
type Client struct {
	http     *ythttp.Client
	endpoint string
}

// ClientOption configures the Innertube client.
type ClientOption func(*Client)

// WithEndpoint overrides the browse endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// NewClient creates a new Innertube API client.
func NewClient(httpClient *ythttp.Client, opts ...ClientOption) *Client {
	c := &Client{http: httpClient, endpoint: browseEndpoint}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BrowseRequest represents a request to the browse endpoint.
type BrowseRequest struct {
	Context      ClientContext `json:"context"`
	BrowseID     string        `json:"browseId,omitempty"`
	Continuation string        `json:"continuation,omitempty"`
	Params       string        `json:"params,omitempty"`
}

// ClientContext contains client identification for the API request.
type ClientContext struct {
	Client ClientInfo `json:"client"`
}

// ClientInfo identifies the client making the request.
type ClientInfo struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl"`
	GL            string `json:"gl"`
}

// BrowseResponse represents the parts of a browse response that carry
// videos, continuation tokens and channel metadata.
type BrowseResponse struct {
	Contents           *Contents          `json:"contents,omitempty"`
	OnResponseReceived []OnResponseAction `json:"onResponseReceivedActions,omitempty"`
	Header             *ChannelHeader     `json:"header,omitempty"`
	Metadata           *ChannelMetadata   `json:"metadata,omitempty"`
}

type Contents struct {
	TwoColumnBrowseResultsRenderer *TwoColumnBrowseResultsRenderer `json:"twoColumnBrowseResultsRenderer,omitempty"`
}

type TwoColumnBrowseResultsRenderer struct {
	Tabs []Tab `json:"tabs,omitempty"`
}

type Tab struct {
	TabRenderer *TabRenderer `json:"tabRenderer,omitempty"`
}

type TabRenderer struct {
	Title    string      `json:"title,omitempty"`
	Selected bool        `json:"selected,omitempty"`
	Content  *TabContent `json:"content,omitempty"`
}

type TabContent struct {
	RichGridRenderer    *RichGridRenderer    `json:"richGridRenderer,omitempty"`
	SectionListRenderer *SectionListRenderer `json:"sectionListRenderer,omitempty"`
}

type RichGridRenderer struct {
	Contents      []ContinuationItem `json:"contents,omitempty"`
	Continuations []Continuation     `json:"continuations,omitempty"`
}

type SectionListRenderer struct {
	Contents      []SectionContent `json:"contents,omitempty"`
	Continuations []Continuation   `json:"continuations,omitempty"`
}

type SectionContent struct {
	ItemSectionRenderer *ItemSectionRenderer `json:"itemSectionRenderer,omitempty"`
}

type ItemSectionRenderer struct {
	Contents []ContinuationItem `json:"contents,omitempty"`
}

// ContinuationItem is one grid or list cell: a video or a continuation.
type ContinuationItem struct {
	RichItemRenderer         *RichItemRenderer         `json:"richItemRenderer,omitempty"`
	ContinuationItemRenderer *ContinuationItemRenderer `json:"continuationItemRenderer,omitempty"`
	GridVideoRenderer        *VideoRenderer            `json:"gridVideoRenderer,omitempty"`
	VideoRenderer            *VideoRenderer            `json:"videoRenderer,omitempty"`
}

type RichItemRenderer struct {
	Content *RichItemContent `json:"content,omitempty"`
}

type RichItemContent struct {
	VideoRenderer *VideoRenderer `json:"videoRenderer,omitempty"`
}

type ContinuationItemRenderer struct {
	ContinuationEndpoint *ContinuationEndpoint `json:"continuationEndpoint,omitempty"`
}

type ContinuationEndpoint struct {
	ContinuationCommand *ContinuationCommand `json:"continuationCommand,omitempty"`
}

type ContinuationCommand struct {
	Token string `json:"token,omitempty"`
}

// Continuation is the legacy token holder still sent on some layouts.
type Continuation struct {
	NextContinuationData *NextContinuationData `json:"nextContinuationData,omitempty"`
}

type NextContinuationData struct {
	Continuation string `json:"continuation,omitempty"`
}

type OnResponseAction struct {
	AppendContinuationItemsAction *AppendContinuationItemsAction `json:"appendContinuationItemsAction,omitempty"`
}

type AppendContinuationItemsAction struct {
	ContinuationItems []ContinuationItem `json:"continuationItems,omitempty"`
}

// VideoRenderer contains video metadata. Grid cells use the same shape
// without a description or length.
type VideoRenderer struct {
	VideoID            string         `json:"videoId,omitempty"`
	Title              *TextRuns      `json:"title,omitempty"`
	DescriptionSnippet *TextRuns      `json:"descriptionSnippet,omitempty"`
	Thumbnail          *ThumbnailList `json:"thumbnail,omitempty"`
	PublishedTimeText  *TextRuns      `json:"publishedTimeText,omitempty"`
	LengthText         *TextRuns      `json:"lengthText,omitempty"`
	ViewCountText      *TextRuns      `json:"viewCountText,omitempty"`
}

// TextRuns contains text with optional runs for formatting.
type TextRuns struct {
	Runs       []TextRun `json:"runs,omitempty"`
	SimpleText string    `json:"simpleText,omitempty"`
}

type TextRun struct {
	Text string `json:"text,omitempty"`
}

type ThumbnailList struct {
	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
}

type Thumbnail struct {
	URL    string `json:"url,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type ChannelHeader struct {
	C4TabbedHeaderRenderer *C4TabbedHeaderRenderer `json:"c4TabbedHeaderRenderer,omitempty"`
	PageHeaderRenderer     *PageHeaderRenderer     `json:"pageHeaderRenderer,omitempty"`
}

type C4TabbedHeaderRenderer struct {
	ChannelID string `json:"channelId,omitempty"`
	Title     string `json:"title,omitempty"`
}

type PageHeaderRenderer struct {
	PageTitle string `json:"pageTitle,omitempty"`
}

type ChannelMetadata struct {
	ChannelMetadataRenderer *ChannelMetadataRenderer `json:"channelMetadataRenderer,omitempty"`
}

type ChannelMetadataRenderer struct {
	Title      string `json:"title,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// Text extracts plain text from TextRuns.
func (t *TextRuns) Text() string {
	if t == nil {
		return ""
	}
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var b strings.Builder
	for _, run := range t.Runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

// Browse fetches the Videos tab of a channel, or the next page when
// continuation is set.
func (c *Client) Browse(ctx context.Context, channelID string, continuation string) (*BrowseResponse, error) {
	req := &BrowseRequest{
		Context: ClientContext{
			Client: ClientInfo{
				ClientName:    clientName,
				ClientVersion: clientVersion,
				HL:            "en",
				GL:            "US",
			},
		},
	}
	if continuation != "" {
		req.Continuation = continuation
	} else {
		req.BrowseID = channelID
		req.Params = videosTabParams
	}

	headers := map[string]string{
		"Origin":  "https://www.youtube.com",
		"Referer": "https://www.youtube.com/",
	}
	httpResp, err := c.http.PostJSON(ctx, c.endpoint, req, headers)
	if err != nil {
		return nil, fmt.Errorf("browse request: %w", err)
	}

	var resp BrowseResponse
	if err := httpResp.JSON(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
