package innertube

// VideoData is a video cell as the browse response renders it. Published,
// Duration and ViewCount keep YouTube's display text.
type VideoData struct {
	VideoID     string
	Title       string
	Description string
	Thumbnail   string
	Published   string
	Duration    string
	ViewCount   string
}

// Page is the decoded content of one browse response.
type Page struct {
	Videos       []VideoData
	Continuation string
	ChannelID    string
	ChannelName  string
}

// ParsePage collects the videos, the next continuation token and the
// channel metadata of a browse response. The first page carries them in the
// selected tab; later pages in appendContinuationItemsAction.
func ParsePage(resp *BrowseResponse) Page {
	var page Page
	if resp == nil {
		return page
	}
	page.ChannelID, page.ChannelName = channelMetadata(resp)

	for _, action := range resp.OnResponseReceived {
		if action.AppendContinuationItemsAction != nil {
			page.addItems(action.AppendContinuationItemsAction.ContinuationItems)
		}
	}

	if resp.Contents == nil || resp.Contents.TwoColumnBrowseResultsRenderer == nil {
		return page
	}
	for _, tab := range resp.Contents.TwoColumnBrowseResultsRenderer.Tabs {
		if tab.TabRenderer == nil || tab.TabRenderer.Content == nil {
			continue
		}
		content := tab.TabRenderer.Content
		if grid := content.RichGridRenderer; grid != nil {
			page.addItems(grid.Contents)
			page.addLegacy(grid.Continuations)
		}
		if list := content.SectionListRenderer; list != nil {
			for _, section := range list.Contents {
				if section.ItemSectionRenderer != nil {
					page.addItems(section.ItemSectionRenderer.Contents)
				}
			}
			page.addLegacy(list.Continuations)
		}
	}
	return page
}

func (p *Page) addItems(items []ContinuationItem) {
	for _, item := range items {
		if v := videoFromItem(item); v != nil {
			p.Videos = append(p.Videos, *v)
			continue
		}
		if p.Continuation == "" {
			p.Continuation = tokenFromItem(item)
		}
	}
}

func (p *Page) addLegacy(conts []Continuation) {
	for _, cont := range conts {
		if p.Continuation == "" && cont.NextContinuationData != nil {
			p.Continuation = cont.NextContinuationData.Continuation
		}
	}
}

func tokenFromItem(item ContinuationItem) string {
	r := item.ContinuationItemRenderer
	if r != nil && r.ContinuationEndpoint != nil && r.ContinuationEndpoint.ContinuationCommand != nil {
		return r.ContinuationEndpoint.ContinuationCommand.Token
	}
	return ""
}

func videoFromItem(item ContinuationItem) *VideoData {
	switch {
	case item.RichItemRenderer != nil && item.RichItemRenderer.Content != nil:
		return rendererToData(item.RichItemRenderer.Content.VideoRenderer)
	case item.GridVideoRenderer != nil:
		return rendererToData(item.GridVideoRenderer)
	case item.VideoRenderer != nil:
		return rendererToData(item.VideoRenderer)
	}
	return nil
}

func rendererToData(v *VideoRenderer) *VideoData {
	if v == nil || v.VideoID == "" {
		return nil
	}
	data := &VideoData{
		VideoID:     v.VideoID,
		Title:       v.Title.Text(),
		Description: v.DescriptionSnippet.Text(),
		Published:   v.PublishedTimeText.Text(),
		Duration:    v.LengthText.Text(),
		ViewCount:   v.ViewCountText.Text(),
	}
	if v.Thumbnail != nil {
		// thumbnails are listed smallest first
		if n := len(v.Thumbnail.Thumbnails); n > 0 {
			data.Thumbnail = v.Thumbnail.Thumbnails[n-1].URL
		}
	}
	return data
}

func channelMetadata(resp *BrowseResponse) (id, name string) {
	if m := resp.Metadata; m != nil && m.ChannelMetadataRenderer != nil {
		return m.ChannelMetadataRenderer.ExternalID, m.ChannelMetadataRenderer.Title
	}
	if h := resp.Header; h != nil {
		if h.C4TabbedHeaderRenderer != nil {
			return h.C4TabbedHeaderRenderer.ChannelID, h.C4TabbedHeaderRenderer.Title
		}
		if h.PageHeaderRenderer != nil {
			return "", h.PageHeaderRenderer.PageTitle
		}
	}
	return "", ""
}
