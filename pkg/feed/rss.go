// Package feed renders the release catalog as a podcast-style RSS feed so
// releases stay subscribable outside the protocol.
package feed

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/zapwave/zapwave/pkg/catalog"
)

// Site describes the channel-level feed fields.
type Site struct {
	Title       string
	Link        string
	Description string
}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate,omitempty"`
	Image       *image `xml:"image,omitempty"`
	Items       []item `xml:"item"`
}

type image struct {
	URL   string `xml:"url"`
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

type item struct {
	Title     string     `xml:"title"`
	GUID      string     `xml:"guid"`
	PubDate   string     `xml:"pubDate,omitempty"`
	Enclosure *enclosure `xml:"enclosure,omitempty"`
}

type enclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// RenderRSS renders releases as an RSS 2.0 document, one item per track,
// newest release first. The channel image comes from the latest release
// carrying one.
func RenderRSS(site Site, releases []catalog.Release) ([]byte, error) {
	sorted := catalog.SortReleasesByDate(releases)

	ch := channel{
		Title:       site.Title,
		Link:        site.Link,
		Description: site.Description,
	}
	if latest := catalog.LatestReleaseWithImage(sorted); latest != nil {
		ch.Image = &image{URL: latest.ImageURL, Title: site.Title, Link: site.Link}
	}
	if latest := catalog.LatestRelease(sorted); latest != nil {
		ch.PubDate = rfc1123(latest.EffectiveTime())
	}

	for _, rel := range sorted {
		for _, t := range rel.Tracks {
			it := item{
				Title:   fmt.Sprintf("%s - %s", rel.Title, t.Title),
				GUID:    t.ID,
				PubDate: rfc1123(t.CreatedAt),
			}
			if t.AudioURL != "" {
				it.Enclosure = &enclosure{URL: t.AudioURL, Type: "audio/mpeg"}
			}
			ch.Items = append(ch.Items, it)
		}
	}

	out, err := xml.MarshalIndent(rss{Version: "2.0", Channel: ch}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render rss: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func rfc1123(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC1123Z)
}
