// Package sidecar writes the metadata files media library managers read next
// to an acquired item: a Jellyfin .nfo and a Plex .xml document.
package sidecar

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"

	"vibetube/internal/fileutil"
	"vibetube/internal/services/ytdlp"
	"vibetube/internal/textutil"
)

const outlineLimit = 200

// Metadata carries the stored item fields plus the optional detailed lookup.
type Metadata struct {
	ExternalID string
	Title      string
	Channel    string
	UploadDate string
	Detail     *ytdlp.Info
}

func (m Metadata) title() string {
	if m.Title != "" {
		return m.Title
	}
	return m.ExternalID
}

// BaseName is the sanitized title shared by both side-car files.
func (m Metadata) BaseName() string {
	return textutil.FolderName(m.title(), m.ExternalID)
}

type element struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type document struct {
	XMLName  xml.Name
	Children []element
}

func (d *document) add(name, text string) {
	d.Children = append(d.Children, element{XMLName: xml.Name{Local: name}, Text: text})
}

func (d *document) has(name string) bool {
	for _, child := range d.Children {
		if child.XMLName.Local == name {
			return true
		}
	}
	return false
}

// addFallbacks appends studio/director from the stored channel and year from
// the stored upload date when the detailed lookup did not supply them.
func (d *document) addFallbacks(m Metadata) {
	if m.Channel != "" {
		if !d.has("studio") {
			d.add("studio", m.Channel)
		}
		if !d.has("director") {
			d.add("director", m.Channel)
		}
	}
	if len(m.UploadDate) >= 4 && !d.has("year") {
		d.add("year", m.UploadDate[:4])
	}
}

func isoDate(yyyymmdd string) string {
	return yyyymmdd[:4] + "-" + yyyymmdd[4:6] + "-" + yyyymmdd[6:8]
}

// Jellyfin builds the <movie> document.
func Jellyfin(m Metadata) ([]byte, error) {
	title := m.title()
	doc := &document{XMLName: xml.Name{Local: "movie"}}
	doc.add("title", title)
	doc.add("originaltitle", title)
	doc.add("id", m.ExternalID)
	doc.add("youtube", ytdlp.VideoURL(m.ExternalID))

	if d := m.Detail; d != nil {
		if len(d.UploadDate) == 8 {
			doc.add("premiered", isoDate(d.UploadDate))
			doc.add("year", d.UploadDate[:4])
		}
		if d.Description != "" {
			doc.add("plot", d.Description)
			doc.add("outline", textutil.Ellipsize(d.Description, outlineLimit))
		}
		if d.Duration > 0 {
			doc.add("runtime", strconv.Itoa(int(d.Duration/60)))
		}
		if d.Channel != "" {
			doc.add("studio", d.Channel)
			doc.add("director", d.Channel)
		}
	}
	doc.addFallbacks(m)
	doc.add("source", "YouTube")
	return render(doc)
}

// Plex builds the <metadata> document.
func Plex(m Metadata) ([]byte, error) {
	doc := &document{XMLName: xml.Name{Local: "metadata"}}
	doc.add("title", m.title())
	doc.add("youtube", ytdlp.VideoURL(m.ExternalID))

	if d := m.Detail; d != nil {
		if d.Description != "" {
			doc.add("summary", d.Description)
		}
		if len(d.UploadDate) == 8 {
			doc.add("year", d.UploadDate[:4])
			doc.add("originally_available", isoDate(d.UploadDate))
		}
		if d.Channel != "" {
			doc.add("studio", d.Channel)
			doc.add("director", d.Channel)
		}
	}
	doc.addFallbacks(m)
	return render(doc)
}

func render(doc *document) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", doc.XMLName.Local, err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// WriteJellyfin writes <dir>/<base>.nfo and returns its path.
func WriteJellyfin(dir string, m Metadata) (string, error) {
	data, err := Jellyfin(m)
	if err != nil {
		return "", err
	}
	return write(filepath.Join(dir, m.BaseName()+".nfo"), data)
}

// WritePlex writes <dir>/<base>.xml and returns its path.
func WritePlex(dir string, m Metadata) (string, error) {
	data, err := Plex(m)
	if err != nil {
		return "", err
	}
	return write(filepath.Join(dir, m.BaseName()+".xml"), data)
}

func write(path string, data []byte) (string, error) {
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
