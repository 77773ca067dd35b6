package addon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MunifTanjim/go-ptt"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/streamfold/internal/models"
)

var (
	reSeeders = regexp.MustCompile(`👤\s*(\d+)`)
	reSize    = regexp.MustCompile(`💾\s*([\d.,]+\s*[KMGT]i?B)`)
	reIndexer = regexp.MustCompile(`⚙️?\s*([^\n👤💾]+)`)
	// [RD+], [AD download], [TB⚡] style service markers.
	reService = regexp.MustCompile(`\[([A-Za-z]{2,3})(\+|⚡|\s*download|\s*⏳)?\]`)
	reError   = regexp.MustCompile(`(?i)^\s*(\[?❌\]?|error|⚠️)`)
)

// serviceCodes maps the short provider codes addons print to service ids.
var serviceCodes = map[string]string{
	"RD":  "realdebrid",
	"AD":  "alldebrid",
	"PM":  "premiumize",
	"DL":  "debridlink",
	"TB":  "torbox",
	"ED":  "easydebrid",
	"OC":  "offcloud",
	"PP":  "pikpak",
	"PKP": "pikpak",
	"NZB": "usenet",
}

// ServiceCode returns the short marker code for a service id, falling back to
// the upper-cased id.
func ServiceCode(id string) string {
	code := ""
	for c, sid := range serviceCodes {
		if sid == id && (code == "" || c < code) {
			code = c
		}
	}
	if code == "" {
		return strings.ToUpper(id)
	}
	return code
}

// usenetServices are provider ids that serve from usenet rather than a
// torrent cache.
var usenetServices = map[string]bool{
	"usenet": true,
}

// Extractor converts raw addon streams into parsed streams.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds a parsed stream from the index-th raw stream of an addon.
// Streams with nothing playable are returned as error reports.
func (e *Extractor) Extract(addon models.Addon, raw rawStream, index int) *models.ParsedStream {
	text := strings.TrimSpace(raw.Description)
	if text == "" {
		text = strings.TrimSpace(raw.Title)
	}

	s := &models.ParsedStream{
		ID:          fmt.Sprintf("%s-%d", addon.InstanceID, index),
		Addon:       addon.Ref(),
		URL:         raw.URL,
		InfoHash:    strings.ToLower(strings.TrimSpace(raw.InfoHash)),
		FileIndex:   raw.FileIdx,
		Name:        raw.Name,
		Description: text,
	}

	if (raw.URL == "" && raw.InfoHash == "" && raw.YtID == "" && raw.ExternalURL == "") ||
		reError.MatchString(raw.Name) {
		s.Error = &models.StreamError{Title: addon.Name, Description: firstLine(text)}
		return s
	}

	s.Type, s.Service = classify(raw)
	switch s.Type {
	case models.StreamTypeYouTube:
		s.URL = "https://www.youtube.com/watch?v=" + raw.YtID
	case models.StreamTypeExternal:
		s.URL = raw.ExternalURL
	}

	s.Filename = raw.BehaviorHints.Filename
	if s.Filename == "" {
		s.Filename = firstLine(text)
	}
	if lines := strings.Split(text, "\n"); len(lines) > 1 && raw.BehaviorHints.Filename != "" {
		if folder := strings.TrimSpace(lines[0]); folder != s.Filename && !strings.ContainsAny(folder, "👤💾⚙") {
			s.FolderName = folder
		}
	}

	s.Size = raw.BehaviorHints.VideoSize
	if s.Size == 0 {
		s.Size = parseSize(text)
	}
	if m := reIndexer.FindStringSubmatch(text); m != nil {
		s.Indexer = strings.TrimSpace(m[1])
	}

	if s.Type == models.StreamTypeP2P || (s.Service != nil && !s.Service.Cached) {
		s.Torrent = &models.Torrent{Sources: raw.Sources}
		if m := reSeeders.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				s.Torrent.Seeders = &n
			}
		}
	}

	s.ParsedFile = parseFilename(s.Filename, raw.Name)
	return s
}

// classify decides the stream type and, for debrid and usenet streams, the
// serving provider from the addon's name marker.
func classify(raw rawStream) (models.StreamType, *models.Service) {
	switch {
	case raw.YtID != "":
		return models.StreamTypeYouTube, nil
	case raw.ExternalURL != "" && raw.URL == "":
		return models.StreamTypeExternal, nil
	case raw.URL == "" && raw.InfoHash != "":
		return models.StreamTypeP2P, nil
	}

	for _, m := range reService.FindAllStringSubmatch(raw.Name, -1) {
		if id, ok := serviceCodes[strings.ToUpper(m[1])]; ok {
			cached := m[2] == "+" || m[2] == "⚡"
			svc := &models.Service{ID: id, Cached: cached}
			if usenetServices[id] {
				return models.StreamTypeUsenet, svc
			}
			return models.StreamTypeDebrid, svc
		}
	}
	if strings.HasSuffix(strings.ToLower(raw.URL), ".m3u8") {
		return models.StreamTypeLive, nil
	}
	return models.StreamTypeHTTP, nil
}

func parseSize(text string) int64 {
	m := reSize.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := humanize.ParseBytes(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return int64(n)
}

// parseFilename runs the release parser over the filename and maps its output
// onto the filter vocabularies. The addon's display name fills in a
// resolution the filename lacks.
func parseFilename(filename, name string) *models.ParsedFile {
	if filename == "" {
		return nil
	}
	r := ptt.Parse(filename)

	pf := &models.ParsedFile{
		Title:         r.Title,
		Year:          parseYear(r.Year),
		Seasons:       r.Seasons,
		Episodes:      r.Episodes,
		Resolution:    normalizeResolution(r.Resolution),
		Quality:       normalizeQuality(r.Quality, filename),
		Encode:        normalizeEncode(r.Codec),
		VisualTags:    visualTags(r, filename),
		AudioTags:     audioTags(r.Audio),
		AudioChannels: audioChannels(r.Channels),
		Languages:     languages(r),
		ReleaseGroup:  r.Group,
	}
	if pf.Resolution == "" {
		pf.Resolution = normalizeResolution(resolutionFromName(name))
	}
	return pf
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func parseYear(s string) int {
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}
