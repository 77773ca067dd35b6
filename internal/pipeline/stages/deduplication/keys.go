package deduplication

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"

	"github.com/jmylchreest/streamfold/internal/models"
)

// smartDetectBucket is the size granularity of the smartDetect fingerprint.
const smartDetectBucket = 100 * 1000 * 1000

// keyFunc derives one fingerprint from a stream, or "" when it has none.
type keyFunc func(*models.ParsedStream) string

var keyFuncs = map[string]keyFunc{
	models.DedupKeyFilename:    filenameKey,
	models.DedupKeyInfoHash:    infoHashKey,
	models.DedupKeySmartDetect: smartDetectKey,
}

// filenameKey lowercases the filename and strips its extension and every
// non-alphanumeric character.
func filenameKey(s *models.ParsedStream) string {
	name := s.Filename
	if name == "" {
		return ""
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, name)
}

func infoHashKey(s *models.ParsedStream) string {
	return s.InfoHash
}

// smartDetectKey hashes the size rounded to the nearest 100 MB together with
// the parsed attributes. Streams without a size have no key.
func smartDetectKey(s *models.ParsedStream) string {
	if s.Size <= 0 {
		return ""
	}
	rounded := (s.Size + smartDetectBucket/2) / smartDetectBucket

	var b strings.Builder
	b.WriteString(strconv.FormatInt(rounded, 10))
	for _, part := range [][]string{
		{s.Resolution()},
		{s.Quality()},
		s.VisualTags(),
		s.AudioTags(),
		s.Languages(),
		{s.Encode()},
	} {
		b.WriteByte('|')
		b.WriteString(strings.Join(part, ","))
	}
	return strconv.FormatUint(xxh3.HashString(b.String()), 16)
}
