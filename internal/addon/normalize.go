package addon

import (
	"regexp"
	"slices"
	"strings"

	"github.com/MunifTanjim/go-ptt"

	"github.com/jmylchreest/streamfold/internal/models"
)

var (
	reRemux      = regexp.MustCompile(`(?i)\bremux\b`)
	reIMAX       = regexp.MustCompile(`(?i)\bimax\b`)
	reAIUpscale  = regexp.MustCompile(`(?i)\b(ai[ ._-]?upscaled?|upscaled)\b`)
	reResolution = regexp.MustCompile(`(?i)\b(2160p|4k|uhd|1440p|1080p|720p|576p|480p|360p)\b`)
)

func normalizeResolution(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "":
		return ""
	case "4k", "uhd", "2160p":
		return "2160p"
	case "2k", "1440p":
		return "1440p"
	default:
		if slices.Contains(models.Resolutions, v) {
			return v
		}
		return ""
	}
}

func resolutionFromName(name string) string {
	return reResolution.FindString(name)
}

func normalizeQuality(q, filename string) string {
	v := strings.ToLower(q)
	switch {
	case v == "":
		return ""
	case strings.Contains(v, "remux") || (strings.Contains(v, "bluray") && reRemux.MatchString(filename)):
		return "BluRay REMUX"
	case strings.Contains(v, "bluray"), strings.Contains(v, "bdrip"), strings.Contains(v, "brrip"):
		return "BluRay"
	case strings.Contains(v, "webrip"), strings.Contains(v, "webmux"):
		return "WEBRip"
	case strings.HasPrefix(v, "web"):
		return "WEB-DL"
	case strings.Contains(v, "hdrip"):
		return "HDRip"
	case strings.Contains(v, "dvd"):
		return "DVDRip"
	case strings.Contains(v, "hdtv"), strings.Contains(v, "tvrip"):
		return "HDTV"
	case strings.Contains(v, "telesync"), v == "ts":
		return "TS"
	case strings.Contains(v, "telecine"), v == "tc":
		return "TC"
	case strings.Contains(v, "scr"):
		return "SCR"
	case strings.Contains(v, "cam"):
		return "CAM"
	default:
		return ""
	}
}

func normalizeEncode(codec string) string {
	switch strings.ToLower(codec) {
	case "hevc", "x265", "h265", "h.265":
		return "HEVC"
	case "avc", "x264", "h264", "h.264":
		return "AVC"
	case "av1":
		return "AV1"
	case "xvid":
		return "XviD"
	case "divx":
		return "DivX"
	default:
		return ""
	}
}

func visualTags(r *ptt.Result, filename string) []string {
	var tags []string
	add := func(t string) {
		if !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	for _, h := range r.HDR {
		switch strings.ToUpper(strings.ReplaceAll(h, " ", "")) {
		case "DV", "DOVI", "DOLBYVISION":
			add("DV")
		case "HDR10+", "HDR10PLUS":
			add("HDR10+")
		case "HDR10":
			add("HDR10")
		case "HDR":
			add("HDR")
		case "SDR":
			add("SDR")
		}
	}
	if strings.EqualFold(r.BitDepth, "10bit") {
		add("10bit")
	}
	if r.ThreeD != "" {
		switch {
		case strings.Contains(strings.ToUpper(r.ThreeD), "OU"):
			add("H-OU")
		case strings.Contains(strings.ToUpper(r.ThreeD), "SBS"):
			add("H-SBS")
		}
		add("3D")
	}
	if reIMAX.MatchString(filename) {
		add("IMAX")
	}
	if reAIUpscale.MatchString(filename) || r.Upscaled {
		add("AI")
	}
	return tags
}

// audioAliases maps release parser audio names to the filter vocabulary.
var audioAliases = map[string]string{
	"atmos":              "Atmos",
	"ddp":                "DD+",
	"dd+":                "DD+",
	"eac3":               "DD+",
	"dolby digital plus": "DD+",
	"dd":                 "DD",
	"ac3":                "DD",
	"dolby digital":      "DD",
	"dts:x":              "DTS:X",
	"dts-x":              "DTS:X",
	"dts lossless":       "DTS-HD MA",
	"dts-hd ma":          "DTS-HD MA",
	"dts-hd":             "DTS-HD",
	"dts-es":             "DTS-ES",
	"dts lossy":          "DTS",
	"dts":                "DTS",
	"truehd":             "TrueHD",
	"opus":               "OPUS",
	"flac":               "FLAC",
	"aac":                "AAC",
}

func audioTags(audio []string) []string {
	var out []string
	for _, a := range audio {
		if tag, ok := audioAliases[strings.ToLower(a)]; ok && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func audioChannels(channels []string) []string {
	var out []string
	for _, c := range channels {
		v := strings.ToLower(c)
		switch v {
		case "stereo", "2ch":
			v = "2.0"
		case "6ch":
			v = "5.1"
		case "8ch":
			v = "7.1"
		}
		if slices.Contains(models.AudioChannels, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// languageCodes maps release parser language codes to vocabulary names.
var languageCodes = map[string]string{
	"en": "English", "ja": "Japanese", "zh": "Chinese", "ru": "Russian", "ar": "Arabic",
	"pt": "Portuguese", "es": "Spanish", "fr": "French", "de": "German", "it": "Italian",
	"ko": "Korean", "hi": "Hindi", "bn": "Bengali", "pa": "Punjabi", "mr": "Marathi",
	"gu": "Gujarati", "ta": "Tamil", "te": "Telugu", "kn": "Kannada", "ml": "Malayalam",
	"th": "Thai", "vi": "Vietnamese", "id": "Indonesian", "tr": "Turkish", "he": "Hebrew",
	"fa": "Persian", "uk": "Ukrainian", "el": "Greek", "lt": "Lithuanian", "lv": "Latvian",
	"et": "Estonian", "pl": "Polish", "cs": "Czech", "sk": "Slovak", "hu": "Hungarian",
	"ro": "Romanian", "bg": "Bulgarian", "sr": "Serbian", "hr": "Croatian", "sl": "Slovenian",
	"nl": "Dutch", "da": "Danish", "fi": "Finnish", "sv": "Swedish", "no": "Norwegian",
	"ms": "Malay", "es-419": "Latino", "la": "Latino",
	"multi audio": "Multi", "dual audio": "Dual Audio",
}

func languages(r *ptt.Result) []string {
	var out []string
	for _, l := range r.Languages {
		if name, ok := languageCodes[strings.ToLower(l)]; ok && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	if r.Dubbed && !slices.Contains(out, "Dubbed") {
		out = append(out, "Dubbed")
	}
	return out
}
