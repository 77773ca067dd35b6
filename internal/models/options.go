package models

// Unknown is the value every attribute list reads when the stream lacks it.
const Unknown = "Unknown"

// VisualTagHDRDV is synthesised when a stream carries both HDR and DV tags.
const VisualTagHDRDV = "HDR+DV"

// Media types accepted by the pipeline.
const (
	MediaTypeMovie  = "movie"
	MediaTypeSeries = "series"
	MediaTypeAnime  = "anime"
)

// Resolutions in descending order of quality.
var Resolutions = []string{
	"2160p", "1440p", "1080p", "720p", "576p", "480p", "360p", "240p", "144p", Unknown,
}

// Qualities in descending order of quality.
var Qualities = []string{
	"BluRay REMUX", "BluRay", "WEB-DL", "WEBRip", "HDRip", "HC HD-Rip", "DVDRip", "HDTV",
	"CAM", "TS", "TC", "SCR", Unknown,
}

// Encodes known to the filters.
var Encodes = []string{
	"AV1", "HEVC", "AVC", "XviD", "DivX", Unknown,
}

// VisualTags known to the filters.
var VisualTags = []string{
	VisualTagHDRDV, "HDR10+", "HDR10", "DV", "HDR", "10bit", "3D", "IMAX", "AI", "SDR",
	"H-OU", "H-SBS", Unknown,
}

// AudioTags known to the filters.
var AudioTags = []string{
	"Atmos", "DD+", "DD", "DTS:X", "DTS-HD MA", "DTS-HD", "DTS-ES", "DTS", "TrueHD", "OPUS",
	"FLAC", "AAC", Unknown,
}

// AudioChannels known to the filters.
var AudioChannels = []string{
	"2.0", "5.1", "6.1", "7.1", Unknown,
}

// Languages known to the filters.
var Languages = []string{
	"English", "Japanese", "Chinese", "Russian", "Arabic", "Portuguese", "Spanish", "French",
	"German", "Italian", "Korean", "Hindi", "Bengali", "Punjabi", "Marathi", "Gujarati",
	"Tamil", "Telugu", "Kannada", "Malayalam", "Thai", "Vietnamese", "Indonesian", "Turkish",
	"Hebrew", "Persian", "Ukrainian", "Greek", "Lithuanian", "Latvian", "Estonian", "Polish",
	"Czech", "Slovak", "Hungarian", "Romanian", "Bulgarian", "Serbian", "Croatian",
	"Slovenian", "Dutch", "Danish", "Finnish", "Swedish", "Norwegian", "Malay", "Latino",
	"Multi", "Dual Audio", "Dubbed", Unknown,
}

// Deduplication keys.
const (
	DedupKeyFilename    = "filename"
	DedupKeyInfoHash    = "infoHash"
	DedupKeySmartDetect = "smartDetect"
)

// DedupKeys lists every valid deduplication key.
var DedupKeys = []string{DedupKeyFilename, DedupKeyInfoHash, DedupKeySmartDetect}

// DedupMode decides how many members of a type-bucket survive.
type DedupMode string

// Deduplication modes.
const (
	DedupModeDisabled     DedupMode = "disabled"
	DedupModeSingleResult DedupMode = "single_result"
	DedupModePerService   DedupMode = "per_service"
	DedupModePerAddon     DedupMode = "per_addon"
)

// DedupModes lists every valid deduplication mode.
var DedupModes = []DedupMode{
	DedupModeDisabled, DedupModeSingleResult, DedupModePerService, DedupModePerAddon,
}

// MultiGroupBehaviour decides what happens when a duplicate group holds both
// cached and uncached streams.
type MultiGroupBehaviour string

// Multi-group behaviours.
const (
	MultiGroupRemoveUncached            MultiGroupBehaviour = "remove_uncached"
	MultiGroupRemoveNothing             MultiGroupBehaviour = "remove_nothing"
	MultiGroupRemoveUncachedSameService MultiGroupBehaviour = "remove_uncached_same_service"
)

// MultiGroupBehaviours lists every valid multi-group behaviour.
var MultiGroupBehaviours = []MultiGroupBehaviour{
	MultiGroupRemoveUncached, MultiGroupRemoveNothing, MultiGroupRemoveUncachedSameService,
}

// Sort keys.
const (
	SortKeyCached                  = "cached"
	SortKeyLibrary                 = "library"
	SortKeySize                    = "size"
	SortKeySeeders                 = "seeders"
	SortKeyResolution              = "resolution"
	SortKeyQuality                 = "quality"
	SortKeyEncode                  = "encode"
	SortKeyVisualTag               = "visualTag"
	SortKeyAudioTag                = "audioTag"
	SortKeyAudioChannel            = "audioChannel"
	SortKeyLanguage                = "language"
	SortKeyStreamType              = "streamType"
	SortKeyAddon                   = "addon"
	SortKeyService                 = "service"
	SortKeyRegexPatterns           = "regexPatterns"
	SortKeyKeyword                 = "keyword"
	SortKeyStreamExpressionMatched = "streamExpressionMatched"
)

// SortKeys lists every valid sort key.
var SortKeys = []string{
	SortKeyCached, SortKeyLibrary, SortKeySize, SortKeySeeders, SortKeyResolution,
	SortKeyQuality, SortKeyEncode, SortKeyVisualTag, SortKeyAudioTag, SortKeyAudioChannel,
	SortKeyLanguage, SortKeyStreamType, SortKeyAddon, SortKeyService, SortKeyRegexPatterns,
	SortKeyKeyword, SortKeyStreamExpressionMatched,
}

// SortDirection orders a sort criterion.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Title matching modes.
const (
	TitleMatchExact    = "exact"
	TitleMatchContains = "contains"
	TitleMatchFuzzy    = "fuzzy"
)

// Seeder range scopes.
const (
	SeederScopeP2P      = "p2p"
	SeederScopeCached   = "cached"
	SeederScopeUncached = "uncached"
)

// Combination modes for scoped cache exclusion.
const (
	CombineAnd = "and"
	CombineOr  = "or"
)
