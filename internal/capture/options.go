package capture

import (
	"time"

	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
)

const (
	// DefaultMIMEType is the container used when the requested one is
	// unsupported or unset.
	DefaultMIMEType = "video/webm"

	defaultChunkInterval = time.Second
	minChunkInterval     = 100 * time.Millisecond
	maxChunkInterval     = 5 * time.Second
	minFrameRate         = 15
	maxFrameRate         = 60
	minAudioBitrateKbps  = 64
	maxAudioBitrateKbps  = 320
)

// supportedMIMETypes are the containers the default source can produce.
var supportedMIMETypes = map[string]string{
	"video/webm": "webm",
	"video/mp4":  "mp4",
}

// Options configures a capture source.
type Options struct {
	Kind               config.SourceKind
	IncludeSystemAudio bool
	IncludeMicrophone  bool
	Quality            config.Quality
	FrameRate          int
	AudioBitrateKbps   int
	MIMEType           string
	ChunkInterval      time.Duration
	FFmpegPath         string
}

// OptionsFromConfig builds capture options from the application config.
func OptionsFromConfig(cfg *config.Config) *Options {
	return &Options{
		Kind:               cfg.SourceKind,
		IncludeSystemAudio: cfg.IncludeSystemAudio,
		IncludeMicrophone:  cfg.IncludeMicrophone,
		Quality:            cfg.Quality,
		FrameRate:          cfg.FrameRate,
		AudioBitrateKbps:   cfg.AudioBitrateKbps,
		MIMEType:           cfg.MIMEType,
		FFmpegPath:         cfg.FFmpegPath,
	}
}

// Normalize fills defaults and clamps ranges. The returned warning is
// non-nil when the requested container is unsupported and the default was
// substituted; callers should log it and continue.
func Normalize(options *Options) (*Options, *errors.RewindError) {
	opts := &Options{}
	if options != nil {
		*opts = *options
	}

	if opts.Kind == "" {
		opts.Kind = config.SourceScreen
	}
	if opts.Quality == "" {
		opts.Quality = config.QualityHigh
	}
	if opts.FrameRate == 0 {
		opts.FrameRate = 30
	} else if opts.FrameRate < minFrameRate {
		opts.FrameRate = minFrameRate
	} else if opts.FrameRate > maxFrameRate {
		opts.FrameRate = maxFrameRate
	}
	if opts.AudioBitrateKbps == 0 {
		opts.AudioBitrateKbps = 128
	} else if opts.AudioBitrateKbps < minAudioBitrateKbps {
		opts.AudioBitrateKbps = minAudioBitrateKbps
	} else if opts.AudioBitrateKbps > maxAudioBitrateKbps {
		opts.AudioBitrateKbps = maxAudioBitrateKbps
	}
	if opts.ChunkInterval == 0 {
		opts.ChunkInterval = defaultChunkInterval
	} else if opts.ChunkInterval < minChunkInterval {
		opts.ChunkInterval = minChunkInterval
	} else if opts.ChunkInterval > maxChunkInterval {
		opts.ChunkInterval = maxChunkInterval
	}

	var warn *errors.RewindError
	if opts.MIMEType == "" {
		opts.MIMEType = DefaultMIMEType
	} else if _, ok := supportedMIMETypes[opts.MIMEType]; !ok {
		warn = errors.NewEncodingUnsupported(opts.MIMEType, DefaultMIMEType)
		opts.MIMEType = DefaultMIMEType
	}

	return opts, warn
}

// Resolution is the pixel geometry and video bitrate for a quality tier.
type Resolution struct {
	Width     int
	Height    int
	VideoKbps int
}

// ResolveQuality maps a quality tier to its resolution and video bitrate.
func ResolveQuality(q config.Quality) Resolution {
	switch q {
	case config.QualityLow:
		return Resolution{Width: 854, Height: 480, VideoKbps: 1000}
	case config.QualityMedium:
		return Resolution{Width: 1280, Height: 720, VideoKbps: 2500}
	case config.QualityUltra:
		return Resolution{Width: 2560, Height: 1440, VideoKbps: 8000}
	default:
		return Resolution{Width: 1920, Height: 1080, VideoKbps: 5000}
	}
}

// ExtensionForMIME returns the filename extension for a container type.
// Unknown types get the default container's extension.
func ExtensionForMIME(mime string) string {
	if ext, ok := supportedMIMETypes[mime]; ok {
		return ext
	}
	return supportedMIMETypes[DefaultMIMEType]
}
