package config

const (
	defaultBaseDir                = "~/.local/share/livestream"
	defaultRotationHours          = 12
	defaultPrerollSeconds         = 120
	defaultLiveLeadSeconds        = 30
	defaultHealthIntervalSeconds  = 10
	defaultExitRetryDelaySeconds  = 5
	defaultMaxConsecutiveErrors   = 20
	defaultInactiveRestartSeconds = 60
	defaultMaxLiveRecoveries      = 3
	defaultTitlePrefix            = "weather stream"
	defaultPrivacy                = "public"
	defaultLogLevel               = "info"
	defaultLogFormat              = "console"
	defaultVideoWidth             = 1280
	defaultVideoHeight            = 720
	defaultVideoFPS               = 30
	defaultVideoBitrate           = "2500k"
	defaultKeyInt                 = 60
	defaultAudioSampleRate        = 44100
	defaultAudioBitrate           = "128k"
)

// Default returns a Config populated with repository defaults. Required
// values (credentials, source URL, ingest URL, timezone) stay empty and are
// enforced by Validate.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir: defaultBaseDir,
		},
		Source: Source{
			Width:           defaultVideoWidth,
			Height:          defaultVideoHeight,
			FPS:             defaultVideoFPS,
			VideoBitrate:    defaultVideoBitrate,
			KeyInt:          defaultKeyInt,
			AudioSampleRate: defaultAudioSampleRate,
			AudioBitrate:    defaultAudioBitrate,
		},
		Schedule: Schedule{
			RotationHours:   defaultRotationHours,
			PrerollSeconds:  defaultPrerollSeconds,
			LiveLeadSeconds: defaultLiveLeadSeconds,
		},
		Health: Health{
			IntervalSeconds:        defaultHealthIntervalSeconds,
			ExitRetryDelaySeconds:  defaultExitRetryDelaySeconds,
			MaxConsecutiveErrors:   defaultMaxConsecutiveErrors,
			InactiveRestartSeconds: defaultInactiveRestartSeconds,
			MaxLiveRecoveries:      defaultMaxLiveRecoveries,
		},
		Broadcast: Broadcast{
			TitlePrefix: defaultTitlePrefix,
			Privacy:     defaultPrivacy,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
