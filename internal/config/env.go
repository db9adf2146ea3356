package config

import (
	"os"
	"strconv"
)

// applyEnv overlays LIVESTREAM_* environment variables onto the config.
// Environment values win over the config file so systemd unit drop-ins and
// .env files can override a shared file.
func (c *Config) applyEnv() {
	envString("LIVESTREAM_BASE_DIR", &c.Paths.BaseDir)
	envString("LIVESTREAM_LOG_DIR", &c.Paths.LogDir)
	envString("LIVESTREAM_CLIENT_SECRETS", &c.Google.ClientSecrets)
	envString("LIVESTREAM_TOKEN_FILE", &c.Google.TokenFile)
	envString("LIVESTREAM_RTSP_URL", &c.Source.RTSPURL)
	envInt("LIVESTREAM_VIDEO_WIDTH", &c.Source.Width)
	envInt("LIVESTREAM_VIDEO_HEIGHT", &c.Source.Height)
	envInt("LIVESTREAM_VIDEO_FPS", &c.Source.FPS)
	envString("LIVESTREAM_VIDEO_BITRATE", &c.Source.VideoBitrate)
	envInt("LIVESTREAM_KEYINT", &c.Source.KeyInt)
	envInt("LIVESTREAM_AUDIO_SAMPLE_RATE", &c.Source.AudioSampleRate)
	envString("LIVESTREAM_AUDIO_BITRATE", &c.Source.AudioBitrate)
	envString("LIVESTREAM_RTMP_INGEST", &c.Ingest.RTMPBase)
	envString("LIVESTREAM_STREAM_KEY_FILE", &c.Ingest.StreamKeyFile)
	envString("LIVESTREAM_STREAM_ID", &c.Ingest.StreamID)
	envString("LIVESTREAM_TZ", &c.Schedule.Timezone)
	envInt("LIVESTREAM_ROTATION_HOURS", &c.Schedule.RotationHours)
	envString("LIVESTREAM_FIXED_START_HOURS", &c.Schedule.FixedStartHours)
	envInt("LIVESTREAM_PREROLL_SECS", &c.Schedule.PrerollSeconds)
	envInt("LIVESTREAM_LIVE_LEAD_SECS", &c.Schedule.LiveLeadSeconds)
	envInt("LIVESTREAM_HEALTH_INTERVAL_SECS", &c.Health.IntervalSeconds)
	envInt("LIVESTREAM_EXIT_RETRY_DELAY_SECS", &c.Health.ExitRetryDelaySeconds)
	envInt("LIVESTREAM_MAX_CONSECUTIVE_ERRORS", &c.Health.MaxConsecutiveErrors)
	envInt("LIVESTREAM_INACTIVE_RESTART_SECS", &c.Health.InactiveRestartSeconds)
	envInt("LIVESTREAM_MAX_LIVE_RECOVERIES", &c.Health.MaxLiveRecoveries)
	envString("LIVESTREAM_TITLE_PREFIX", &c.Broadcast.TitlePrefix)
	envString("LIVESTREAM_PRIVACY", &c.Broadcast.Privacy)
	envString("LIVESTREAM_STATUS_BIND", &c.API.Bind)
	envString("LIVESTREAM_LOG_LEVEL", &c.Logging.Level)
	envString("LIVESTREAM_LOG_FORMAT", &c.Logging.Format)
}

func envString(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func envInt(key string, target *int) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}
