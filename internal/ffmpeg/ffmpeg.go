// Package ffmpeg builds the transcoder command line. The builder is a pure
// function of the configuration; the orchestrator treats the result as an
// opaque argv.
package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
)

// Destination joins the ingest base URL and the stream key.
func Destination(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// BuildArgs produces the ffmpeg argv for the configured camera source and
// the given RTMP destination (base URL plus stream key).
//
// The pipeline keeps RTSP on TCP for stability, generates a silent stereo
// bed so the platform always sees audio, and transcodes to H.264 + AAC in
// an FLV mux.
func BuildArgs(cfg *config.Config, destination string) []string {
	src := cfg.Source
	return []string{
		"ffmpeg",
		"-hide_banner", "-loglevel", "warning",

		"-rtsp_transport", "tcp",
		"-thread_queue_size", "512",
		"-i", src.RTSPURL,

		"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", src.AudioSampleRate),

		"-map", "0:v:0",
		"-map", "1:a:0",

		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", src.VideoBitrate,
		"-maxrate", src.VideoBitrate,
		"-bufsize", "6000k",
		"-g", strconv.Itoa(src.KeyInt),
		"-r", strconv.Itoa(src.FPS),
		"-vf", fmt.Sprintf("scale=%d:%d,format=yuv420p", src.Width, src.Height),

		"-c:a", "aac",
		"-b:a", src.AudioBitrate,
		"-ar", strconv.Itoa(src.AudioSampleRate),
		"-ac", "2",

		"-f", "flv",
		destination,
	}
}
