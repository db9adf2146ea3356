// Command livestream keeps a Reolink camera feed live on YouTube: it
// supervises an ffmpeg transcoder and drives the broadcast lifecycle on a
// rotation schedule.
package main
