package voice

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"layeh.com/gopus"
)

const (
	sampleRate = 48000 // Discord voice standard
	channels   = 2
	frameSize  = 960 // 20ms of audio per opus frame
	maxBytes   = frameSize * channels * 2
	bitrate    = 128000
)

// Player streams one audio file to a Discord voice connection. ffmpeg
// decodes the file to raw PCM which is scaled for volume, opus encoded
// and handed to discordgo frame by frame.
type Player struct {
	vc     *discordgo.VoiceConnection
	path   string
	onDone func(error)

	cmd     *exec.Cmd
	volume  atomic.Uint64 // float64 bits
	playing atomic.Bool
	paused  atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once

	// written by the stream goroutine before it returns
	streamErr error
}

func newPlayer(vc *discordgo.VoiceConnection, path string, volume float64, onDone func(error)) *Player {
	p := &Player{
		vc:     vc,
		path:   path,
		onDone: onDone,
		stop:   make(chan struct{}),
	}
	p.SetVolume(volume)
	return p
}

func (p *Player) start() error {
	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", p.path,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to create ffmpeg stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start ffmpeg")
	}
	p.cmd = cmd
	p.playing.Store(true)

	zlog.Debug().Msgf("starting playback: path=%s", p.path)
	go p.stream(bufio.NewReaderSize(stdout, maxBytes*4))
	return nil
}

func (p *Player) stream(r io.Reader) {
	defer p.finish()

	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		p.streamErr = errors.Wrap(err, "failed to create opus encoder")
		return
	}
	enc.SetBitrate(bitrate)

	if err := p.vc.Speaking(true); err != nil {
		zlog.Warn().Msgf("failed to set speaking state: %v", err)
	}

	buf := make([]int16, frameSize*channels)
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		// While paused no frames are read. ffmpeg stalls on pipe
		// backpressure, so playback resumes where it left off.
		if p.paused.Load() {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		err := binary.Read(r, binary.LittleEndian, &buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return
		}
		if err != nil {
			p.streamErr = errors.Wrap(err, "failed to read pcm from ffmpeg")
			return
		}

		applyVolume(buf, p.Volume())

		frame, err := enc.Encode(buf, frameSize, maxBytes)
		if err != nil {
			p.streamErr = errors.Wrap(err, "failed to encode opus frame")
			return
		}

		select {
		case p.vc.OpusSend <- frame:
		case <-p.stop:
			return
		}
	}
}

// finish tears down ffmpeg and reports completion exactly once.
func (p *Player) finish() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	if p.cmd != nil {
		_ = p.cmd.Wait()
	}
	if p.vc != nil && p.vc.Ready {
		_ = p.vc.Speaking(false)
	}
	p.playing.Store(false)

	p.doneOnce.Do(func() {
		err := p.streamErr
		if err != nil {
			zlog.Warn().Msgf("playback ended with error: path=%s error=%v", p.path, err)
		}
		if p.onDone != nil {
			go p.onDone(err)
		}
	})
}

// Stop ends playback. The completion callback still fires.
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		// Unblock a pending pipe read
		if p.cmd != nil && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
}

// Pause withholds frames without losing the playback position.
func (p *Player) Pause() {
	p.paused.Store(true)
	if p.vc != nil && p.vc.Ready {
		_ = p.vc.Speaking(false)
	}
}

// Resume continues a paused playback.
func (p *Player) Resume() {
	p.paused.Store(false)
	if p.vc != nil && p.vc.Ready {
		_ = p.vc.Speaking(true)
	}
}

// Playing reports whether the stream goroutine is still running.
func (p *Player) Playing() bool {
	return p.playing.Load()
}

// Paused reports whether playback is currently paused.
func (p *Player) Paused() bool {
	return p.paused.Load()
}

// SetVolume changes the live playback volume. Values are clamped to [0, 2].
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 2 {
		v = 2
	}
	p.volume.Store(math.Float64bits(v))
}

// Volume returns the current playback volume.
func (p *Player) Volume() float64 {
	return math.Float64frombits(p.volume.Load())
}

// applyVolume scales raw pcm samples in place, clipping at int16 range.
func applyVolume(samples []int16, volume float64) {
	if volume == 1.0 {
		return
	}
	for i, s := range samples {
		v := float64(s) * volume
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}
