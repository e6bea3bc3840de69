package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/internal/audio"
	"github.com/liuscraft/voxlink/internal/logging"
	"github.com/liuscraft/voxlink/pkg/listen"
)

const finishTimeout = 10 * time.Second

var (
	listenFile    string
	listenMic     bool
	listenModel   string
	listenInterim bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Live transcription of a file or the microphone",
	Long: `Stream audio to the live transcription endpoint and print transcripts
as they arrive.

WAV files are resampled to listen.sample_rate when their rate differs. Other
files are treated as raw PCM in the configured audio format. Audio is paced
at real time.

Examples:
  voxlink listen --mic
  voxlink listen --file meeting.wav --interim`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (listenFile == "") == !listenMic {
			return errors.New("exactly one of --file or --mic is required")
		}
		return current.runListen(cmd.Context())
	},
}

func init() {
	listenCmd.Flags().StringVar(&listenFile, "file", "", "audio file to stream (WAV or raw PCM)")
	listenCmd.Flags().BoolVar(&listenMic, "mic", false, "stream from the microphone")
	listenCmd.Flags().StringVar(&listenModel, "model", "", "model override")
	listenCmd.Flags().BoolVar(&listenInterim, "interim", false, "print interim results")
}

func (a *app) runListen(ctx context.Context) error {
	opts, err := a.clientOptions()
	if err != nil {
		return err
	}

	src, format, cleanup, err := a.openAudio()
	if err != nil {
		return err
	}
	defer cleanup()

	params := a.cfg.ListenOptions()
	params.Encoding = "linear16"
	params.SampleRate = format.SampleRate
	params.Channels = format.Channels
	if listenModel != "" {
		params.Model = listenModel
	}

	lc, err := listen.NewLiveClient(opts, params, a.cfg.LiveOptions())
	if err != nil {
		return err
	}
	var (
		mu      sync.Mutex
		lastErr error
	)
	lc.OnTranscript(func(r *listen.LiveResult) {
		text := r.Transcript()
		if text == "" || (!r.IsFinal && !listenInterim) {
			return
		}
		if outputJSON {
			fmt.Println(string(mustJSON(r)))
			return
		}
		label := "interim"
		if r.IsFinal {
			label = "final"
		}
		fmt.Printf("[%7.2fs] %-7s %s\n", r.Start, label, text)
	})
	lc.OnUtteranceEnd(func(u *listen.UtteranceEnd) {
		a.logger.Debug("utterance end", zap.Float64("last_word_end", u.LastWordEnd))
	})
	lc.OnMetadata(func(m *listen.Metadata) {
		a.logger.Info("session metadata", zap.String("request_id", m.RequestID), zap.Float64("duration", m.Duration))
	})
	lc.OnWarning(func(w *listen.ErrorResponse) {
		a.logger.Warn("provider warning", zap.String("description", w.Description))
	})
	lc.OnError(func(err error) {
		mu.Lock()
		lastErr = err
		mu.Unlock()
		a.logger.Error("live session error", zap.Error(err))
	})

	if err := lc.Start(ctx); err != nil {
		return err
	}
	logging.StartSession(lc.Conn().ID())
	a.logger.Info("streaming audio", zap.Stringer("format", format), zap.String("conn_id", lc.Conn().ID()))
	if listenMic {
		logging.Infof("listening... press Ctrl+C to stop")
	}

	sent, pumpErr := audio.Pump(ctx, src, lc.Send)
	a.logger.Info("audio finished", zap.Int64("bytes", sent), zap.Error(pumpErr))

	finishCtx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	if err := lc.Finish(finishCtx); err != nil {
		_ = lc.Close()
		return err
	}
	if pumpErr != nil && !errors.Is(pumpErr, context.Canceled) {
		return pumpErr
	}
	mu.Lock()
	defer mu.Unlock()
	return lastErr
}

// openAudio returns the frame source for --file or --mic and the format the
// provider should expect.
func (a *app) openAudio() (audio.FrameSource, audio.Format, func(), error) {
	frame := a.cfg.FrameDuration()
	if listenMic {
		mic, err := audio.OpenMicrophone(a.cfg.MicrophoneConfig(), a.logger)
		if err != nil {
			return nil, audio.Format{}, nil, err
		}
		return mic, mic.Format(), func() {
			if err := mic.Close(); err != nil {
				a.logger.Warn("close microphone", zap.Error(err))
			}
		}, nil
	}

	f, err := os.Open(listenFile)
	if err != nil {
		return nil, audio.Format{}, nil, err
	}
	cleanup := func() { _ = f.Close() }

	format, r, err := audio.ReadWAVHeader(f)
	switch {
	case errors.Is(err, audio.ErrNotWAV):
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			cleanup()
			return nil, audio.Format{}, nil, err
		}
		format, r = a.cfg.AudioFormat(), f
	case err != nil:
		cleanup()
		return nil, audio.Format{}, nil, err
	}

	if want := a.cfg.Listen.SampleRate; want > 0 && want != format.SampleRate {
		target := audio.Format{SampleRate: want, Channels: format.Channels}
		rr, err := audio.NewResampleReader(r, format, target, a.cfg.ResampleQuality())
		if err != nil {
			cleanup()
			return nil, audio.Format{}, nil, err
		}
		a.logger.Info("resampling input", zap.Stringer("from", format), zap.Stringer("to", target))
		r, format = rr, target
	}

	pacer, err := audio.NewPacer(r, format, frame)
	if err != nil {
		cleanup()
		return nil, audio.Format{}, nil, err
	}
	return pacer, format, cleanup, nil
}
