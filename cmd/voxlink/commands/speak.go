package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/internal/logging"
	"github.com/liuscraft/voxlink/pkg/source"
	"github.com/liuscraft/voxlink/pkg/speak"
)

const flushWait = 30 * time.Second

var (
	speakOut   string
	speakLive  bool
	speakModel string
)

var speakCmd = &cobra.Command{
	Use:   "speak [text|-]",
	Short: "Synthesize speech from text",
	Long: `Synthesize speech. Text comes from the arguments, or stdin when none
are given.

--live streams the text over a live session sentence by sentence, with
Markdown stripped, and writes audio as it arrives.

Examples:
  voxlink speak "Good morning" -o morning.mp3
  cat notes.md | voxlink speak --live -o notes.raw`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := textArg(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if input == "" {
			return errors.New("no text to speak")
		}
		if speakLive {
			return current.runSpeakLive(cmd.Context(), input)
		}
		return current.runSpeak(cmd.Context(), input)
	},
}

func init() {
	speakCmd.Flags().StringVarP(&speakOut, "output", "o", "", "audio output file (default stdout)")
	speakCmd.Flags().BoolVar(&speakLive, "live", false, "stream over a live session")
	speakCmd.Flags().StringVar(&speakModel, "model", "", "voice model override")
}

func (a *app) speakOptions() speak.Options {
	opts := a.cfg.SpeakOptions()
	if speakModel != "" {
		opts.Model = speakModel
	}
	return opts
}

func (a *app) runSpeak(ctx context.Context, input string) error {
	opts, err := a.clientOptions()
	if err != nil {
		return err
	}
	rc, err := speak.NewRESTClient(opts)
	if err != nil {
		return err
	}

	var resp *speak.Response
	if speakOut != "" {
		resp, err = rc.Save(ctx, speakOut, source.FromText(input), a.speakOptions())
	} else {
		resp, err = rc.Stream(ctx, source.FromText(input), a.speakOptions())
		if err == nil {
			_, err = os.Stdout.Write(resp.Audio)
		}
	}
	if err != nil {
		return err
	}
	a.logger.Info("speech synthesized",
		zap.String("request_id", resp.RequestID),
		zap.String("model", resp.ModelName),
		zap.Int("characters", resp.Characters),
		zap.Int("bytes", len(resp.Audio)))
	return nil
}

func (a *app) runSpeakLive(ctx context.Context, input string) error {
	opts, err := a.clientOptions()
	if err != nil {
		return err
	}
	params := a.speakOptions()
	// live sessions return raw audio
	params.Container = ""

	var out io.Writer = os.Stdout
	if speakOut != "" {
		f, err := os.Create(speakOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	sc, err := speak.NewLiveClient(opts, params, a.cfg.LiveOptions())
	if err != nil {
		return err
	}
	flushed := make(chan struct{}, 1)
	sc.OnFlushed(func(f *speak.Flushed) {
		a.logger.Debug("flushed", zap.Int("sequence_id", f.SequenceID))
		select {
		case flushed <- struct{}{}:
		default:
		}
	})
	sc.OnWarning(func(w *speak.ErrorResponse) {
		a.logger.Warn("provider warning", zap.String("description", w.Description))
	})
	sc.OnError(func(err error) {
		a.logger.Error("live session error", zap.Error(err))
	})

	copied := make(chan error, 1)
	go func() {
		n, err := io.Copy(out, sc.AudioReader())
		a.logger.Info("audio written", zap.Int64("bytes", n))
		copied <- err
	}()

	if err := sc.Start(ctx); err != nil {
		<-copied
		return err
	}
	logging.StartSession(sc.Conn().ID())
	if err := sc.SpeakText(ctx, input); err != nil {
		_ = sc.Close()
		<-copied
		return err
	}
	if err := sc.Flush(ctx); err != nil {
		_ = sc.Close()
		<-copied
		return err
	}

	select {
	case <-flushed:
	case <-ctx.Done():
	case <-time.After(flushWait):
		a.logger.Warn("no flush confirmation", zap.Duration("waited", flushWait))
	}

	finishCtx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	finishErr := sc.Finish(finishCtx)
	if finishErr != nil {
		_ = sc.Close()
	}
	if err := <-copied; err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return finishErr
}
