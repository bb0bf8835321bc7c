//go:build portaudio

// Command livecall runs a live voice conversation from the terminal using
// the default microphone and speaker. Build with the "portaudio" tag.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/thierryishimwe250/quintet/internal/transcript"
	"github.com/thierryishimwe250/quintet/internal/voice"
	pa "github.com/thierryishimwe250/quintet/pkg/audio/portaudio"
	"github.com/thierryishimwe250/quintet/pkg/provider/live"
	"github.com/thierryishimwe250/quintet/pkg/provider/live/gemini"
)

func main() {
	os.Exit(run())
}

func run() int {
	model := flag.String("model", "", "live model override")
	voiceName := flag.String("voice", "Zephyr", "speech voice")
	instructions := flag.String("instructions", "", "system instruction for the session")
	flag.Parse()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "livecall: GEMINI_API_KEY is not set")
		return 1
	}

	err := pa.Using(func() error {
		mic, err := pa.OpenMic()
		if err != nil {
			return err
		}
		speaker, err := pa.OpenSpeaker()
		if err != nil {
			mic.Release()
			return err
		}
		defer speaker.Close()

		var opts []gemini.Option
		if *model != "" {
			opts = append(opts, gemini.WithModel(*model))
		}
		provider := gemini.New(apiKey, opts...)

		cfg := live.SessionConfig{
			Model:            *model,
			Voice:            *voiceName,
			Instructions:     *instructions,
			TranscribeInput:  true,
			TranscribeOutput: true,
		}

		ctrl := voice.New(provider, cfg, mic, speaker)
		ctrl.OnStatus(func(_ voice.State, status string) {
			fmt.Fprintf(os.Stderr, "[%s]\n", status)
		})
		ctrl.OnTranscript(func(e transcript.Entry) {
			fmt.Printf("%s: %s\n", e.Role, e.Text)
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := ctrl.Start(ctx); err != nil {
			return err
		}

		done := make(chan struct{})
		go func() {
			ctrl.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			ctrl.Stop()
			ctrl.Wait()
		case <-done:
		}
		return nil
	})
	if err != nil {
		slog.Error("livecall failed", "err", err)
		return 1
	}
	return 0
}
