/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/lexipop/internal/detector"
	"github.com/valpere/lexipop/internal/server"
	"github.com/valpere/lexipop/internal/transcript"
	"github.com/valpere/lexipop/internal/translator"
	"github.com/valpere/lexipop/internal/validator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lexipop backend",
	Long: `Run the HTTP backend used by define and pick:

  POST /api/translate   {"text": "..."} → {"translated_text": "..."} | {"error": "..."}
  GET  /api/transcript?video_id=<id>     → {"transcript": [...]}

Translations are delegated to an upstream service:
  - mymemory    MyMemory (free, 5000 chars/day)
  - google      Google Cloud Translation (requires credentials)
  - ollama      Ollama LLM (self-hosted)

Transcripts are read from <transcript dir>/<video id>.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCfg.Server

		svc, err := translator.New(cfg.Service, cfg.Upstream)
		if err != nil {
			return err
		}
		if closer, ok := svc.(io.Closer); ok {
			defer closer.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := svc.IsAvailable(ctx); err != nil {
			log.Warn().Err(err).Str("service", svc.Name()).Msg("upstream service not available")
		}

		var opts []server.Option
		if appCfg.Translation.Detect {
			opts = append(opts, server.WithValidator(validator.New(detector.New())))
		}

		srv := server.New(cfg.Addr, svc, cfg.Upstream, transcript.NewDirProvider(cfg.TranscriptDir), opts...)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Listening on http://%s (upstream: %s)\n", srv.Addr(), svc.Name())

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", "", "Listen address (default localhost:5000)")
	flags.String("transcripts", "", "Directory of <video id>.json transcripts")
	flags.String("service", "", "Upstream translation service: mymemory, google, ollama")
	flags.String("credentials", "", "Google Cloud credentials file")
	flags.String("upstream-url", "", "Upstream service base URL (Ollama, MyMemory)")
	flags.String("model", "", "Ollama model")
	flags.String("email", "", "MyMemory contact email")

	bind := map[string]string{
		"server.addr":                 "addr",
		"server.transcript_dir":       "transcripts",
		"server.service":              "service",
		"server.upstream.credentials": "credentials",
		"server.upstream.base_url":    "upstream-url",
		"server.upstream.model":       "model",
		"server.upstream.email":       "email",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}
