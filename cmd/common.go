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
	"github.com/valpere/lexipop/internal"
	"github.com/valpere/lexipop/internal/config"
	"github.com/valpere/lexipop/internal/detector"
	"github.com/valpere/lexipop/internal/dictionary"
	"github.com/valpere/lexipop/internal/orchestrator"
	"github.com/valpere/lexipop/internal/resolver"
	"github.com/valpere/lexipop/internal/session"
	"github.com/valpere/lexipop/internal/translator"
)

// buildResolver wires the dictionary client and the chunked backend
// translator into a resolver. One resolver serves every session of a run;
// each session gets its own cache.
func buildResolver(cfg *config.Config) *resolver.Resolver {
	backend := translator.NewBackendService(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	orch := orchestrator.New(backend, translator.ServiceConfig{}, orchestrator.OrchestratorConfig{
		Timeout:        cfg.Translation.Timeout,
		MaxTextBytes:   cfg.Translation.MaxTextBytes,
		MaxConcurrency: cfg.Translation.MaxConcurrency,
		SourceLang:     cfg.Translation.SourceLang,
		TargetLang:     cfg.Translation.TargetLang,
	})

	dict := dictionary.NewClient(cfg.Dictionary.BaseURL, cfg.Dictionary.Timeout)

	opts := []resolver.Option{resolver.WithTargetLang(cfg.Translation.TargetLang)}
	if cfg.Translation.Detect {
		opts = append(opts, resolver.WithDetector(detector.New()))
	}

	return resolver.New(dict, orch, opts...)
}

// cardsFromCommit turns the chosen definitions of a commit into deck cards,
// in selection order.
func cardsFromCommit(c session.Committed, videoID string, start float64) []internal.Card {
	var cards []internal.Card
	for _, w := range c.Words {
		def, ok := c.Definitions[w]
		if !ok {
			continue
		}
		cards = append(cards, internal.Card{
			Sentence:   c.Sentence,
			Word:       w,
			Definition: def,
			VideoID:    videoID,
			Start:      start,
		})
	}
	return cards
}
