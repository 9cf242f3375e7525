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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/lexipop/internal/cache"
	"github.com/valpere/lexipop/internal/resolver"
	"github.com/valpere/lexipop/internal/session"
	"github.com/valpere/lexipop/internal/store"
)

var (
	defineSave    bool
	defineVideoID string
	defineStart   float64
	defineTimeout time.Duration
)

type defineResult struct {
	Sentence    string              `json:"sentence"`
	Words       []string            `json:"words"`
	Definitions map[string]string   `json:"definitions"`
	Candidates  map[string][]string `json:"candidates"`
	Failed      []string            `json:"failed,omitempty"`
}

var defineCmd = &cobra.Command{
	Use:   "define <sentence> [word...]",
	Short: "Resolve words of a sentence to Japanese definitions",
	Long: `Resolve the given words of a sentence (every word when none are given)
and print the candidates as JSON. The first candidate of every word that
resolved is chosen; words whose lookup failed are listed under "failed".

Words are matched against the whitespace-separated tokens of the sentence,
punctuation included: in "The quick fox, jumps" the token is "fox,".

  lexipop define "The quick fox jumps" quick fox
  lexipop define "The quick fox jumps" quick --save --video dQw4w9WgXcQ --start 12.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		res, err := define(ctx, cache.New(buildResolver(appCfg)), args[0], args[1:], defineTimeout)
		if err != nil {
			return err
		}

		if defineSave {
			if err := saveCommit(ctx, res.committed, defineVideoID, defineStart); err != nil {
				return err
			}
		}

		return printJSON(cmd.OutOrStdout(), res.output)
	},
}

type defineOutcome struct {
	committed session.Committed
	output    defineResult
}

// define runs one non-interactive session over sentence.
func define(ctx context.Context, r session.Resolver, sentence string, words []string, timeout time.Duration) (*defineOutcome, error) {
	sess := session.New(ctx, sentence, r)
	defer sess.Cancel()

	if len(words) == 0 {
		words = sess.Tokens()
	}

	var selected []string
	for _, w := range words {
		if slices.Contains(selected, w) {
			continue
		}
		if _, err := sess.Toggle(w); err != nil {
			return nil, fmt.Errorf("cannot select %q: %w", w, err)
		}
		selected = append(selected, w)
	}

	settleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sess.Settle(settleCtx); err != nil {
		return nil, fmt.Errorf("definitions did not arrive in time: %w", err)
	}

	out := defineResult{
		Sentence:   sentence,
		Candidates: make(map[string][]string, len(selected)),
	}
	for _, w := range selected {
		out.Candidates[w] = sess.Candidates(w)
		if res, ok := sess.Resolution(w); ok && res.Kind == resolver.KindLookupFailed {
			out.Failed = append(out.Failed, w)
			continue
		}
		if err := sess.ChooseIndex(w, 0); err != nil {
			return nil, fmt.Errorf("cannot choose a definition for %q: %w", w, err)
		}
	}

	committed, err := sess.Commit()
	if err != nil {
		return nil, err
	}
	out.Words = committed.Words
	out.Definitions = committed.Definitions

	return &defineOutcome{committed: committed, output: out}, nil
}

func saveCommit(ctx context.Context, c session.Committed, videoID string, start float64) error {
	cards := cardsFromCommit(c, videoID, start)
	if len(cards) == 0 {
		return nil
	}

	db, err := store.New(appCfg.Deck.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	n, err := db.SaveCards(ctx, cards)
	if err != nil {
		return fmt.Errorf("failed to save cards: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Saved %d card(s) to %s\n", n, appCfg.Deck.DBPath)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(defineCmd)

	defineCmd.Flags().BoolVar(&defineSave, "save", false, "Save chosen definitions to the deck")
	defineCmd.Flags().StringVar(&defineVideoID, "video", "", "Video ID recorded on saved cards")
	defineCmd.Flags().Float64Var(&defineStart, "start", 0, "Start offset in seconds recorded on saved cards")
	defineCmd.Flags().DurationVar(&defineTimeout, "timeout", time.Minute, "Time allowed for all lookups")
}
