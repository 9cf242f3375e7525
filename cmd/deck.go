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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/lexipop/internal/store"
)

var (
	deckWord   string
	deckOutput string
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Manage the flashcard deck",
	Long:  `List, inspect, export and clear the cards saved by define --save and pick.`,
}

func openDeck() (*store.Store, error) {
	db, err := store.New(appCfg.Deck.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var deckListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cards, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDeck()
		if err != nil {
			return err
		}
		defer db.Close()

		cards, err := db.ListCards(context.Background(), deckWord)
		if err != nil {
			return fmt.Errorf("failed to list cards: %w", err)
		}

		if len(cards) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No cards in the deck.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWORD\tDEFINITION\tUSED\tVIDEO\tSENTENCE")
		for _, c := range cards {
			sentence := []rune(c.Sentence)
			if len(sentence) > 40 {
				sentence = append(sentence[:37], []rune("...")...)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				c.ID, c.Word, c.Definition, c.UsageCount, c.VideoID, string(sentence))
		}
		return w.Flush()
	},
}

var deckStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show deck statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDeck()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cards:          %d\n", stats.TotalCards)
		fmt.Fprintf(out, "Distinct words: %d\n", stats.DistinctWords)
		fmt.Fprintf(out, "Videos:         %d\n", stats.Videos)
		fmt.Fprintf(out, "Total usage:    %d\n", stats.TotalUsage)
		return nil
	},
}

var deckDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a card by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDeck()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteCard(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete card: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted card: %s\n", args[0])
		return nil
	},
}

var deckClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDeck()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearCards(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear deck: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cards from the deck.\n", n)
		return nil
	},
}

var deckExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the deck as Anki-importable CSV",
	Long: `Write the deck as CSV with the fields word, definition, sentence and tags.
In Anki, import with "Fields separated by: Comma" and "Allow HTML in fields".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDeck()
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		if deckOutput != "" && deckOutput != "-" {
			f, err := os.Create(deckOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		n, err := db.ExportCSV(context.Background(), out)
		if err != nil {
			return fmt.Errorf("failed to export deck: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d cards\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deckCmd)

	deckListCmd.Flags().StringVar(&deckWord, "word", "", "Only list cards for this word")
	deckExportCmd.Flags().StringVarP(&deckOutput, "output", "o", "-", "Output file (- for stdout)")

	deckCmd.AddCommand(deckListCmd)
	deckCmd.AddCommand(deckStatsCmd)
	deckCmd.AddCommand(deckDeleteCmd)
	deckCmd.AddCommand(deckClearCmd)
	deckCmd.AddCommand(deckExportCmd)
}
