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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/valpere/lexipop/internal/cache"
	"github.com/valpere/lexipop/internal/session"
	"github.com/valpere/lexipop/internal/transcript"
)

var (
	pickNoSave  bool
	pickTimeout time.Duration
)

var pickCmd = &cobra.Command{
	Use:   "pick <video_id>",
	Short: "Pick words from a video transcript interactively",
	Long: `Fetch the transcript of a video from the backend, open one of its lines and
pick words from it. Definitions are looked up in the background as words are
selected; committed definitions go to the deck.

Commands inside a line:
  t <word>            select or deselect a word
  c <word> <n>        choose candidate n of a word
  d <word> <text>     write a custom definition draft
  s <word>            save the draft as the chosen definition
  v                   show selected words
  w                   wait for pending lookups
  commit              keep chosen definitions and close the line
  cancel              close the line without keeping anything`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		videoID := args[0]

		client := transcript.NewClient(appCfg.Backend.BaseURL, appCfg.Backend.Timeout)
		entries, err := client.Fetch(ctx, videoID)
		if err != nil {
			log.Warn().Err(err).Str("video_id", videoID).Msg("transcript unavailable")
		}

		res := buildResolver(appCfg)
		p := &picker{
			in:          bufio.NewScanner(cmd.InOrStdin()),
			out:         &syncWriter{w: cmd.OutOrStdout()},
			entries:     entries,
			newResolver: func() session.Resolver { return cache.New(res) },
			timeout:     pickTimeout,
		}
		if !pickNoSave {
			p.save = func(ctx context.Context, c session.Committed, start float64) error {
				return saveCommit(ctx, c, videoID, start)
			}
		}
		return p.run(ctx)
	},
}

// syncWriter serialises writes from the prompt loop and the update feed.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type picker struct {
	in          *bufio.Scanner
	out         io.Writer
	entries     []transcript.Entry
	newResolver func() session.Resolver
	save        func(ctx context.Context, c session.Committed, start float64) error
	timeout     time.Duration
}

func (p *picker) run(ctx context.Context) error {
	p.listEntries()
	for {
		fmt.Fprint(p.out, "line> ")
		if !p.in.Scan() {
			return p.in.Err()
		}
		input := strings.TrimSpace(p.in.Text())
		switch input {
		case "":
			continue
		case "q", "quit":
			return nil
		case "ls":
			p.listEntries()
			continue
		}

		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(p.entries) {
			fmt.Fprintf(p.out, "Enter a line number between 1 and %d, ls or q.\n", len(p.entries))
			continue
		}

		done, err := p.pickLine(ctx, p.entries[n-1])
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (p *picker) listEntries() {
	for i, e := range p.entries {
		fmt.Fprintf(p.out, "%3d  %s  %s\n", i+1, e.Timestamp(), e.Text)
	}
}

// pickLine runs one session over entry. It reports done when input ended.
func (p *picker) pickLine(ctx context.Context, entry transcript.Entry) (bool, error) {
	sess := session.New(ctx, entry.Text, p.newResolver())

	feed := make(chan struct{})
	go func() {
		defer close(feed)
		for ev := range sess.Updates() {
			p.printEvent(sess, ev)
		}
	}()
	defer func() {
		sess.Cancel()
		<-feed
	}()

	fmt.Fprintf(p.out, "%s\n", strings.Join(sess.Tokens(), " | "))
	for {
		fmt.Fprint(p.out, "pick> ")
		if !p.in.Scan() {
			return true, p.in.Err()
		}
		fields := strings.Fields(p.in.Text())
		if len(fields) == 0 {
			continue
		}

		switch cmd, args := fields[0], fields[1:]; cmd {
		case "t":
			if len(args) != 1 {
				fmt.Fprintln(p.out, "usage: t <word>")
				continue
			}
			p.report(sess.Toggle(args[0]))
		case "c":
			if len(args) != 2 {
				fmt.Fprintln(p.out, "usage: c <word> <n>")
				continue
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				fmt.Fprintln(p.out, "usage: c <word> <n>")
				continue
			}
			p.reportErr(sess.ChooseIndex(args[0], n-1))
		case "d":
			if len(args) < 2 {
				fmt.Fprintln(p.out, "usage: d <word> <text>")
				continue
			}
			p.reportErr(sess.SetDraft(args[0], strings.Join(args[1:], " ")))
		case "s":
			if len(args) != 1 {
				fmt.Fprintln(p.out, "usage: s <word>")
				continue
			}
			p.reportErr(sess.SaveCustom(args[0]))
		case "v":
			p.view(sess)
		case "w":
			p.wait(ctx, sess)
		case "commit":
			p.wait(ctx, sess)
			committed, err := sess.Commit()
			if err != nil {
				return false, err
			}
			fmt.Fprintf(p.out, "Committed %d definition(s).\n", len(committed.Definitions))
			if p.save != nil {
				if err := p.save(ctx, committed, entry.Start); err != nil {
					fmt.Fprintf(p.out, "Error: %v\n", err)
				}
			}
			return false, nil
		case "cancel":
			return false, nil
		default:
			fmt.Fprintf(p.out, "Unknown command %q\n", cmd)
		}
	}
}

func (p *picker) printEvent(sess *session.Session, ev session.Event) {
	switch ev.State {
	case session.StateResolved:
		fmt.Fprintf(p.out, "\n  %s:\n", ev.Word)
		for i, c := range sess.Candidates(ev.Word) {
			fmt.Fprintf(p.out, "    %d. %s\n", i+1, c)
		}
	case session.StateChosen:
		if def, ok := sess.Chosen(ev.Word); ok {
			fmt.Fprintf(p.out, "  %s → %s\n", ev.Word, def)
		}
	}
}

func (p *picker) view(sess *session.Session) {
	selected := sess.Selected()
	if len(selected) == 0 {
		fmt.Fprintln(p.out, "No words selected.")
		return
	}
	for _, w := range selected {
		line := fmt.Sprintf("  %-16s %-10s", w, sess.State(w))
		if def, ok := sess.Chosen(w); ok {
			line += " " + def
		} else if cands := sess.Candidates(w); len(cands) > 0 {
			line += " " + strings.Join(cands, " / ")
		}
		if draft := sess.Draft(w); draft != "" {
			line += fmt.Sprintf(" (draft: %s)", draft)
		}
		fmt.Fprintln(p.out, line)
	}
}

func (p *picker) wait(ctx context.Context, sess *session.Session) {
	waitCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := sess.Settle(waitCtx); err != nil {
		fmt.Fprintln(p.out, "Some lookups are still pending.")
	}
}

func (p *picker) report(state session.State, err error) {
	if err != nil {
		p.reportErr(err)
		return
	}
	if state == session.StateUnselected {
		fmt.Fprintln(p.out, "  deselected")
	}
}

func (p *picker) reportErr(err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotResolved):
		fmt.Fprintln(p.out, "  still looking up, try again in a moment")
	default:
		fmt.Fprintf(p.out, "  %v\n", err)
	}
}

func init() {
	rootCmd.AddCommand(pickCmd)

	pickCmd.Flags().BoolVar(&pickNoSave, "no-save", false, "Do not save committed definitions to the deck")
	pickCmd.Flags().DurationVar(&pickTimeout, "timeout", time.Minute, "Time to wait for pending lookups on w and commit")
}
