package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/demotours/tour-builder/internal/client/api"
	"github.com/demotours/tour-builder/internal/client/playback"
)

// cmdPlay presents a tour in the terminal. Left and right arrows navigate,
// space toggles autoplay and q quits.
func (a *App) cmdPlay(ctx context.Context, args []string) error {
	fs := a.flagSet("play")
	public := fs.Bool("public", false, "fetch through the public endpoint (counts a view)")
	autoplay := fs.Bool("autoplay", false, "start with autoplay on")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	id := fs.Arg(0)

	eol := "\n"
	if a.rawInput != nil {
		state, err := term.MakeRaw(int(a.rawInput.Fd()))
		if err != nil {
			return err
		}
		defer term.Restore(int(a.rawInput.Fd()), state)
		eol = "\r\n"
	}

	player := playback.New(playback.WithOnChange(func(s playback.Snapshot) {
		a.printf("%s", renderSnapshot(s, eol))
	}))
	defer player.Close()

	fetch := func(ctx context.Context) (*api.Tour, error) {
		if *public {
			return a.client.PublicTour(ctx, id, "")
		}
		return a.client.GetTour(ctx, id)
	}
	if err := player.Load(ctx, fetch); err != nil {
		return err
	}
	a.printf("←/→ navigate, space autoplay, q quit%s", eol)
	if *autoplay {
		player.ToggleAutoplay()
	}

	keys := playback.Keymap{Controls: player}
	buf := make([]byte, 8)
	for {
		n, err := a.in.Read(buf)
		if in := bytes.TrimRight(buf[:n], "\r\n"); len(in) > 0 {
			if isQuit(in) {
				return nil
			}
			keys.Handle(playback.ParseKey(in), false)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func isQuit(b []byte) bool {
	switch string(b) {
	case "q", "Q", "\x03", "\x04":
		return true
	}
	return false
}

func renderSnapshot(s playback.Snapshot, eol string) string {
	if s.State != playback.StateReady {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s [%d/%d]", eol, s.Title, s.Index+1, s.Total)
	if s.Playing {
		b.WriteString(" (autoplay)")
	}
	fmt.Fprintf(&b, "%s  %s%s", eol, s.Step.Title, eol)
	if s.Step.Description != "" {
		fmt.Fprintf(&b, "  %s%s", s.Step.Description, eol)
	}
	if s.Step.Image != nil {
		fmt.Fprintf(&b, "  media: %s%s", *s.Step.Image, eol)
	}
	return b.String()
}
