package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/demotours/tour-builder/internal/client/editor"
	"github.com/demotours/tour-builder/internal/client/playback"
)

func (a *App) cmdList(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	tours, err := a.client.ListTours(ctx)
	if err != nil {
		return err
	}
	if len(tours) == 0 {
		a.printf("no tours yet\n")
		return nil
	}

	a.outMu.Lock()
	defer a.outMu.Unlock()
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPUBLIC\tVIEWS\tSTEPS\tTITLE")
	for _, t := range tours {
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\t%s\n", t.ID, t.Status, t.IsPublic, t.Views, len(t.Steps), t.Title)
	}
	return w.Flush()
}

func (a *App) cmdStats(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	s, err := a.client.Stats(ctx)
	if err != nil {
		return err
	}
	a.printf("tours: %d (published %d, drafts %d)\nviews: %d\n", s.Total, s.Published, s.Drafts, s.TotalViews)
	return nil
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.client.DeleteTour(ctx, args[0]); err != nil {
		return err
	}
	a.printf("tour deleted\n")
	return nil
}

// stepSpec is one --step value: "title|description|durationMs|imagePath".
// Only the title is required.
type stepSpec struct {
	title       string
	description string
	duration    int
	image       string
}

func parseStepSpec(v string) (stepSpec, error) {
	parts := strings.SplitN(v, "|", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	s := stepSpec{
		title:       strings.TrimSpace(parts[0]),
		description: strings.TrimSpace(parts[1]),
		image:       strings.TrimSpace(parts[3]),
	}
	if s.title == "" {
		return stepSpec{}, fmt.Errorf("step %q: title is required", v)
	}
	if d := strings.TrimSpace(parts[2]); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			return stepSpec{}, fmt.Errorf("step %q: duration must be a positive number of milliseconds", v)
		}
		s.duration = n
	}
	return s, nil
}

// cmdNew builds a tour through the editor: the first --step replaces the
// default step, the rest are appended. Media files are uploaded before save.
func (a *App) cmdNew(ctx context.Context, args []string) error {
	fs := a.flagSet("new")
	title := fs.String("title", "", "tour title")
	description := fs.String("description", "", "tour description")
	var specs []stepSpec
	fs.Func("step", `step as "title|description|durationMs|imagePath" (repeatable)`, func(v string) error {
		s, err := parseStepSpec(v)
		if err != nil {
			return err
		}
		specs = append(specs, s)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := requireValue("--title", *title); err != nil {
		return err
	}
	if err := requireValue("--description", *description); err != nil {
		return err
	}

	ed := editor.New(a.client)
	ed.NewTour()
	ed.SetTitle(*title)
	ed.SetDescription(*description)

	for i, s := range specs {
		id := ed.Selected()
		if i > 0 {
			id = ed.AddStep().ID
		}
		if err := applyStep(ctx, ed, id, s); err != nil {
			return err
		}
	}

	tour, err := ed.Save(ctx)
	if err != nil {
		return err
	}
	a.printf("created tour %s with %d steps\n", tour.ID, len(tour.Steps))
	a.printf("share: %s\n", playback.ShareURL(a.client.BaseURL(), tour.ID))
	return nil
}

func applyStep(ctx context.Context, ed *editor.Editor, id string, s stepSpec) error {
	if err := ed.UpdateStepField(id, editor.FieldTitle, s.title); err != nil {
		return err
	}
	if err := ed.UpdateStepField(id, editor.FieldDescription, s.description); err != nil {
		return err
	}
	if s.duration > 0 {
		if err := ed.UpdateStepField(id, editor.FieldDuration, s.duration); err != nil {
			return err
		}
	}
	if s.image == "" {
		return nil
	}
	f, err := os.Open(s.image)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := ed.UploadImage(ctx, id, filepath.Base(s.image), f); err != nil {
		return fmt.Errorf("upload %s: %w", s.image, err)
	}
	return nil
}
