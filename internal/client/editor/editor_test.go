package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demotours/tour-builder/internal/client/api"
)

type fakeBackend struct {
	mu        sync.Mutex
	tours     map[string]*api.Tour
	getErr    error
	saveErr   error
	uploadErr error
	created   []api.TourInput
	updated   []api.TourInput
	uploads   []string
	// uploadGate, when set, blocks Upload until closed.
	uploadGate chan struct{}
	seq        int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tours: make(map[string]*api.Tour)}
}

// withServerIDs mimics the API assigning ids to steps.
func (b *fakeBackend) withServerIDs(id string, in api.TourInput) *api.Tour {
	steps := make([]api.Step, len(in.Steps))
	for i, s := range in.Steps {
		s.ID = fmt.Sprintf("srv-%s-%d", id, i)
		steps[i] = s
	}
	return &api.Tour{ID: id, Title: in.Title, Description: in.Description, Steps: steps}
}

func (b *fakeBackend) GetTour(_ context.Context, id string) (*api.Tour, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	t, ok := b.tours[id]
	if !ok {
		return nil, &api.Error{Status: 404, Message: "tour not found"}
	}
	return t, nil
}

func (b *fakeBackend) CreateTour(_ context.Context, in api.TourInput) (*api.Tour, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, in)
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	b.seq++
	t := b.withServerIDs(fmt.Sprintf("tour-%d", b.seq), in)
	b.tours[t.ID] = t
	return t, nil
}

func (b *fakeBackend) UpdateTour(_ context.Context, id string, in api.TourInput) (*api.Tour, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updated = append(b.updated, in)
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	t := b.withServerIDs(id, in)
	b.tours[id] = t
	return t, nil
}

func (b *fakeBackend) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	if b.uploadGate != nil {
		<-b.uploadGate
	}
	_, _ = io.Copy(io.Discard, r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return "", b.uploadErr
	}
	b.uploads = append(b.uploads, filename)
	return "http://localhost:5000/uploads/" + filename, nil
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("local-%d", n)
	}
}

func newEditor(b *fakeBackend, opts ...Option) *Editor {
	return New(b, append([]Option{WithIDGenerator(seqIDs())}, opts...)...)
}

func TestEditor_NewTourSeedsDefaultStep(t *testing.T) {
	e := newEditor(newFakeBackend())
	assert.Equal(t, StateLoading, e.State())

	e.NewTour()

	assert.Equal(t, StateReady, e.State())
	assert.True(t, e.IsNew())
	steps := e.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "Welcome Step", steps[0].Title)
	assert.Equal(t, "Introduce users to your product", steps[0].Description)
	assert.Nil(t, steps[0].Image)
	assert.Equal(t, steps[0].ID, e.Selected())
}

func TestEditor_LoadExistingTour(t *testing.T) {
	b := newFakeBackend()
	b.tours["t1"] = &api.Tour{ID: "t1", Title: "Demo", Description: "d", Steps: []api.Step{
		{ID: "a", Title: "A"}, {Title: "B"},
	}}
	e := newEditor(b)

	require.NoError(t, e.Load(context.Background(), "t1"))

	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, "Demo", e.Title())
	steps := e.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "a", steps[0].ID)
	assert.NotEmpty(t, steps[1].ID, "missing ids are filled locally")
	assert.Equal(t, "a", e.Selected())
}

func TestEditor_LoadTourWithoutStepsFallsBack(t *testing.T) {
	b := newFakeBackend()
	b.tours["t1"] = &api.Tour{ID: "t1", Title: "Empty", Description: "d"}
	e := newEditor(b)

	require.NoError(t, e.Load(context.Background(), "t1"))
	steps := e.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "Welcome Step", steps[0].Title)
}

func TestEditor_LoadFailureKeepsEditable(t *testing.T) {
	b := newFakeBackend()
	e := newEditor(b)

	err := e.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, "New Product Demo", e.Title())
	assert.Equal(t, "missing", e.TourID())
	assert.Len(t, e.Steps(), 1)
}

func TestEditor_AddStepNamesAndSelects(t *testing.T) {
	e := newEditor(newFakeBackend())
	e.NewTour()

	s := e.AddStep()
	assert.Equal(t, "Step 2", s.Title)
	assert.Equal(t, 3000, s.Duration)
	assert.Equal(t, s.ID, e.Selected())
	assert.Equal(t, "Step 3", e.AddStep().Title)
}

func TestEditor_DeleteLastStepRejected(t *testing.T) {
	e := newEditor(newFakeBackend())
	e.NewTour()
	only := e.Steps()[0].ID

	assert.ErrorIs(t, e.DeleteStep(only), ErrLastStep)
	assert.Len(t, e.Steps(), 1)
}

func TestEditor_DeleteSelectedFallsBackToFirst(t *testing.T) {
	e := newEditor(newFakeBackend())
	e.NewTour()
	first := e.Steps()[0].ID
	second := e.AddStep().ID
	third := e.AddStep().ID
	require.Equal(t, third, e.Selected())

	require.NoError(t, e.DeleteStep(third))
	assert.Equal(t, first, e.Selected())

	require.NoError(t, e.SelectStep(second))
	require.NoError(t, e.DeleteStep(first))
	assert.Equal(t, second, e.Selected(), "deleting an unselected step keeps the selection")
	assert.Len(t, e.Steps(), 1)
}

func TestEditor_DeleteUnknownStep(t *testing.T) {
	e := newEditor(newFakeBackend())
	e.NewTour()
	e.AddStep()
	assert.ErrorIs(t, e.DeleteStep("nope"), ErrUnknownStep)
	assert.ErrorIs(t, e.SelectStep("nope"), ErrUnknownStep)
}

func TestEditor_UpdateStepField(t *testing.T) {
	e := newEditor(newFakeBackend())
	e.NewTour()
	id := e.Selected()

	require.NoError(t, e.UpdateStepField(id, FieldTitle, "Intro"))
	require.NoError(t, e.UpdateStepField(id, FieldDescription, "Hello"))
	require.NoError(t, e.UpdateStepField(id, FieldDuration, 1500))
	require.NoError(t, e.UpdateStepField(id, FieldImage, "http://x/a.png"))

	s := e.Steps()[0]
	assert.Equal(t, "Intro", s.Title)
	assert.Equal(t, "Hello", s.Description)
	assert.Equal(t, 1500, s.Duration)
	require.NotNil(t, s.Image)
	assert.Equal(t, "http://x/a.png", *s.Image)

	require.NoError(t, e.UpdateStepField(id, FieldImage, nil))
	assert.Nil(t, e.Steps()[0].Image)

	assert.ErrorIs(t, e.UpdateStepField(id, FieldDuration, -1), ErrInvalidValue)
	assert.ErrorIs(t, e.UpdateStepField(id, FieldTitle, 42), ErrInvalidValue)
	assert.ErrorIs(t, e.UpdateStepField(id, Field("color"), "red"), ErrUnknownField)
}

func TestEditor_SaveNewTourBindsID(t *testing.T) {
	b := newFakeBackend()
	e := newEditor(b)
	e.NewTour()
	e.SetTitle("Demo")
	e.SetDescription("d")
	e.AddStep()

	tour, err := e.Save(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, "tour-1", tour.ID)
	assert.Equal(t, "tour-1", e.TourID())
	require.Len(t, b.created, 1)
	assert.Len(t, b.created[0].Steps, 2)
	assert.Equal(t, "srv-tour-1-1", e.Selected(), "selection follows the saved step")

	_, err = e.Save(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.created, 1)
	assert.Len(t, b.updated, 1, "second save updates")
}

func TestEditor_SaveFailureKeepsDraftAndMessage(t *testing.T) {
	b := newFakeBackend()
	b.saveErr = &api.Error{Status: 400, Message: "title is required"}
	var states []State
	e := newEditor(b, WithOnChange(func(s State) { states = append(states, s) }))
	e.NewTour()
	e.SetDescription("d")
	e.AddStep()

	_, err := e.Save(context.Background())
	require.Error(t, err)

	assert.Equal(t, []State{StateReady, StateSaving, StateSaveFailed, StateReady}, states)
	assert.Equal(t, StateReady, e.State(), "returns to Ready for a retry")
	assert.Equal(t, "title is required", e.LastError())
	assert.Len(t, e.Steps(), 2)
	assert.True(t, e.IsNew())

	e.DismissError()
	assert.Empty(t, e.LastError())

	b.saveErr = nil
	e.SetTitle("Demo")
	_, err = e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, e.State())
	assert.False(t, e.IsNew())
}

func TestEditor_RetryClearsLastError(t *testing.T) {
	b := newFakeBackend()
	b.saveErr = errors.New("internal server error")
	e := newEditor(b)
	e.NewTour()

	_, err := e.Save(context.Background())
	require.Error(t, err)
	require.Equal(t, "internal server error", e.LastError())

	b.saveErr = nil
	_, err = e.Save(context.Background())
	require.NoError(t, err)
	assert.Empty(t, e.LastError())
}

func TestEditor_SaveBeforeLoadRejected(t *testing.T) {
	e := newEditor(newFakeBackend())
	_, err := e.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestEditor_UploadSetsImageBeforeSave(t *testing.T) {
	b := newFakeBackend()
	e := newEditor(b)
	e.NewTour()
	id := e.Selected()

	url, err := e.UploadImage(context.Background(), id, "shot.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/uploads/shot.png", url)
	require.NotNil(t, e.Steps()[0].Image)
	assert.Equal(t, url, *e.Steps()[0].Image)
	assert.True(t, e.IsNew(), "upload does not save")
}

func TestEditor_SaveBlockedWhileUploading(t *testing.T) {
	b := newFakeBackend()
	b.uploadGate = make(chan struct{})
	e := newEditor(b)
	e.NewTour()
	e.SetTitle("Demo")
	e.SetDescription("d")
	id := e.Selected()

	done := make(chan error, 1)
	go func() {
		_, err := e.UploadImage(context.Background(), id, "big.mp4", bytes.NewReader([]byte("vid")))
		done <- err
	}()

	require.Eventually(t, func() bool { return e.Uploading() == 1 }, timeout, tick)
	_, err := e.Save(context.Background())
	assert.ErrorIs(t, err, ErrUploadInFlight)

	close(b.uploadGate)
	require.NoError(t, <-done)
	assert.Equal(t, 0, e.Uploading())

	_, err = e.Save(context.Background())
	require.NoError(t, err)
}

func TestEditor_UploadFailureLeavesStep(t *testing.T) {
	b := newFakeBackend()
	b.uploadErr = errors.New("unsupported media type")
	e := newEditor(b)
	e.NewTour()

	_, err := e.UploadImage(context.Background(), e.Selected(), "doc.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Nil(t, e.Steps()[0].Image)
	assert.Equal(t, 0, e.Uploading())
}

type fakeRecorder struct {
	started  bool
	startErr error
}

func (r *fakeRecorder) Start() error {
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return nil
}

func (r *fakeRecorder) Stop() (io.ReadCloser, error) {
	r.started = false
	return io.NopCloser(strings.NewReader("webm")), nil
}

func TestEditor_RecordingUploadsWebm(t *testing.T) {
	b := newFakeBackend()
	rec := &fakeRecorder{}
	e := newEditor(b, WithRecorder(rec))
	e.NewTour()
	target := e.Selected()
	e.AddStep()

	require.NoError(t, e.StartRecording(target))
	assert.True(t, e.Recording())
	assert.ErrorIs(t, e.StartRecording(target), ErrAlreadyRecording)

	url, err := e.StopRecording(context.Background())
	require.NoError(t, err)
	assert.False(t, e.Recording())
	assert.Equal(t, []string{"recording.webm"}, b.uploads)
	require.NotNil(t, e.Steps()[0].Image)
	assert.Equal(t, url, *e.Steps()[0].Image)
	assert.Nil(t, e.Steps()[1].Image)
}

func TestEditor_RecordingErrors(t *testing.T) {
	e := newEditor(newFakeBackend())
	e.NewTour()
	assert.ErrorIs(t, e.StartRecording(e.Selected()), ErrNoRecorder)

	e = newEditor(newFakeBackend(), WithRecorder(&fakeRecorder{}))
	e.NewTour()
	_, err := e.StopRecording(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.ErrorIs(t, e.StartRecording("nope"), ErrUnknownStep)
}

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)
