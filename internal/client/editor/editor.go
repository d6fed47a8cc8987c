// Package editor is the client-side state machine behind the tour editor:
// it owns the unsaved draft, the step selection and the save cycle.
//
//	Loading → Ready → Saving → (Ready | SaveFailed → Ready)
//
// SaveFailed is passed through: the editor records the server message,
// reports the state to WithOnChange listeners and settles back in Ready with
// the draft intact so the save can be retried. LastError keeps the message
// until DismissError or the next Save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/demotours/tour-builder/internal/client/api"
)

// State of the editor.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSaving
	StateSaveFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateSaveFailed:
		return "save_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Field names accepted by UpdateStepField.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldImage       Field = "image"
	FieldDuration    Field = "duration"
)

const (
	defaultStepTitle       = "Welcome Step"
	defaultStepDescription = "Introduce users to your product"
	fallbackTourTitle      = "New Product Demo"
	defaultDuration        = 3000
	recordingFilename      = "recording.webm"
)

var (
	ErrLastStep         = errors.New("a tour needs at least one step")
	ErrUnknownStep      = errors.New("unknown step")
	ErrUnknownField     = errors.New("unknown step field")
	ErrInvalidValue     = errors.New("invalid field value")
	ErrNotReady         = errors.New("editor is busy")
	ErrUploadInFlight   = errors.New("wait for uploads to finish before saving")
	ErrNoRecorder       = errors.New("recording is not available")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Backend is the slice of the API the editor needs.
type Backend interface {
	GetTour(ctx context.Context, id string) (*api.Tour, error)
	CreateTour(ctx context.Context, in api.TourInput) (*api.Tour, error)
	UpdateTour(ctx context.Context, id string, in api.TourInput) (*api.Tour, error)
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Recorder captures a screen recording. Stop returns the encoded webm stream.
type Recorder interface {
	Start() error
	Stop() (io.ReadCloser, error)
}

// Editor holds one tour draft. It is safe for use from several goroutines;
// network calls run without holding the lock.
type Editor struct {
	mu sync.Mutex

	backend  Backend
	recorder Recorder
	newID    func() string
	onChange func(State)

	state       State
	tourID      string
	title       string
	description string
	steps       []api.Step
	selected    string
	lastErr     string
	uploading   int

	recordingStep string
	recording     bool

	pending []State
}

// Option configures an Editor.
type Option func(*Editor)

// WithRecorder enables StartRecording and StopRecording.
func WithRecorder(r Recorder) Option {
	return func(e *Editor) { e.recorder = r }
}

// WithOnChange registers a callback invoked on every state transition,
// outside the editor's lock.
func WithOnChange(f func(State)) Option {
	return func(e *Editor) { e.onChange = f }
}

// WithIDGenerator replaces the local step id generator.
func WithIDGenerator(f func() string) Option {
	return func(e *Editor) { e.newID = f }
}

// New returns an editor in the Loading state. Call NewTour or Load next.
func New(backend Backend, opts ...Option) *Editor {
	e := &Editor{backend: backend, newID: uuid.NewString, state: StateLoading}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewTour starts an unsaved tour seeded with one default step.
func (e *Editor) NewTour() {
	e.mu.Lock()
	defer e.unlock()
	e.tourID = ""
	e.title = ""
	e.description = ""
	e.resetSteps(nil)
	e.setStateLocked(StateReady)
}

// Load fetches an existing tour. A tour without steps gets one default step.
// When the fetch fails the editor still becomes Ready with a fallback draft
// bound to id, and the error is returned for display.
func (e *Editor) Load(ctx context.Context, id string) error {
	e.mu.Lock()
	e.setStateLocked(StateLoading)
	e.tourID = id
	e.unlock()

	tour, err := e.backend.GetTour(ctx, id)

	e.mu.Lock()
	defer e.unlock()
	if err != nil {
		e.title = fallbackTourTitle
		e.description = ""
		e.resetSteps(nil)
		e.setStateLocked(StateReady)
		return err
	}
	e.title = tour.Title
	e.description = tour.Description
	e.resetSteps(tour.Steps)
	e.setStateLocked(StateReady)
	return nil
}

// resetSteps replaces the draft steps, fills missing ids and selects the first.
func (e *Editor) resetSteps(steps []api.Step) {
	if len(steps) == 0 {
		steps = []api.Step{e.defaultStep()}
	}
	e.steps = make([]api.Step, len(steps))
	for i, s := range steps {
		if s.ID == "" {
			s.ID = e.newID()
		}
		e.steps[i] = s
	}
	e.selected = e.steps[0].ID
}

// setStateLocked moves to s and queues a notification for flush.
func (e *Editor) setStateLocked(s State) {
	e.state = s
	if e.onChange != nil {
		e.pending = append(e.pending, s)
	}
}

// unlock releases the lock and then reports queued transitions.
func (e *Editor) unlock() {
	pending := e.pending
	e.pending = nil
	f := e.onChange
	e.mu.Unlock()
	for _, s := range pending {
		f(s)
	}
}

func (e *Editor) defaultStep() api.Step {
	return api.Step{
		ID:          e.newID(),
		Title:       defaultStepTitle,
		Description: defaultStepDescription,
		Duration:    defaultDuration,
		Annotations: []any{},
	}
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// TourID is empty until a new tour has been saved once.
func (e *Editor) TourID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tourID
}

func (e *Editor) IsNew() bool {
	return e.TourID() == ""
}

func (e *Editor) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

func (e *Editor) Description() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.description
}

func (e *Editor) SetTitle(title string) {
	e.mu.Lock()
	e.title = title
	e.mu.Unlock()
}

func (e *Editor) SetDescription(description string) {
	e.mu.Lock()
	e.description = description
	e.mu.Unlock()
}

// Steps returns a copy of the draft steps in playback order.
func (e *Editor) Steps() []api.Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]api.Step(nil), e.steps...)
}

// Selected returns the id of the selected step.
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// LastError is the server message of the last failed save.
func (e *Editor) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Uploading returns the number of uploads in flight.
func (e *Editor) Uploading() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uploading
}

func (e *Editor) indexOf(id string) int {
	for i, s := range e.steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) SelectStep(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexOf(id) < 0 {
		return ErrUnknownStep
	}
	e.selected = id
	return nil
}

// AddStep appends "Step N" and selects it.
func (e *Editor) AddStep() api.Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := api.Step{
		ID:          e.newID(),
		Title:       fmt.Sprintf("Step %d", len(e.steps)+1),
		Duration:    defaultDuration,
		Annotations: []any{},
	}
	e.steps = append(e.steps, s)
	e.selected = s.ID
	return s
}

// DeleteStep removes a step. The last remaining step cannot be deleted.
// Deleting the selected step selects the first remaining one.
func (e *Editor) DeleteStep(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexOf(id)
	if i < 0 {
		return ErrUnknownStep
	}
	if len(e.steps) <= 1 {
		return ErrLastStep
	}
	e.steps = append(e.steps[:i:i], e.steps[i+1:]...)
	if e.selected == id {
		e.selected = e.steps[0].ID
	}
	return nil
}

// UpdateStepField patches one field of a step in the local draft. Image
// accepts a URL string or nil; duration a positive millisecond count.
func (e *Editor) UpdateStepField(id string, field Field, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexOf(id)
	if i < 0 {
		return ErrUnknownStep
	}
	s := &e.steps[i]
	switch field {
	case FieldTitle:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: title must be a string", ErrInvalidValue)
		}
		s.Title = v
	case FieldDescription:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: description must be a string", ErrInvalidValue)
		}
		s.Description = v
	case FieldImage:
		switch v := value.(type) {
		case nil:
			s.Image = nil
		case string:
			if strings.TrimSpace(v) == "" {
				s.Image = nil
			} else {
				s.Image = &v
			}
		default:
			return fmt.Errorf("%w: image must be a URL or nil", ErrInvalidValue)
		}
	case FieldDuration:
		v, ok := value.(int)
		if !ok || v <= 0 {
			return fmt.Errorf("%w: duration must be a positive number of milliseconds", ErrInvalidValue)
		}
		s.Duration = v
	default:
		return ErrUnknownField
	}
	return nil
}

// DismissError clears the message of the last failed save.
func (e *Editor) DismissError() {
	e.mu.Lock()
	e.lastErr = ""
	e.mu.Unlock()
}

// Save sends the whole draft: create for a new tour, update otherwise. On
// success a new tour becomes bound to its server id. On failure the editor
// passes through SaveFailed with the server message and returns to Ready
// with the draft kept for a retry.
func (e *Editor) Save(ctx context.Context) (*api.Tour, error) {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return nil, ErrNotReady
	}
	if e.uploading > 0 {
		e.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	e.setStateLocked(StateSaving)
	e.lastErr = ""
	id := e.tourID
	in := api.TourInput{
		Title:       e.title,
		Description: e.description,
		Steps:       append([]api.Step(nil), e.steps...),
	}
	e.unlock()

	var (
		tour *api.Tour
		err  error
	)
	if id == "" {
		tour, err = e.backend.CreateTour(ctx, in)
	} else {
		tour, err = e.backend.UpdateTour(ctx, id, in)
	}

	e.mu.Lock()
	defer e.unlock()
	if err != nil {
		e.setStateLocked(StateSaveFailed)
		e.lastErr = err.Error()
		e.setStateLocked(StateReady)
		return nil, err
	}
	if id == "" {
		e.tourID = tour.ID
	}
	e.adoptSavedSteps(tour.Steps)
	e.setStateLocked(StateReady)
	return tour, nil
}

// adoptSavedSteps takes the server's step ids when the saved array lines up
// with the draft, keeping the selection on the same position.
func (e *Editor) adoptSavedSteps(saved []api.Step) {
	if len(saved) != len(e.steps) {
		return
	}
	sel := e.indexOf(e.selected)
	for i := range e.steps {
		if saved[i].ID != "" {
			e.steps[i].ID = saved[i].ID
		}
	}
	if sel >= 0 {
		e.selected = e.steps[sel].ID
	}
}

// UploadImage uploads media for a step and sets the step's image as soon as
// the URL is known, independent of the save cycle.
func (e *Editor) UploadImage(ctx context.Context, stepID, filename string, r io.Reader) (string, error) {
	e.mu.Lock()
	if e.indexOf(stepID) < 0 {
		e.mu.Unlock()
		return "", ErrUnknownStep
	}
	e.uploading++
	e.mu.Unlock()

	url, err := e.backend.Upload(ctx, filename, r)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploading--
	if err != nil {
		return "", err
	}
	// The step may have been deleted meanwhile; the asset is then orphaned.
	if i := e.indexOf(stepID); i >= 0 {
		e.steps[i].Image = &url
	}
	return url, nil
}

// StartRecording begins a screen recording whose result goes to stepID.
func (e *Editor) StartRecording(stepID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recorder == nil {
		return ErrNoRecorder
	}
	if e.recording {
		return ErrAlreadyRecording
	}
	if e.indexOf(stepID) < 0 {
		return ErrUnknownStep
	}
	if err := e.recorder.Start(); err != nil {
		return err
	}
	e.recording = true
	e.recordingStep = stepID
	return nil
}

func (e *Editor) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}

// StopRecording ends the recording and uploads it as the step's media.
func (e *Editor) StopRecording(ctx context.Context) (string, error) {
	e.mu.Lock()
	if !e.recording {
		e.mu.Unlock()
		return "", ErrNotRecording
	}
	e.recording = false
	stepID := e.recordingStep
	e.recordingStep = ""
	rec := e.recorder
	e.mu.Unlock()

	stream, err := rec.Stop()
	if err != nil {
		return "", err
	}
	defer stream.Close()
	return e.UploadImage(ctx, stepID, recordingFilename, stream)
}
