// Package wizard implements the three-step create/edit flow shared by every
// entity: Data, Preview and Confirmation.
package wizard

import (
	"context"
	"errors"
	"net/url"

	"tms-console/internal/domain"
	"tms-console/internal/resource"
)

// Step is a wizard position.
type Step int

const (
	StepData Step = iota
	StepPreview
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepData:
		return "data"
	case StepPreview:
		return "preview"
	case StepConfirmation:
		return "confirmation"
	}
	return "unknown"
}

// ParseStep is the inverse of Step.String. Unknown values map to StepData.
func ParseStep(v string) Step {
	switch v {
	case "preview", "1":
		return StepPreview
	case "confirmation", "2":
		return StepConfirmation
	}
	return StepData
}

// Labels are the stepper headings, indexed by Step.
var Labels = [...]string{"Data", "Preview", "Confirmation"}

// ErrWrongStep is returned when an action is not valid for the current step.
var ErrWrongStep = errors.New("action not allowed at this step")

// ErrInvalid is returned by Submit when the previewed record does not pass
// validation. The wizard is back on Data with Errors set.
var ErrInvalid = errors.New("record failed validation")

// Saver persists records. *access.Accessor implements it.
type Saver interface {
	Create(ctx context.Context, rec resource.Record) (resource.Record, error)
	Update(ctx context.Context, id string, rec resource.Record) (resource.Record, error)
}

// Result is the outcome shown on the Confirmation step.
type Result struct {
	Success     bool
	Message     string
	Kind        domain.ErrorKind
	FieldErrors map[string][]string
}

// Wizard is the state of one create or edit flow. It is not safe for
// concurrent use.
type Wizard struct {
	Schema      *resource.Schema
	Step        Step
	Record      resource.Record
	Edit        bool
	SkipPreview bool
	// Errors holds client-side validation failures of the Data step.
	Errors  map[string][]string
	Touched map[string]bool
	Result  *Result

	saver Saver
}

// New starts a create flow with an empty record.
func New(s *resource.Schema, saver Saver) *Wizard {
	return &Wizard{
		Schema:  s,
		Step:    StepData,
		Record:  resource.New(s),
		Touched: map[string]bool{},
		saver:   saver,
	}
}

// Edit starts an edit flow for rec.
func Edit(s *resource.Schema, saver Saver, rec resource.Record) *Wizard {
	w := New(s, saver)
	w.Record = rec.Clone()
	w.Edit = true
	return w
}

// Restore rebuilds a wizard mid-flow from posted form values bound on top of
// base. Used by stateless front ends that round-trip the record in the form.
func Restore(s *resource.Schema, saver Saver, base resource.Record, edit bool, step Step, values url.Values) *Wizard {
	w := New(s, saver)
	w.Edit = edit
	w.Record = resource.Bind(s, base, values)
	if step == StepConfirmation {
		// Confirmation is only reachable through a submit.
		step = StepPreview
	}
	w.Step = step
	return w
}

// Preview validates values and moves to the Preview step. On failure the
// wizard stays on Data with every required field marked touched.
func (w *Wizard) Preview(values url.Values) bool {
	if w.Step != StepData {
		return false
	}
	w.SkipPreview = false
	if !w.bindAndValidate(values) {
		return false
	}
	w.Step = StepPreview
	return true
}

// Back returns from Preview to Data, keeping the record.
func (w *Wizard) Back() error {
	if w.Step != StepPreview {
		return ErrWrongStep
	}
	w.Step = StepData
	return nil
}

// Submit re-validates and saves the previewed record, then moves to
// Confirmation whatever the outcome. The save error is returned after being
// recorded in Result. A record restored at Preview that fails validation goes
// back to Data and nothing is saved.
func (w *Wizard) Submit(ctx context.Context) error {
	if w.Step != StepPreview {
		return ErrWrongStep
	}
	if !w.validate() {
		w.Step = StepData
		return ErrInvalid
	}
	return w.save(ctx)
}

// SubmitDirect validates values and saves without stopping at Preview. A
// validation failure keeps the wizard on Data and returns false with a nil
// error; an API failure still moves to Confirmation.
func (w *Wizard) SubmitDirect(ctx context.Context, values url.Values) (bool, error) {
	if w.Step != StepData {
		return false, ErrWrongStep
	}
	w.SkipPreview = true
	if !w.bindAndValidate(values) {
		return false, nil
	}
	return true, w.save(ctx)
}

// Done reports whether the flow reached Confirmation with a saved record.
func (w *Wizard) Done() bool {
	return w.Step == StepConfirmation && w.Result != nil && w.Result.Success
}

// FormValues encodes the record's writable fields so Restore can rebuild it.
func (w *Wizard) FormValues() url.Values {
	return EncodeForm(w.Schema, w.Record)
}

// EncodeForm renders the writable fields of rec as form values understood by
// resource.Bind.
func EncodeForm(s *resource.Schema, rec resource.Record) url.Values {
	out := url.Values{}
	for _, f := range s.Fields {
		if !f.Writable() {
			continue
		}
		switch f.Kind {
		case resource.KindBool:
			if rec.Bool(f.Name) {
				out.Set(f.Name, "true")
			} else {
				out.Set(f.Name, "false")
			}
		case resource.KindRefs:
			for _, ref := range rec.Refs(f.Name) {
				v := ref.ID
				if ref.Name != "" {
					v += ":" + ref.Name
				}
				out.Add(f.Name, v)
			}
		default:
			out.Set(f.Name, rec.String(f.Name))
		}
	}
	return out
}

func (w *Wizard) bindAndValidate(values url.Values) bool {
	w.Record = resource.Bind(w.Schema, w.Record, values)
	return w.validate()
}

// validate checks the current record. On failure every required and every
// failing field is marked touched.
func (w *Wizard) validate() bool {
	errs := resource.Validate(w.Schema, w.Record)
	if len(errs) > 0 {
		w.Errors = errs
		for _, name := range w.Schema.RequiredFields() {
			w.Touched[name] = true
		}
		for name := range errs {
			w.Touched[name] = true
		}
		return false
	}
	w.Errors = nil
	w.Record = w.Record.Clone()
	return true
}

func (w *Wizard) save(ctx context.Context) error {
	var (
		saved resource.Record
		err   error
	)
	if w.Edit {
		saved, err = w.saver.Update(ctx, w.Record.IDString(), w.Record)
	} else {
		saved, err = w.saver.Create(ctx, w.Record)
	}
	w.Step = StepConfirmation

	if err != nil {
		res := &Result{Success: false, Message: err.Error(), Kind: domain.KindOf(err)}
		if apiErr, ok := domain.AsAPIError(err); ok {
			if apiErr.Message != "" {
				res.Message = apiErr.Message
			}
			res.FieldErrors = apiErr.FieldErrors
		}
		w.Result = res
		return err
	}

	if saved.ID == nil && w.Record.ID != nil {
		saved.ID = w.Record.ID
	}
	w.Record = saved
	msg := w.Schema.Label + " created successfully"
	if w.Edit {
		msg = w.Schema.Label + " updated successfully"
	}
	w.Result = &Result{Success: true, Message: msg}
	return nil
}
