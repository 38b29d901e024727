// Package tools is the fixed set of operations a planner may invoke.
// Every call returns a Result carrying a "status" discriminator; raw errors
// never leave the Dispatcher.
package tools

import (
	"context"
	"sort"
	"sync"
)

const (
	GetPatientRecord             = "get_patient_record"
	CheckAppointmentAvailability = "check_appointment_availability"
	BookAppointment              = "book_appointment"
	RescheduleAppointment        = "reschedule_appointment"
	CancelAppointment            = "cancel_appointment"
	LogInteraction               = "log_interaction"
)

const (
	StatusSuccess     = "success"
	StatusFailed      = "failed"
	StatusRateLimited = "rate_limited"
	StatusLogged      = "logged"
)

// Result is JSON-native (strings, bools, numbers, []any, map[string]any) so
// it can be handed to any planner SDK unchanged.
type Result map[string]any

func (r Result) Status() string {
	s, _ := r["status"].(string)
	return s
}

type Call struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type Param struct {
	Name        string
	Description string
	Required    bool
}

// Spec declares a tool to the planner. All parameters are strings.
type Spec struct {
	Name        string
	Description string
	Params      []Param
	// FailureMessage is shown when the tool fails for a reason that is not
	// safe to describe.
	FailureMessage string
}

type Handler func(ctx context.Context, args map[string]any) (Result, error)

type entry struct {
	spec    Spec
	handler Handler
}

type Registry struct {
	tools      map[string]entry
	background sync.WaitGroup
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

func (r *Registry) Register(spec Spec, h Handler) {
	r.tools[spec.Name] = entry{spec: spec, handler: h}
}

func (r *Registry) Lookup(name string) (Spec, Handler, bool) {
	e, ok := r.tools[name]
	return e.spec, e.handler, ok
}

// Specs lists the registered tools sorted by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Wait blocks until background work started by handlers has finished.
func (r *Registry) Wait() {
	r.background.Wait()
}

func (r *Registry) goBackground(fn func()) {
	r.background.Add(1)
	go func() {
		defer r.background.Done()
		fn()
	}()
}
