package chat

import (
	"slices"

	"github.com/rhuss/runnerchat/pkg/api"
)

// Options holds the optional generation parameters of a request.
type Options struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
	Stop        []string
	Stream      bool
}

// Option configures Options.
type Option func(*Options)

// WithTemperature sets the sampling temperature (0 = deterministic, 2 = most random).
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = &t }
}

// WithMaxTokens caps the number of generated tokens.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = &n }
}

// WithTopP sets the nucleus sampling threshold.
func WithTopP(p float64) Option {
	return func(o *Options) { o.TopP = &p }
}

// WithStop sets stop sequences.
func WithStop(stop ...string) Option {
	return func(o *Options) { o.Stop = slices.Clone(stop) }
}

// WithStream requests incremental delivery.
func WithStream(stream bool) Option {
	return func(o *Options) { o.Stream = stream }
}

// Request is a validated chat-completion request.
type Request struct {
	model    string
	messages []api.Message
	opts     Options
}

// NewRequest builds a Request from a model identifier, an ordered
// conversation and options. It returns an invalid_request *api.APIError
// when the input is unusable.
func NewRequest(model string, messages []api.Message, opts ...Option) (Request, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	req := Request{
		model:    model,
		messages: slices.Clone(messages),
		opts:     o,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Model returns the model identifier.
func (r Request) Model() string { return r.model }

// Messages returns a copy of the conversation in its original order.
func (r Request) Messages() []api.Message { return slices.Clone(r.messages) }

// Temperature returns the sampling temperature and whether it was set.
func (r Request) Temperature() (float64, bool) { return deref(r.opts.Temperature) }

// MaxTokens returns the token cap and whether it was set.
func (r Request) MaxTokens() (int, bool) { return deref(r.opts.MaxTokens) }

// TopP returns the nucleus sampling threshold and whether it was set.
func (r Request) TopP() (float64, bool) { return deref(r.opts.TopP) }

// Stop returns a copy of the stop sequences.
func (r Request) Stop() []string { return slices.Clone(r.opts.Stop) }

// Stream reports whether incremental delivery is requested.
func (r Request) Stream() bool { return r.opts.Stream }

// WithStream returns a copy of r with the streaming flag set to stream.
func (r Request) WithStream(stream bool) Request {
	c := r
	c.opts.Stream = stream
	return c
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
