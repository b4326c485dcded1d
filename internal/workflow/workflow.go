package workflow

import (
	"time"

	"mdac/internal/config"
	"mdac/internal/engine"
)

// Options carries the site knowledge the step builders need: entry URL,
// indicator selectors, per-step execution policy, and the form defaults
// applied when the traveler record leaves a field empty.
type Options struct {
	BaseURL          string
	StepTimeout      time.Duration
	StepRetries      int
	SuccessSelector  string
	RejectSelector   string
	PinSelector      string
	DefaultEmbark    string
	DefaultStateCode string
	DefaultPostcode  string
}

func FromConfig(cfg config.MdacConfig) Options {
	o := Options{
		BaseURL:          cfg.BaseURL,
		StepTimeout:      time.Duration(cfg.StepTimeoutMs) * time.Millisecond,
		StepRetries:      cfg.StepRetries,
		SuccessSelector:  cfg.SuccessSelector,
		RejectSelector:   cfg.RejectSelector,
		PinSelector:      cfg.PinSelector,
		DefaultEmbark:    cfg.DefaultEmbark,
		DefaultStateCode: cfg.DefaultStateCode,
		DefaultPostcode:  cfg.DefaultPostcode,
	}
	if o.BaseURL == "" {
		o.BaseURL = "https://imigresen-online.imi.gov.my/mdac/main"
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = 15 * time.Second
	}
	if o.SuccessSelector == "" {
		o.SuccessSelector = ".alert-success, .confirmation-panel"
	}
	if o.RejectSelector == "" {
		o.RejectSelector = ".alert-danger, .error-panel"
	}
	if o.PinSelector == "" {
		o.PinSelector = "#pinNo, .pin-number"
	}
	if o.DefaultEmbark == "" {
		o.DefaultEmbark = "BGD"
	}
	if o.DefaultStateCode == "" {
		o.DefaultStateCode = "14"
	}
	if o.DefaultPostcode == "" {
		o.DefaultPostcode = "50050"
	}
	return o
}

func (o Options) step(name string, action engine.Action, selector, value string) engine.Step {
	return engine.Step{
		Name:     name,
		Action:   action,
		Selector: selector,
		Value:    value,
		Timeout:  o.StepTimeout,
		Retries:  o.StepRetries,
	}
}

// optional marks a step with fill-if-value semantics: a failure is
// logged and the sequence continues, mirroring how the form tolerates
// blank non-mandatory fields.
func (o Options) optional(name string, action engine.Action, selector, value string) engine.Step {
	s := o.step(name, action, selector, value)
	s.Optional = true
	return s
}
