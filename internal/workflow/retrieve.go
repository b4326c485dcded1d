package workflow

import (
	"mdac/internal/engine"
	"mdac/internal/model"
)

// Retrieve builds the steps that look up a completed registration by
// passport, nationality and PIN and trigger the confirmation slip
// download. The check screen's field names vary between revisions, so
// the selectors match on name fragments. Confirmation comes from the
// PDF landing in the download directory rather than a page indicator.
func (o Options) Retrieve(in model.RetrieveInput) (steps, submit []engine.Step, probe engine.Probe) {
	steps = []engine.Step{
		o.step("open_check", engine.ActionNavigate, "", o.BaseURL+"?checkMain"),
		o.optional("passport_no", engine.ActionFill, "input[name*='pass']", in.Passport),
		o.optional("nationality", engine.ActionSelect, "select[name*='nation']", in.Nationality),
		o.optional("pin", engine.ActionFill, "input[name*='pin']", in.Pin),
		{Name: "check_filled", Action: engine.ActionScreenshot},
	}

	submit = []engine.Step{
		o.optional("search", engine.ActionClick, "#submit, button[type='submit'], input[type='submit']", ""),
		o.optional("search_enter", engine.ActionPressEnter, "", ""),
		o.optional("download_slip", engine.ActionClick, "#btnPrint, a[href*='pdf'], a[href*='print'], button[name*='print']", ""),
		{Name: "after_search", Action: engine.ActionScreenshot},
	}
	// The Enter fallback only matters when the submit control is
	// missing; the check screen tolerates a repeated search.

	probe = engine.Probe{
		SuccessSelector: o.SuccessSelector,
		RejectSelector:  o.RejectSelector,
		DownloadGlob:    "*.pdf",
	}
	return steps, submit, probe
}
