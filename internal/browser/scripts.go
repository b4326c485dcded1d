package browser

// In-page helpers for controls that resist plain keyboard input. The
// arrival form wraps its selects and date fields in jQuery plugins, so
// values must be set through the DOM and the framework change events
// fired by hand.

// selectScript sets a <select> to the given value. An empty value picks
// the first non-empty option (the form requires a choice but the caller
// did not supply one).
const selectScript = `(sel, val) => {
	const el = document.querySelector(sel);
	if (!el) throw new Error('select not found: ' + sel);
	if (val === '') {
		for (const opt of el.options) {
			if (opt.value !== '') { val = opt.value; break; }
		}
	}
	el.value = val;
	if (el.selectedIndex < 0 || el.value !== val) {
		throw new Error('option not available: ' + val + ' in ' + sel);
	}
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	if (window.jQuery) {
		window.jQuery(el).trigger('change');
	}
}`

// setDateScript writes a DD/MM/YYYY value into a datepicker-backed
// input. The readonly attribute is lifted for the write, and whichever
// datepicker plugin owns the field (bootstrap-datepicker, jQuery UI,
// Tempus Dominus) is updated too so its internal state does not revert
// the field on blur.
const setDateScript = `(sel, val) => {
	const el = document.querySelector(sel);
	if (!el) throw new Error('date input not found: ' + sel);
	const parts = val.split('/');
	const date = new Date(+parts[2], +parts[1] - 1, +parts[0]);
	const readonly = el.hasAttribute('readonly');
	if (readonly) el.removeAttribute('readonly');
	el.value = val;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	const $ = window.jQuery;
	if ($) {
		const q = $(el);
		try {
			if (q.data && q.data('datepicker')) {
				q.datepicker('update', date);            // bootstrap-datepicker
			} else if ($.datepicker && q.hasClass('hasDatepicker')) {
				q.datepicker('setDate', date);           // jQuery UI
			} else if (q.data && q.data('DateTimePicker')) {
				q.data('DateTimePicker').date(date);     // Tempus Dominus
			}
		} catch (e) { /* keep the raw value */ }
		q.trigger('change');
	}
	if (readonly) el.setAttribute('readonly', 'readonly');
	el.blur();
}`
