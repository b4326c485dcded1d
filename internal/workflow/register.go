package workflow

import (
	"mdac/internal/engine"
	"mdac/internal/model"
)

// cityPopulatedScript waits for the city select to fill after a state
// is chosen; the form loads the options over XHR.
const cityPopulatedScript = `() => {
	const sel = document.querySelector('#accommodationCity');
	return !!(sel && sel.options && sel.options.length > 1);
}`

// Register builds the form-filling steps, the submission steps, and
// the gate probe for one traveler. Optional fields the record leaves
// empty are skipped; accommodation fields fall back to the configured
// site defaults.
func (o Options) Register(in model.RegisterInput) (steps, submit []engine.Step, probe engine.Probe) {
	steps = append(steps,
		o.step("open_register", engine.ActionNavigate, "", o.BaseURL+"?registerMain"),
		engine.Step{Name: "register_main", Action: engine.ActionScreenshot},
		o.optional("personal_section", engine.ActionWaitVisible, "#name", ""),
		o.optional("focus_form", engine.ActionClick, "#passNo", ""),
	)

	steps = appendFill(steps, o, "full_name", "#name", in.FullName)
	steps = appendFill(steps, o, "passport_no", "#passNo", in.Passport)
	steps = appendFill(steps, o, "email", "#email", in.Email)
	steps = appendFill(steps, o, "confirm_email", "#confirmEmail", in.Email)

	if d := NormalizeDate(in.DateOfBirth); d != "" {
		steps = append(steps, o.step("date_of_birth", engine.ActionSetDate, "#dob", d))
	}
	steps = appendSelect(steps, o, "nationality", "#nationality", in.Nationality)
	steps = appendSelect(steps, o, "gender", "#sex", MapGender(in.Gender))
	if d := NormalizeDate(in.PassportExpiryDate); d != "" {
		steps = append(steps, o.step("passport_expiry", engine.ActionSetDate, "#passExpDte", d))
	}

	region := in.RegionCode
	if region == "" {
		region = ExtractRegionCode(in.Phone)
	}
	steps = appendSelect(steps, o, "region_code", "#region", region)

	mobile := in.Mobile
	if mobile == "" && in.Phone != "" {
		mobile = MobileFromPhone(in.Phone, region)
	}
	steps = appendFill(steps, o, "mobile", "#mobile", mobile)

	steps = append(steps, o.optional("travel_section", engine.ActionWaitVisible, "#arrDt", ""))
	if d := NormalizeDate(in.ArrivalDate); d != "" {
		steps = append(steps, o.step("arrival_date", engine.ActionSetDate, "#arrDt", d))
	}
	if d := NormalizeDate(in.DepartureDate); d != "" {
		steps = append(steps, o.step("departure_date", engine.ActionSetDate, "#depDt", d))
	}
	steps = appendFill(steps, o, "flight_no", "#vesselNm", in.FlightNo)
	steps = appendSelect(steps, o, "travel_mode", "#trvlMode", MapMode(in.ArrivalMode))

	embark := in.Embarkation
	if embark == "" {
		embark = o.DefaultEmbark
	}
	steps = appendSelect(steps, o, "embarkation", "#embark", embark)

	stay := in.AccommodationStay
	if stay == "" {
		stay = "01"
	}
	steps = appendSelect(steps, o, "accommodation_stay", "#accommodationStay", stay)
	steps = appendFill(steps, o, "address_line1", "#accommodationAddress1", in.AccommodationAddress1)
	steps = appendFill(steps, o, "address_line2", "#accommodationAddress2", in.AccommodationAddress2)

	state := in.AccommodationState
	if state == "" {
		state = o.DefaultStateCode
	}
	steps = appendSelect(steps, o, "accommodation_state", "#accommodationState", state)

	waitCity := o.optional("wait_city_list", engine.ActionWaitFunc, "#accommodationCity", "")
	waitCity.Script = cityPopulatedScript
	steps = append(steps, waitCity)
	// Empty value makes the select pick the first real option.
	steps = append(steps, o.optional("accommodation_city", engine.ActionSelect, "#accommodationCity", in.AccommodationCity))

	postcode := in.AccommodationPostcode
	if postcode == "" {
		postcode = o.DefaultPostcode
	}
	steps = appendFill(steps, o, "postcode", "#accommodationPostcode", postcode)

	steps = append(steps, engine.Step{Name: "form_filled", Action: engine.ActionScreenshot})

	submit = []engine.Step{
		o.step("submit", engine.ActionClick, "#submit", ""),
		{Name: "after_submit", Action: engine.ActionScreenshot},
	}

	probe = engine.Probe{
		SuccessSelector: o.SuccessSelector,
		RejectSelector:  o.RejectSelector,
		PinSelector:     o.PinSelector,
	}
	return steps, submit, probe
}

func appendFill(steps []engine.Step, o Options, name, selector, value string) []engine.Step {
	if value == "" {
		return steps
	}
	return append(steps, o.optional(name, engine.ActionFill, selector, value))
}

func appendSelect(steps []engine.Step, o Options, name, selector, value string) []engine.Step {
	if value == "" {
		return steps
	}
	return append(steps, o.optional(name, engine.ActionSelect, selector, value))
}
