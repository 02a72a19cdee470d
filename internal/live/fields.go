package live

import (
	"strings"

	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/internal/validation"
)

// fieldState tracks the profile inputs of a page and normalizes them as the
// user types. It is only touched from the session's reader goroutine.
type fieldState struct {
	values  validation.Fields
	patient bool
	doctor  bool
}

func newFieldState(values map[string]string, gates []validation.Gate) *fieldState {
	fs := &fieldState{values: validation.Fields{}}
	for k, v := range values {
		fs.values[k] = v
	}
	for _, g := range gates {
		switch g {
		case validation.GatePatient:
			fs.patient = true
		case validation.GateDoctor:
			fs.doctor = true
		}
	}
	return fs
}

func (fs *fieldState) doctorActive() bool {
	return fs.doctor && validation.DoctorRulesApply(fs.values)
}

func (fs *fieldState) patientActive() bool {
	return fs.patient && validation.PatientRulesApply(fs.values)
}

func isNameField(id string) bool {
	return id == validation.FieldProfileName || id == validation.FieldName
}

// initial returns the commands applied once the page says hello: input
// attributes for the cédula and numeric fields, and the doctor prefix.
func (fs *fieldState) initial() []dom.Command {
	var cmds []dom.Command
	if !fs.patient {
		return fs.ensurePrefixAll(cmds)
	}
	if _, ok := fs.values[validation.FieldCedula]; ok {
		cmds = append(cmds,
			dom.SetAttr(validation.FieldCedula, "maxlength", "10"),
			dom.SetAttr(validation.FieldCedula, "inputmode", "numeric"),
		)
	}
	for _, id := range []string{validation.FieldAge, validation.FieldHeight, validation.FieldWeight} {
		if _, ok := fs.values[id]; !ok {
			continue
		}
		h := validation.RangeHints[id]
		cmds = append(cmds,
			dom.SetAttr(id, "min", h.Min),
			dom.SetAttr(id, "max", h.Max),
			dom.SetAttr(id, "step", h.Step),
		)
	}
	return fs.ensurePrefixAll(cmds)
}

func (fs *fieldState) ensurePrefixAll(cmds []dom.Command) []dom.Command {
	if !fs.doctorActive() {
		return cmds
	}
	if id, _, ok := fs.values.NameField(); ok {
		if c, changed := fs.ensurePrefix(id); changed {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// ensurePrefix puts the doctor prefix in an empty name field and
// normalizes one typed without it.
func (fs *fieldState) ensurePrefix(id string) (dom.Command, bool) {
	v := fs.values[id]
	next := v
	switch {
	case v == "":
		next = validation.DoctorPrefix
	case !strings.HasPrefix(v, validation.DoctorPrefix):
		next = validation.NormalizeDoctorName(v, false)
	}
	return fs.set(id, v, next)
}

// handle applies an input, blur or focus event and returns the command that
// rewrites the field, if any.
func (fs *fieldState) handle(ev dom.Event) (dom.Command, bool) {
	id := ev.Target
	raw := ev.Value
	fs.values[id] = raw

	switch {
	case id == validation.FieldRole:
		// Switching the registration form to the doctor role sets the prefix up.
		if ev.Type == dom.EventInput && fs.doctorActive() {
			if name, _, ok := fs.values.NameField(); ok && name == validation.FieldProfileName {
				return fs.ensurePrefix(name)
			}
		}
	case isNameField(id) && fs.doctorActive():
		switch ev.Type {
		case dom.EventFocus:
			return fs.ensurePrefix(id)
		case dom.EventInput:
			return fs.set(id, raw, validation.NormalizeDoctorName(raw, true))
		case dom.EventBlur:
			return fs.set(id, raw, validation.NormalizeDoctorName(raw, false))
		}
	case isNameField(id) && fs.patientActive():
		switch ev.Type {
		case dom.EventInput:
			return fs.set(id, raw, validation.NormalizePatientName(raw, true))
		case dom.EventBlur:
			return fs.set(id, raw, validation.NormalizePatientName(raw, false))
		}
	case id == validation.FieldCedula && fs.patient && ev.Type == dom.EventInput:
		return fs.set(id, raw, validation.SanitizeCedulaInput(raw))
	}
	return dom.Command{}, false
}

func (fs *fieldState) set(id, old, next string) (dom.Command, bool) {
	fs.values[id] = next
	if next == old {
		return dom.Command{}, false
	}
	return dom.SetValue(id, next), true
}

// merge records the values a submit event carried.
func (fs *fieldState) merge(values map[string]string) {
	for k, v := range values {
		fs.values[k] = v
	}
}
