package validation

import "strings"

// Element ids of the profile forms.
const (
	FieldRole        = "Rol"
	FieldProfileName = "NombrePerfil"
	FieldName        = "Nombre"
	FieldCedula      = "Cedula"
	FieldAge         = "Edad"
	FieldGender      = "Genero"
	FieldHeight      = "Estatura_cm"
	FieldWeight      = "Peso_kg"
)

// Role values carried by the Rol select on the registration form.
const (
	RoleDoctor  = "2"
	RolePatient = "3"
)

// User-facing rejection messages.
const (
	MsgPatientName = "Nombre inválido. Debe ser solo letras y con formato: Nombre Apellido"
	MsgDoctorName  = "Nombre de médico inválido. Debe tener el formato: Dr/a. Nombre Apellido"
	MsgCedulaRange = "Cédula inválida o fuera de rango. Ingrese una cédula ecuatoriana válida."
	MsgCedula      = "Cédula inválida. Ingrese una cédula ecuatoriana válida."
	MsgAge         = "Edad inválida. Debe estar entre 0 y 120."
	MsgHeight      = "Estatura inválida. Debe estar entre 30 y 250 cm."
	MsgWeight      = "Peso inválido. Debe estar entre 0 y 300 kg."
	MsgGender      = "Género inválido. Seleccione Masculino o Femenino."
)

// Fields is a snapshot of form values keyed by element id. A missing key means
// the element is not on the form; an empty value means it was left blank.
type Fields map[string]string

// Lookup returns the value for id and whether the element exists.
func (f Fields) Lookup(id string) (string, bool) {
	v, ok := f[id]
	return v, ok
}

// NameField returns the id and value of the name input, preferring the
// registration profile name over the CRUD name field.
func (f Fields) NameField() (string, string, bool) {
	if v, ok := f[FieldProfileName]; ok {
		return FieldProfileName, v, true
	}
	if v, ok := f[FieldName]; ok {
		return FieldName, v, true
	}
	return "", "", false
}

// FieldError is a rejected form field with the message shown to the user.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func roleApplies(f Fields, role string) bool {
	v, ok := f[FieldRole]
	return !ok || strings.TrimSpace(v) == role
}

// PatientRulesApply reports whether patient rules gate this form: either there
// is no role selector (admin CRUD) or the patient role is selected.
func PatientRulesApply(f Fields) bool { return roleApplies(f, RolePatient) }

// DoctorRulesApply is PatientRulesApply for the doctor role.
func DoctorRulesApply(f Fields) bool { return roleApplies(f, RoleDoctor) }

// ValidatePatientForm returns the first failing field, checking name, cédula,
// age, height, weight and gender in that order. Height and weight are optional.
func ValidatePatientForm(f Fields) error {
	if !PatientRulesApply(f) {
		return nil
	}

	if id, v, ok := f.NameField(); ok && !IsValidPatientName(v) {
		return &FieldError{Field: id, Message: MsgPatientName}
	}

	if raw, ok := f.Lookup(FieldCedula); ok {
		c := strings.TrimSpace(raw)
		if IsCedulaShape(c) && !CedulaFitsUint32(c) {
			return &FieldError{Field: FieldCedula, Message: MsgCedulaRange}
		}
		if !ValidateCedula(c) {
			return &FieldError{Field: FieldCedula, Message: MsgCedula}
		}
	}

	if raw, ok := f.Lookup(FieldAge); ok {
		if n, ok := ParseNumber(raw); !ok || !ValidAge(n) {
			return &FieldError{Field: FieldAge, Message: MsgAge}
		}
	}

	if raw, ok := f.Lookup(FieldHeight); ok && strings.TrimSpace(raw) != "" {
		if n, ok := ParseNumber(raw); !ok || !ValidHeightCM(n) {
			return &FieldError{Field: FieldHeight, Message: MsgHeight}
		}
	}

	if raw, ok := f.Lookup(FieldWeight); ok && strings.TrimSpace(raw) != "" {
		if n, ok := ParseNumber(raw); !ok || !ValidWeightKG(n) {
			return &FieldError{Field: FieldWeight, Message: MsgWeight}
		}
	}

	if raw, ok := f.Lookup(FieldGender); ok && !ValidGender(raw) {
		return &FieldError{Field: FieldGender, Message: MsgGender}
	}

	return nil
}

// ValidateDoctorForm checks the doctor display name when doctor rules apply.
func ValidateDoctorForm(f Fields) error {
	if !DoctorRulesApply(f) {
		return nil
	}
	if id, v, ok := f.NameField(); ok && !IsValidDoctorName(v) {
		return &FieldError{Field: id, Message: MsgDoctorName}
	}
	return nil
}

// Gate names a validation gate a page enables for its forms.
type Gate string

const (
	GatePatient Gate = "paciente"
	GateDoctor  Gate = "medico"
)

// ValidateForm runs the enabled gates, doctor first, and returns the first
// failure. Unknown gates are ignored.
func ValidateForm(f Fields, gates ...Gate) error {
	enabled := map[Gate]bool{}
	for _, g := range gates {
		enabled[g] = true
	}
	if enabled[GateDoctor] {
		if err := ValidateDoctorForm(f); err != nil {
			return err
		}
	}
	if enabled[GatePatient] {
		if err := ValidatePatientForm(f); err != nil {
			return err
		}
	}
	return nil
}

// HasProfileFields reports whether the form carries any gated profile input.
func HasProfileFields(f Fields) bool {
	for _, id := range []string{FieldProfileName, FieldName, FieldCedula, FieldAge, FieldGender, FieldHeight, FieldWeight} {
		if _, ok := f[id]; ok {
			return true
		}
	}
	return false
}
