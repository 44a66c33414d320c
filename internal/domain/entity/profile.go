package entity

type ProfileField string

const (
	FieldName    ProfileField = "name"
	FieldEmail   ProfileField = "email"
	FieldPhone   ProfileField = "phone"
	FieldSubject ProfileField = "subject"
	FieldMessage ProfileField = "message"
)

// CanonicalFields is the matching order used against form input names.
var CanonicalFields = []ProfileField{FieldName, FieldEmail, FieldPhone, FieldSubject, FieldMessage}

type Profile struct {
	Name     string `toml:"name" yaml:"name"`
	Email    string `toml:"email" yaml:"email" validate:"required,email"`
	Phone    string `toml:"phone" yaml:"phone"`
	Subject  string `toml:"subject" yaml:"subject"`
	Message  string `toml:"message" yaml:"message"`
	AltEmail string `toml:"alt_email" yaml:"alt_email" validate:"omitempty,email"`
}

func DefaultProfile() Profile {
	return Profile{
		Subject: "Remove my info",
		Message: "Please remove me from your list.",
	}
}

func (p Profile) Value(field ProfileField) string {
	switch field {
	case FieldName:
		return p.Name
	case FieldEmail:
		return p.Email
	case FieldPhone:
		return p.Phone
	case FieldSubject:
		return p.Subject
	case FieldMessage:
		return p.Message
	default:
		return ""
	}
}
