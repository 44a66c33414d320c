package entity

// FormField is a named or unnamed control inside a discovered form.
type FormField struct {
	Tag  string
	Name string
	ID   string
	Type string
}

type SubmitControl struct {
	Tag  string
	Name string
}

// DiscoveredForm is a structural reference to the first form on a page.
type DiscoveredForm struct {
	Selector string
	Action   string
	Method   string
	HTML     string
	Fields   []FormField
	Submit   *SubmitControl
}

// FieldMapping binds one form control to a canonical profile field.
type FieldMapping struct {
	Field    ProfileField
	Name     string
	Selector string
}
