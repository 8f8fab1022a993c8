package models

// BranchOptions are the branches offered by the form's select input
var BranchOptions = []string{"CSE", "IT", "ECE", "IOT", "EE", "ME", "CE", "CHE", "BPharma"}

// YearOptions are the years offered by the form's select input
var YearOptions = []string{"1st Year", "2nd Year", "3rd Year", "4th Year"}

// FormField describes one input for rendering
type FormField struct {
	Name        Field    `json:"name"`
	Label       string   `json:"label"`
	Section     string   `json:"section"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty"`
	WordLimit   int      `json:"wordLimit,omitempty"`
}

// ImageConstraints describes what the image input accepts
type ImageConstraints struct {
	AllowedTypes []string `json:"allowedTypes"`
	MaxBytes     int64    `json:"maxBytes"`
}

// FormSchema is returned by GET /api/v1/form
type FormSchema struct {
	Fields         []FormField      `json:"fields"`
	Image          ImageConstraints `json:"image"`
	SignInRequired bool             `json:"signInRequired"`
}

// FormLayout is the static part of the schema; limits are filled in from the rule table.
//
// Required mirrors the markers shown to the user, which is not the same thing
// as having a validation rule (society is marked but unruled).
var FormLayout = []FormField{
	{Name: FieldName, Label: "Full Name", Section: "Personal Information", Required: true, Placeholder: "Enter your full name"},
	{Name: FieldRollNo, Label: "Roll Number", Section: "Personal Information", Required: true, Placeholder: "10-digit roll number"},
	{Name: FieldBranch, Label: "Branch", Section: "Personal Information", Required: true, Options: BranchOptions},
	{Name: FieldYear, Label: "Year", Section: "Personal Information", Required: true, Options: YearOptions},
	{Name: FieldPhone, Label: "Phone Number", Section: "Contact Information", Required: true, Placeholder: "+91 9876543210"},
	{Name: FieldEmail, Label: "Email Address", Section: "Contact Information", Required: true, Placeholder: "your.email@example.com"},
	{Name: FieldResidence, Label: "Residence", Section: "Contact Information", Required: true, Placeholder: "City, State"},
	{Name: FieldGithubProfile, Label: "GitHub Profile (Optional)", Section: "Contact Information", Placeholder: "https://github.com/yourusername"},
	{Name: FieldSociety, Label: "Society", Section: "Society Information", Required: true, Placeholder: "Enter your society (e.g., Flux or another)"},
	{Name: FieldWhyJoin, Label: "Why do you want to join Flux?", Section: "Society Information", Required: true},
	{Name: FieldSoftSkills, Label: "Soft Skills", Section: "Skills & Attributes", Required: true},
	{Name: FieldHardSkills, Label: "Hard Skills", Section: "Skills & Attributes", Required: true},
	{Name: FieldStrengths, Label: "Strengths", Section: "Skills & Attributes", Required: true},
	{Name: FieldWeaknesses, Label: "Areas for Improvement", Section: "Skills & Attributes", Required: true},
}
