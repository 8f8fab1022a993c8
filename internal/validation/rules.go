package validation

import (
	"fmt"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
)

// Kind selects how a rule is evaluated
type Kind int

const (
	// KindLength bounds the number of characters of a non-empty value
	KindLength Kind = iota
	// KindPattern requires a non-empty value matching a named pattern
	KindPattern
	// KindWordCount requires non-blank text with at most MaxWords words
	KindWordCount
	// KindFile constrains an optional uploaded file
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindLength:
		return "length"
	case KindPattern:
		return "pattern"
	case KindWordCount:
		return "word-count"
	case KindFile:
		return "file"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Named patterns registered as validator tags
const (
	PatternPhone = "phone"
	PatternEmail = "email_address"
)

// Rule is one row of the validation table
type Rule struct {
	Field models.Field
	Kind  Kind

	// KindLength
	MinLength int
	MaxLength int

	// KindPattern
	Pattern string

	// KindWordCount
	MaxWords int

	// KindFile
	AllowedTypes []string
	MaxBytes     int64

	// Message is shown for any failure of the rule.
	// RequiredMessage, when set, replaces it for an empty value;
	// SizeMessage, when set, replaces it for an oversized file.
	Message         string
	RequiredMessage string
	SizeMessage     string
}

// MaxImageBytes is the largest accepted profile picture
const MaxImageBytes = 1024 * 1024

// DefaultRules is the induction form rule table. Fields without a row
// (society, githubProfile) are not validated.
var DefaultRules = []Rule{
	{Field: models.FieldName, Kind: KindLength, MinLength: 1, MaxLength: 200,
		Message: "Name must be between 1 and 200 characters"},
	{Field: models.FieldRollNo, Kind: KindLength, MinLength: 10, MaxLength: 10,
		Message: "Roll number must be exactly 10 characters"},
	{Field: models.FieldBranch, Kind: KindLength, MinLength: 1, MaxLength: 200,
		Message: "Branch must be between 1 and 200 characters"},
	{Field: models.FieldYear, Kind: KindLength, MinLength: 1, MaxLength: 20,
		Message: "Year must be between 1 and 20 characters"},
	{Field: models.FieldPhone, Kind: KindPattern, Pattern: PatternPhone,
		Message: "Phone number must be 6-20 characters with numbers, +, -, (), or spaces"},
	{Field: models.FieldEmail, Kind: KindPattern, Pattern: PatternEmail,
		Message: "Please enter a valid email address"},
	{Field: models.FieldWhyJoin, Kind: KindWordCount, MaxWords: 200,
		Message: "Response must not exceed 200 words", RequiredMessage: "This field is required"},
	{Field: models.FieldSoftSkills, Kind: KindWordCount, MaxWords: 100,
		Message: "Response must not exceed 100 words", RequiredMessage: "This field is required"},
	{Field: models.FieldHardSkills, Kind: KindWordCount, MaxWords: 100,
		Message: "Response must not exceed 100 words", RequiredMessage: "This field is required"},
	{Field: models.FieldStrengths, Kind: KindWordCount, MaxWords: 100,
		Message: "Response must not exceed 100 words", RequiredMessage: "This field is required"},
	{Field: models.FieldWeaknesses, Kind: KindWordCount, MaxWords: 100,
		Message: "Response must not exceed 100 words", RequiredMessage: "This field is required"},
	{Field: models.FieldResidence, Kind: KindLength, MinLength: 1, MaxLength: 200,
		Message: "Residence must be between 1 and 200 characters"},
	{Field: models.FieldImageFile, Kind: KindFile,
		AllowedTypes: []string{"image/jpeg", "image/jpg", "image/png"},
		MaxBytes:     MaxImageBytes,
		Message:      "Please select a .jpg, .jpeg, or .png file",
		SizeMessage:  "Image size must be less than 1MB",
	},
}

// tag builds the validator tag for text rules
func (r Rule) tag() (string, error) {
	switch r.Kind {
	case KindLength:
		if r.MinLength < 1 || r.MaxLength < r.MinLength {
			return "", fmt.Errorf("field %s: invalid length bounds %d-%d", r.Field, r.MinLength, r.MaxLength)
		}
		if r.MinLength == r.MaxLength {
			return fmt.Sprintf("required,len=%d", r.MinLength), nil
		}
		return fmt.Sprintf("required,min=%d,max=%d", r.MinLength, r.MaxLength), nil
	case KindPattern:
		if r.Pattern == "" {
			return "", fmt.Errorf("field %s: pattern rule without a pattern", r.Field)
		}
		return "required," + r.Pattern, nil
	case KindWordCount:
		if r.MaxWords < 1 {
			return "", fmt.Errorf("field %s: invalid word limit %d", r.Field, r.MaxWords)
		}
		return fmt.Sprintf("notblank,maxwords=%d", r.MaxWords), nil
	}
	return "", fmt.Errorf("field %s: %s rule has no text tag", r.Field, r.Kind)
}
