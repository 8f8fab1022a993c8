package validation

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9+\-() ]{6,20}$`)
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
)

// isSpace matches every rune a browser treats as whitespace, including the BOM
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func validEmail(value string) bool {
	return strings.IndexFunc(value, isSpace) < 0 && emailPattern.MatchString(value)
}

// compiledRule is a rule with its validator tag resolved
type compiledRule struct {
	Rule
	tag string
}

// Validator evaluates the rule table. It is safe for concurrent use.
type Validator struct {
	engine *validator.Validate
	rules  []compiledRule
	byName map[models.Field]int
}

// New compiles a rule table; with no rules it uses DefaultRules.
func New(rules ...Rule) (*Validator, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	engine := validator.New()
	custom := map[string]validator.Func{
		PatternPhone: func(fl validator.FieldLevel) bool { return phonePattern.MatchString(fl.Field().String()) },
		PatternEmail: func(fl validator.FieldLevel) bool { return validEmail(fl.Field().String()) },
		"notblank":   func(fl validator.FieldLevel) bool { return strings.TrimSpace(fl.Field().String()) != "" },
		"maxwords": func(fl validator.FieldLevel) bool {
			limit, err := strconv.Atoi(fl.Param())
			return err == nil && CountWords(fl.Field().String()) <= limit
		},
	}
	for tag, fn := range custom {
		if err := engine.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}

	v := &Validator{
		engine: engine,
		rules:  make([]compiledRule, 0, len(rules)),
		byName: make(map[models.Field]int, len(rules)),
	}
	for _, r := range rules {
		if _, known := models.ParseField(string(r.Field)); !known {
			return nil, fmt.Errorf("rule for unknown field %q", r.Field)
		}
		if _, dup := v.byName[r.Field]; dup {
			return nil, fmt.Errorf("duplicate rule for field %s", r.Field)
		}

		c := compiledRule{Rule: r}
		if r.Kind == KindFile {
			if r.Field != models.FieldImageFile {
				return nil, fmt.Errorf("file rule on text field %s", r.Field)
			}
		} else {
			if r.Field == models.FieldImageFile {
				return nil, fmt.Errorf("%s rule on file field %s", r.Kind, r.Field)
			}
			tag, err := r.tag()
			if err != nil {
				return nil, err
			}
			c.tag = tag
		}

		v.byName[r.Field] = len(v.rules)
		v.rules = append(v.rules, c)
	}

	return v, nil
}

// MustNew is New for the default table; it panics on a broken table.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks one text value and returns the error message, or "" when the
// value is acceptable or the field has no rule.
func (v *Validator) Validate(field models.Field, value string) string {
	r, ok := v.rule(field)
	if !ok || r.Kind == KindFile {
		return ""
	}

	err := v.engine.Var(value, r.tag)
	if err == nil {
		return ""
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && r.RequiredMessage != "" {
		switch fieldErrs[0].Tag() {
		case "required", "notblank":
			return r.RequiredMessage
		}
	}
	return r.Message
}

// ValidateImage checks the selected image; nil (no image) is always acceptable
func (v *Validator) ValidateImage(file *models.ImageFile) string {
	if file == nil {
		return ""
	}
	r, ok := v.rule(models.FieldImageFile)
	if !ok {
		return ""
	}

	if len(r.AllowedTypes) > 0 {
		oneOf := "oneof=" + strings.Join(r.AllowedTypes, " ")
		if err := v.engine.Var(strings.ToLower(file.ContentType), oneOf); err != nil {
			return r.Message
		}
	}

	if r.MaxBytes > 0 {
		if err := v.engine.Var(file.Size, fmt.Sprintf("min=0,max=%d", r.MaxBytes)); err != nil {
			if r.SizeMessage != "" {
				return r.SizeMessage
			}
			return r.Message
		}
	}

	return ""
}

// ValidateAll applies the table to every field of the draft and returns only the failures
func (v *Validator) ValidateAll(draft *models.ApplicationDraft) models.FieldErrorMap {
	errs := models.FieldErrorMap{}
	for _, r := range v.rules {
		var msg string
		if r.Kind == KindFile {
			msg = v.ValidateImage(draft.ImageFile)
		} else {
			msg = v.Validate(r.Field, draft.Text(r.Field))
		}
		if msg != "" {
			errs[r.Field] = msg
		}
	}
	return errs
}

// WordLimit returns the word limit of a field, or 0 when it has none
func (v *Validator) WordLimit(field models.Field) int {
	if r, ok := v.rule(field); ok && r.Kind == KindWordCount {
		return r.MaxWords
	}
	return 0
}

// MaxLength returns the character limit of a field, or 0 when it has none
func (v *Validator) MaxLength(field models.Field) int {
	if r, ok := v.rule(field); ok && r.Kind == KindLength {
		return r.MaxLength
	}
	return 0
}

// WordLimitedFields lists the fields carrying a word limit, in table order
func (v *Validator) WordLimitedFields() []models.Field {
	var fields []models.Field
	for _, r := range v.rules {
		if r.Kind == KindWordCount {
			fields = append(fields, r.Field)
		}
	}
	return fields
}

// ImageConstraints describes the file rule for the form schema
func (v *Validator) ImageConstraints() models.ImageConstraints {
	r, ok := v.rule(models.FieldImageFile)
	if !ok {
		return models.ImageConstraints{}
	}
	return models.ImageConstraints{AllowedTypes: slices.Clone(r.AllowedTypes), MaxBytes: r.MaxBytes}
}

func (v *Validator) rule(field models.Field) (compiledRule, bool) {
	i, ok := v.byName[field]
	if !ok {
		return compiledRule{}, false
	}
	return v.rules[i], true
}
