package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Field names a single input of the induction form
type Field string

const (
	FieldName          Field = "name"
	FieldRollNo        Field = "rollNo"
	FieldBranch        Field = "branch"
	FieldYear          Field = "year"
	FieldPhone         Field = "phone"
	FieldEmail         Field = "email"
	FieldSociety       Field = "society"
	FieldWhyJoin       Field = "whyJoin"
	FieldSoftSkills    Field = "softSkills"
	FieldHardSkills    Field = "hardSkills"
	FieldStrengths     Field = "strengths"
	FieldWeaknesses    Field = "weaknesses"
	FieldGithubProfile Field = "githubProfile"
	FieldResidence     Field = "residence"
	FieldImageFile     Field = "imageFile"
)

// TextFields lists every text field in form order
var TextFields = []Field{
	FieldName, FieldRollNo, FieldBranch, FieldYear,
	FieldPhone, FieldEmail, FieldSociety, FieldWhyJoin,
	FieldSoftSkills, FieldHardSkills, FieldStrengths, FieldWeaknesses,
	FieldGithubProfile, FieldResidence,
}

// ParseField resolves a wire name to a known field
func ParseField(name string) (Field, bool) {
	f := Field(name)
	if f == FieldImageFile {
		return f, true
	}
	_, ok := textFieldRefs[f]
	return f, ok
}

// IsText reports whether the field holds text
func (f Field) IsText() bool {
	_, ok := textFieldRefs[f]
	return ok
}

// ImageFile is the profile picture selected for an application
type ImageFile struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// NewImageFile builds an image handle, sniffing the content type from the bytes
// when the declared one is missing or generic.
func NewImageFile(fileName, declaredType string, data []byte) *ImageFile {
	contentType := strings.ToLower(strings.TrimSpace(declaredType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
		if i := strings.Index(contentType, ";"); i >= 0 {
			contentType = contentType[:i]
		}
	}

	return &ImageFile{
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}
}

// Fingerprint identifies the file contents, used to tell whether an image was already uploaded
func (f *ImageFile) Fingerprint() string {
	if f == nil {
		return ""
	}
	sum := sha256.Sum256(f.Data)
	return hex.EncodeToString(sum[:])
}

// ImageSummary is the part of an image handle shown to the view
type ImageSummary struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Summary returns the view-safe description of the image
func (f *ImageFile) Summary() *ImageSummary {
	if f == nil {
		return nil
	}
	return &ImageSummary{FileName: f.FileName, ContentType: f.ContentType, Size: f.Size}
}

// ApplicationDraft is the in-progress application edited by the user.
// Text fields are never nil; an unset field is the empty string.
type ApplicationDraft struct {
	Name          string `json:"name"`
	RollNo        string `json:"rollNo"`
	Branch        string `json:"branch"`
	Year          string `json:"year"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Society       string `json:"society"`
	WhyJoin       string `json:"whyJoin"`
	SoftSkills    string `json:"softSkills"`
	HardSkills    string `json:"hardSkills"`
	Strengths     string `json:"strengths"`
	Weaknesses    string `json:"weaknesses"`
	GithubProfile string `json:"githubProfile"`
	Residence     string `json:"residence"`

	ImageFile *ImageFile `json:"-"`
}

var textFieldRefs = map[Field]func(*ApplicationDraft) *string{
	FieldName:          func(d *ApplicationDraft) *string { return &d.Name },
	FieldRollNo:        func(d *ApplicationDraft) *string { return &d.RollNo },
	FieldBranch:        func(d *ApplicationDraft) *string { return &d.Branch },
	FieldYear:          func(d *ApplicationDraft) *string { return &d.Year },
	FieldPhone:         func(d *ApplicationDraft) *string { return &d.Phone },
	FieldEmail:         func(d *ApplicationDraft) *string { return &d.Email },
	FieldSociety:       func(d *ApplicationDraft) *string { return &d.Society },
	FieldWhyJoin:       func(d *ApplicationDraft) *string { return &d.WhyJoin },
	FieldSoftSkills:    func(d *ApplicationDraft) *string { return &d.SoftSkills },
	FieldHardSkills:    func(d *ApplicationDraft) *string { return &d.HardSkills },
	FieldStrengths:     func(d *ApplicationDraft) *string { return &d.Strengths },
	FieldWeaknesses:    func(d *ApplicationDraft) *string { return &d.Weaknesses },
	FieldGithubProfile: func(d *ApplicationDraft) *string { return &d.GithubProfile },
	FieldResidence:     func(d *ApplicationDraft) *string { return &d.Residence },
}

// Text returns the value of a text field; unknown fields read as empty
func (d *ApplicationDraft) Text(f Field) string {
	ref, ok := textFieldRefs[f]
	if !ok {
		return ""
	}
	return *ref(d)
}

// SetText updates a text field and reports whether the field exists
func (d *ApplicationDraft) SetText(f Field, value string) bool {
	ref, ok := textFieldRefs[f]
	if !ok {
		return false
	}
	*ref(d) = value
	return true
}

// FieldErrorMap holds the current validation failures keyed by field
type FieldErrorMap map[Field]string

// ApplicationPayload is the body sent to the record backend
type ApplicationPayload struct {
	Name          string `json:"name"`
	RollNo        string `json:"rollNo"`
	Branch        string `json:"branch"`
	Year          string `json:"year"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Society       string `json:"society"`
	WhyJoin       string `json:"whyJoin"`
	SoftSkills    string `json:"softSkills"`
	HardSkills    string `json:"hardSkills"`
	Strengths     string `json:"strengths"`
	Weaknesses    string `json:"weaknesses"`
	GithubProfile string `json:"githubProfile"`
	Residence     string `json:"residence"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// NewApplicationPayload copies the draft's text fields; imageURL is empty when nothing was uploaded
func NewApplicationPayload(d ApplicationDraft, imageURL string) ApplicationPayload {
	return ApplicationPayload{
		Name:          d.Name,
		RollNo:        d.RollNo,
		Branch:        d.Branch,
		Year:          d.Year,
		Phone:         d.Phone,
		Email:         d.Email,
		Society:       d.Society,
		WhyJoin:       d.WhyJoin,
		SoftSkills:    d.SoftSkills,
		HardSkills:    d.HardSkills,
		Strengths:     d.Strengths,
		Weaknesses:    d.Weaknesses,
		GithubProfile: d.GithubProfile,
		Residence:     d.Residence,
		ImageURL:      imageURL,
	}
}

// AuthSession is the identity confirmed by the identity provider
type AuthSession struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}
