package services_test

import (
	"strings"
	"sync"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/gametriol/InductionMainPage2k25/internal/validation"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

var testValidator = validation.MustNew()

// transitionLog records state changes reported by the orchestrator hook
type transitionLog struct {
	mu     sync.Mutex
	states []models.SubmissionState
}

func (l *transitionLog) hook(_ string, from, to models.SubmissionState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.states) == 0 {
		l.states = append(l.states, from)
	}
	l.states = append(l.states, to)
}

func (l *transitionLog) sequence() []models.SubmissionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.SubmissionState(nil), l.states...)
}

var validFields = map[models.Field]string{
	models.FieldName:       "Asha Verma",
	models.FieldRollNo:     "2300123456",
	models.FieldBranch:     "CSE",
	models.FieldYear:       "2nd Year",
	models.FieldPhone:      "+91 9876543210",
	models.FieldEmail:      "asha@example.com",
	models.FieldWhyJoin:    "I want to build things with people who care about craft.",
	models.FieldSoftSkills: "communication, patience",
	models.FieldHardSkills: "go, sql",
	models.FieldStrengths:  "persistence",
	models.FieldWeaknesses: "overplanning",
	models.FieldResidence:  "Delhi",
}

type fieldSetter interface {
	SetField(field models.Field, value string) (models.Snapshot, error)
}

func fillValid(s fieldSetter, skip ...models.Field) {
	for f, v := range validFields {
		skipped := false
		for _, k := range skip {
			if k == f {
				skipped = true
			}
		}
		if skipped {
			continue
		}
		if _, err := s.SetField(f, v); err != nil {
			panic(err)
		}
	}
}

func pngImage(name string, size int) *models.ImageFile {
	data := []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("a", size))
	return models.NewImageFile(name, "image/png", data)
}
