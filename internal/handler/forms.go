package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/pavelanni/exambank/internal/catalog"
	"github.com/pavelanni/exambank/internal/model"
)

var (
	formDecoder = newFormDecoder()
	validate    = validator.New()
)

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeForm fills dst from the request's form values and validates it.
func decodeForm(r *http.Request, dst any) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return validate.Struct(dst)
}

// fieldErrors renders validation failures as "field: rule" pairs.
func fieldErrors(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

type loginForm struct {
	Username string `schema:"username" validate:"required"`
	Password string `schema:"password" validate:"required"`
}

type answerForm struct {
	QuestionID string `schema:"question_id" validate:"required"`
	Option     *int   `schema:"option" validate:"required,gte=0"`
}

type questionForm struct {
	Stem               string `schema:"stem" validate:"required"`
	Option0            string `schema:"option_0"`
	Option1            string `schema:"option_1"`
	Option2            string `schema:"option_2"`
	Option3            string `schema:"option_3"`
	CorrectAnswerIndex int    `schema:"correct_answer_index" validate:"gte=0,lte=3"`
	Explanation        string `schema:"explanation"`
	Type               string `schema:"type" validate:"required"`
	Difficulty         string `schema:"difficulty" validate:"required"`
	Marks              int    `schema:"marks" validate:"gt=0"`
	Topic              string `schema:"topic" validate:"required"`
	Approved           bool   `schema:"approved"`
}

// apply copies the form onto q. Options must fill the slots from the first
// one without gaps, and the correct index must name a filled slot, so the
// answer key always refers to the options as typed.
func (f questionForm) apply(q model.Question) (model.Question, error) {
	slots := []string{f.Option0, f.Option1, f.Option2, f.Option3}
	options := make([]string, 0, len(slots))
	for i, o := range slots {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if len(options) != i {
			return q, fmt.Errorf("%w: option %d is filled but option %d is blank",
				catalog.ErrInvalidQuestion, i+1, len(options)+1)
		}
		options = append(options, o)
	}
	if f.CorrectAnswerIndex >= len(options) {
		return q, fmt.Errorf("%w: correct answer %d refers to a blank option",
			catalog.ErrInvalidQuestion, f.CorrectAnswerIndex+1)
	}

	q.Stem = strings.TrimSpace(f.Stem)
	q.Options = options
	q.CorrectAnswerIndex = f.CorrectAnswerIndex
	q.Explanation = strings.TrimSpace(f.Explanation)
	q.Type = model.QuestionType(f.Type)
	q.Difficulty = model.Difficulty(f.Difficulty)
	q.Marks = f.Marks
	q.Topic = strings.TrimSpace(f.Topic)
	q.Approved = f.Approved
	return q, nil
}

type generateForm struct {
	Topic string `schema:"topic" validate:"required"`
}

type paperForm struct {
	Subject    string `schema:"subject" validate:"required"`
	Count      int    `schema:"count" validate:"gt=0,lte=50"`
	MCQCount   int    `schema:"mcq_count" validate:"gte=0,ltefield=Count"`
	Difficulty string `schema:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type worksheetForm struct {
	Count  int    `schema:"count" validate:"gt=0,lte=50"`
	Format string `schema:"format" validate:"omitempty,oneof=pdf"`
}

type studentForm struct {
	DisplayName string `schema:"display_name" validate:"required"`
	Class       string `schema:"class"`
}

type teacherForm struct {
	Username    string `schema:"username" validate:"required,alphanum"`
	DisplayName string `schema:"display_name" validate:"required"`
	Subject     string `schema:"subject"`
	Password    string `schema:"password" validate:"required,min=4"`
}

type userForm struct {
	DisplayName string `schema:"display_name" validate:"required"`
	Class       string `schema:"class"`
	Subject     string `schema:"subject"`
	Password    string `schema:"password" validate:"omitempty,min=4"`
}
