package task

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

// taskValidate checks instruction arguments.
var taskValidate *validator.Validate

func init() {
	taskValidate = validator.New()
	_ = taskValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) against the tag
// parameter, e.g. `validate:"maxbytes=200"`.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// contentRule bounds add_task content in bytes.
var contentRule = "maxbytes=" + strconv.Itoa(MaxContentBytes)

// validateContent checks add_task content against contentRule.
func validateContent(content string) error {
	return taskValidate.Var(content, contentRule)
}
