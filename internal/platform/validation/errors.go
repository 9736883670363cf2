package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrorBody is the 400 payload for rejected input. Fields maps each field
// name to its failed rules, e.g. {"format": ["oneof=json html text"]}.
type ErrorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

// ErrorResponse converts a validator error into an ErrorBody. Errors that are
// not validation failures keep their own message.
func ErrorResponse(err error) ErrorBody {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrorBody{Error: err.Error(), Fields: map[string][]string{}}
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if p := fe.Param(); p != "" {
			rule += "=" + p
		}
		fields[fe.Field()] = append(fields[fe.Field()], rule)
	}
	return ErrorBody{Error: "validation_failed", Fields: fields}
}
