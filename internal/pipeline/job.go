package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/wofost-input-etl/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decodeJob unmarshals and validates a job message. Malformed JSON and
// constraint violations both fail with domain.ErrValidation.
func decodeJob(payload []byte) (domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.Job{}, fmt.Errorf("%w: decode job: %v", domain.ErrValidation, err)
	}
	if err := validate.Struct(job); err != nil {
		return domain.Job{}, fmt.Errorf("%w: %s", domain.ErrValidation, describeValidation(err))
	}
	return job, nil
}

// describeValidation flattens validator errors into "field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Namespace()+": "+rule)
	}
	return "invalid job: " + strings.Join(parts, ", ")
}
