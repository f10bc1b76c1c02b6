package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formctx/pkg/model"
)

const (
	CodeRequired  = "required"
	CodeMalformed = "malformed"
	CodeMin       = model.ValidationRuleMin
	CodeMax       = model.ValidationRuleMax
	CodeMinLength = model.ValidationRuleMinLength
	CodeMaxLength = model.ValidationRuleMaxLength
	CodePattern   = model.ValidationRulePattern
	CodeOption    = "option"
	CodeRule      = "rule"
)

type failure struct {
	code    string
	message string
}

// checkIntrinsic evaluates the constraints declared on the field itself, in
// fixed order: required, type coercion, bounds, length, pattern, options.
func (e *Engine) checkIntrinsic(field model.Field, value any) *failure {
	if IsEmpty(value) {
		if field.Required {
			return &failure{code: CodeRequired, message: "field is required"}
		}
		return nil
	}

	var number *float64
	switch field.Type {
	case model.FieldTypeNumber:
		n, err := CoerceNumber(value)
		if err != nil {
			return &failure{code: CodeMalformed, message: "must be a number"}
		}
		number = &n
	case model.FieldTypeCheckbox:
		checked, err := CoerceBool(value)
		if err != nil {
			return &failure{code: CodeMalformed, message: "must be true or false"}
		}
		if field.Required && !checked {
			return &failure{code: CodeRequired, message: "field is required"}
		}
	}

	for _, rule := range field.Validations {
		if f := e.checkRule(rule, value, number); f != nil {
			return f
		}
	}

	if field.Type.HasOptions() && len(field.Options) > 0 && !hasOption(field.Options, value) {
		return &failure{code: CodeOption, message: "must be one of the available options"}
	}
	return nil
}

func (e *Engine) checkRule(rule model.ValidationRule, value any, number *float64) *failure {
	custom := strings.TrimSpace(rule.Params["message"])
	withMessage := func(code, fallback string) *failure {
		if custom != "" {
			return &failure{code: code, message: custom}
		}
		return &failure{code: code, message: fallback}
	}

	switch rule.Kind {
	case model.ValidationRuleMin, model.ValidationRuleMax:
		limit, err := strconv.ParseFloat(strings.TrimSpace(rule.Params["value"]), 64)
		if err != nil {
			return nil
		}
		n := number
		if n == nil {
			parsed, err := CoerceNumber(value)
			if err != nil {
				return &failure{code: CodeMalformed, message: "must be a number"}
			}
			n = &parsed
		}
		exclusive := rule.Params["exclusive"] == "true"
		bound := formatFloat(limit)
		if rule.Kind == model.ValidationRuleMin {
			if exclusive && *n <= limit {
				return withMessage(CodeMin, "must be greater than "+bound)
			}
			if !exclusive && *n < limit {
				return withMessage(CodeMin, "must be at least "+bound)
			}
			return nil
		}
		if exclusive && *n >= limit {
			return withMessage(CodeMax, "must be less than "+bound)
		}
		if !exclusive && *n > limit {
			return withMessage(CodeMax, "must be at most "+bound)
		}
		return nil

	case model.ValidationRuleMinLength, model.ValidationRuleMaxLength:
		limit, err := strconv.Atoi(strings.TrimSpace(rule.Params["value"]))
		if err != nil {
			return nil
		}
		length := utf8.RuneCountInString(ValueString(value))
		if rule.Kind == model.ValidationRuleMinLength && length < limit {
			return withMessage(CodeMinLength, fmt.Sprintf("must be at least %d characters", limit))
		}
		if rule.Kind == model.ValidationRuleMaxLength && length > limit {
			return withMessage(CodeMaxLength, fmt.Sprintf("must be at most %d characters", limit))
		}
		return nil

	case model.ValidationRulePattern:
		re, err := e.pattern(rule.Params["pattern"])
		if err != nil {
			return &failure{code: CodePattern, message: "has an unusable pattern constraint"}
		}
		if !re.MatchString(ValueString(value)) {
			return withMessage(CodePattern, "has an invalid format")
		}
		return nil
	}
	return nil
}

func (e *Engine) pattern(expr string) (*regexp.Regexp, error) {
	if re, ok := e.patterns[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.patterns[expr] = re
	return re, nil
}

func hasOption(options []model.Option, value any) bool {
	needle := ValueString(value)
	for _, opt := range options {
		if ValueString(opt.Value) == needle {
			return true
		}
		for _, alias := range opt.Aliases {
			if alias == needle {
				return true
			}
		}
	}
	return false
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
