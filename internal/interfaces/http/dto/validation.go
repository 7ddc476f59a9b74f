package dto

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	// Module codes are namespaced, e.g. "@stock".
	moduleCodePattern = regexp.MustCompile(`^@[a-z][a-z0-9_]*$`)
	// Event types are dot-namespaced, e.g. "order.created".
	eventTypePattern = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)*$`)
)

// RegisterValidators installs the custom binding validators on gin's
// validator engine. Call once at start-up, before serving requests.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("modulecode", validModuleCode); err != nil {
		return fmt.Errorf("registering modulecode validator: %w", err)
	}
	if err := v.RegisterValidation("eventtype", validEventType); err != nil {
		return fmt.Errorf("registering eventtype validator: %w", err)
	}
	return nil
}

func validModuleCode(fl validator.FieldLevel) bool {
	return moduleCodePattern.MatchString(fl.Field().String())
}

func validEventType(fl validator.FieldLevel) bool {
	return eventTypePattern.MatchString(fl.Field().String())
}
