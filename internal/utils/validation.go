package utils

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/auditflow/auditflow/internal/models"
)

// RegisterAPIValidations installs the domain validations used by request
// binding tags. Safe to call more than once.
func RegisterAPIValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine")
	}

	if err := v.RegisterValidation("scantype", func(fl validator.FieldLevel) bool {
		return models.ValidScanType(models.ScanType(fl.Field().String()))
	}); err != nil {
		return err
	}

	if err := v.RegisterValidation("triagestatus", func(fl validator.FieldLevel) bool {
		return models.ValidTriageStatus(models.TriageStatus(fl.Field().String()))
	}); err != nil {
		return err
	}

	return nil
}

// ValidationMessage flattens a binding error into a short human-readable
// message for the error envelope
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "scantype":
			parts = append(parts, fmt.Sprintf("%s is not a valid scan type", fe.Field()))
		case "triagestatus":
			parts = append(parts, fmt.Sprintf("%s is not a valid triage status", fe.Field()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s is out of range", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
