package object

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Validator: validation and sanitization of model-produced shapes.
// Safe for concurrent use.
type Validator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

func NewValidator() *Validator {
	// removes all HTML/scripts
	policy := bluemonday.StrictPolicy()

	return &Validator{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sanitizer: policy,
	}
}

// Struct: validates any struct carrying `validate` tags, with readable errors
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// BuildScene: validates every shape, keeping the order of the ones that survive.
// Shapes that cannot be repaired are reported in dropped.
func (v *Validator) BuildScene(raws []RawShape) (scene Scene, dropped []error) {
	colors := NewColorGenerator()
	scene = make(Scene, 0, len(raws))

	for i, raw := range raws {
		shape, err := v.ValidateAndSanitize(raw, colors)
		if err != nil {
			dropped = append(dropped, fmt.Errorf("shape %d: %w", i, err))
			continue
		}
		scene = append(scene, shape)
	}

	return scene, dropped
}

// ValidateAndSanitize: checks a shape against its schema, clamps its geometry onto the
// canvas, repairs its color from colors and strips markup from its text
func (v *Validator) ValidateAndSanitize(raw RawShape, colors *ColorGenerator) (Shape, error) {
	shapeType := NormalizeType(raw.Type)
	if !AllowedShapeTypes[shapeType] {
		return Shape{}, fmt.Errorf("invalid shape type: %q (allowed types: rectangle, circle, line, text)", raw.Type)
	}

	details := GetSchemaForType(shapeType)
	if len(raw.Details) == 0 || string(raw.Details) == "null" {
		return Shape{}, fmt.Errorf("missing details for %s", shapeType)
	}
	if err := json.Unmarshal(raw.Details, details); err != nil {
		return Shape{}, fmt.Errorf("failed to parse %s details: %w", shapeType, err)
	}

	details.clamp()
	if text, ok := details.(*TextDetails); ok {
		text.Text = v.sanitizeText(text.Text)
	}

	if err := v.Struct(details); err != nil {
		return Shape{}, err
	}

	color, ok := NormalizeColor(raw.Color)
	if !ok {
		color = colors.NextColor()
	}

	return Shape{Type: shapeType, Color: color, Details: details}, nil
}

// sanitizeText strips HTML and bounds the label length
func (v *Validator) sanitizeText(s string) string {
	s = strings.TrimSpace(v.sanitizer.Sanitize(s))
	if r := []rune(s); len(r) > MaxTextLength {
		s = string(r[:MaxTextLength])
	}
	return s
}

// formatValidationErrors converts validator errors to a user-friendly error message
func formatValidationErrors(errors validator.ValidationErrors) error {
	var messages []string
	for _, err := range errors {
		messages = append(messages, formatSingleError(err))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// formatSingleError formats a single validation error with common cases
func formatSingleError(err validator.FieldError) string {
	field := err.Field()
	tag := err.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "min", "max":
		return fmt.Sprintf("'%s' value out of allowed range", field)
	default:
		return fmt.Sprintf("'%s' is invalid", field)
	}
}
