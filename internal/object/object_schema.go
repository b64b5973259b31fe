package object

import "strings"

// Canvas bounds of the normalized coordinate space
const (
	MinCoordinate = 0
	MaxCoordinate = 1000
	MaxTextLength = 200
)

const (
	TypeRectangle = "rectangle"
	TypeCircle    = "circle"
	TypeLine      = "line"
	TypeText      = "text"
)

var AllowedShapeTypes = map[string]bool{
	TypeRectangle: true,
	TypeCircle:    true,
	TypeLine:      true,
	TypeText:      true,
}

var typeAliases = map[string]string{
	"rect":    TypeRectangle,
	"square":  TypeRectangle,
	"box":     TypeRectangle,
	"ellipse": TypeCircle,
	"arrow":   TypeLine,
	"label":   TypeText,
}

// NormalizeType: lowercases a model-provided type and resolves common synonyms
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

// Details is the geometry of one shape type
type Details interface {
	clamp()
}

func GetSchemaForType(shapeType string) Details {
	switch shapeType {
	case TypeRectangle:
		return &RectangleDetails{}
	case TypeCircle:
		return &CircleDetails{}
	case TypeLine:
		return &LineDetails{}
	case TypeText:
		return &TextDetails{}
	default:
		return nil
	}
}

// =============================================================================
// Shape geometry. Pointers distinguish a missing field from a zero coordinate.
// =============================================================================

// top-left corner
type RectangleDetails struct {
	X      *float64 `json:"x" validate:"required,min=0,max=1000"`
	Y      *float64 `json:"y" validate:"required,min=0,max=1000"`
	Width  *float64 `json:"width" validate:"required,min=0,max=1000"`
	Height *float64 `json:"height" validate:"required,min=0,max=1000"`
}

// center and radius
type CircleDetails struct {
	X      *float64 `json:"x" validate:"required,min=0,max=1000"`
	Y      *float64 `json:"y" validate:"required,min=0,max=1000"`
	Radius *float64 `json:"radius" validate:"required,min=0,max=1000"`
}

type LineDetails struct {
	X1 *float64 `json:"x1" validate:"required,min=0,max=1000"`
	Y1 *float64 `json:"y1" validate:"required,min=0,max=1000"`
	X2 *float64 `json:"x2" validate:"required,min=0,max=1000"`
	Y2 *float64 `json:"y2" validate:"required,min=0,max=1000"`
}

// center of the label
type TextDetails struct {
	X    *float64 `json:"x" validate:"required,min=0,max=1000"`
	Y    *float64 `json:"y" validate:"required,min=0,max=1000"`
	Text string   `json:"text" validate:"required,max=200"`
}

func (d *RectangleDetails) clamp() { clampAll(d.X, d.Y, d.Width, d.Height) }
func (d *CircleDetails) clamp()    { clampAll(d.X, d.Y, d.Radius) }
func (d *LineDetails) clamp()      { clampAll(d.X1, d.Y1, d.X2, d.Y2) }
func (d *TextDetails) clamp()      { clampAll(d.X, d.Y) }

func clampAll(values ...*float64) {
	for _, v := range values {
		if v == nil {
			continue
		}
		if *v < MinCoordinate {
			*v = MinCoordinate
		}
		if *v > MaxCoordinate {
			*v = MaxCoordinate
		}
	}
}
