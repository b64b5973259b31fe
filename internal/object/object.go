package object

import "encoding/json"

// RawShape is a shape as the vision model produced it, before validation
type RawShape struct {
	Type    string          `json:"type"`
	Color   string          `json:"color"`
	Details json.RawMessage `json:"details"`
}

// Shape is a validated scene element. Details is one of the *Details schema types.
type Shape struct {
	Type    string  `json:"type"`
	Color   string  `json:"color"`
	Details Details `json:"details"`
}

// Scene is the ordered list of shapes returned by an AI cleanup
type Scene []Shape
