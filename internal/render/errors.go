package render

import "fmt"

// RenderError reports a rendering request that can never succeed.
type RenderError struct {
	Param string
	Value any
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: invalid %s: %v", e.Param, e.Value)
}

func validateRaster(width, height, fps int) error {
	if width <= 0 {
		return &RenderError{Param: "width", Value: width}
	}
	if height <= 0 {
		return &RenderError{Param: "height", Value: height}
	}
	if fps <= 0 {
		return &RenderError{Param: "fps", Value: fps}
	}
	return nil
}
