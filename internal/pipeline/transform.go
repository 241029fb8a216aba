package pipeline

import (
	"fmt"

	"github.com/wonny/macrofactor/internal/modelconfig"
	"github.com/wonny/macrofactor/internal/series"
)

// ApplyTransform scales s and then applies the named transform
func ApplyTransform(s *series.Series, scale float64, transform string) (*series.Series, error) {
	if scale != 1 {
		s = s.Scale(scale)
	}

	switch transform {
	case "", modelconfig.TransformNone:
		return s, nil
	case modelconfig.TransformPctChange:
		return s.PctChange(), nil
	case modelconfig.TransformDiff:
		return s.Diff(), nil
	case modelconfig.TransformLogReturn:
		return s.LogReturn(), nil
	default:
		return nil, fmt.Errorf("unknown transform %q", transform)
	}
}
