package domain

import "fmt"

// Attributes is the open key-value context carried on snapshots and contract
// terms. Values are restricted to a small closed set of scalar and array types
// so the boundary stays validatable instead of an untyped blob.
type Attributes map[string]any

// ValidateAttributes rejects any value outside the allowed scalar/array set.
// JSON decoding produces float64/bool/string/nil and []any, which covers every
// shape the upstream systems send.
func ValidateAttributes(attrs Attributes) error {
	for key, value := range attrs {
		if key == "" {
			return fmt.Errorf("%w: empty attribute key", ErrInvalidInput)
		}
		if err := validateAttributeValue(key, value); err != nil {
			return err
		}
	}
	return nil
}

func validateAttributeValue(key string, value any) error {
	switch v := value.(type) {
	case nil, string, bool, float64, int, int64:
		return nil
	case []any:
		for _, item := range v {
			switch item.(type) {
			case string, bool, float64, int, int64:
			default:
				return fmt.Errorf("%w: attribute %q has non-scalar array element %T", ErrInvalidInput, key, item)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: attribute %q has unsupported type %T", ErrInvalidInput, key, value)
	}
}
