package tt

import (
	"encoding/json"
	"testing"
)

// ToJSON marshals the input object failing the test on errors
func ToJSON(t *testing.T, obj interface{}) []byte {
	rawJSON, err := json.Marshal(obj)
	AssertNoErr(t, err)

	return rawJSON
}

// FromJSON decodes rawJSON into a new value of type T
// failing the test if the input is not valid.
func FromJSON[T any](t *testing.T, rawJSON []byte) T {
	var v T
	err := json.Unmarshal(rawJSON, &v)
	AssertNoErr(t, err)
	return v
}
