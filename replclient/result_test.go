package replclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestResultKind(t *testing.T) {
	cases := []struct {
		name   string
		result Result
		kind   ResultKind
	}{
		{"Value", Result{ValueSet: true, Value: strPtr("2")}, KindValue},
		{"NoValue", Result{ValueSet: true}, KindNoValue},
		{"Error", Result{Error: "ZeroDivisionError"}, KindError},
		{"ErrorWinsOverValue", Result{ValueSet: true, Value: strPtr("2"), Error: "boom"}, KindError},
		{"Unknown", Result{}, KindUnknown},
		{"UnknownWithData", Result{Data: map[string]string{"png": "abc"}}, KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.result.Kind())
		})
	}
}

func TestResultUnmarshalJSON(t *testing.T) {
	t.Run("StringValue", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"value":"2"}`), &r))
		assert.True(t, r.ValueSet)
		require.NotNil(t, r.Value)
		assert.Equal(t, "2", *r.Value)
		assert.Equal(t, KindValue, r.Kind())
	})

	t.Run("NullValue", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"value":null}`), &r))
		assert.True(t, r.ValueSet)
		assert.Nil(t, r.Value)
		assert.Equal(t, KindNoValue, r.Kind())
	})

	t.Run("AbsentValue", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{}`), &r))
		assert.False(t, r.ValueSet)
		assert.Equal(t, KindUnknown, r.Kind())
	})

	t.Run("Error", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"error":"NameError: x"}`), &r))
		assert.Equal(t, "NameError: x", r.Error)
		assert.Equal(t, KindError, r.Kind())
	})

	t.Run("ImageArtifact", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"value":null,"data":{"png":"aW1n"}}`), &r))
		assert.Equal(t, "aW1n", r.Data["png"])
		assert.Equal(t, KindNoValue, r.Kind())
	})

	t.Run("NonStringValue", func(t *testing.T) {
		var r Result
		assert.Error(t, json.Unmarshal([]byte(`{"value":42}`), &r))
	})
}
