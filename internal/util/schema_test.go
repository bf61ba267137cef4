package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema(t *testing.T) {
	type args struct {
		Name     string   `json:"name" description:"the name"`
		Limit    int      `json:"limit,omitempty"`
		Tags     []string `json:"tags"`
		Silent   *bool    `json:"silent"`
		Ignored  string   `json:"-"`
		internal string
	}

	schema := CreateSchema(args{})

	assert.Equal(t, "object", schema["type"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	name := properties["name"].(map[string]any)
	assert.Equal(t, "string", name["type"])
	assert.Equal(t, "the name", name["description"])

	assert.Equal(t, "integer", properties["limit"].(map[string]any)["type"])
	assert.Equal(t, "array", properties["tags"].(map[string]any)["type"])
	assert.Equal(t, "boolean", properties["silent"].(map[string]any)["type"])

	_, hasIgnored := properties["Ignored"]
	assert.False(t, hasIgnored)
	_, hasInternal := properties["internal"]
	assert.False(t, hasInternal)

	// omitempty and pointer fields are optional.
	assert.ElementsMatch(t, []string{"name", "tags"}, schema["required"])
}

func TestValidateParametersRequired(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}

	err := ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "name", valErr.Field)

	assert.NoError(t, ValidateParameters(map[string]any{"name": "x"}, schema))

	// "required" decoded from JSON arrives as []any.
	schema["required"] = []any{"name"}
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
}

func TestValidateParametersTypes(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count":  map[string]any{"type": "integer"},
			"ratio":  map[string]any{"type": "number"},
			"active": map[string]any{"type": "boolean"},
			"items":  map[string]any{"type": "array"},
		},
	}

	assert.NoError(t, ValidateParameters(map[string]any{
		"count":  3,
		"ratio":  0.5,
		"active": true,
		"items":  []any{"a"},
	}, schema))

	// JSON numbers arrive as float64; whole values pass as integers.
	assert.NoError(t, ValidateParameters(map[string]any{"count": float64(3)}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"count": 3.5}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"active": "yes"}, schema))

	// Fields outside the schema pass through untouched.
	assert.NoError(t, ValidateParameters(map[string]any{"extra": "anything"}, schema))
}

func TestValidateParametersEnum(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tone": map[string]any{
				"type": "string",
				"enum": []string{"formal", "casual"},
			},
		},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"tone": "formal"}, schema))

	err := ValidateParameters(map[string]any{"tone": "sarcastic"}, schema)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Message, "not in enum")
}
