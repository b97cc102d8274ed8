package team

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var canonical = []Member{
	{Name: "Ayesha Khan", Email: "ayesha@uni.edu", University: "UMT", RollNumber: "F21-001", CNIC: "3520212345671"},
	{Name: "Bilal Ahmed", Email: "bilal@uni.edu", RollNumber: "F21-002"},
}

func TestNormalizeShapesAgree(t *testing.T) {
	arrayJSON := `[
		{"fullName": " Ayesha Khan ", "email_address": "ayesha@uni.edu", "uni": "UMT", "rollNo": "F21-001", "cnic": "35202-1234567-1"},
		{"full_name": "Bilal Ahmed", "email": "bilal@uni.edu", "roll_number": "F21-002"}
	]`

	var native []any
	require.NoError(t, json.Unmarshal([]byte(arrayJSON), &native))

	serialized, err := json.Marshal(arrayJSON)
	require.NoError(t, err)

	indexed := map[string]any{
		"1": map[string]any{"name": "Bilal Ahmed", "mail": "bilal@uni.edu", "roll": "F21-002"},
		"0": map[string]any{"name": "Ayesha Khan", "email": "ayesha@uni.edu", "institute": "UMT", "roll_number": "F21-001", "national_id": "35202 1234567 1"},
	}

	tests := []struct {
		name string
		raw  any
	}{
		{"native slice", native},
		{"json text", arrayJSON},
		{"raw message", json.RawMessage(arrayJSON)},
		{"string holding json string", string(serialized)},
		{"indexed object", indexed},
		{"canonical slice", canonical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, canonical, Normalize(tt.raw))
		})
	}
}

func TestNormalizeSparseIndexOrder(t *testing.T) {
	raw := `{"10": {"name": "C"}, "2": {"name": "B"}, "0": {"name": "A"}}`

	got := Normalize(raw)

	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
	assert.Equal(t, "C", got[2].Name)
}

func TestNormalizeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"empty string", ""},
		{"broken json", `[{"name": "x"`},
		{"null", "null"},
		{"number", 42},
		{"object with non numeric keys", map[string]any{"name": "x", "email": "y"}},
		{"json scalar", `"just text"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestNormalizeNumericFields(t *testing.T) {
	got := Normalize(`[{"name": "Z", "roll_number": 1234, "cnic": 3520212345671}]`)

	require.Len(t, got, 1)
	assert.Equal(t, "1234", got[0].RollNumber)
	assert.Equal(t, "3520212345671", got[0].CNIC)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []any{
		`[{"fullName": " A ", "email": " A@X.COM ", "cnic": "12345-1234567-1"}]`,
		map[string]any{"0": map[string]any{"name": "B", "rollNo": " 7 "}},
		canonical,
	}

	for _, raw := range inputs {
		once := Normalize(raw)
		twice := Normalize(once)
		assert.Equal(t, once, twice)

		encoded, err := json.Marshal(once)
		require.NoError(t, err)
		assert.Equal(t, once, Normalize(json.RawMessage(encoded)))
	}
}

func TestFormatCNIC(t *testing.T) {
	assert.Equal(t, "35202-1234567-1", FormatCNIC("3520212345671"))
	assert.Equal(t, "35202-1234567-1", FormatCNIC("35202-1234567-1"))
	assert.Equal(t, "12345", FormatCNIC("12-345"))
	assert.Equal(t, "", FormatCNIC(""))
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "3520212345671", DigitsOnly(" 35202-1234567-1 "))
	assert.Equal(t, "", DigitsOnly("abc"))
}

func TestDecodeKeepsCNICAsStored(t *testing.T) {
	raw := `[{"fullName":" Sara ","email_address":"sara@example.com","cnic_number":" vault:v1:abc123 "}]`

	decoded := Decode(raw)
	require.Len(t, decoded, 1)
	assert.Equal(t, Member{Name: "Sara", Email: "sara@example.com", CNIC: "vault:v1:abc123"}, decoded[0])

	normalized := Normalize(raw)
	require.Len(t, normalized, 1)
	assert.Equal(t, "1123", normalized[0].CNIC)

	assert.Equal(t, []Member{}, Decode("not json"))
}
