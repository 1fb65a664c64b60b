package json

import (
	"bytes"
	stdjson "encoding/json"
	"strings"
	"testing"
)

type testUser struct {
	ID      int    `json:"id,omitempty" default:"1"`
	Name    string `json:"name" default:"Anonymous"`
	Age     int    `json:"age" default:"18"`
	Enabled bool   `json:"enabled" default:"true"`
}

func TestMarshalAppliesDefaults(t *testing.T) {
	user := &testUser{
		Name: "Alice",
	}

	data, err := Marshal(user)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	// Marshal should populate defaults on the original struct too
	if user.ID != 1 {
		t.Fatalf("expected default ID=1, got %d", user.ID)
	}
	if user.Age != 18 {
		t.Fatalf("expected default Age=18, got %d", user.Age)
	}
	if !user.Enabled {
		t.Fatalf("expected default Enabled=true, got false")
	}

	// Verify encoded JSON contains populated defaults
	var decoded testUser
	if err := stdjson.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("encoded JSON should be valid, got error: %v", err)
	}
	if decoded != *user {
		t.Fatalf("expected marshaled JSON to match struct with defaults applied, got %+v", decoded)
	}
}

func TestUnmarshalAppliesDefaultsForMissingFields(t *testing.T) {
	input := []byte(`{"name":"Bob"}`)

	var user testUser
	if err := Unmarshal(input, &user); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if user.ID != 1 {
		t.Fatalf("expected default ID=1, got %d", user.ID)
	}
	if user.Age != 18 {
		t.Fatalf("expected default Age=18, got %d", user.Age)
	}
	if !user.Enabled {
		t.Fatalf("expected default Enabled=true, got false")
	}
	if user.Name != "Bob" {
		t.Fatalf("expected Name from JSON to be Bob, got %s", user.Name)
	}
}

func TestUnmarshalPreservesExplicitZeroValues(t *testing.T) {
	input := []byte(`{"age":0,"enabled":false,"id":0,"name":"Charlie"}`)

	var user testUser
	if err := Unmarshal(input, &user); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if user.ID != 0 {
		t.Fatalf("expected explicit ID=0 to be preserved, got %d", user.ID)
	}
	if user.Age != 0 {
		t.Fatalf("expected explicit Age=0 to be preserved, got %d", user.Age)
	}
	if user.Enabled {
		t.Fatalf("expected explicit Enabled=false to be preserved")
	}
}

func TestDecoderDisallowUnknownFields(t *testing.T) {
	input := `{"name":"Alice","age":25,"unknown_field":"should_fail"}`
	decoder := NewDecoder(bytes.NewReader([]byte(input)))

	decoder.DisallowUnknownFields()

	var user testUser
	err := decoder.Decode(&user)

	if err == nil {
		t.Fatal("expected error for unknown field, but got none")
	}

	t.Logf("correctly rejected unknown field: %v", err)
}

func TestDecoderUseNumber(t *testing.T) {
	type NumberTest struct {
		ID stdjson.Number `json:"id"`
	}

	input := `{"id":999999999999999999}`
	decoder := NewDecoder(bytes.NewReader([]byte(input)))

	decoder.UseNumber()

	var result NumberTest
	err := decoder.Decode(&result)
	if err != nil {
		t.Fatalf("Decode with UseNumber failed: %v", err)
	}

	if result.ID == "" {
		t.Fatal("expected ID to be populated")
	}

	_, err = result.ID.Int64()
	if err != nil {
		t.Fatalf("expected ID to be convertible to int64, got error: %v", err)
	}

	t.Logf("correctly preserved number as json.Number: %v", result.ID)
}

func TestEncoderSetIndent(t *testing.T) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)

	encoder.SetIndent("", "  ")

	user := testUser{
		ID:      1,
		Name:    "Alice",
		Age:     25,
		Enabled: true,
	}

	err := encoder.Encode(&user)
	if err != nil {
		t.Fatalf("Encode with SetIndent failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "  ") {
		t.Fatalf("expected indented output, got: %s", output)
	}

	t.Logf("correctly formatted with indent:\n%s", output)
}

func TestEncoderSetEscapeHTML(t *testing.T) {
	type testHTML struct {
		Content string `json:"content"`
	}

	var buf bytes.Buffer
	encoder := NewEncoder(&buf)

	encoder.SetEscapeHTML(false)

	data := testHTML{
		Content: "<html>&test</html>",
	}

	err := encoder.Encode(&data)
	if err != nil {
		t.Fatalf("Encode with SetEscapeHTML failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "<html>") {
		t.Fatalf("expected unescaped HTML, got: %s", output)
	}

	t.Logf("correctly preserved HTML without escaping: %s", output)
}

func TestMarshalMapSkipsDefaults(t *testing.T) {
	data, err := Marshal(map[string]any{"logRules": "*=false", "jsonFormat": true})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"jsonFormat":true,"logRules":"*=false"}` {
		t.Fatalf("expected sorted map keys, got %s", data)
	}
}

func TestUnmarshalIntoMap(t *testing.T) {
	var settings map[string]any
	if err := Unmarshal([]byte(`{"consoleLogging":false}`), &settings); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if settings["consoleLogging"] != false {
		t.Fatalf("expected consoleLogging=false, got %v", settings["consoleLogging"])
	}
}
