package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "string_id", raw: `{"id":"abc","name":"x"}`, want: "abc"},
		{name: "numeric_id", raw: `{"id": 1712345678901}`, want: "1712345678901"},
		{name: "missing_id", raw: `{"name":"x"}`, want: ""},
		{name: "null_id", raw: `{"id":null}`, want: ""},
		{name: "not_an_object", raw: `[1,2]`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recordID(json.RawMessage(tt.raw)))
		})
	}
}

func TestJoinArray(t *testing.T) {
	assert.Equal(t, `[]`, string(joinArray(nil)))
	assert.Equal(t, `[{"id":"1"},{"id":"2"}]`, string(joinArray([][]byte{
		[]byte(`{"id":"1"}`), []byte(`{"id":"2"}`),
	})))
}

func TestConfigURLAndExecMode(t *testing.T) {
	assert.Equal(t, "postgresql://u:p@db:5432/stock?sslmode=disable",
		(&Config{User: "u", Password: "p", Host: "db", Port: "5432", Database: "stock", SSLMode: "disable"}).URL())
	assert.NotEqual(t, execMode("simple"), execMode(""))
}
