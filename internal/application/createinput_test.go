package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/keyledger/internal/application"
)

func TestCreateInput_Validate(t *testing.T) {
	tests := []struct {
		name       string
		input      application.CreateInput
		wantFields []string
	}{
		{
			name:  "valid",
			input: application.CreateInput{Username: "alice", Key: "secretkey123", DurationDays: 7},
		},
		{
			name:  "valid with notes",
			input: application.CreateInput{Username: "bob", Key: "k", DurationDays: 1, Notes: "vip"},
		},
		{
			name:       "empty username",
			input:      application.CreateInput{Key: "k", DurationDays: 1},
			wantFields: []string{"username"},
		},
		{
			name:       "blank key",
			input:      application.CreateInput{Username: "alice", Key: "   ", DurationDays: 1},
			wantFields: []string{"key"},
		},
		{
			name:       "zero duration",
			input:      application.CreateInput{Username: "alice", Key: "k", DurationDays: 0},
			wantFields: []string{"duration_days"},
		},
		{
			name:       "negative duration",
			input:      application.CreateInput{Username: "alice", Key: "k", DurationDays: -3},
			wantFields: []string{"duration_days"},
		},
		{
			name:       "everything missing",
			input:      application.CreateInput{},
			wantFields: []string{"duration_days", "key", "username"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.input.Validate()
			if tt.wantFields == nil {
				assert.Nil(t, errs)
				return
			}
			assert.Equal(t, tt.wantFields, errs.Fields())
		})
	}
}

func TestParseDurationDays(t *testing.T) {
	assert.Equal(t, 7, application.ParseDurationDays("7"))
	assert.Equal(t, 30, application.ParseDurationDays(" 30 "))
	assert.Equal(t, 0, application.ParseDurationDays(""))
	assert.Equal(t, 0, application.ParseDurationDays("1.5"))
	assert.Equal(t, 0, application.ParseDurationDays("seven"))
	assert.Equal(t, -1, application.ParseDurationDays("-1"))
}
