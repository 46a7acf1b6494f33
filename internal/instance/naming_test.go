package instance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	testCases := []struct {
		name      string
		inputName string
		wantErr   bool
		errMsg    string
	}{
		{name: "valid simple name", inputName: "default"},
		{name: "valid name with hyphens", inputName: "mud-1"},
		{name: "valid name with underscore", inputName: "test_instance"},
		{name: "single character", inputName: "a"},
		{name: "empty name", inputName: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "uppercase", inputName: "Prod", wantErr: true, errMsg: "invalid instance name"},
		{name: "colon", inputName: "a:b", wantErr: true, errMsg: "invalid instance name"},
		{name: "leading hyphen", inputName: "-prod", wantErr: true, errMsg: "invalid instance name"},
		{name: "trailing underscore", inputName: "prod_", wantErr: true, errMsg: "invalid instance name"},
		{name: "too long", inputName: strings.Repeat("a", 64), wantErr: true, errMsg: "too long"},
		{name: "max length", inputName: strings.Repeat("a", 63)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.inputName)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}
