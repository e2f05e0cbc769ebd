package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigFormat(t *testing.T) {
	tests := []struct {
		file    string
		want    string
		wantErr bool
	}{
		{file: "ey.yml", want: "yaml"},
		{file: "config/ey.yaml", want: "yaml"},
		{file: "ey.json", want: "json"},
		{file: "ey.toml", want: "toml"},
		{file: "ey.ini", wantErr: true},
		{file: "ey", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := getConfigFormat(tt.file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			parser, err := getConfigParser(got)
			require.NoError(t, err)
			assert.NotNil(t, parser)
		})
	}
}
