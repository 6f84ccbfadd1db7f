package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mkrupp/postboard/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue  string `env:"STRING_VALUE" default:"default"`
	IntValue     int    `env:"INT_VALUE" default:"42"`
	BoolValue    bool   `env:"BOOL_VALUE" default:"true"`
	LenientValue int64  `env:"LENIENT_VALUE" default:"30" fallback:"true"`
	NoEnvTag     string
	Nested       testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

func defaults() testConfig {
	return testConfig{
		StringValue:  "default",
		IntValue:     42,
		BoolValue:    true,
		LenientValue: 30,
		Nested:       testNestedConfig{NestedString: "nested-default"},
	}
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    func(*testConfig)
		wantErr bool
	}{
		{
			name: "uses default values when env vars not set",
		},
		{
			name: "reads environment variables",
			envVars: map[string]string{
				"STRING_VALUE":  "env-value",
				"INT_VALUE":     "123",
				"BOOL_VALUE":    "false",
				"NESTED_STRING": "env-nested",
			},
			want: func(c *testConfig) {
				c.StringValue = "env-value"
				c.IntValue = 123
				c.BoolValue = false
				c.Nested.NestedString = "env-nested"
			},
		},
		{
			name:    "handles prefix correctly",
			prefix:  "APP",
			envVars: map[string]string{"APP_STRING_VALUE": "prefixed-value"},
			want:    func(c *testConfig) { c.StringValue = "prefixed-value" },
		},
		{
			name:    "falls back to unprefixed name",
			prefix:  "APP_SERVICE",
			envVars: map[string]string{"STRING_VALUE": "bare-value"},
			want:    func(c *testConfig) { c.StringValue = "bare-value" },
		},
		{
			name:   "prefers more specific prefix",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"STRING_VALUE":             "bare",
				"APP_STRING_VALUE":         "less-specific",
				"APP_SERVICE_STRING_VALUE": "more-specific",
			},
			want: func(c *testConfig) { c.StringValue = "more-specific" },
		},
		{
			name:    "fails on invalid int value",
			envVars: map[string]string{"INT_VALUE": "not-a-number"},
			wantErr: true,
		},
		{
			name:    "fails on invalid bool value",
			envVars: map[string]string{"BOOL_VALUE": "not-a-bool"},
			wantErr: true,
		},
		{
			name:    "lenient field falls back to default on invalid value",
			envVars: map[string]string{"LENIENT_VALUE": "thirty"},
		},
		{
			name:    "lenient field reads valid value",
			envVars: map[string]string{"LENIENT_VALUE": " 5 "},
			want:    func(c *testConfig) { c.LenientValue = 5 },
		},
		{
			name:    "handles empty string values",
			envVars: map[string]string{"STRING_VALUE": ""},
			want:    func(c *testConfig) { c.StringValue = "" },
		},
		{
			name:    "handles zero int values",
			envVars: map[string]string{"INT_VALUE": "0"},
			want:    func(c *testConfig) { c.IntValue = 0 },
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := &testConfig{}
			err := Parse(ctx, cfg, tt.prefix)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			want := defaults()
			if tt.want != nil {
				tt.want(&want)
			}

			assert.Equal(t, want.StringValue, cfg.StringValue)
			assert.Equal(t, want.IntValue, cfg.IntValue)
			assert.Equal(t, want.BoolValue, cfg.BoolValue)
			assert.Equal(t, want.LenientValue, cfg.LenientValue)
			assert.Equal(t, want.NoEnvTag, cfg.NoEnvTag)
			assert.Equal(t, want.Nested.NestedString, cfg.Nested.NestedString)
			assert.Equal(t, tt.prefix, cfg.Namespace())
		})
	}
}

//nolint:paralleltest
func TestParseReportsFallbacks(t *testing.T) {
	t.Setenv("APP_LENIENT_VALUE", "abc")

	cfg := &testConfig{}
	require.NoError(t, Parse(context.Background(), cfg, "APP"))

	fallbacks := cfg.Fallbacks()
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "APP_LENIENT_VALUE", fallbacks[0].Name)
	assert.Equal(t, "abc", fallbacks[0].Value)
	assert.Equal(t, "30", fallbacks[0].Default)
	assert.ErrorIs(t, fallbacks[0].Err, ErrInvalidValue)
}

//nolint:paralleltest
func TestParseLoadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOTENV_STRING_VALUE=from-file\nDOTENV_INT_VALUE=7\n"), 0o600))

	t.Setenv(DotenvVar, path)
	t.Setenv("DOTENV_INT_VALUE", "8") // real environment wins over the file

	t.Cleanup(func() {
		os.Unsetenv("DOTENV_STRING_VALUE")
	})

	cfg := &testConfig{}
	require.NoError(t, Parse(context.Background(), cfg, "DOTENV"))

	assert.Equal(t, path, cfg.Dotenv())
	assert.Equal(t, "from-file", cfg.StringValue)
	assert.Equal(t, 8, cfg.IntValue)
}

//nolint:paralleltest
func TestParseFailsOnMissingExplicitDotenv(t *testing.T) {
	t.Setenv(DotenvVar, filepath.Join(t.TempDir(), "missing.env"))

	err := Parse(context.Background(), &testConfig{}, "")
	require.Error(t, err)
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  any
	}{
		{
			name: "non-pointer config",
			cfg:  testConfig{},
		},
		{
			name: "non-struct pointer",
			cfg:  new(string),
		},
		{
			name: "missing EnvConfig embedding",
			cfg: &struct {
				Value string `env:"VALUE"`
			}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Parse(context.Background(), tt.cfg, "")
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
