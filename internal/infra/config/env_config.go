package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DotenvVar names the variable that points at an alternative .env file.
const DotenvVar = "CONFIG_DOTENV"

var (
	// ErrInvalidConfig is returned when the provided config is not a pointer to a struct
	// that embeds EnvConfig.
	ErrInvalidConfig = errors.New("config must be a pointer to a struct embedding EnvConfig")

	// ErrVarNotSet is returned when a required environment variable is not set and has no default.
	ErrVarNotSet = errors.New("env var not set")

	// ErrUnsupportedVarType is returned when trying to parse an environment variable
	// into an unsupported Go type.
	ErrUnsupportedVarType = errors.New("unsupported env var type")

	// ErrInvalidValue is returned when a variable cannot be converted to its field type.
	ErrInvalidValue = errors.New("invalid env var value")
)

// Fallback records a variable whose value was rejected and replaced by its default.
type Fallback struct {
	Name    string
	Value   string
	Default string
	Err     error
}

// EnvConfig is a base type that must be embedded in configuration structs
// to enable environment variable parsing.
type EnvConfig struct {
	namespace string
	dotenv    string
	fallbacks []Fallback
}

// Namespace returns the namespace the config was parsed with.
func (c *EnvConfig) Namespace() string {
	return c.namespace
}

// Dotenv returns the path of the .env file that was loaded, if any.
func (c *EnvConfig) Dotenv() string {
	return c.dotenv
}

// Fallbacks lists the variables that were replaced by their defaults during parsing.
// Callers log these once logging is configured.
func (c *EnvConfig) Fallbacks() []Fallback {
	return c.fallbacks
}

//nolint:varnamelen
func getEnvConfig(cfg any) (*EnvConfig, error) {
	v := reflect.ValueOf(cfg)

	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidConfig
	}

	v = v.Elem()
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		//nolint:exhaustruct,forcetypeassert
		if field.Anonymous && field.Type == reflect.TypeOf(EnvConfig{}) {
			if ev := v.Field(i); ev.CanAddr() {
				return ev.Addr().Interface().(*EnvConfig), nil
			}
		}
	}

	return nil, ErrInvalidConfig
}

// Parse loads configuration values from environment variables into the provided struct.
//
// The struct must embed EnvConfig and use `env` tags to name variables, `default` tags
// for default values and `envPrefix` tags on nested structs. A field tagged
// `fallback:"true"` falls back to its default when the variable holds an invalid value
// instead of failing; such replacements are reported by EnvConfig.Fallbacks.
//
// Variables are looked up from the most specific namespace prefix down to the bare
// name, so with namespace "APP_SVC" the field `env:"PORT"` is read from APP_SVC_PORT,
// then APP_PORT, then PORT.
//
// A .env file (or the file named by CONFIG_DOTENV) is loaded first. Variables that are
// already set in the process environment win over the file.
func Parse(ctx context.Context, cfg any, namespace string) error {
	envConfig, err := getEnvConfig(cfg)
	if err != nil {
		return fmt.Errorf("get env config: %w", err)
	}

	dotenv, err := loadDotenv()
	if err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}

	envConfig.namespace = namespace
	envConfig.dotenv = dotenv
	envConfig.fallbacks = nil

	return parse(envConfig, "", cfg)
}

func loadDotenv() (string, error) {
	path, explicit := os.LookupEnv(DotenvVar)
	if !explicit {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}

		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}

	return path, nil
}

func parse(envConfig *EnvConfig, prefix string, c any) error {
	t := reflect.TypeOf(c).Elem()
	v := reflect.ValueOf(c).Elem()

	for i := range t.NumField() {
		field := t.Field(i)
		structField := v.Field(i)

		if field.Type == reflect.TypeOf(EnvConfig{}) || !field.IsExported() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			envPrefix := field.Tag.Get("envPrefix")

			if err := parse(envConfig, prefix+envPrefix, structField.Addr().Interface()); err != nil {
				return err
			}

			continue
		}

		if err := parseField(envConfig, prefix, field, structField); err != nil {
			return fmt.Errorf("parse field: %w", err)
		}
	}

	return nil
}

// lookup resolves a variable name against the namespace, most specific first.
func lookup(namespace, name string) (string, string, bool) {
	var nsParts []string
	if namespace != "" {
		nsParts = strings.Split(namespace, "_")
	}

	for i := len(nsParts); i >= 0; i-- {
		envName := name
		if i > 0 {
			envName = strings.Join(nsParts[:i], "_") + "_" + name
		}

		if value, ok := os.LookupEnv(envName); ok {
			return envName, value, true
		}
	}

	return name, "", false
}

func parseField(
	envConfig *EnvConfig,
	prefix string,
	field reflect.StructField,
	structField reflect.Value,
) error {
	envTag := field.Tag.Get("env")
	if envTag == "" {
		return nil
	}

	defaultValue, hasDefault := field.Tag.Lookup("default")
	lenient := field.Tag.Get("fallback") == "true"

	envName, envValue, envExists := lookup(envConfig.namespace, prefix+envTag)
	if !envExists {
		if !hasDefault {
			return fmt.Errorf("%w: %s", ErrVarNotSet, prefix+envTag)
		}

		envValue = defaultValue
	}

	err := setValue(structField, envValue)
	if err == nil || errors.Is(err, ErrUnsupportedVarType) {
		if err != nil {
			return fmt.Errorf("%s: %w", envName, err)
		}

		return nil
	}

	if !lenient || !hasDefault || !envExists {
		return fmt.Errorf("%s: %w", envName, err)
	}

	envConfig.fallbacks = append(envConfig.fallbacks, Fallback{
		Name:    envName,
		Value:   envValue,
		Default: defaultValue,
		Err:     err,
	})

	if err := setValue(structField, defaultValue); err != nil {
		return fmt.Errorf("%s default: %w", envName, err)
	}

	return nil
}

//nolint:exhaustive
func setValue(structField reflect.Value, value string) error {
	switch structField.Kind() {
	case reflect.String:
		structField.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, structField.Type().Bits())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}

		structField.SetInt(intValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}

		structField.SetBool(boolValue)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedVarType, structField.Kind())
	}

	return nil
}
