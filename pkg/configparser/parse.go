package configparser

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var ErrNotStructPointer = errors.New("config target must be a non-nil pointer to a struct")

var durationType = reflect.TypeOf(time.Duration(0))

// LoadAndParseYaml loads the YAML file into the environment and then fills cfg
// from env vars using the `env` and `default` struct tags. A missing file is not an error.
func LoadAndParseYaml(filepath string, cfg any) error {
	if err := LoadYamlFile(filepath); err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, ErrNoFilePath) {
		return err
	}
	return Parse(cfg)
}

// Parse walks cfg recursively and sets every field that has an `env` tag.
func Parse(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}
	return parseStruct(rv.Elem())
}

func parseStruct(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)
		if !field.IsExported() {
			continue
		}

		key, hasEnv := field.Tag.Lookup("env")
		if !hasEnv {
			if fv.Kind() == reflect.Struct && field.Type != durationType {
				if err := parseStruct(fv); err != nil {
					return err
				}
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			raw, ok = field.Tag.Lookup("default")
			if !ok {
				continue
			}
		}

		if err := setValue(fv, raw); err != nil {
			return fmt.Errorf("config field %s (%s): %w", field.Name, key, err)
		}
	}
	return nil
}

func setValue(fv reflect.Value, raw string) error {
	raw = strings.TrimSpace(raw)

	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}
