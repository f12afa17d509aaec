package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// TypedConfigList implements functionality for typing a ConfigList.
// In this way, a ConfigList can explicitly have its type stored so
// that when deserializing the ConfigList, we can deserialize it into
// its concrete type without knowing beforehand or declaring beforehand
// a variable of its concrete type.
type TypedConfigList struct {
	Type
	ConfigList
}

// NewTypedConfigList types the argument ConfigList and returns it
// as a TypedConfigList which explicitly holds its Type.
func NewTypedConfigList(c ConfigList) TypedConfigList {
	return TypedConfigList{Type: c.Type(), ConfigList: c}
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (j *TypedConfigList) UnmarshalJSON(data []byte) error {
	configs, typeName, err := unmarshalConfigList(
		data,
		"Type",
		"ConfigList")
	if err != nil {
		return err
	}

	j.Type = typeName
	j.ConfigList = configs

	return nil
}

// unmarshalConfigList uses reflection to unmarshal a ConfigList into
// its concrete type. Both the ConfigList and its Type are returned.
func unmarshalConfigList(data []byte, typeJSONField,
	valueJSONField string) (ConfigList, Type, error) {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", fmt.Errorf("agent: %w", err)
	}

	var typeName Type
	if err := json.Unmarshal(field(m, typeJSONField), &typeName); err != nil {
		return nil, "", fmt.Errorf("agent: could not read %v: %w",
			typeJSONField, err)
	}

	ty, found := registeredTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("agent: no config list registered for "+
			"type %q", typeName)
	}
	value := reflect.New(ty)

	raw := field(m, valueJSONField)
	if raw == nil {
		return nil, "", fmt.Errorf("agent: missing field %v", valueJSONField)
	}
	if err := json.Unmarshal(raw, value.Interface()); err != nil {
		return nil, "", fmt.Errorf("agent: %w", err)
	}
	concreteValue := value.Elem().Interface().(ConfigList)

	return concreteValue, typeName, nil
}

// field returns the value of the JSON field name, matching the name
// case-insensitively as encoding/json does for struct fields. Config
// loaders such as viper lower-case keys.
func field(m map[string]json.RawMessage, name string) json.RawMessage {
	if raw, ok := m[name]; ok {
		return raw
	}
	for key, raw := range m {
		if strings.EqualFold(key, name) {
			return raw
		}
	}
	return nil
}

// At returns the Config at index i in the TypedConfigList
func (t *TypedConfigList) At(i int) Config {
	return ConfigAt(i, t.ConfigList)
}
