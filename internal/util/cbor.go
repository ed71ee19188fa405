package util

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// RenderCBOR decodes payload and prints it as indented JSON. Integer map
// keys found in labels are replaced by their names; byte strings use the
// h'..' diagnostic form.
func RenderCBOR(payload []byte, labels map[int64]string) (string, error) {
	var decoded any
	if err := cbor.Unmarshal(payload, &decoded); err != nil {
		return "", err
	}
	d := diagnostic{labels: labels}
	pretty, err := json.MarshalIndent(d.value(decoded), "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}

type diagnostic struct {
	labels map[int64]string
}

func (d diagnostic) value(v any) any {
	switch v := v.(type) {
	case []byte:
		return fmt.Sprintf("h'%x'", v)
	case []any:
		out := make([]any, 0, len(v))
		for _, elem := range v {
			out = append(out, d.value(elem))
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[d.key(k)] = d.value(elem)
		}
		return out
	case cbor.Tag:
		return map[string]any{"tag": v.Number, "value": d.value(v.Content)}
	default:
		return v
	}
}

func (d diagnostic) key(k any) string {
	var label int64
	switch k := k.(type) {
	case string:
		return k
	case []byte:
		return fmt.Sprintf("h'%x'", k)
	case uint64:
		label = int64(k)
	case int64:
		label = k
	default:
		return fmt.Sprint(k)
	}
	if name, ok := d.labels[label]; ok {
		return name
	}
	return fmt.Sprint(label)
}
