package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// File is a file upload sent as multipart/form-data.
type File struct {
	// Field is the form field name, e.g. "file" or "thumbnail".
	Field string
	// Name is the file name reported to the server.
	Name string
	// MIMEType defaults to application/octet-stream.
	MIMEType string
	Reader   io.Reader
}

// NormalizeParams drops nil values and converts the values the server expects in a specific
// form: time boundaries in *_id parameters become snowflake ids, ids become strings and other
// times become ISO 8601.
func NormalizeParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if isNil(v) {
			continue
		}
		out[k] = normalizeValue(k, v)
	}
	return out
}

func normalizeValue(key string, v any) any {
	switch x := v.(type) {
	case time.Time:
		if strings.HasSuffix(key, "_id") {
			return string(entity.IDFromTime(x))
		}
		return x.UTC().Format(time.RFC3339)
	case *time.Time:
		return normalizeValue(key, *x)
	case entity.ID:
		return string(x)
	case *entity.Entity:
		// Entities passed where an id is expected.
		switch id := x.Value("id").(type) {
		case entity.ID:
			return string(id)
		case string:
			return id
		}
		return x
	case map[string]any:
		return NormalizeParams(x)
	case []any:
		out := make([]any, 0, len(x))
		for _, it := range x {
			if !isNil(it) {
				out = append(out, normalizeValue(key, it))
			}
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			it := rv.Index(i).Interface()
			if !isNil(it) {
				out = append(out, normalizeValue(key, it))
			}
		}
		return out
	}
	return v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// EncodeForm flattens normalised params into form/query values: booleans become
// "true"/"false", sequences repeat under key[] and nested maps become key[sub].
func EncodeForm(params map[string]any) (url.Values, error) {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := encodeFormValue(values, k, params[k]); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func encodeFormValue(values url.Values, key string, v any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		values.Add(key, fmt.Sprint(x))
	case []any:
		name := key
		if !strings.HasSuffix(name, "[]") {
			name += "[]"
		}
		for _, it := range x {
			if err := encodeFormValue(values, name, it); err != nil {
				return err
			}
		}
	case map[string]any:
		sub := make([]string, 0, len(x))
		for k := range x {
			sub = append(sub, k)
		}
		sort.Strings(sub)
		for _, k := range sub {
			if err := encodeFormValue(values, key+"["+k+"]", x[k]); err != nil {
				return err
			}
		}
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", key, err)
		}
		values.Add(key, s)
	}
	return nil
}

// EncodeJSON writes normalised params as a JSON object.
func EncodeJSON(params map[string]any) ([]byte, error) {
	return json.Marshal(params)
}

// EncodeMultipart writes params and files as a multipart/form-data body. It returns the body
// and its content type.
func EncodeMultipart(params map[string]any, files []File) ([]byte, string, error) {
	form, err := EncodeForm(params)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range form[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, f := range files {
		name := f.Name
		if name == "" {
			name = f.Field
		}
		mimeType := f.MIMEType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, filepath.Base(name)))
		h.Set("Content-Type", mimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
