package cookieapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EncodeQuery returns the wire form of a cookies.get argument.
func EncodeQuery(q CookieQuery) (json.RawMessage, error) {
	return json.Marshal(q)
}

// EncodeWrite returns the wire form of a cookies.set argument.
func EncodeWrite(w CookieWrite) (json.RawMessage, error) {
	return json.Marshal(w)
}

// IsAbsent reports whether raw is the host's empty sentinel: no payload,
// whitespace only, or JSON null.
func IsAbsent(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// DecodeCookie decodes a host response into a Cookie.
// It returns (nil, nil) for the empty sentinel and a *DecodeError when the
// payload is not a complete Cookie object. Keys are matched exactly; unknown
// keys are ignored.
func DecodeCookie(raw []byte) (*Cookie, error) {
	return decodeCookie("", raw)
}

func decodeCookie(op string, raw []byte) (*Cookie, error) {
	if IsAbsent(raw) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &DecodeError{Op: op, Err: fmt.Errorf("%w: got JSON %s", ErrNotObject, typeErr.Value)}
		}
		return nil, &DecodeError{Op: op, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	var c Cookie
	d := fieldDecoder{op: op, fields: fields}
	d.required("domain", &c.Domain)
	d.optional("expirationDate", &c.ExpirationDate)
	d.required("hostOnly", &c.HostOnly)
	d.required("httpOnly", &c.HTTPOnly)
	d.required("name", &c.Name)
	c.PartitionKey = d.partitionKey("partitionKey")
	d.required("path", &c.Path)
	d.required("sameSite", &c.SameSite)
	d.required("secure", &c.Secure)
	d.required("session", &c.Session)
	d.required("storeId", &c.StoreID)
	d.required("value", &c.Value)
	if d.err != nil {
		return nil, d.err
	}
	if c.Session != (c.ExpirationDate == nil) {
		return nil, &DecodeError{Op: op, Field: "session", Err: ErrSessionMismatch}
	}
	return &c, nil
}

// fieldDecoder decodes one key at a time and keeps the first failure.
// prefix names the enclosing object in errors.
type fieldDecoder struct {
	op     string
	prefix string
	fields map[string]json.RawMessage
	err    error
}

// required decodes key into dst. A missing key or a null value is an error.
func (d *fieldDecoder) required(key string, dst any) {
	if d.err != nil {
		return
	}
	v, ok := d.fields[key]
	if !ok || IsAbsent(v) {
		d.err = &DecodeError{Op: d.op, Field: d.prefix + key, Err: ErrMissingField}
		return
	}
	d.decode(key, v, dst)
}

// optional decodes key into dst when present and not null.
func (d *fieldDecoder) optional(key string, dst any) {
	if d.err != nil {
		return
	}
	v, ok := d.fields[key]
	if !ok || IsAbsent(v) {
		return
	}
	d.decode(key, v, dst)
}

func (d *fieldDecoder) decode(key string, v json.RawMessage, dst any) {
	err := json.Unmarshal(v, dst)
	if err == nil {
		return
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := d.prefix + key
		if typeErr.Field != "" {
			field += "." + typeErr.Field
		}
		d.err = &DecodeError{Op: d.op, Field: field, Err: fmt.Errorf("%w: got JSON %s", ErrWrongType, typeErr.Value)}
		return
	}
	d.err = &DecodeError{Op: d.op, Field: d.prefix + key, Err: err}
}

// partitionKey decodes the nested partition key with the same exact key
// matching as the cookie itself.
func (d *fieldDecoder) partitionKey(key string) *CookiePartitionKey {
	var fields map[string]json.RawMessage
	d.optional(key, &fields)
	if d.err != nil || fields == nil {
		return nil
	}
	var pk CookiePartitionKey
	sub := fieldDecoder{op: d.op, prefix: d.prefix + key + ".", fields: fields}
	sub.optional("hasCrossSiteAncestor", &pk.HasCrossSiteAncestor)
	sub.optional("topLevelSite", &pk.TopLevelSite)
	if sub.err != nil {
		d.err = sub.err
		return nil
	}
	return &pk
}
