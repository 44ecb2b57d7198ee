package handler

import (
	"io"
	"math"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/ogen-go/ogen/validate"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/pricing"
)

const (
	// msgInvalid is reported for values of the wrong JSON kind.
	msgInvalid = "This value is not valid."
	// msgMalformedBody is reported when the body is not a JSON object.
	msgMalformedBody = "malformed request body"
)

// formValue is a top-level request member. Numbers and strings are kept as
// text so that both "count": 2 and "count": "2" are accepted.
type formValue struct {
	text    string
	present bool
	scalar  bool
}

// form holds the members of a flat JSON object.
type form map[string]formValue

func readForm(w http.ResponseWriter, r *http.Request, limit int64) (form, error) {
	body := http.MaxBytesReader(w, r.Body, limit)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	f, err := decodeForm(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode body")
	}
	return f, nil
}

func decodeForm(data []byte) (form, error) {
	f := form{}
	d := jx.DecodeBytes(data)
	if d.Next() == jx.Null {
		return f, d.Null()
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var v formValue
		switch d.Next() {
		case jx.Null:
			if err := d.Null(); err != nil {
				return err
			}
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			v = formValue{text: s, present: true, scalar: true}
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			v = formValue{text: n.String(), present: true, scalar: true}
		default:
			if err := d.Skip(); err != nil {
				return err
			}
			v = formValue{present: true}
		}
		f[string(key)] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// fieldErrors collects validation failures in the order they are found.
type fieldErrors struct {
	fields []validate.FieldError
	failed map[string]bool
}

func (e *fieldErrors) add(name, msg string) {
	if e.failed == nil {
		e.failed = make(map[string]bool)
	}
	e.failed[name] = true
	e.fields = append(e.fields, pricing.FieldError(name, msg))
}

// merge appends the failures of a domain validation, skipping fields that
// already failed to parse.
func (e *fieldErrors) merge(err error) {
	var verr *validate.Error
	if !errors.As(err, &verr) {
		return
	}
	for _, f := range verr.Fields {
		if e.failed[f.Name] {
			continue
		}
		e.fields = append(e.fields, f)
	}
}

func (e *fieldErrors) err() error {
	if len(e.fields) == 0 {
		return nil
	}
	return &validate.Error{Fields: e.fields}
}

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// text returns a required string member.
func (f form) text(name string, errs *fieldErrors) (string, bool) {
	v := f[name]
	switch {
	case !v.present:
		errs.add(name, pricing.MsgNotNull)
		return "", false
	case !v.scalar:
		errs.add(name, msgInvalid)
		return "", false
	}
	return v.text, true
}

// optionalText returns an optional string member; null and absent are "".
func (f form) optionalText(name string, errs *fieldErrors) string {
	v := f[name]
	if v.present && !v.scalar {
		errs.add(name, msgInvalid)
		return ""
	}
	return v.text
}

// integer returns a required numeric member holding an integral value.
func (f form) integer(name string, errs *fieldErrors) (int64, bool) {
	s, ok := f.text(name, errs)
	if !ok {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		errs.add(name, pricing.MsgNumeric)
		return 0, false
	}
	if !d.IsInteger() {
		errs.add(name, pricing.MsgInteger)
		return 0, false
	}
	if d.Abs().GreaterThan(maxInt64) {
		errs.add(name, msgInvalid)
		return 0, false
	}
	return d.IntPart(), true
}
