package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/ogen-go/ogen/validate"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeErrors writes {"message": message, "errors": [reasons...]}.
func writeErrors(w http.ResponseWriter, status int, message string, reasons ...string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			e.Field("errors", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, r := range reasons {
						e.Str(r)
					}
				})
			})
		})
	})
}

// writeValidation writes {"message": message, "errors": {field: [msgs...]}},
// keeping fields in the order they failed.
func writeValidation(w http.ResponseWriter, message string, verr *validate.Error) {
	var (
		order    []string
		messages = make(map[string][]string)
	)
	for _, f := range verr.Fields {
		if _, ok := messages[f.Name]; !ok {
			order = append(order, f.Name)
		}
		messages[f.Name] = append(messages[f.Name], f.Error.Error())
	}

	writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			e.Field("errors", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for _, name := range order {
						e.Field(name, func(e *jx.Encoder) {
							e.Arr(func(e *jx.Encoder) {
								for _, m := range messages[name] {
									e.Str(m)
								}
							})
						})
					}
				})
			})
		})
	})
}
