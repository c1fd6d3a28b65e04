package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/wire"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// decodeBody reads a JSON or protobuf (google.protobuf.Struct) body into v.
func decodeBody(r *http.Request, v any) error {
	if isProtobuf(r) {
		var s structpb.Struct
		if err := readProto(r, &s); err != nil {
			return err
		}
		return wire.FromStruct(&s, v)
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

// respond negotiates the response encoding from the Accept header.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !wantsProtobuf(r) {
		writeJSON(w, status, v)
		return
	}
	msg, err := wire.ToStruct(v)
	if err != nil {
		s.logger.Printf("proto encode error path=%s: %v", r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeProto(w, status, msg)
}
