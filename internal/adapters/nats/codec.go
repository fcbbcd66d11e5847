package natsadapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Payload encodings.
const (
	EncodingJSON     = "json"
	EncodingProtobuf = "protobuf"
)

const (
	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
	contentTypeProto  = "application/x-protobuf"
)

// encode serialises v as JSON or as a google.protobuf.Struct.
func encode(encoding string, v any) ([]byte, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	if encoding != EncodingProtobuf {
		return data, contentTypeJSON, nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, "", fmt.Errorf("struct: %w", err)
	}
	data, err = proto.Marshal(s)
	if err != nil {
		return nil, "", fmt.Errorf("proto marshal: %w", err)
	}
	return data, contentTypeProto, nil
}

// decode is the inverse of encode, picking the format from the content type.
func decode(contentType string, data []byte, out any) error {
	if contentType != contentTypeProto {
		return json.Unmarshal(data, out)
	}

	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("proto unmarshal: %w", err)
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// ValidToken reports whether s can be used as one subject token unchanged.
// Ids that fail it would be rewritten by token and could collide with
// another id, so they must be rejected where they enter the system.
func ValidToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".*> \t\r\n")
}

// token makes s safe to use as one subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// BoundarySubject is the subject boundary events of a farm are published on.
func BoundarySubject(tenantID, farmID string) string {
	return "fieldkit.boundary." + token(tenantID) + "." + token(farmID)
}

// AuditSubject is the subject audit reports of a farm are published on.
func AuditSubject(tenantID, farmID string) string {
	return "fieldkit.audit." + token(tenantID) + "." + token(farmID)
}

// TenantBoundarySubjects matches every boundary event of a tenant, or of all
// tenants when tenantID is empty.
func TenantBoundarySubjects(tenantID string) string {
	if tenantID == "" {
		return "fieldkit.boundary.>"
	}
	return "fieldkit.boundary." + token(tenantID) + ".>"
}

// TenantAuditSubjects matches every audit report of a tenant.
func TenantAuditSubjects(tenantID string) string {
	return "fieldkit.audit." + token(tenantID) + ".*"
}
