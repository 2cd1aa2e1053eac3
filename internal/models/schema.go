package models

import "fmt"

// FieldType enumerates the types an upload schema field can take. Attachment
// types hold remote file-handle IDs rather than scalar values.
type FieldType string

const (
	FieldTypeAttachmentBlob      FieldType = "ATTACHMENT_BLOB"
	FieldTypeAttachmentCSV       FieldType = "ATTACHMENT_CSV"
	FieldTypeAttachmentJSONBlob  FieldType = "ATTACHMENT_JSON_BLOB"
	FieldTypeAttachmentJSONTable FieldType = "ATTACHMENT_JSON_TABLE"
	FieldTypeBoolean             FieldType = "BOOLEAN"
	FieldTypeCalendarDate        FieldType = "CALENDAR_DATE"
	FieldTypeFloat               FieldType = "FLOAT"
	FieldTypeInlineJSONBlob      FieldType = "INLINE_JSON_BLOB"
	FieldTypeInt                 FieldType = "INT"
	FieldTypeString              FieldType = "STRING"
	FieldTypeTimestamp           FieldType = "TIMESTAMP"
)

// IsAttachment reports whether the field's cell values are file-handle IDs
// that must be resolved through the bulk download API.
func (t FieldType) IsAttachment() bool {
	switch t {
	case FieldTypeAttachmentBlob, FieldTypeAttachmentCSV, FieldTypeAttachmentJSONBlob,
		FieldTypeAttachmentJSONTable:
		return true
	}
	return false
}

// FieldDefinition is one named, typed column in an upload schema.
type FieldDefinition struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// SchemaKey identifies a schema revision within a study.
type SchemaKey struct {
	StudyID  string `json:"studyId"`
	SchemaID string `json:"schemaId"`
	Revision int    `json:"revision"`
}

// String formats the key as <studyId>-<schemaId>-v<revision>.
func (k SchemaKey) String() string {
	return fmt.Sprintf("%s-%s-v%d", k.StudyID, k.SchemaID, k.Revision)
}

// UploadSchema describes the columns of one uploaded data table.
type UploadSchema struct {
	Key    SchemaKey         `json:"key"`
	Fields []FieldDefinition `json:"fields"`
}

// AttachmentFieldNames returns the set of column names whose type is
// attachment-kind. An empty map means the table carries no attachments.
func (s UploadSchema) AttachmentFieldNames() map[string]bool {
	var names map[string]bool
	for _, field := range s.Fields {
		if field.Type.IsAttachment() {
			if names == nil {
				names = make(map[string]bool)
			}
			names[field.Name] = true
		}
	}
	return names
}

// TableMapping maps a remote table ID to the upload schema it represents.
type TableMapping map[string]UploadSchema

// Put records a schema for a table ID. The same remote table may back
// multiple schema revisions; the highest revision wins.
func (m TableMapping) Put(tableID string, schema UploadSchema) {
	existing, ok := m[tableID]
	if ok && existing.Key.Revision >= schema.Key.Revision {
		return
	}
	m[tableID] = schema
}
