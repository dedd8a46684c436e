package docfinder

import "encoding/json"

// marshalJSON mirrors AferoStore.WriteJSON's encoding so a document map
// written via UploadIfAbsent is byte-identical to one written via WriteJSON.
func marshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
